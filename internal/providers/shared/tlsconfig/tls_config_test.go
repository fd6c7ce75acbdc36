package tlsconfig

import (
	"crypto/tls"
	"os"
	"path/filepath"
	"testing"

	"github.com/vmsops/vmsctl/config"
	"github.com/vmsops/vmsctl/faults"
)

func TestClientConfigDefaults(t *testing.T) {
	t.Parallel()

	clientConfig, err := ClientConfig(nil, "endpoint")
	if err != nil {
		t.Fatalf("client config: %v", err)
	}
	if clientConfig == nil {
		t.Fatalf("nil settings must still yield a config")
	}
	if clientConfig.MinVersion != tls.VersionTLS12 {
		t.Fatalf("got min version %d", clientConfig.MinVersion)
	}
	if clientConfig.InsecureSkipVerify {
		t.Fatalf("verification must stay on by default")
	}
}

func TestClientConfigInsecureOptOut(t *testing.T) {
	t.Parallel()

	clientConfig, err := ClientConfig(&config.TLS{InsecureSkipVerify: true}, "endpoint")
	if err != nil {
		t.Fatalf("client config: %v", err)
	}
	if !clientConfig.InsecureSkipVerify {
		t.Fatalf("explicit opt-out must be honored")
	}
	if clientConfig.MinVersion != tls.VersionTLS12 {
		t.Fatalf("opt-out must not lower the version floor")
	}
}

func TestClientConfigRejectsBrokenSettings(t *testing.T) {
	t.Parallel()

	garbageFile := filepath.Join(t.TempDir(), "garbage.pem")
	if err := os.WriteFile(garbageFile, []byte("not a certificate"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	cases := []struct {
		name     string
		settings *config.TLS
	}{
		{"missing_ca_file", &config.TLS{CACertFile: filepath.Join(t.TempDir(), "absent.pem")}},
		{"ca_file_not_pem", &config.TLS{CACertFile: garbageFile}},
		{"cert_without_key", &config.TLS{ClientCertFile: garbageFile}},
		{"key_without_cert", &config.TLS{ClientKeyFile: garbageFile}},
		{"pair_not_parseable", &config.TLS{ClientCertFile: garbageFile, ClientKeyFile: garbageFile}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := ClientConfig(tc.settings, "endpoint")
			if !faults.IsCategory(err, faults.ValidationError) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}
