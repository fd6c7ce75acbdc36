// Package tlsconfig turns the endpoint TLS settings into a client
// configuration. It owns the secure defaults: callers always get a non-nil
// config with TLS 1.2 as the floor, whether or not anything was configured.
package tlsconfig

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"

	"github.com/vmsops/vmsctl/config"
	"github.com/vmsops/vmsctl/faults"
)

// ClientConfig builds the TLS client configuration for one endpoint. The
// scope names the config section in error messages.
func ClientConfig(settings *config.TLS, scope string) (*tls.Config, error) {
	clientConfig := &tls.Config{MinVersion: tls.VersionTLS12}
	if settings == nil {
		return clientConfig, nil
	}

	clientConfig.InsecureSkipVerify = settings.InsecureSkipVerify

	pool, err := rootPool(settings.CACertFile, scope)
	if err != nil {
		return nil, err
	}
	clientConfig.RootCAs = pool

	certificates, err := clientCertificates(settings.ClientCertFile, settings.ClientKeyFile, scope)
	if err != nil {
		return nil, err
	}
	clientConfig.Certificates = certificates

	return clientConfig, nil
}

// rootPool loads the custom CA bundle, nil when none is configured so the
// system roots stay in effect.
func rootPool(caCertFile string, scope string) (*x509.CertPool, error) {
	trimmed := strings.TrimSpace(caCertFile)
	if trimmed == "" {
		return nil, nil
	}

	pemBytes, err := os.ReadFile(trimmed)
	if err != nil {
		return nil, settingError(scope, "ca-cert-file could not be read", err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pemBytes) {
		return nil, settingError(scope, "ca-cert-file is not valid PEM", nil)
	}
	return pool, nil
}

func clientCertificates(certFile string, keyFile string, scope string) ([]tls.Certificate, error) {
	trimmedCert := strings.TrimSpace(certFile)
	trimmedKey := strings.TrimSpace(keyFile)

	switch {
	case trimmedCert == "" && trimmedKey == "":
		return nil, nil
	case trimmedCert == "" || trimmedKey == "":
		return nil, settingError(scope, "client-cert-file and client-key-file must both be set", nil)
	}

	certificate, err := tls.LoadX509KeyPair(trimmedCert, trimmedKey)
	if err != nil {
		return nil, settingError(scope, "client certificate pair is invalid", err)
	}
	return []tls.Certificate{certificate}, nil
}

func settingError(scope string, message string, cause error) error {
	return faults.NewTypedError(faults.ValidationError, fmt.Sprintf("%s.tls %s", scope, message), cause)
}
