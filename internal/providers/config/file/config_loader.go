package file

import (
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/vmsops/vmsctl/config"
	"github.com/vmsops/vmsctl/faults"
)

// ResolveConfigPath picks the explicit path, the environment override or the
// default location, in that order.
func ResolveConfigPath(explicit string) string {
	if strings.TrimSpace(explicit) != "" {
		return explicit
	}
	if fromEnv := strings.TrimSpace(os.Getenv(config.ConfigFileEnvVar)); fromEnv != "" {
		return fromEnv
	}
	return config.DefaultConfigPath
}

func LoadConfig(path string) (config.Config, error) {
	resolved, err := expandHome(path)
	if err != nil {
		return config.Config{}, err
	}

	raw, err := os.ReadFile(resolved)
	if err != nil {
		return config.Config{}, faults.NewTypedError(
			faults.ValidationError,
			"config file "+resolved+" could not be read",
			err,
		)
	}

	var cfg config.Config
	decoder := yaml.NewDecoder(strings.NewReader(string(raw)))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return config.Config{}, faults.NewTypedError(
			faults.ValidationError,
			"config file "+resolved+" is not valid YAML",
			err,
		)
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", faults.NewTypedError(faults.InternalError, "cannot resolve home directory", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
