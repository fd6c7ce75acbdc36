package config

import (
	"net/url"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/vmsops/vmsctl/faults"
)

const (
	ConfigFileEnvVar  = "VMSCTL_CONFIG"
	DefaultConfigPath = "~/.vmsctl/config.yaml"
	DefaultTimeout    = 30 * time.Second
)

// Config is the tool's YAML configuration surface: one management endpoint
// plus run-level defaults.
type Config struct {
	Endpoint Endpoint `yaml:"endpoint"`
	Run      Run      `yaml:"run,omitempty"`
}

type Endpoint struct {
	// BaseURL points at the appliance management address, e.g.
	// https://vms.example.com. Collection paths are appended under /api/.
	BaseURL string   `yaml:"base-url"`
	Auth    *Auth    `yaml:"auth,omitempty"`
	TLS     *TLS     `yaml:"tls,omitempty"`
	Timeout Duration `yaml:"timeout,omitempty"`
	Tenant  string   `yaml:"tenant,omitempty"`
}

// Duration is a time.Duration that reads from YAML in the "30s" / "5m" form.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return validationError("duration must be a string like 30s or 5m", err)
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return validationError("invalid duration "+raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

type Auth struct {
	BasicAuth   *BasicAuth       `yaml:"basic-auth,omitempty"`
	BearerToken *BearerTokenAuth `yaml:"bearer-token,omitempty"`
}

type BasicAuth struct {
	Username string `yaml:"username"`
	Password string `yaml:"password,omitempty"`
}

type BearerTokenAuth struct {
	Token string `yaml:"token"`
}

type TLS struct {
	// InsecureSkipVerify disables certificate validation. Off unless the
	// operator asks for it explicitly.
	InsecureSkipVerify bool   `yaml:"insecure-skip-verify,omitempty"`
	CACertFile         string `yaml:"ca-cert-file,omitempty"`
	ClientCertFile     string `yaml:"client-cert-file,omitempty"`
	ClientKeyFile      string `yaml:"client-key-file,omitempty"`
}

type Run struct {
	// WaitTimeout bounds polling of asynchronous appliance tasks.
	WaitTimeout Duration `yaml:"wait-timeout,omitempty"`
	// SkipVersionCheck disables the product-version gate.
	SkipVersionCheck bool `yaml:"skip-version-check,omitempty"`
}

func (c Config) Validate() error {
	return c.Endpoint.Validate()
}

func (e Endpoint) Validate() error {
	value := strings.TrimSpace(e.BaseURL)
	if value == "" {
		return validationError("endpoint.base-url is required", nil)
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return validationError("endpoint.base-url is invalid", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return validationError("endpoint.base-url must use http or https", nil)
	}
	if parsed.Host == "" {
		return validationError("endpoint.base-url host is required", nil)
	}
	return e.Auth.validate()
}

// validate enforces the credential contract: a token or a username+password
// pair, never both, never neither.
func (a *Auth) validate() error {
	if a == nil {
		return validationError("endpoint.auth is required: provide basic-auth or bearer-token", nil)
	}

	hasBasic := a.BasicAuth != nil
	hasToken := a.BearerToken != nil

	switch {
	case hasBasic && hasToken:
		return validationError("endpoint.auth must define basic-auth or bearer-token, not both", nil)
	case hasBasic:
		if strings.TrimSpace(a.BasicAuth.Username) == "" {
			return validationError("endpoint.auth.basic-auth.username is required", nil)
		}
		return nil
	case hasToken:
		if strings.TrimSpace(a.BearerToken.Token) == "" {
			return validationError("endpoint.auth.bearer-token.token is required", nil)
		}
		return nil
	default:
		return validationError("endpoint.auth must define basic-auth or bearer-token", nil)
	}
}

func (e Endpoint) EffectiveTimeout() time.Duration {
	if e.Timeout > 0 {
		return time.Duration(e.Timeout)
	}
	return DefaultTimeout
}

func validationError(message string, cause error) error {
	return faults.NewTypedError(faults.ValidationError, message, cause)
}
