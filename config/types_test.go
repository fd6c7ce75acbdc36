package config

import (
	"testing"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/vmsops/vmsctl/faults"
)

func validEndpoint() Endpoint {
	return Endpoint{
		BaseURL: "https://vms.example.com",
		Auth:    &Auth{BearerToken: &BearerTokenAuth{Token: "token"}},
	}
}

func TestEndpointValidate(t *testing.T) {
	t.Parallel()

	if err := validEndpoint().Validate(); err != nil {
		t.Fatalf("valid endpoint rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Endpoint)
	}{
		{"missing_base_url", func(e *Endpoint) { e.BaseURL = "" }},
		{"bad_scheme", func(e *Endpoint) { e.BaseURL = "ftp://vms.example.com" }},
		{"missing_host", func(e *Endpoint) { e.BaseURL = "https://" }},
		{"missing_auth", func(e *Endpoint) { e.Auth = nil }},
		{"empty_auth", func(e *Endpoint) { e.Auth = &Auth{} }},
		{"both_auth_modes", func(e *Endpoint) {
			e.Auth = &Auth{
				BasicAuth:   &BasicAuth{Username: "admin", Password: "secret"},
				BearerToken: &BearerTokenAuth{Token: "token"},
			}
		}},
		{"basic_without_username", func(e *Endpoint) {
			e.Auth = &Auth{BasicAuth: &BasicAuth{Password: "secret"}}
		}},
		{"empty_token", func(e *Endpoint) {
			e.Auth = &Auth{BearerToken: &BearerTokenAuth{Token: " "}}
		}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			endpoint := validEndpoint()
			tc.mutate(&endpoint)
			err := endpoint.Validate()
			if !faults.IsCategory(err, faults.ValidationError) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestBasicAuthAllowsEmptyPassword(t *testing.T) {
	t.Parallel()

	// The password may be prompted interactively later on.
	endpoint := validEndpoint()
	endpoint.Auth = &Auth{BasicAuth: &BasicAuth{Username: "admin"}}
	if err := endpoint.Validate(); err != nil {
		t.Fatalf("username-only basic auth rejected: %v", err)
	}
}

func TestEffectiveTimeout(t *testing.T) {
	t.Parallel()

	if got := (Endpoint{}).EffectiveTimeout(); got != DefaultTimeout {
		t.Fatalf("got %v", got)
	}
	if got := (Endpoint{Timeout: Duration(time.Minute)}).EffectiveTimeout(); got != time.Minute {
		t.Fatalf("got %v", got)
	}
}

func TestDurationUnmarshalYAML(t *testing.T) {
	t.Parallel()

	var run Run
	if err := yaml.Unmarshal([]byte("wait-timeout: 10m"), &run); err != nil {
		t.Fatal(err)
	}
	if run.WaitTimeout != Duration(10*time.Minute) {
		t.Fatalf("wait-timeout = %v", time.Duration(run.WaitTimeout))
	}

	if err := yaml.Unmarshal([]byte("wait-timeout: soon"), &run); err == nil {
		t.Fatal("malformed duration accepted")
	}
}
