package http

import (
	"net/http"

	"github.com/vmsops/vmsctl/config"
)

type authMode int

const (
	authModeUnknown authMode = iota
	authModeBasic
	authModeBearer
)

type authConfig struct {
	mode      authMode
	basicAuth config.BasicAuth
	bearer    config.BearerTokenAuth
}

func buildAuthConfig(cfg *config.Auth) (authConfig, error) {
	if cfg == nil {
		return authConfig{}, validationError("endpoint.auth is required", nil)
	}

	switch {
	case cfg.BasicAuth != nil && cfg.BearerToken != nil:
		return authConfig{}, validationError("endpoint.auth must define basic-auth or bearer-token, not both", nil)
	case cfg.BasicAuth != nil:
		basic := *cfg.BasicAuth
		if basic.Username == "" {
			return authConfig{}, validationError("endpoint.auth.basic-auth.username is required", nil)
		}
		return authConfig{mode: authModeBasic, basicAuth: basic}, nil
	case cfg.BearerToken != nil:
		bearer := *cfg.BearerToken
		if bearer.Token == "" {
			return authConfig{}, validationError("endpoint.auth.bearer-token.token is required", nil)
		}
		return authConfig{mode: authModeBearer, bearer: bearer}, nil
	default:
		return authConfig{}, validationError("endpoint.auth must define basic-auth or bearer-token", nil)
	}
}

func (g *VMSGateway) applyAuth(request *http.Request) error {
	switch g.auth.mode {
	case authModeBasic:
		request.SetBasicAuth(g.auth.basicAuth.Username, g.auth.basicAuth.Password)
	case authModeBearer:
		request.Header.Set("Authorization", "Bearer "+g.auth.bearer.Token)
	default:
		return validationError("endpoint.auth mode is not configured", nil)
	}
	return nil
}
