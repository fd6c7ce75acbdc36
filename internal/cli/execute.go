package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	"github.com/spf13/pflag"

	"github.com/vmsops/vmsctl/config"
	"github.com/vmsops/vmsctl/faults"
	configfile "github.com/vmsops/vmsctl/internal/providers/config/file"
	vmshttp "github.com/vmsops/vmsctl/internal/providers/server/http"
	"github.com/vmsops/vmsctl/resource"
	"github.com/vmsops/vmsctl/schema"
	"github.com/vmsops/vmsctl/server"
)

// Dependencies are the seams every command runs through. Zero fields fall
// back to the production implementations; tests override what they need.
type Dependencies struct {
	Registry *schema.Registry
	Log      logr.Logger

	LoadConfig   func(path string) (config.Config, error)
	LoadSpecs    func(registry *schema.Registry, paths ...string) ([]resource.Spec, error)
	NewRemote    func(cfg config.Endpoint, log logr.Logger) (server.RemoteState, error)
	ReadPassword func(prompt string) (string, error)
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Registry == nil {
		d.Registry = schema.Default()
	}
	if d.LoadConfig == nil {
		d.LoadConfig = func(path string) (config.Config, error) {
			return configfile.LoadConfig(configfile.ResolveConfigPath(path))
		}
	}
	if d.LoadSpecs == nil {
		d.LoadSpecs = configfile.LoadSpecs
	}
	if d.NewRemote == nil {
		d.NewRemote = func(cfg config.Endpoint, log logr.Logger) (server.RemoteState, error) {
			return vmshttp.NewVMSGateway(cfg, vmshttp.WithLogger(log))
		}
	}
	if d.ReadPassword == nil {
		d.ReadPassword = readPasswordFromTerminal
	}
	return d
}

func Execute(ctx context.Context, deps Dependencies) error {
	root := NewRootCommand(deps)
	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		_, _ = fmt.Fprintln(root.ErrOrStderr(), strings.TrimSpace(err.Error()))
		return err
	}
	return nil
}

func ExitCodeForError(err error) int {
	if err == nil {
		return 0
	}

	var typedErr *faults.TypedError
	if !errors.As(err, &typedErr) {
		return 1
	}

	switch typedErr.Category {
	case faults.ValidationError:
		return 2
	case faults.NotFoundError:
		return 3
	case faults.AuthError:
		return 4
	case faults.ConflictError:
		return 5
	case faults.TransportError:
		return 6
	case faults.AmbiguousMatchError:
		return 7
	case faults.UnresolvedReferenceError:
		return 8
	default:
		return 1
	}
}

// connect loads configuration, completes the credentials and builds the
// remote gateway. Every command that talks to the appliance starts here.
func (d Dependencies) connect(configPath string) (server.RemoteState, config.Config, error) {
	cfg, err := d.LoadConfig(configPath)
	if err != nil {
		return nil, config.Config{}, err
	}

	if cfg.Endpoint.Auth != nil && cfg.Endpoint.Auth.BasicAuth != nil &&
		strings.TrimSpace(cfg.Endpoint.Auth.BasicAuth.Password) == "" {
		password, err := d.ReadPassword("Password for " + cfg.Endpoint.Auth.BasicAuth.Username + ": ")
		if err != nil {
			return nil, config.Config{}, err
		}
		cfg.Endpoint.Auth.BasicAuth.Password = password
	}

	remote, err := d.NewRemote(cfg.Endpoint, d.Log)
	if err != nil {
		return nil, config.Config{}, err
	}
	return remote, cfg, nil
}
