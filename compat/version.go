// Package compat validates that the appliance's product version falls inside
// the range this tool is written against, before any mutation is attempted.
package compat

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/vmsops/vmsctl/faults"
	"github.com/vmsops/vmsctl/server"
)

// Supported versions for the current resource schemas. The appliance reports
// builds like "5.4.0.20.10960402906660116571"; only major.minor.patch count.
const DefaultConstraint = ">= 5.4.0, < 5.6.0"

type Gate struct {
	Remote     server.RemoteState
	Constraint string
}

// Check reads the cluster's software version and validates it against the
// gate's constraint. It returns the detected version so callers can log it.
func (g Gate) Check(ctx context.Context) (string, error) {
	raw, err := g.productVersion(ctx)
	if err != nil {
		return "", err
	}

	version, err := parseProductVersion(raw)
	if err != nil {
		return raw, err
	}

	constraintExpr := strings.TrimSpace(g.Constraint)
	if constraintExpr == "" {
		constraintExpr = DefaultConstraint
	}
	constraint, err := semver.NewConstraint(constraintExpr)
	if err != nil {
		return raw, faults.NewTypedError(faults.InternalError, "invalid version constraint "+constraintExpr, err)
	}

	if !constraint.Check(version) {
		return raw, faults.NewTypedError(
			faults.ValidationError,
			fmt.Sprintf("appliance version %s is outside the supported range %s", raw, constraintExpr),
			nil,
		)
	}
	return raw, nil
}

func (g Gate) productVersion(ctx context.Context) (string, error) {
	value, err := g.Remote.Request(ctx, "GET", "clusters", nil, nil)
	if err != nil {
		return "", err
	}

	clusters, ok := value.([]any)
	if !ok || len(clusters) == 0 {
		return "", faults.NewTypedError(faults.InternalError, "cluster listing is empty, cannot determine product version", nil)
	}
	first, ok := clusters[0].(map[string]any)
	if !ok {
		return "", faults.NewTypedError(faults.InternalError, "cluster listing entry is not an object", nil)
	}
	version, ok := first["sw_version"].(string)
	if !ok || strings.TrimSpace(version) == "" {
		return "", faults.NewTypedError(faults.InternalError, "cluster listing has no sw_version field", nil)
	}
	return version, nil
}

// parseProductVersion reduces an appliance build string to a semantic
// version: build metadata and anything past the patch component is dropped.
func parseProductVersion(raw string) (*semver.Version, error) {
	base := strings.SplitN(raw, "-", 2)[0]
	base = strings.SplitN(base, "+", 2)[0]

	parts := strings.Split(base, ".")
	if len(parts) < 2 {
		return nil, faults.NewTypedError(
			faults.ValidationError,
			fmt.Sprintf("appliance version %q must have at least major.minor", raw),
			nil,
		)
	}
	if len(parts) > 3 {
		parts = parts[:3]
	}

	version, err := semver.NewVersion(strings.Join(parts, "."))
	if err != nil {
		return nil, faults.NewTypedError(
			faults.ValidationError,
			fmt.Sprintf("appliance version %q is not parseable", raw),
			err,
		)
	}
	return version, nil
}
