package reconciler

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/vmsops/vmsctl/resource"
)

// Summary aggregates the outcomes of one run. Failures are isolated per
// resource while the run continues, then surfaced together here.
type Summary struct {
	RunID    string
	Outcomes []Outcome
}

func (s Summary) Failures() int {
	failures := 0
	for _, outcome := range s.Outcomes {
		if !outcome.Success() {
			failures++
		}
	}
	return failures
}

// Err combines every per-resource failure, or nil when the run was clean.
func (s Summary) Err() error {
	var combined error
	for _, outcome := range s.Outcomes {
		if outcome.Err != nil {
			combined = multierr.Append(combined, outcome.Err)
		}
	}
	return combined
}

func (s Summary) ExitCode() int {
	if s.Failures() > 0 {
		return 1
	}
	return 0
}

// Run applies the declared resources in declaration order; that order is the
// author's only dependency guarantee. One resource's failure never blocks
// the rest, but a cancelled context ends the run.
func (r *Reconciler) Run(ctx context.Context, specs []resource.Spec) Summary {
	summary := Summary{
		RunID:    uuid.NewString(),
		Outcomes: make([]Outcome, 0, len(specs)),
	}
	log := r.log.WithValues("run", summary.RunID)
	log.Info("starting run", "resources", len(specs), "dry-run", r.dryRun)

	for _, spec := range specs {
		if ctx.Err() != nil {
			break
		}

		outcome := r.Apply(ctx, spec)
		summary.Outcomes = append(summary.Outcomes, outcome)

		if outcome.Err != nil {
			log.Error(outcome.Err, "resource failed", "kind", spec.Kind, "key", spec.Key, "status", outcome.Status)
		}
	}

	log.Info("run finished", "applied", len(summary.Outcomes), "failures", summary.Failures())
	return summary
}
