package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vmsops/vmsctl/compat"
	"github.com/vmsops/vmsctl/faults"
	"github.com/vmsops/vmsctl/reconciler"
)

func newApplyCommand(deps Dependencies, configPath *string) *cobra.Command {
	var dryRun bool
	var skipVersionCheck bool
	var waitTimeout time.Duration

	command := &cobra.Command{
		Use:   "apply FILE...",
		Short: "Apply declared resources in declaration order",
		Long: strings.Join([]string{
			"Apply reads resource declarations from the given YAML files and",
			"reconciles each one against the appliance, in declaration order.",
			"A resource that already matches its declaration is left untouched.",
			"One resource's failure does not stop the rest of the run.",
		}, " "),
		Example: strings.Join([]string{
			"  vmsctl apply resources.yaml",
			"  vmsctl apply network.yaml views.yaml",
			"  vmsctl apply resources.yaml --dry-run",
		}, "\n"),
		Args: cobra.MinimumNArgs(1),
		RunE: func(command *cobra.Command, args []string) error {
			specs, err := deps.LoadSpecs(deps.Registry, args...)
			if err != nil {
				return err
			}
			if len(specs) == 0 {
				return faults.NewTypedError(faults.ValidationError, "no resources declared in the given files", nil)
			}

			remote, cfg, err := deps.connect(*configPath)
			if err != nil {
				return err
			}

			if !skipVersionCheck && !cfg.Run.SkipVersionCheck {
				gate := compat.Gate{Remote: remote}
				detected, err := gate.Check(command.Context())
				if err != nil {
					return err
				}
				deps.Log.V(1).Info("appliance version accepted", "version", detected)
			}

			opts := []reconciler.Option{
				reconciler.WithLogger(deps.Log),
				reconciler.WithDryRun(dryRun),
			}
			effectiveWait := waitTimeout
			if effectiveWait == 0 {
				effectiveWait = time.Duration(cfg.Run.WaitTimeout)
			}
			if effectiveWait > 0 {
				opts = append(opts, reconciler.WithWaitTimeout(effectiveWait))
			}

			engine := reconciler.New(remote, deps.Registry, opts...)
			summary := engine.Run(command.Context(), specs)
			writeSummary(command.OutOrStdout(), summary)

			if err := command.Context().Err(); err != nil {
				return faults.NewTypedError(faults.TransportError, "run interrupted", err)
			}
			return summary.Err()
		},
	}

	command.Flags().BoolVar(&dryRun, "dry-run", false, "plan every operation without submitting mutations")
	command.Flags().BoolVar(&skipVersionCheck, "skip-version-check", false, "skip the appliance product version gate")
	command.Flags().DurationVar(&waitTimeout, "wait-timeout", 0, "bound on waiting for asynchronous appliance tasks")

	return command
}

func writeSummary(w io.Writer, summary reconciler.Summary) {
	for _, outcome := range summary.Outcomes {
		label := string(outcome.Status)
		if outcome.Planned {
			label += " (planned)"
		}
		_, _ = fmt.Fprintf(w, "%-24s %s %q", label, outcome.Kind, outcome.Key)
		if len(outcome.Changed) > 0 {
			_, _ = fmt.Fprintf(w, " fields=%s", strings.Join(outcome.Changed, ","))
		}
		if outcome.Err != nil {
			_, _ = fmt.Fprintf(w, ": %s", strings.TrimSpace(outcome.Err.Error()))
		}
		_, _ = fmt.Fprintln(w)
	}
	_, _ = fmt.Fprintf(w, "%d resource(s) applied, %d failed\n", len(summary.Outcomes), summary.Failures())
}
