package cli

import (
	"github.com/spf13/cobra"
)

func NewRootCommand(deps Dependencies) *cobra.Command {
	deps = deps.withDefaults()
	var configPath string

	root := &cobra.Command{
		Use:   "vmsctl",
		Short: "Reconcile declared VMS resources against an appliance",
		RunE: func(command *cobra.Command, _ []string) error {
			return command.Help()
		},
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "path to the endpoint configuration file")

	root.AddCommand(newApplyCommand(deps, &configPath))
	root.AddCommand(newGetCommand(deps, &configPath))
	root.AddCommand(newVersionCommand())

	return root
}
