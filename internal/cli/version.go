package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Overridden at build time through -ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print CLI version",
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(command.OutOrStdout(), "%s (%s) %s\n", Version, Commit, BuildDate)
			return err
		},
	}
}
