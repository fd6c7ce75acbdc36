package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/vmsops/vmsctl/faults"
	"github.com/vmsops/vmsctl/resource"
)

func newGetCommand(deps Dependencies, configPath *string) *cobra.Command {
	command := &cobra.Command{
		Use:   "get KIND [NAME]",
		Short: "List remote resources of a kind",
		Long: strings.Join([]string{
			"Get lists the appliance's objects of the given kind as YAML.",
			"With NAME, only the object whose natural key equals NAME is shown",
			"and a missing object is an error.",
		}, " "),
		Example: strings.Join([]string{
			"  vmsctl get vippool",
			"  vmsctl get vippool main",
			"  vmsctl get quota /data/projects",
		}, "\n"),
		Args: cobra.RangeArgs(1, 2),
		RunE: func(command *cobra.Command, args []string) error {
			descriptor, err := deps.Registry.Lookup(resource.Kind(args[0]))
			if err != nil {
				return err
			}

			remote, _, err := deps.connect(*configPath)
			if err != nil {
				return err
			}

			objects, err := remote.List(command.Context(), descriptor)
			if err != nil {
				return err
			}

			if len(args) == 2 {
				objects = filterByNaturalKey(objects, descriptor.NaturalKey, args[1])
				if len(objects) == 0 {
					return faults.NewTypedError(
						faults.NotFoundError,
						fmt.Sprintf("no %s with %s %q", descriptor.Collection, descriptor.NaturalKey, args[1]),
						nil,
					)
				}
			}

			payloads := make([]map[string]any, len(objects))
			for idx, object := range objects {
				payloads[idx] = object.Payload
			}
			rendered, err := yaml.Marshal(payloads)
			if err != nil {
				return faults.NewTypedError(faults.InternalError, "could not render listing", err)
			}
			_, _ = command.OutOrStdout().Write(rendered)
			return nil
		},
	}
	return command
}

func filterByNaturalKey(objects []resource.Object, naturalKey string, value string) []resource.Object {
	var matches []resource.Object
	for _, object := range objects {
		if field, ok := object.Field(naturalKey); ok && field == value {
			matches = append(matches, object)
		}
	}
	return matches
}
