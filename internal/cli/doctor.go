package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/azdiagram/pkg/errors"
	"github.com/matzehuels/azdiagram/pkg/inventory/azcli"
)

// doctorCommand creates the doctor command, which checks the Azure CLI
// setup before a live collection.
func (c *CLI) doctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that the Azure CLI is installed, signed in and has the resource-graph extension",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := azcli.New(azcli.WithLogger(c.Logger))
			checks := client.Preflight(cmd.Context())
			if err := cmd.Context().Err(); err != nil {
				return err
			}
			printChecks(checks)

			if failed, ok := azcli.Failed(checks); ok {
				return errors.New(failed.Code, "%s check failed: %s", failed.Name, failed.Detail)
			}
			printNextStep("Ready", "azdiagram collect --pick -o graph.json")
			return nil
		},
	}
}

func printChecks(checks []azcli.Check) {
	for _, ch := range checks {
		if ch.OK {
			printSuccess("%-16s %s", ch.Name, StyleDim.Render(ch.Detail))
		} else {
			printError("%-16s %s", ch.Name, ch.Detail)
		}
	}
}
