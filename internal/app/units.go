package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/delete-after/internal/duration"
	"github.com/blackwell-systems/delete-after/internal/output"
)

func newUnitsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "units",
		Short: "List the unit names accepted in .delete_after markers",
		Long: `List every unit token a marker may use. Tokens are case-insensitive.
A month is always 30 days and a year always 365 days.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(cmd.OutOrStdout(), output.RenderUnits(duration.Aliases()))
			return nil
		},
	}
}
