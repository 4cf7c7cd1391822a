package app

import (
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the version number of delete-after",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.Printf("delete-after version %s (%s)\n", version, commit[:min(len(commit), 7)])
			return nil
		},
	}
}
