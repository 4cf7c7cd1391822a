package app

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/delete-after/internal/expiry"
	"github.com/blackwell-systems/delete-after/internal/output"
	"github.com/blackwell-systems/delete-after/internal/resolver"
)

func newExplainCmd() *cobra.Command {
	var root string

	cmd := &cobra.Command{
		Use:   "explain PATH",
		Short: "Show which rule applies to a file and what a run would decide",
		Long: `Resolve the nearest .delete_after marker above PATH and evaluate the file
against it. Nothing is deleted.

With --root the search stops at that directory, which matches what a run
over that root would decide. Without it the search continues up to the
filesystem root.`,
		Example: `  delete-after explain /srv/tmp/build/output.tar
  delete-after explain --root /srv/tmp /srv/tmp/build/output.tar`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(cmd, args[0], root)
		},
	}

	cmd.Flags().StringVar(&root, "root", "", "stop the marker search at this directory")
	return cmd
}

func runExplain(cmd *cobra.Command, path, root string) error {
	log := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), NoColor: true}).
		Level(zerolog.WarnLevel)

	c, err := resolver.New(log).Lookup(path, root)
	if err != nil {
		return fmt.Errorf("cannot explain %s: %w", path, err)
	}

	o := expiry.NewEngine(nil).Evaluate(c)
	fmt.Fprint(cmd.OutOrStdout(), output.RenderExplain(o))
	return nil
}
