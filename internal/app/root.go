package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/delete-after/internal/config"
	"github.com/blackwell-systems/delete-after/internal/logging"
	"github.com/blackwell-systems/delete-after/internal/metrics"
	"github.com/blackwell-systems/delete-after/internal/output"
	"github.com/blackwell-systems/delete-after/internal/report"
	"github.com/blackwell-systems/delete-after/internal/runner"
	"github.com/blackwell-systems/delete-after/internal/store"
)

// Versioning information set at build time
var version, commit = "dev", "n/a"

// ErrRunErrors is returned when a run recorded at least one error.
var ErrRunErrors = errors.New("run completed with errors")

var errNoRoots = errors.New("no roots given: pass at least one directory or set roots in the config file")

// RootCmd is the root command for delete-after
var RootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete-after [flags] ROOT...",
		Short: "Delete files once they outlive the age declared in .delete_after markers",
		Long: `delete-after walks the given roots and deletes regular files whose age
exceeds the limit declared by the nearest .delete_after marker in an
ancestor directory.

A marker contains a single "<number> <unit>" line, for example "7 days" or
"1.5 hours". A marker in a subdirectory overrides its parent for that
subtree. Files with no marker above them are never touched, and marker
files themselves are never deleted. Symbolic links are neither followed
nor deleted.

Run with --dry-run first to see what would be removed.`,
		Example: `  # Preview what would be deleted
  delete-after --dry-run /srv/tmp

  # Delete expired files under two roots and keep a journal
  delete-after --journal ~/.config/delete-after/journal.db /srv/tmp /var/cache/app

  # Explain the decision for one file
  delete-after explain /srv/tmp/build/output.tar`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runDeleteAfter,
	}

	config.RegisterFlags(cmd.Flags())

	// Enable cobra's built-in suggestion feature for unknown subcommands
	cmd.SuggestionsMinimumDistance = 2

	cmd.AddCommand(newExplainCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newUnitsCmd())
	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newWatchCmd())
	return cmd
}

// Execute runs the root command. Cancelling ctx interrupts a run in progress.
func Execute(ctx context.Context) error {
	return RootCmd.ExecuteContext(ctx)
}

func runDeleteAfter(cmd *cobra.Command, args []string) error {
	settings, err := config.Load(cmd.Flags(), args)
	if err != nil {
		return err
	}
	if len(settings.Roots) == 0 {
		return errNoRoots
	}

	logger, err := newLogger(cmd.OutOrStdout(), settings)
	if err != nil {
		return err
	}
	defer logger.Close()

	return executeRun(cmd.Context(), cmd.OutOrStdout(), logger.Logger, settings)
}

func newLogger(console io.Writer, settings *config.Settings) (*logging.Logger, error) {
	logger, err := logging.New(logging.Options{
		Verbose: settings.Verbose,
		File:    expandHome(settings.LogFile),
		NoFile:  settings.NoLogFile,
		Format:  settings.LogFormat,
		Console: console,
	})
	if err != nil {
		return nil, err
	}
	if settings.Source != "" {
		logger.Debug().Str("config", settings.Source).Msg("loaded config file")
	}
	return logger, nil
}

// executeRun performs one run, prints its summary to out and writes the
// configured outputs.
func executeRun(ctx context.Context, out io.Writer, log zerolog.Logger, settings *config.Settings) error {
	rep := runner.New(log, runner.Options{DryRun: settings.DryRun}).Run(ctx, settings.Roots)
	summary := rep.Summarize()

	fmt.Fprintln(out)
	fmt.Fprint(out, output.RenderSummary(summary))

	var errs []error
	if err := writeArtifacts(log, settings, rep); err != nil {
		errs = append(errs, err)
	}
	if rep.HasErrors() {
		errs = append(errs, fmt.Errorf("%w: %d", ErrRunErrors, summary.Errors))
	}
	return errors.Join(errs...)
}

// writeArtifacts persists the optional journal, metrics and report outputs.
// Each is attempted even if an earlier one fails.
func writeArtifacts(log zerolog.Logger, s *config.Settings, rep *report.Report) error {
	var errs []error

	if s.Journal != "" {
		if err := recordJournal(expandHome(s.Journal), rep, s.Roots); err != nil {
			errs = append(errs, err)
		} else {
			log.Debug().Str("journal", s.Journal).Msg("run recorded")
		}
	}

	if s.MetricsFile != "" {
		if err := metrics.WriteTextfile(s.MetricsFile, rep.Summarize()); err != nil {
			errs = append(errs, fmt.Errorf("failed to write metrics: %w", err))
		} else {
			log.Debug().Str("metrics_file", s.MetricsFile).Msg("metrics written")
		}
	}

	if s.ReportFile != "" {
		if err := rep.WriteFile(s.ReportFile); err != nil {
			errs = append(errs, err)
		} else {
			log.Info().Str("report_file", s.ReportFile).Msg("report written")
		}
	}

	for _, err := range errs {
		log.Error().Err(err).Msg("failed to write run output")
	}
	return errors.Join(errs...)
}

func recordJournal(path string, rep *report.Report, roots []string) error {
	if err := ensureParentDir(path); err != nil {
		return err
	}
	st, err := store.New(path)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.CreateSchema(); err != nil {
		return err
	}
	return st.RecordRun(rep, roots)
}
