// Package runner drives one expiration run: walk the roots, evaluate each
// candidate, execute deletions and aggregate the report.
package runner

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/blackwell-systems/delete-after/internal/expiry"
	"github.com/blackwell-systems/delete-after/internal/report"
	"github.com/blackwell-systems/delete-after/internal/resolver"
)

// Options configures a run.
type Options struct {
	DryRun bool

	// RunID is generated when empty.
	RunID string

	// Clock defaults to time.Now.
	Clock expiry.Clock

	// ExecutorOptions are passed to expiry.NewExecutor.
	ExecutorOptions []expiry.ExecutorOption
}

// Runner executes runs.
type Runner struct {
	log  zerolog.Logger
	opts Options
}

// New creates a Runner.
func New(log zerolog.Logger, opts Options) *Runner {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Runner{log: log, opts: opts}
}

// Run processes roots in order and returns the report. It never fails as a
// whole: per-entry problems are recorded in the report. If ctx is cancelled
// the run stops before the next candidate and the report is marked
// interrupted.
func (r *Runner) Run(ctx context.Context, roots []string) *report.Report {
	runID := r.opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	log := r.log.With().Str("run_id", runID).Logger()

	rep := report.New(runID, r.opts.DryRun, r.opts.Clock())

	if r.opts.DryRun {
		log.Info().Msg("running in DRY RUN mode - no files will be deleted")
	}
	log.Info().Strs("roots", roots).Msg("starting scan")

	res := resolver.New(log, resolver.WithObserver(rep))
	engine := expiry.NewEngine(r.opts.Clock)
	exec := expiry.NewExecutor(log, r.opts.ExecutorOptions...)

	for c := range res.Walk(roots...) {
		if ctx.Err() != nil {
			log.Warn().Err(ctx.Err()).Msg("run interrupted, remaining files left unvisited")
			rep.MarkInterrupted()
			break
		}

		o := exec.Execute(engine.Evaluate(c), r.opts.DryRun)
		logOutcome(log, o)
		rep.Record(o)
	}

	rep.Finish(r.opts.Clock())
	logSummary(log, rep.Summarize())
	return rep
}

// logOutcome logs decisions the executor and resolver do not already report.
func logOutcome(log zerolog.Logger, o expiry.Outcome) {
	switch o.Decision {
	case expiry.Kept, expiry.Skipped, expiry.SkippedNoRule:
		log.Debug().
			Str("path", o.Candidate.Path).
			Str("decision", o.Decision.String()).
			Str("reason", o.Reason).
			Msg("keeping")
	case expiry.Errored:
		if o.Candidate.Kind == resolver.KindFile {
			return
		}
		// Resolver errors were logged when found; record the decision at debug.
		log.Debug().Str("path", o.Candidate.Path).Str("reason", o.Reason).Msg("not evaluated")
	}
}

func logSummary(log zerolog.Logger, s report.Summary) {
	verb := "files_deleted"
	if s.DryRun {
		verb = "files_would_delete"
	}
	log.Info().
		Str("elapsed", s.Duration.Round(time.Millisecond).String()).
		Int("directories", s.Directories).
		Int("markers", s.Markers).
		Int("scanned", s.Scanned).
		Int(verb, s.Deleted).
		Int("kept", s.Kept).
		Int("skipped_no_rule", s.SkippedNoRule).
		Int("skipped", s.Skipped).
		Int("errors", s.Errors).
		Str("freed", humanize.IBytes(uint64(s.BytesFreed))).
		Bool("interrupted", s.Interrupted).
		Msg("scan completed")
}
