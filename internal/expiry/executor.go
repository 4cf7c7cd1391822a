package expiry

import (
	"os"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/blackwell-systems/delete-after/internal/resolver"
)

// Executor removes expired files.
type Executor struct {
	log    zerolog.Logger
	remove func(string) error
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithRemoveFunc replaces os.Remove.
func WithRemoveFunc(fn func(string) error) ExecutorOption {
	return func(x *Executor) {
		x.remove = fn
	}
}

// NewExecutor returns an Executor that logs every deletion through log.
func NewExecutor(log zerolog.Logger, opts ...ExecutorOption) *Executor {
	x := &Executor{log: log, remove: os.Remove}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Execute acts on a Deleted outcome and returns the final outcome. Other
// decisions pass through untouched. With dryRun set nothing is removed and the
// outcome is marked Simulated; the decision and the log line are otherwise
// identical. A failed removal downgrades the outcome to Errored.
func (x *Executor) Execute(o Outcome, dryRun bool) Outcome {
	if o.Decision != Deleted {
		return o
	}

	c := o.Candidate
	if c.Kind != resolver.KindFile || !c.HasRule() {
		o.Decision = Skipped
		o.Reason = "refusing to delete " + c.Kind.String() + " without a rule"
		return o
	}

	event := func() *zerolog.Event {
		return x.log.Info().
			Str("path", c.Path).
			Str("age", formatAge(o.Age)).
			Str("limit", c.Spec.String()).
			Str("marker_dir", c.MarkerDir).
			Str("size", humanize.IBytes(uint64(max(c.Size, 0))))
	}

	if dryRun {
		o.Simulated = true
		event().Bool("simulated", true).Msg("[DRY RUN] would delete")
		return o
	}

	if err := x.remove(c.Path); err != nil {
		o.Decision = Errored
		o.Err = &resolver.EntryError{Kind: ErrDeletion, Path: c.Path, Err: err}
		o.Reason = o.Err.Error()
		x.log.Error().Err(err).Str("path", c.Path).Msg("deletion failed")
		return o
	}

	event().Msg("deleted")
	return o
}
