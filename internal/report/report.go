// Package report aggregates run outcomes into counters and an ordered audit
// log. It makes no decisions of its own.
package report

import (
	"errors"
	"time"

	"github.com/blackwell-systems/delete-after/internal/duration"
	"github.com/blackwell-systems/delete-after/internal/expiry"
	"github.com/blackwell-systems/delete-after/internal/resolver"
)

// Counts are the additive counters kept per root and in total.
type Counts struct {
	Scanned       int   `json:"scanned" yaml:"scanned"`
	Deleted       int   `json:"deleted" yaml:"deleted"`
	Kept          int   `json:"kept" yaml:"kept"`
	SkippedNoRule int   `json:"skipped_no_rule" yaml:"skipped_no_rule"`
	Skipped       int   `json:"skipped" yaml:"skipped"`
	Errors        int   `json:"errors" yaml:"errors"`
	Directories   int   `json:"directories" yaml:"directories"`
	Markers       int   `json:"markers" yaml:"markers"`
	MarkerErrors  int   `json:"marker_errors" yaml:"marker_errors"`
	BytesFreed    int64 `json:"bytes_freed" yaml:"bytes_freed"`
}

// RootSummary is the breakdown for one root path.
type RootSummary struct {
	Root   string `json:"root" yaml:"root"`
	Counts `yaml:",inline"`
}

// Summary is a snapshot of the report.
type Summary struct {
	RunID       string        `json:"run_id" yaml:"run_id"`
	DryRun      bool          `json:"dry_run" yaml:"dry_run"`
	Interrupted bool          `json:"interrupted" yaml:"interrupted"`
	StartedAt   time.Time     `json:"started_at" yaml:"started_at"`
	FinishedAt  time.Time     `json:"finished_at" yaml:"finished_at"`
	Duration    time.Duration `json:"duration_ns" yaml:"duration_ns"`
	Counts      `yaml:",inline"`
	Roots       []RootSummary `json:"roots" yaml:"roots"`
}

// Report accumulates outcomes for one run. It is not safe for concurrent use;
// a run is single-threaded.
type Report struct {
	runID       string
	dryRun      bool
	interrupted bool
	startedAt   time.Time
	finishedAt  time.Time

	totals   Counts
	roots    []string
	perRoot  map[string]*Counts
	outcomes []expiry.Outcome
}

// New starts a report.
func New(runID string, dryRun bool, startedAt time.Time) *Report {
	return &Report{
		runID:     runID,
		dryRun:    dryRun,
		startedAt: startedAt,
		perRoot:   make(map[string]*Counts),
	}
}

// RunID returns the identifier of the run.
func (r *Report) RunID() string { return r.runID }

// DryRun reports whether the run was simulated.
func (r *Report) DryRun() bool { return r.dryRun }

func (r *Report) root(root string) *Counts {
	c, ok := r.perRoot[root]
	if !ok {
		c = &Counts{}
		r.perRoot[root] = c
		r.roots = append(r.roots, root)
	}
	return c
}

// apply runs fn against the totals and the root's counters.
func (r *Report) apply(root string, fn func(*Counts)) {
	fn(&r.totals)
	fn(r.root(root))
}

// Record adds an outcome.
func (r *Report) Record(o expiry.Outcome) {
	r.outcomes = append(r.outcomes, o)

	r.apply(o.Candidate.Root, func(c *Counts) {
		if o.Candidate.Kind != resolver.KindError {
			c.Scanned++
		}
		switch o.Decision {
		case expiry.Deleted:
			c.Deleted++
			c.BytesFreed += o.Candidate.Size
		case expiry.Kept:
			c.Kept++
		case expiry.SkippedNoRule:
			c.SkippedNoRule++
		case expiry.Skipped:
			c.Skipped++
		case expiry.Errored:
			c.Errors++
			if errors.Is(o.Err, resolver.ErrMarkerParse) {
				c.MarkerErrors++
			}
		}
	})
}

// DirectoryScanned implements resolver.Observer.
func (r *Report) DirectoryScanned(root, dir string) {
	r.apply(root, func(c *Counts) { c.Directories++ })
}

// MarkerFound implements resolver.Observer.
func (r *Report) MarkerFound(root, dir string, spec duration.Spec) {
	r.apply(root, func(c *Counts) { c.Markers++ })
}

// MarkInterrupted records that the run stopped before visiting every file.
func (r *Report) MarkInterrupted() { r.interrupted = true }

// Finish stamps the end time.
func (r *Report) Finish(at time.Time) { r.finishedAt = at }

// HasErrors reports whether any error was recorded.
func (r *Report) HasErrors() bool { return r.totals.Errors > 0 }

// Outcomes returns the recorded outcomes in the order they were recorded.
func (r *Report) Outcomes() []expiry.Outcome {
	out := make([]expiry.Outcome, len(r.outcomes))
	copy(out, r.outcomes)
	return out
}

// Summarize returns the totals and per-root breakdown.
func (r *Report) Summarize() Summary {
	s := Summary{
		RunID:       r.runID,
		DryRun:      r.dryRun,
		Interrupted: r.interrupted,
		StartedAt:   r.startedAt,
		FinishedAt:  r.finishedAt,
		Counts:      r.totals,
		Roots:       make([]RootSummary, 0, len(r.roots)),
	}
	if !r.finishedAt.IsZero() {
		s.Duration = r.finishedAt.Sub(r.startedAt)
	}
	for _, root := range r.roots {
		s.Roots = append(s.Roots, RootSummary{Root: root, Counts: *r.perRoot[root]})
	}
	return s
}
