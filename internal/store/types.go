package store

import "time"

// Run is one journaled invocation.
type Run struct {
	ID            string
	StartedAt     time.Time
	FinishedAt    time.Time
	DryRun        bool
	Interrupted   bool
	Roots         []string
	Scanned       int
	Deleted       int
	Kept          int
	SkippedNoRule int
	Skipped       int
	Errors        int
	Directories   int
	Markers       int
	BytesFreed    int64
}

// Event is a journaled per-file outcome. Only deletions and errors are
// journaled; kept and skipped files are not.
type Event struct {
	RunID        string
	Path         string
	Decision     string // "deleted" or "error"
	Reason       string
	AgeSeconds   int64
	LimitSeconds int64
	Simulated    bool
}
