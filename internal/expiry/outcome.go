// Package expiry decides whether a candidate file has outlived its rule and
// carries out (or simulates) the deletion.
//
// Engine.Evaluate is pure: it only compares the candidate's age with the
// duration attached by the resolver. Executor.Execute is the only code that
// touches the filesystem, and dry-run is a flag on that one code path rather
// than a separate implementation.
package expiry

import (
	"errors"
	"time"

	"github.com/blackwell-systems/delete-after/internal/resolver"
)

// ErrDeletion marks outcomes whose removal failed.
var ErrDeletion = errors.New("deletion error")

// Decision is what happened (or would happen) to a candidate.
type Decision int

const (
	// Kept means the file is younger than its rule.
	Kept Decision = iota
	// Deleted means the file reached its rule's age. In dry-run mode the
	// outcome is marked Simulated and nothing was removed.
	Deleted
	// SkippedNoRule means no ancestor directory opted in.
	SkippedNoRule
	// Skipped covers symbolic links and non-regular files.
	Skipped
	// Errored means the entry could not be read or removed.
	Errored
)

func (d Decision) String() string {
	switch d {
	case Kept:
		return "kept"
	case Deleted:
		return "deleted"
	case SkippedNoRule:
		return "skipped-no-rule"
	case Skipped:
		return "skipped"
	case Errored:
		return "error"
	default:
		return "unknown"
	}
}

// Outcome is the decision for one candidate.
type Outcome struct {
	Candidate   resolver.Candidate
	Decision    Decision
	Reason      string
	Age         time.Duration
	Limit       time.Duration
	Simulated   bool
	Err         error
	EvaluatedAt time.Time
}
