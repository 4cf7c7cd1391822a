package expiry

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/blackwell-systems/delete-after/internal/resolver"
)

// Clock returns the current time.
type Clock func() time.Time

// Engine compares candidate ages against their rules.
type Engine struct {
	now Clock
}

// NewEngine returns an Engine reading time from now, or time.Now when nil.
func NewEngine(now Clock) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{now: now}
}

// Evaluate decides a candidate without side effects. A file whose age equals
// its limit is expired.
func (e *Engine) Evaluate(c resolver.Candidate) Outcome {
	now := e.now()
	o := Outcome{Candidate: c, EvaluatedAt: now}

	switch {
	case c.Kind == resolver.KindError:
		o.Decision = Errored
		o.Err = c.Err
		o.Reason = errorReason(c.Err)
		return o
	case filepath.Base(c.Path) == resolver.MarkerName:
		o.Decision = Skipped
		o.Reason = "marker file"
		return o
	case !c.HasRule():
		o.Decision = SkippedNoRule
		o.Reason = "no marker in ancestry"
		return o
	case c.Kind == resolver.KindSymlink:
		o.Decision = Skipped
		o.Reason = "symbolic link"
		return o
	case c.Kind != resolver.KindFile:
		o.Decision = Skipped
		o.Reason = "not a regular file"
		return o
	}

	o.Age = now.Sub(c.ModTime)
	o.Limit = c.Spec.Duration()

	if o.Age >= o.Limit {
		o.Decision = Deleted
		o.Reason = fmt.Sprintf("age %s reached limit %s (%s)", formatAge(o.Age), c.Spec, c.MarkerDir)
	} else {
		o.Decision = Kept
		o.Reason = fmt.Sprintf("age %s below limit %s (%s)", formatAge(o.Age), c.Spec, c.MarkerDir)
	}
	return o
}

func errorReason(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

// formatAge prints an age in days with one decimal.
func formatAge(d time.Duration) string {
	return fmt.Sprintf("%.1f days", d.Hours()/24)
}
