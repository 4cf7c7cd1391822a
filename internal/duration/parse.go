// Package duration parses retention expressions such as "7 days" or "2.5 hours".
//
// An expression is a positive decimal quantity followed by whitespace and a unit
// token. Unit tokens are matched case-insensitively against a fixed alias table
// (see Aliases). Months and years use fixed lengths of 30 and 365 days, so a
// "1 month" marker expires files after exactly 2,592,000 seconds regardless of
// the calendar.
package duration

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrInvalid is matched by every ParseError via errors.Is.
var ErrInvalid = errors.New("invalid duration expression")

// ParseError describes a rejected expression. Dir is the directory whose
// marker held the text, when known.
type ParseError struct {
	Text   string
	Dir    string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Dir != "" {
		return fmt.Sprintf("invalid duration %q in %s: %s", e.Text, e.Dir, e.Reason)
	}
	return fmt.Sprintf("invalid duration %q: %s", e.Text, e.Reason)
}

// Is reports ErrInvalid as a match.
func (e *ParseError) Is(target error) bool {
	return target == ErrInvalid
}

// Spec is an immutable retention duration.
type Spec struct {
	Quantity float64
	Unit     Unit
}

// Seconds returns quantity × unit length, truncated to whole seconds.
func (s Spec) Seconds() int64 {
	secs := s.Quantity * float64(s.Unit.Seconds())
	if secs >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(secs)
}

// Duration returns the elapsed time the spec allows. Values beyond the range
// of time.Duration saturate at the maximum, which in practice never expires.
func (s Spec) Duration() time.Duration {
	secs := s.Seconds()
	if secs > int64(math.MaxInt64/time.Second) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(secs) * time.Second
}

// String formats the spec the way a marker file would spell it.
func (s Spec) String() string {
	q := strconv.FormatFloat(s.Quantity, 'f', -1, 64)
	name := s.Unit.String()
	if s.Quantity != 1 {
		name += "s"
	}
	return q + " " + name
}

var quantityPattern = regexp.MustCompile(`^\d+(\.\d+)?$`)

// Parse parses "<number> <unit>".
func Parse(text string) (Spec, error) {
	return ParseIn(text, "")
}

// ParseIn parses text and attributes failures to the marker in dir.
func ParseIn(text, dir string) (Spec, error) {
	fail := func(reason string) (Spec, error) {
		return Spec{}, &ParseError{Text: text, Dir: dir, Reason: reason}
	}

	content := strings.TrimSpace(text)
	if content == "" {
		return fail("empty expression")
	}
	if strings.ContainsAny(content, "\r\n") {
		return fail("expected a single line")
	}

	fields := strings.Fields(content)
	switch {
	case len(fields) == 1:
		return fail("missing unit")
	case len(fields) > 2:
		return fail("expected '<number> <unit>'")
	}

	if !quantityPattern.MatchString(fields[0]) {
		return fail(fmt.Sprintf("quantity %q is not a positive number", fields[0]))
	}
	quantity, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return fail(fmt.Sprintf("quantity %q: %v", fields[0], err))
	}
	if quantity <= 0 {
		return fail("quantity must be greater than zero")
	}

	unit, ok := LookupUnit(fields[1])
	if !ok {
		return fail(fmt.Sprintf("unknown unit %q (valid: %s)", fields[1], strings.Join(Tokens(), ", ")))
	}

	return Spec{Quantity: quantity, Unit: unit}, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(text string) Spec {
	s, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return s
}

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
