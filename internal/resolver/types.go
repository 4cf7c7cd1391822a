package resolver

import (
	"errors"
	"fmt"
	"time"

	"github.com/blackwell-systems/delete-after/internal/duration"
)

// MarkerName is the reserved file name that opts a directory in.
const MarkerName = ".delete_after"

// Error kinds attached to candidates that could not be evaluated.
var (
	ErrMarkerParse    = errors.New("marker parse error")
	ErrFilesystemRead = errors.New("filesystem read error")
	ErrRootNotFound   = errors.New("root not found")
	ErrIsMarker       = errors.New("marker files are never deletion candidates")
)

// EntryError ties an error kind to the path it happened on.
type EntryError struct {
	Kind error
	Path string
	Err  error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("%v: %s: %v", e.Kind, e.Path, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is.
func (e *EntryError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// Kind classifies a candidate.
type Kind int

const (
	// KindFile is a regular file.
	KindFile Kind = iota
	// KindSymlink is a symbolic link; links are never followed or deleted.
	KindSymlink
	// KindOther is a socket, device, pipe or other non-regular entry.
	KindOther
	// KindError is an entry that could not be read; Err is set.
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindSymlink:
		return "symlink"
	case KindOther:
		return "other"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Candidate is a file seen by the walk together with the rule in effect for
// its directory. Spec is nil when no ancestor directory has a valid marker.
type Candidate struct {
	Root      string
	Path      string
	Kind      Kind
	ModTime   time.Time
	Size      int64
	Spec      *duration.Spec
	MarkerDir string
	Depth     int
	Err       error
}

// HasRule reports whether some ancestor (inclusive) opted in.
func (c Candidate) HasRule() bool {
	return c.Spec != nil
}

// Scope is the state threaded through the walk for one directory.
// It is passed by value; a child never mutates its parent's scope.
type Scope struct {
	Root      string
	Dir       string
	Spec      *duration.Spec
	MarkerDir string
	Depth     int
}

// Child returns the scope a subdirectory inherits.
func (s Scope) Child(dir string) Scope {
	return Scope{
		Root:      s.Root,
		Dir:       dir,
		Spec:      s.Spec,
		MarkerDir: s.MarkerDir,
		Depth:     s.Depth + 1,
	}
}

// Override returns the scope with spec declared by the marker in s.Dir.
func (s Scope) Override(spec duration.Spec) Scope {
	s.Spec = &spec
	s.MarkerDir = s.Dir
	return s
}

// Observer receives walk events that are not file candidates.
type Observer interface {
	DirectoryScanned(root, dir string)
	MarkerFound(root, dir string, spec duration.Spec)
}
