package resolver

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/blackwell-systems/delete-after/internal/duration"
)

// Lookup resolves the rule for a single file without walking a tree. It
// ascends from the file's directory to the nearest ancestor holding a valid
// marker. When root is non-empty the search stops at root (inclusive), which
// matches what Walk(root) would attach to the same file. Invalid markers are
// skipped just as the walk skips them.
func (r *Resolver) Lookup(path, root string) (Candidate, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Candidate{}, &EntryError{Kind: ErrFilesystemRead, Path: path, Err: err}
	}
	if filepath.Base(abs) == MarkerName {
		return Candidate{}, &EntryError{Kind: ErrIsMarker, Path: abs, Err: errors.New("refusing to evaluate a marker")}
	}

	info, err := os.Lstat(abs)
	if err != nil {
		return Candidate{}, &EntryError{Kind: ErrFilesystemRead, Path: abs, Err: err}
	}
	if info.IsDir() {
		return Candidate{}, &EntryError{Kind: ErrFilesystemRead, Path: abs, Err: errors.New("is a directory")}
	}

	boundary := ""
	if root != "" {
		if boundary, err = resolveRoot(root); err != nil {
			return Candidate{}, err
		}
		// Compare against the file's real parent so a symlinked root still bounds.
		if real, err := filepath.EvalSymlinks(filepath.Dir(abs)); err == nil {
			abs = filepath.Join(real, filepath.Base(abs))
		}
		if !within(abs, boundary) {
			return Candidate{}, &EntryError{Kind: ErrRootNotFound, Path: abs, Err: errors.New("file is outside root " + boundary)}
		}
	}

	c := Candidate{
		Root:    boundary,
		Path:    abs,
		ModTime: info.ModTime(),
		Size:    info.Size(),
	}
	switch {
	case info.Mode()&fs.ModeSymlink != 0:
		c.Kind = KindSymlink
	case !info.Mode().IsRegular():
		c.Kind = KindOther
	default:
		c.Kind = KindFile
	}

	for dir := filepath.Dir(abs); ; dir = filepath.Dir(dir) {
		if spec, ok := r.markerSpec(dir); ok {
			c.Spec = &spec
			c.MarkerDir = dir
			break
		}
		parent := filepath.Dir(dir)
		if dir == boundary || parent == dir {
			break
		}
	}

	return c, nil
}

// markerSpec reads and parses the marker in dir, if any.
func (r *Resolver) markerSpec(dir string) (duration.Spec, bool) {
	path := filepath.Join(dir, MarkerName)
	content, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			r.log.Warn().Err(err).Str("marker", path).Msg("cannot read marker")
		}
		return duration.Spec{}, false
	}

	spec, err := duration.ParseIn(string(content), dir)
	if err != nil {
		r.log.Warn().Err(err).Str("marker", path).Msg("ignoring invalid marker")
		return duration.Spec{}, false
	}
	return spec, true
}

func within(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
