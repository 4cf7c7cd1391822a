// Package resolver walks directory trees and attaches the effective retention
// rule to every file it finds.
//
// A directory opts in by containing a MarkerName file whose content is a
// duration expression. The rule applies to that directory and every
// descendant until a deeper marker overrides it. A marker that fails to parse
// is reported and ignored, so its directory keeps the inherited rule.
package resolver

import (
	"errors"
	"io/fs"
	"iter"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/blackwell-systems/delete-after/internal/duration"
)

// Resolver produces candidates for one or more root directories.
type Resolver struct {
	log      zerolog.Logger
	observer Observer
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithObserver registers o for directory and marker events.
func WithObserver(o Observer) Option {
	return func(r *Resolver) {
		r.observer = o
	}
}

// New creates a Resolver that logs through log.
func New(log zerolog.Logger, opts ...Option) *Resolver {
	r := &Resolver{log: log}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Walk returns a lazy, depth-first sequence of candidates for every root in
// order. Each iteration re-walks from scratch. A root that cannot be used
// yields a single KindError candidate and the walk moves to the next root.
func (r *Resolver) Walk(roots ...string) iter.Seq[Candidate] {
	return func(yield func(Candidate) bool) {
		for _, root := range roots {
			dir, err := resolveRoot(root)
			if err != nil {
				r.log.Error().Err(err).Str("root", root).Msg("skipping root")
				if !yield(Candidate{Root: root, Path: root, Kind: KindError, Err: err}) {
					return
				}
				continue
			}

			r.log.Debug().Str("root", dir).Msg("walking root")
			if !r.walkDir(Scope{Root: dir, Dir: dir}, yield) {
				return
			}
		}
	}
}

// resolveRoot makes root absolute, follows a symlinked root and checks that it
// is a directory.
func resolveRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", &EntryError{Kind: ErrFilesystemRead, Path: root, Err: err}
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &EntryError{Kind: ErrRootNotFound, Path: abs, Err: err}
		}
		return "", &EntryError{Kind: ErrFilesystemRead, Path: abs, Err: err}
	}

	info, err := os.Stat(resolved)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &EntryError{Kind: ErrRootNotFound, Path: resolved, Err: err}
		}
		return "", &EntryError{Kind: ErrFilesystemRead, Path: resolved, Err: err}
	}
	if !info.IsDir() {
		return "", &EntryError{Kind: ErrRootNotFound, Path: resolved, Err: errors.New("not a directory")}
	}

	return resolved, nil
}

// walkDir establishes the scope for scope.Dir, emits its entries and then
// recurses. It returns false once the consumer stops iterating.
func (r *Resolver) walkDir(scope Scope, yield func(Candidate) bool) bool {
	entries, err := os.ReadDir(scope.Dir)
	if err != nil {
		err = &EntryError{Kind: ErrFilesystemRead, Path: scope.Dir, Err: err}
		r.log.Error().Err(err).Str("dir", scope.Dir).Msg("cannot read directory")
		if !yield(r.errorCandidate(scope, scope.Dir, err)) {
			return false
		}
		// os.ReadDir returns the entries read before the failure.
	}

	if r.observer != nil {
		r.observer.DirectoryScanned(scope.Root, scope.Dir)
	}

	for _, entry := range entries {
		if entry.Name() != MarkerName || entry.IsDir() {
			continue
		}
		next, err := r.readMarker(scope)
		if err != nil {
			if !yield(r.errorCandidate(scope, filepath.Join(scope.Dir, MarkerName), err)) {
				return false
			}
			break
		}
		scope = next
		break
	}

	var subdirs []string
	for _, entry := range entries {
		path := filepath.Join(scope.Dir, entry.Name())

		if entry.IsDir() {
			subdirs = append(subdirs, path)
			continue
		}
		if entry.Name() == MarkerName {
			continue
		}

		if !yield(r.candidate(scope, path, entry)) {
			return false
		}
	}

	for _, sub := range subdirs {
		if !r.walkDir(scope.Child(sub), yield) {
			return false
		}
	}

	return true
}

// readMarker parses the marker in scope.Dir and returns the overridden scope.
func (r *Resolver) readMarker(scope Scope) (Scope, error) {
	path := filepath.Join(scope.Dir, MarkerName)

	content, err := os.ReadFile(path)
	if err != nil {
		err = &EntryError{Kind: ErrFilesystemRead, Path: path, Err: err}
		r.log.Error().Err(err).Str("marker", path).Msg("cannot read marker")
		return scope, err
	}

	spec, err := duration.ParseIn(string(content), scope.Dir)
	if err != nil {
		err = &EntryError{Kind: ErrMarkerParse, Path: path, Err: err}
		r.log.Error().Err(err).Str("marker", path).Msg("ignoring invalid marker")
		return scope, err
	}

	r.log.Info().
		Str("dir", scope.Dir).
		Str("duration", spec.String()).
		Int64("seconds", spec.Seconds()).
		Msg("marker parsed")
	if r.observer != nil {
		r.observer.MarkerFound(scope.Root, scope.Dir, spec)
	}

	return scope.Override(spec), nil
}

// candidate classifies a non-directory entry. DirEntry.Info uses lstat, so
// symbolic links are reported as links and never followed.
func (r *Resolver) candidate(scope Scope, path string, entry fs.DirEntry) Candidate {
	info, err := entry.Info()
	if err != nil {
		err = &EntryError{Kind: ErrFilesystemRead, Path: path, Err: err}
		r.log.Error().Err(err).Str("path", path).Msg("cannot stat file")
		return r.errorCandidate(scope, path, err)
	}

	c := Candidate{
		Root:      scope.Root,
		Path:      path,
		ModTime:   info.ModTime(),
		Size:      info.Size(),
		Spec:      scope.Spec,
		MarkerDir: scope.MarkerDir,
		Depth:     scope.Depth,
	}

	switch {
	case info.Mode()&fs.ModeSymlink != 0:
		c.Kind = KindSymlink
	case !info.Mode().IsRegular():
		c.Kind = KindOther
	default:
		c.Kind = KindFile
	}

	return c
}

func (r *Resolver) errorCandidate(scope Scope, path string, err error) Candidate {
	return Candidate{
		Root:      scope.Root,
		Path:      path,
		Kind:      KindError,
		Spec:      scope.Spec,
		MarkerDir: scope.MarkerDir,
		Depth:     scope.Depth,
		Err:       err,
	}
}
