package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Entry is the serialized form of one outcome.
type Entry struct {
	Path         string `json:"path" yaml:"path"`
	Kind         string `json:"kind" yaml:"kind"`
	Decision     string `json:"decision" yaml:"decision"`
	Reason       string `json:"reason,omitempty" yaml:"reason,omitempty"`
	AgeSeconds   int64  `json:"age_seconds,omitempty" yaml:"age_seconds,omitempty"`
	LimitSeconds int64  `json:"limit_seconds,omitempty" yaml:"limit_seconds,omitempty"`
	MarkerDir    string `json:"marker_dir,omitempty" yaml:"marker_dir,omitempty"`
	Simulated    bool   `json:"simulated,omitempty" yaml:"simulated,omitempty"`
}

// Document is what WriteFile emits.
type Document struct {
	Summary Summary `json:"summary" yaml:"summary"`
	Entries []Entry `json:"entries" yaml:"entries"`
}

// Format selects the export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatForPath picks YAML for .yaml/.yml files and JSON otherwise.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Document builds the serializable form of the report.
func (r *Report) Document() Document {
	doc := Document{
		Summary: r.Summarize(),
		Entries: make([]Entry, 0, len(r.outcomes)),
	}
	for _, o := range r.outcomes {
		var limit int64
		if o.Candidate.Spec != nil {
			limit = o.Candidate.Spec.Seconds()
		}
		doc.Entries = append(doc.Entries, Entry{
			Path:         o.Candidate.Path,
			Kind:         o.Candidate.Kind.String(),
			Decision:     o.Decision.String(),
			Reason:       o.Reason,
			AgeSeconds:   int64(o.Age.Seconds()),
			LimitSeconds: limit,
			MarkerDir:    o.Candidate.MarkerDir,
			Simulated:    o.Simulated,
		})
	}
	return doc
}

// Encode writes the report to w in the given format.
func (r *Report) Encode(w io.Writer, format Format) error {
	doc := r.Document()
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode yaml report: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode json report: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

// WriteFile writes the report to path, choosing the format from the extension.
// The file is written to a temporary name first and renamed into place.
func (r *Report) WriteFile(path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".report-*")
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := r.Encode(tmp, FormatForPath(path)); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close report file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}
	return nil
}
