// Package metrics exports the result of a run in the Prometheus text format,
// for node_exporter's textfile collector. Each run replaces the file.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/blackwell-systems/delete-after/internal/expiry"
	"github.com/blackwell-systems/delete-after/internal/report"
)

const namespace = "delete_after"

// Registry builds a fresh registry describing s.
func Registry(s report.Summary) *prometheus.Registry {
	reg := prometheus.NewRegistry()

	files := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "files",
		Help:      "Files seen in the last run, by decision.",
	}, []string{"decision"})
	files.WithLabelValues(expiry.Deleted.String()).Set(float64(s.Deleted))
	files.WithLabelValues(expiry.Kept.String()).Set(float64(s.Kept))
	files.WithLabelValues(expiry.SkippedNoRule.String()).Set(float64(s.SkippedNoRule))
	files.WithLabelValues(expiry.Skipped.String()).Set(float64(s.Skipped))
	files.WithLabelValues(expiry.Errored.String()).Set(float64(s.Errors))

	gauge := func(name, help string, v float64) prometheus.Gauge {
		g := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
		g.Set(v)
		return g
	}

	dryRun := 0.0
	if s.DryRun {
		dryRun = 1
	}
	interrupted := 0.0
	if s.Interrupted {
		interrupted = 1
	}

	reg.MustRegister(
		files,
		gauge("errors", "Errors recorded in the last run.", float64(s.Errors)),
		gauge("marker_errors", "Marker files that failed to parse in the last run.", float64(s.MarkerErrors)),
		gauge("bytes_freed", "Bytes deleted (or that would be deleted) by the last run.", float64(s.BytesFreed)),
		gauge("directories_scanned", "Directories visited by the last run.", float64(s.Directories)),
		gauge("markers_found", "Valid marker files found by the last run.", float64(s.Markers)),
		gauge("last_run_timestamp_seconds", "Unix time the last run finished.", float64(s.FinishedAt.Unix())),
		gauge("run_duration_seconds", "Wall time of the last run.", s.Duration.Seconds()),
		gauge("dry_run", "1 if the last run was a dry run.", dryRun),
		gauge("interrupted", "1 if the last run was interrupted.", interrupted),
	)

	return reg
}

// WriteTextfile writes the metrics for s to path atomically.
func WriteTextfile(path string, s report.Summary) error {
	if err := prometheus.WriteToTextfile(path, Registry(s)); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
