// Package metrics exposes Prometheus counters for packaging jobs and writes
// them in the node_exporter textfile format.
package metrics

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"hlspack/internal/workflow"
)

const namespace = "hlspack"

// Metrics holds the job counters on a private registry.
type Metrics struct {
	registry       *prometheus.Registry
	jobsTotal      *prometheus.CounterVec
	jobDuration    prometheus.Histogram
	errorsTotal    *prometheus.CounterVec
	renditions     prometheus.Counter
	audioTracks    prometheus.Counter
	subtitles      prometheus.Counter
	warningsTotal  prometheus.Counter
	outputBytes    prometheus.Counter
	lastSuccessful prometheus.Gauge
}

// New creates and registers the job metrics.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		jobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "total",
			Help:      "Packaging jobs by result",
		}, []string{"result"}),
		jobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of packaging jobs",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800, 3600, 14400},
		}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "errors_total",
			Help:      "Job errors by phase, kind and criticality",
		}, []string{"phase", "kind", "critical"}),
		renditions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renditions_total",
			Help:      "Video renditions produced",
		}),
		audioTracks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_tracks_total",
			Help:      "Audio tracks extracted",
		}),
		subtitles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subtitles_total",
			Help:      "Subtitle tracks extracted",
		}),
		warningsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "warnings_total",
			Help:      "Warnings attached to job results",
		}),
		outputBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "output_bytes_total",
			Help:      "Bytes written to output trees",
		}),
		lastSuccessful: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time the last successful job finished",
		}),
	}

	registry.MustRegister(
		m.jobsTotal,
		m.jobDuration,
		m.errorsTotal,
		m.renditions,
		m.audioTracks,
		m.subtitles,
		m.warningsTotal,
		m.outputBytes,
		m.lastSuccessful,
	)
	return m
}

// RecordJob folds a finished job into the counters.
func (m *Metrics) RecordJob(_ context.Context, result workflow.ProcessingResult) error {
	if m == nil {
		return nil
	}
	outcome := "failure"
	if result.Success {
		outcome = "success"
		if !result.FinishedAt.IsZero() {
			m.lastSuccessful.Set(float64(result.FinishedAt.Unix()))
		}
	}
	m.jobsTotal.WithLabelValues(outcome).Inc()
	m.jobDuration.Observe(result.Elapsed().Seconds())

	for _, pe := range result.Errors {
		m.errorsTotal.WithLabelValues(pe.Phase, pe.Kind, strconv.FormatBool(pe.Critical)).Inc()
	}
	m.renditions.Add(float64(len(result.Renditions)))
	m.audioTracks.Add(float64(len(result.AudioTracks)))
	m.subtitles.Add(float64(len(result.Subtitles)))
	m.warningsTotal.Add(float64(len(result.Warnings)))
	if result.TotalBytes > 0 {
		m.outputBytes.Add(float64(result.TotalBytes))
	}
	return nil
}

// Gatherer exposes the registry.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile writes the current values to path in the text exposition
// format. The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return fmt.Errorf("metrics textfile path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
