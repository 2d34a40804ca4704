package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/phrazzld/flatmap-maker/internal/events"
)

const namespace = "mapmaker"

// ErrNoTextfile is returned by WriteTextfile when no path is configured.
var ErrNoTextfile = errors.New("metrics textfile path is empty")

// Metrics holds the collectors for one process. Each instance owns its
// registry so tests and repeated runs do not collide on registration.
type Metrics struct {
	registry *prometheus.Registry
	logger   *slog.Logger

	StageDuration   *prometheus.HistogramVec
	StageFailures   *prometheus.CounterVec
	SourcesParsed   *prometheus.CounterVec
	FeaturesTotal   *prometheus.GaugeVec
	LabelCacheHits  prometheus.Gauge
	LabelCacheMiss  prometheus.Gauge
	RunsTotal       *prometheus.CounterVec
	LastRunDuration prometheus.Gauge
	LastSuccess     prometheus.Gauge
}

var _ events.EventHandler = (*Metrics)(nil)

// New creates and registers the collectors.
func New(logger *slog.Logger) *Metrics {
	if logger == nil {
		logger = slog.Default()
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		logger:   logger.With(slog.String("component", "metrics")),

		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "stage",
				Name:      "duration_seconds",
				Help:      "Pipeline stage duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.005, 4, 10),
			},
			[]string{"stage", "status"},
		),

		StageFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stage",
				Name:      "failures_total",
				Help:      "Total number of failed pipeline stages",
			},
			[]string{"stage"},
		),

		SourcesParsed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sources",
				Name:      "parsed_total",
				Help:      "Total number of sources parsed",
			},
			[]string{"status"},
		),

		FeaturesTotal: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "export",
				Name:      "features",
				Help:      "Number of features written per layer by the last run",
			},
			[]string{"layer"},
		),

		LabelCacheHits: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "label_cache",
				Name:      "hits",
				Help:      "Label placements served from the cache in the last run",
			},
		),

		LabelCacheMiss: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "label_cache",
				Name:      "misses",
				Help:      "Label placements computed in the last run",
			},
		),

		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "runs",
				Name:      "total",
				Help:      "Total number of conversion runs",
			},
			[]string{"status"},
		),

		LastRunDuration: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "runs",
				Name:      "last_duration_seconds",
				Help:      "Duration of the last conversion run in seconds",
			},
		),

		LastSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "runs",
				Name:      "last_success_timestamp_seconds",
				Help:      "Unix time of the last successful conversion run",
			},
		),
	}

	m.registry.MustRegister(
		m.StageDuration,
		m.StageFailures,
		m.SourcesParsed,
		m.FeaturesTotal,
		m.LabelCacheHits,
		m.LabelCacheMiss,
		m.RunsTotal,
		m.LastRunDuration,
		m.LastSuccess,
	)
	return m
}

// Registry returns the registry holding every collector.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// HandleEvent records finished and failed stages. Started events are ignored.
func (m *Metrics) HandleEvent(_ context.Context, event *events.ProgressEvent) error {
	if event.Status == events.StatusStarted {
		return nil
	}

	status := string(event.Status)
	switch event.Stage {
	case events.StageParse:
		if event.Subject != "" {
			m.SourcesParsed.WithLabelValues(status).Inc()
			return nil
		}
	case events.StageExport:
		if event.Subject != "" {
			m.FeaturesTotal.WithLabelValues(event.Subject).Set(float64(event.Count))
			return nil
		}
	case events.StageRun:
		m.RunsTotal.WithLabelValues(status).Inc()
		m.LastRunDuration.Set(event.Duration.Seconds())
		if event.Status == events.StatusFinished {
			m.LastSuccess.Set(float64(event.CreatedAt.Unix()))
		}
		return nil
	}

	m.StageDuration.WithLabelValues(string(event.Stage), status).Observe(event.Duration.Seconds())
	if event.Status == events.StatusFailed {
		m.StageFailures.WithLabelValues(string(event.Stage)).Inc()
	}
	return nil
}

// ObserveLabelCache records the label cache hit and miss counts of a run.
func (m *Metrics) ObserveLabelCache(hits, misses int) {
	m.LabelCacheHits.Set(float64(hits))
	m.LabelCacheMiss.Set(float64(misses))
}

// WriteTextfile writes every collector to path in the text exposition
// format. The write goes through a temporary file so a node exporter never
// reads a partial file.
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return ErrNoTextfile
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	m.logger.Debug("metrics written", slog.String("path", path))
	return nil
}
