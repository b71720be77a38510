package telemetry

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects build metrics on a private registry so they can be
// written to a node_exporter textfile after a one-shot run.
type Metrics struct {
	registry *prometheus.Registry

	BuildsTotal      *prometheus.CounterVec
	BuildDuration    prometheus.Histogram
	LastSuccess      prometheus.Gauge
	VideosLoaded     prometheus.Gauge
	PlaysGenerated   prometheus.Gauge
	CoverageSeconds  prometheus.Gauge
	UnloopedSeconds  prometheus.Gauge
	ProbesTotal      *prometheus.CounterVec
	ProbeDuration    prometheus.Histogram
	PublishedObjects prometheus.Counter
}

// NewMetrics registers the bumptv collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		BuildsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bumptv_builds_total",
			Help: "Schedule builds by result.",
		}, []string{"result"}),
		BuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bumptv_build_duration_seconds",
			Help:    "Wall time of a schedule build.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bumptv_build_last_success_timestamp_seconds",
			Help: "Unix time of the last successful build.",
		}),
		VideosLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bumptv_videos_loaded",
			Help: "Videos in the loaded metadata.",
		}),
		PlaysGenerated: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bumptv_plays_generated",
			Help: "Plays in the generated looped schedule.",
		}),
		CoverageSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bumptv_schedule_coverage_seconds",
			Help: "Seconds from schedule start to the end of the last play.",
		}),
		UnloopedSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bumptv_schedule_unlooped_seconds",
			Help: "Duration of a single pass through the schedule.",
		}),
		ProbesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bumptv_probes_total",
			Help: "Media duration lookups by source.",
		}, []string{"source"}),
		ProbeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bumptv_probe_duration_seconds",
			Help:    "Time spent resolving a media duration.",
			Buckets: prometheus.DefBuckets,
		}),
		PublishedObjects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bumptv_published_objects_total",
			Help: "Objects uploaded by publish.",
		}),
	}

	m.registry.MustRegister(
		m.BuildsTotal,
		m.BuildDuration,
		m.LastSuccess,
		m.VideosLoaded,
		m.PlaysGenerated,
		m.CoverageSeconds,
		m.UnloopedSeconds,
		m.ProbesTotal,
		m.ProbeDuration,
		m.PublishedObjects,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveProbe records a duration lookup.
func (m *Metrics) ObserveProbe(elapsed time.Duration, cached bool, err error) {
	source := "ffprobe"
	switch {
	case err != nil:
		source = "error"
	case cached:
		source = "cache"
	}
	m.ProbesTotal.WithLabelValues(source).Inc()
	m.ProbeDuration.Observe(elapsed.Seconds())
}

// ObserveBuild records the outcome of a build.
func (m *Metrics) ObserveBuild(elapsed time.Duration, err error) {
	m.BuildDuration.Observe(elapsed.Seconds())
	if err != nil {
		m.BuildsTotal.WithLabelValues("failure").Inc()
		return
	}
	m.BuildsTotal.WithLabelValues("success").Inc()
	m.LastSuccess.SetToCurrentTime()
}

// WriteTextfile writes all metrics in the text exposition format. An empty
// path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
