// Package metrics exposes build counters and timings for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	resultSuccess = "success"
	resultFailure = "failure"
)

// Metrics records per-Input compilations and per-batch outcomes.
type Metrics struct {
	registry *prometheus.Registry

	compilesTotal   *prometheus.CounterVec
	compileDuration *prometheus.HistogramVec
	artifactBytes   *prometheus.GaugeVec
	relevantFiles   *prometheus.GaugeVec
	batchesTotal    *prometheus.CounterVec
	batchDuration   prometheus.Histogram
}

// DefaultBuckets covers compilations from a tenth of a second to minutes.
func DefaultBuckets() []float64 {
	return []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120}
}

// New creates the collectors on a private registry. prefix defaults to
// "bundlegrid".
func New(prefix string) *Metrics {
	if prefix == "" {
		prefix = "bundlegrid"
	}
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		compilesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_compiles_total",
				Help: "Compilations of one unit Input, by result.",
			},
			[]string{"unit", "artifact", "result"},
		),
		compileDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_compile_duration_seconds",
				Help:    "Wall time of one unit Input compilation.",
				Buckets: DefaultBuckets(),
			},
			[]string{"unit", "artifact"},
		),
		artifactBytes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: prefix + "_artifact_bytes",
				Help: "Size of the last successfully compiled artifact.",
			},
			[]string{"artifact"},
		),
		relevantFiles: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: prefix + "_relevant_files",
				Help: "Files selected by the relevance filter for the last compilation.",
			},
			[]string{"artifact"},
		),
		batchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_batches_total",
				Help: "Build batches, by result.",
			},
			[]string{"result"},
		),
		batchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    prefix + "_batch_duration_seconds",
				Help:    "Wall time of a build batch.",
				Buckets: DefaultBuckets(),
			},
		),
	}

	reg.MustRegister(
		m.compilesTotal,
		m.compileDuration,
		m.artifactBytes,
		m.relevantFiles,
		m.batchesTotal,
		m.batchDuration,
	)
	return m
}

// ObserveCompile records one Input compilation.
func (m *Metrics) ObserveCompile(unitName, artifact string, files, size int, d time.Duration, err error) {
	m.compileDuration.WithLabelValues(unitName, artifact).Observe(d.Seconds())
	m.relevantFiles.WithLabelValues(artifact).Set(float64(files))
	if err != nil {
		m.compilesTotal.WithLabelValues(unitName, artifact, resultFailure).Inc()
		return
	}
	m.compilesTotal.WithLabelValues(unitName, artifact, resultSuccess).Inc()
	m.artifactBytes.WithLabelValues(artifact).Set(float64(size))
}

// ObserveBatch records a finished batch.
func (m *Metrics) ObserveBatch(d time.Duration, err error) {
	m.batchDuration.Observe(d.Seconds())
	if err != nil {
		m.batchesTotal.WithLabelValues(resultFailure).Inc()
		return
	}
	m.batchesTotal.WithLabelValues(resultSuccess).Inc()
}

// Registry returns the private registry, for tests and custom exposition.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
