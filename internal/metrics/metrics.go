// Package metrics exposes Prometheus counters for cache preparation and merges.
//
// Every Recorder owns its registry so tests and multiple managers never collide on the
// default registry. All methods are safe on a nil *Recorder.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "asset_cache"

// Recorder groups the cache counters.
type Recorder struct {
	registry *prometheus.Registry

	// outcome: download | refresh | keep | revalidated
	slotsTotal *prometheus.CounterVec
	// kind label only; failures are rare enough that url would explode cardinality.
	downloadFailures *prometheus.CounterVec
	probeFailures    *prometheus.CounterVec
	downloadedBytes  *prometheus.CounterVec
	// mode: link | copy | skip
	mergePlacements *prometheus.CounterVec
	prepareDuration prometheus.Histogram
}

// NewRecorder registers all collectors on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		slotsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slots_total",
			Help:      "Prepared slots by kind and outcome.",
		}, []string{"kind", "outcome"}),
		downloadFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "download_failures_total",
			Help:      "Failed downloads by kind.",
		}, []string{"kind"}),
		probeFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probe_failures_total",
			Help:      "Freshness probes that failed and fell back to the cached file.",
		}, []string{"kind"}),
		downloadedBytes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloaded_bytes_total",
			Help:      "Bytes written into the cache by kind.",
		}, []string{"kind"}),
		mergePlacements: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "merge",
			Name:      "placements_total",
			Help:      "Files placed into merged public directories by mode.",
		}, []string{"mode"}),
		prepareDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prepare_duration_seconds",
			Help:      "End-to-end duration of a prepare run.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
	}
}

func (r *Recorder) ObserveSlot(kind, outcome string) {
	if r == nil {
		return
	}
	r.slotsTotal.WithLabelValues(labelKind(kind), outcome).Inc()
}

func (r *Recorder) ObserveDownloadFailure(kind string) {
	if r == nil {
		return
	}
	r.downloadFailures.WithLabelValues(labelKind(kind)).Inc()
}

func (r *Recorder) ObserveProbeFailure(kind string) {
	if r == nil {
		return
	}
	r.probeFailures.WithLabelValues(labelKind(kind)).Inc()
}

func (r *Recorder) AddDownloadedBytes(kind string, n int64) {
	if r == nil || n <= 0 {
		return
	}
	r.downloadedBytes.WithLabelValues(labelKind(kind)).Add(float64(n))
}

func (r *Recorder) ObserveMergePlacement(mode string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.mergePlacements.WithLabelValues(mode).Add(float64(n))
}

func (r *Recorder) ObservePrepareSeconds(seconds float64) {
	if r == nil {
		return
	}
	r.prepareDuration.Observe(seconds)
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func labelKind(kind string) string {
	if kind == "" {
		return "none"
	}
	return kind
}
