// Package metrics exposes Prometheus collectors for the fallback store and
// its persistence backends. Recorders are no-ops until InitPrometheus runs.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Read tiers.
const (
	TierMemory  = "memory"
	TierBackend = "backend"
	TierMiss    = "miss"
)

// PrometheusMetrics wraps the prometheus collectors for lastgood.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	// Store
	readsTotal         *prometheus.CounterVec
	writesTotal        prometheus.Counter
	clearsTotal        prometheus.Counter
	storageErrorsTotal *prometheus.CounterVec
	snapshotRecords    prometheus.Gauge
	snapshotAgeMinutes prometheus.Gauge

	// Backends
	backendOpsTotal   *prometheus.CounterVec
	backendOpDuration *prometheus.HistogramVec
}

// Default histogram buckets for backend operations (in milliseconds)
var defaultBuckets = []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000}

var (
	mu          sync.RWMutex
	promMetrics *PrometheusMetrics
)

func current() *PrometheusMetrics {
	mu.RLock()
	defer mu.RUnlock()
	return promMetrics
}

// InitPrometheus initializes the Prometheus metrics subsystem. Calling it
// again replaces the registry, which resets every collector.
func InitPrometheus(namespace string, buckets []float64) {
	if len(buckets) == 0 {
		buckets = defaultBuckets
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	pm := &PrometheusMetrics{
		registry: registry,

		readsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reads_total",
				Help:      "Snapshot reads by the tier that answered them",
			},
			[]string{"tier"},
		),

		writesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "writes_total",
				Help:      "Total snapshot writes",
			},
		),

		clearsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "clears_total",
				Help:      "Total snapshot clears",
			},
		),

		storageErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "storage_errors_total",
				Help:      "Persistence failures reported to the error sink, by store operation",
			},
			[]string{"op"},
		),

		snapshotRecords: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "snapshot_records",
				Help:      "Number of records in the last written or loaded snapshot",
			},
		),

		snapshotAgeMinutes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "snapshot_age_minutes",
				Help:      "Snapshot age observed by the last age query (-1 when absent)",
			},
		),

		backendOpsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "backend_ops_total",
				Help:      "Persistence backend operations by backend, operation and status",
			},
			[]string{"backend", "op", "status"},
		),

		backendOpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "backend_op_duration_milliseconds",
				Help:      "Duration of persistence backend operations in milliseconds",
				Buckets:   buckets,
			},
			[]string{"backend", "op"},
		),
	}

	registry.MustRegister(
		pm.readsTotal,
		pm.writesTotal,
		pm.clearsTotal,
		pm.storageErrorsTotal,
		pm.snapshotRecords,
		pm.snapshotAgeMinutes,
		pm.backendOpsTotal,
		pm.backendOpDuration,
	)

	mu.Lock()
	promMetrics = pm
	mu.Unlock()
}

// RecordRead records which tier answered a read.
func RecordRead(tier string) {
	pm := current()
	if pm == nil {
		return
	}
	pm.readsTotal.WithLabelValues(tier).Inc()
}

// RecordWrite records a snapshot write of n records.
func RecordWrite(n int) {
	pm := current()
	if pm == nil {
		return
	}
	pm.writesTotal.Inc()
	pm.snapshotRecords.Set(float64(n))
}

// SetSnapshotRecords sets the record count gauge after a backend load.
func SetSnapshotRecords(n int) {
	pm := current()
	if pm == nil {
		return
	}
	pm.snapshotRecords.Set(float64(n))
}

// RecordClear records a snapshot clear.
func RecordClear() {
	pm := current()
	if pm == nil {
		return
	}
	pm.clearsTotal.Inc()
	pm.snapshotRecords.Set(0)
}

// RecordStorageError records a persistence failure for a store operation.
func RecordStorageError(op string) {
	pm := current()
	if pm == nil {
		return
	}
	pm.storageErrorsTotal.WithLabelValues(op).Inc()
}

// SetSnapshotAge records the most recently computed snapshot age.
func SetSnapshotAge(minutes int) {
	pm := current()
	if pm == nil {
		return
	}
	pm.snapshotAgeMinutes.Set(float64(minutes))
}

// RecordBackendOp records one backend call.
func RecordBackendOp(backend, op string, durationMs float64, err error) {
	pm := current()
	if pm == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failed"
	}
	pm.backendOpsTotal.WithLabelValues(backend, op, status).Inc()
	pm.backendOpDuration.WithLabelValues(backend, op).Observe(durationMs)
}

// PrometheusHandler returns an HTTP handler for Prometheus metrics scraping
func PrometheusHandler() http.Handler {
	pm := current()
	if pm == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("prometheus metrics not initialized"))
		})
	}
	return promhttp.HandlerFor(pm.registry, promhttp.HandlerOpts{})
}

// PrometheusRegistry returns the prometheus registry (for custom collectors)
func PrometheusRegistry() *prometheus.Registry {
	pm := current()
	if pm == nil {
		return nil
	}
	return pm.registry
}
