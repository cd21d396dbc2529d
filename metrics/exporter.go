package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// ExporterType defines the type of metrics exporter
type ExporterType string

const (
	// StandardExporter uses the default in-process metrics implementation
	StandardExporter ExporterType = "standard"
	// PrometheusExporterType uses Prometheus metrics
	PrometheusExporterType ExporterType = "prometheus"
)

// Exporter defines the interface for metrics exporters
type Exporter interface {
	// RecordHit records a successful lookup
	RecordHit()
	// RecordMiss records a failed lookup
	RecordMiss()
	// RecordEviction records a capacity eviction
	RecordEviction()
	// RecordExpiration records a lazily removed expired entry
	RecordExpiration()
	// RecordBatch records one batch operation over n items
	RecordBatch(n, failed int)
	// RecordLoader records one loader invocation
	RecordLoader(err error)
	// UpdateSize updates the current store size
	UpdateSize(size int64)
	// GetSnapshot returns a thread-safe copy of current metrics
	GetSnapshot() Snapshot
	// Reset resets all metrics to zero
	Reset()
}

// Collectors are shared across all stores in the process; each store is a
// label value, not a separate collector. Registering per store would collide
// on the metric names.
var (
	registerOnce sync.Once

	promHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_hits_total",
			Help: "Total number of store hits",
		},
		[]string{"service", "store"},
	)
	promMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_misses_total",
			Help: "Total number of store misses",
		},
		[]string{"service", "store"},
	)
	promEvictions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_evictions_total",
			Help: "Total number of capacity evictions",
		},
		[]string{"service", "store"},
	)
	promExpirations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_expirations_total",
			Help: "Total number of expired entries removed",
		},
		[]string{"service", "store"},
	)
	promLoaderCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_loader_calls_total",
			Help: "Total number of loader invocations",
		},
		[]string{"service", "store"},
	)
	promSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "store_size",
			Help: "Current number of items in the store",
		},
		[]string{"service", "store"},
	)
)

func register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			promHits,
			promMisses,
			promEvictions,
			promExpirations,
			promLoaderCalls,
			promSize,
		)
	})
}

// PrometheusExporter implements Exporter using Prometheus metrics
type PrometheusExporter struct {
	labels prometheus.Labels

	// Internal metrics for snapshots; Prometheus counters cannot be read back
	internal *StoreMetrics
}

// NewPrometheusExporter creates a Prometheus exporter for one named store
func NewPrometheusExporter(service, storeName string) *PrometheusExporter {
	register()
	if service == "" {
		service = "storekit"
	}
	return &PrometheusExporter{
		labels:   prometheus.Labels{"service": service, "store": storeName},
		internal: NewStoreMetrics(),
	}
}

// RecordHit implements Exporter
func (e *PrometheusExporter) RecordHit() {
	promHits.With(e.labels).Inc()
	e.internal.RecordHit()
}

// RecordMiss implements Exporter
func (e *PrometheusExporter) RecordMiss() {
	promMisses.With(e.labels).Inc()
	e.internal.RecordMiss()
}

// RecordEviction implements Exporter
func (e *PrometheusExporter) RecordEviction() {
	promEvictions.With(e.labels).Inc()
	e.internal.RecordEviction()
}

// RecordExpiration implements Exporter
func (e *PrometheusExporter) RecordExpiration() {
	promExpirations.With(e.labels).Inc()
	e.internal.RecordExpiration()
}

// RecordBatch implements Exporter
func (e *PrometheusExporter) RecordBatch(n, failed int) {
	e.internal.RecordBatch(n, failed)
}

// RecordLoader implements Exporter
func (e *PrometheusExporter) RecordLoader(err error) {
	promLoaderCalls.With(e.labels).Inc()
	e.internal.RecordLoader(err)
}

// UpdateSize implements Exporter
func (e *PrometheusExporter) UpdateSize(size int64) {
	promSize.With(e.labels).Set(float64(size))
	e.internal.UpdateSize(size)
}

// GetSnapshot implements Exporter
func (e *PrometheusExporter) GetSnapshot() Snapshot {
	return e.internal.GetSnapshot()
}

// Reset implements Exporter. Prometheus counters stay cumulative; only the
// internal snapshot counters are cleared.
func (e *PrometheusExporter) Reset() {
	e.internal.Reset()
}

// NewExporter creates a metrics exporter of the specified type
func NewExporter(exporterType ExporterType, service, storeName string) Exporter {
	switch exporterType {
	case PrometheusExporterType:
		return NewPrometheusExporter(service, storeName)
	default:
		return NewStoreMetrics()
	}
}
