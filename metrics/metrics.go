// Package metrics provides functionality for collecting and reporting store performance metrics.
package metrics

import (
	"sync/atomic"
	"time"
)

// StoreMetrics represents unified metrics for a single store
type StoreMetrics struct {
	// Basic Store Metrics
	Size              atomic.Int64
	Hits              atomic.Int64
	Misses            atomic.Int64
	Evictions         atomic.Int64
	Expirations       atomic.Int64
	LastOperationTime atomic.Value // time.Time

	// Batch Operation Metrics
	BatchOperations atomic.Int64
	BatchItems      atomic.Int64
	BatchErrors     atomic.Int64

	// Loader Metrics
	LoaderCalls  atomic.Int64
	LoaderErrors atomic.Int64
}

// Snapshot is a thread-safe copy of metrics
type Snapshot struct {
	// Basic Store
	Size              int64
	Hits              int64
	Misses            int64
	Evictions         int64
	Expirations       int64
	LastOperationTime time.Time

	// Batch Operations
	BatchOperations int64
	BatchItems      int64
	BatchErrors     int64

	// Loader
	LoaderCalls  int64
	LoaderErrors int64
}

// NewStoreMetrics creates a new StoreMetrics instance
func NewStoreMetrics() *StoreMetrics {
	m := &StoreMetrics{}
	m.LastOperationTime.Store(time.Time{})
	return m
}

// RecordHit records a successful lookup
func (m *StoreMetrics) RecordHit() {
	m.Hits.Add(1)
	m.LastOperationTime.Store(time.Now())
}

// RecordMiss records a failed lookup
func (m *StoreMetrics) RecordMiss() {
	m.Misses.Add(1)
	m.LastOperationTime.Store(time.Now())
}

// RecordEviction records a capacity eviction
func (m *StoreMetrics) RecordEviction() {
	m.Evictions.Add(1)
}

// RecordExpiration records a lazily removed expired entry
func (m *StoreMetrics) RecordExpiration() {
	m.Expirations.Add(1)
}

// RecordBatch records one batch operation over n items with failed failures
func (m *StoreMetrics) RecordBatch(n, failed int) {
	m.BatchOperations.Add(1)
	m.BatchItems.Add(int64(n))
	m.BatchErrors.Add(int64(failed))
}

// RecordLoader records one loader invocation
func (m *StoreMetrics) RecordLoader(err error) {
	m.LoaderCalls.Add(1)
	if err != nil {
		m.LoaderErrors.Add(1)
	}
}

// UpdateSize updates the current store size
func (m *StoreMetrics) UpdateSize(size int64) {
	m.Size.Store(size)
}

// GetSnapshot returns a thread-safe copy of current metrics
func (m *StoreMetrics) GetSnapshot() Snapshot {
	return Snapshot{
		Size:              m.Size.Load(),
		Hits:              m.Hits.Load(),
		Misses:            m.Misses.Load(),
		Evictions:         m.Evictions.Load(),
		Expirations:       m.Expirations.Load(),
		LastOperationTime: m.LastOperationTime.Load().(time.Time),
		BatchOperations:   m.BatchOperations.Load(),
		BatchItems:        m.BatchItems.Load(),
		BatchErrors:       m.BatchErrors.Load(),
		LoaderCalls:       m.LoaderCalls.Load(),
		LoaderErrors:      m.LoaderErrors.Load(),
	}
}

// HitRatio returns the lookup hit ratio
func (s Snapshot) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Reset resets all metrics to zero
func (m *StoreMetrics) Reset() {
	m.Size.Store(0)
	m.Hits.Store(0)
	m.Misses.Store(0)
	m.Evictions.Store(0)
	m.Expirations.Store(0)
	m.LastOperationTime.Store(time.Time{})
	m.BatchOperations.Store(0)
	m.BatchItems.Store(0)
	m.BatchErrors.Store(0)
	m.LoaderCalls.Store(0)
	m.LoaderErrors.Store(0)
}
