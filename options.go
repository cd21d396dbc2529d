package storekit

import (
	"go.uber.org/zap"

	"github.com/gozephyr/storekit/backend"
	"github.com/gozephyr/storekit/errors"
	"github.com/gozephyr/storekit/internal"
	"github.com/gozephyr/storekit/metrics"
	"github.com/gozephyr/storekit/ttl"
)

// Options represents store configuration options
type Options struct {
	// Backend is the storage backend. Defaults to an in-memory LRU backend.
	Backend backend.Backend

	// TTLConfig bounds and defaults TTLs passed to write operations
	TTLConfig ttl.Config

	// Logger receives store lifecycle events. Defaults to a no-op logger.
	Logger *zap.Logger

	// Metrics is the metrics exporter. Defaults to the in-process standard
	// exporter.
	Metrics metrics.Exporter

	// LockStripes is the stripe count for per-key locking
	LockStripes int

	// Deferred Prometheus setup; the exporter needs the store name, which is
	// only known at construction time.
	prometheus     bool
	metricsService string
}

// NewStoreOptions creates a new Options instance with default values
func NewStoreOptions() *Options {
	return &Options{
		TTLConfig:   ttl.DefaultConfig(),
		Logger:      zap.NewNop(),
		LockStripes: internal.DefaultStripes,
	}
}

// apply runs the given options and fills in defaults. The store name feeds
// the deferred Prometheus exporter label.
func (o *Options) apply(name string, opts ...StoreOption) error {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return err
		}
	}
	if o.Backend == nil {
		b, err := backend.NewMemory(backend.WithTTLConfig(o.TTLConfig))
		if err != nil {
			return err
		}
		o.Backend = b
	}
	if o.Metrics == nil {
		if o.prometheus {
			o.Metrics = metrics.NewPrometheusExporter(o.metricsService, name)
		} else {
			o.Metrics = metrics.NewStoreMetrics()
		}
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return nil
}

// StoreOption is a function that configures store options
type StoreOption func(*Options) error

// WithBackend sets the storage backend
func WithBackend(b backend.Backend) StoreOption {
	return func(o *Options) error {
		if b == nil {
			return errors.ErrInvalidOperation
		}
		o.Backend = b
		return nil
	}
}

// WithTTL sets the TTL configuration
func WithTTL(config ttl.Config) StoreOption {
	return func(o *Options) error {
		o.TTLConfig = config
		return nil
	}
}

// WithStoreLogger sets the store logger
func WithStoreLogger(logger *zap.Logger) StoreOption {
	return func(o *Options) error {
		if logger != nil {
			o.Logger = logger
		}
		return nil
	}
}

// WithMetrics sets the metrics exporter
func WithMetrics(exporter metrics.Exporter) StoreOption {
	return func(o *Options) error {
		if exporter != nil {
			o.Metrics = exporter
		}
		return nil
	}
}

// WithPrometheusMetrics exports this store's metrics via the process-wide
// Prometheus registry, labeled {service, store}.
func WithPrometheusMetrics(service string) StoreOption {
	return func(o *Options) error {
		o.Metrics = nil
		o.metricsService = service
		o.prometheus = true
		return nil
	}
}

// WithLockStripes sets the stripe count for per-key locking
func WithLockStripes(stripes int) StoreOption {
	return func(o *Options) error {
		if stripes <= 0 {
			return errors.ErrInvalidSize
		}
		o.LockStripes = stripes
		return nil
	}
}
