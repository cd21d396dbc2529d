package backend

import (
	"time"

	"go.uber.org/zap"

	"github.com/gozephyr/storekit/errors"
	"github.com/gozephyr/storekit/policy"
	"github.com/gozephyr/storekit/ttl"
)

// Default values for backend options
const (
	DefaultMaxSize         = 10000
	DefaultJanitorInterval = 30 * time.Second
	DefaultTimeout         = 5 * time.Second
)

// Options represents backend configuration options
type Options struct {
	// MaxSize is the maximum number of items a bounded backend holds before
	// evicting (memory backend, and the read-through cache of the database
	// backend). Zero means unbounded.
	MaxSize int

	// TTLConfig is the configuration for TTL behavior
	TTLConfig ttl.Config

	// Policy is the eviction policy for bounded backends. Defaults to LRU.
	Policy policy.Policy[string]

	// JanitorInterval controls how often expired entries are swept in the
	// background. Zero disables the sweep; expiry is still enforced lazily
	// on every read.
	JanitorInterval time.Duration

	// Timeout bounds individual operations against remote backends. Zero
	// means the caller's context is the only bound.
	Timeout time.Duration

	// Logger receives backend lifecycle events. Defaults to a no-op logger.
	Logger *zap.Logger
}

// NewOptions creates a new Options instance with default values
func NewOptions() *Options {
	return &Options{
		MaxSize:         DefaultMaxSize,
		TTLConfig:       ttl.DefaultConfig(),
		JanitorInterval: DefaultJanitorInterval,
		Timeout:         DefaultTimeout,
		Logger:          zap.NewNop(),
	}
}

// Option is a function that configures backend options
type Option func(*Options) error

// WithMaxSize sets the maximum size of the backend
func WithMaxSize(size int) Option {
	return func(o *Options) error {
		if size <= 0 {
			return errors.ErrInvalidSize
		}
		o.MaxSize = size
		return nil
	}
}

// WithTTLConfig sets the TTL configuration
func WithTTLConfig(config ttl.Config) Option {
	return func(o *Options) error {
		o.TTLConfig = config
		return nil
	}
}

// WithPolicy sets the eviction policy
func WithPolicy(p policy.Policy[string]) Option {
	return func(o *Options) error {
		o.Policy = p
		return nil
	}
}

// WithJanitorInterval sets the background sweep interval
func WithJanitorInterval(interval time.Duration) Option {
	return func(o *Options) error {
		o.JanitorInterval = interval
		return nil
	}
}

// WithTimeout sets the per-operation timeout for remote backends
func WithTimeout(timeout time.Duration) Option {
	return func(o *Options) error {
		o.Timeout = timeout
		return nil
	}
}

// WithLogger sets the backend logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) error {
		if logger != nil {
			o.Logger = logger
		}
		return nil
	}
}

// Apply applies the given options to the Options struct
func (o *Options) Apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return err
		}
	}
	if o.Policy == nil {
		o.Policy = policy.NewLRU[string]()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return nil
}
