package storekit

import (
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/gozephyr/storekit/backend"
	"github.com/gozephyr/storekit/errors"
	"github.com/gozephyr/storekit/policy"
	"github.com/gozephyr/storekit/ttl"
)

// StoreConfig declares one named store in a configuration file
type StoreConfig struct {
	// Backend selects the storage engine: "memory", "file", "database" or
	// "redis". Defaults to "memory".
	Backend string `mapstructure:"backend"`

	// Policy selects the eviction policy for bounded backends: "lru", "lfu"
	// or "fifo". Defaults to "lru".
	Policy string `mapstructure:"policy"`

	MaxSize         int           `mapstructure:"max_size"`
	DefaultTTL      time.Duration `mapstructure:"default_ttl"`
	MaxTTL          time.Duration `mapstructure:"max_ttl"`
	JanitorInterval time.Duration `mapstructure:"janitor_interval"`
	Timeout         time.Duration `mapstructure:"timeout"`

	// DSN and Table configure the database backend. Table defaults to
	// "<name>_entries".
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`

	// Addr configures the redis backend; keys are prefixed with the store
	// name.
	Addr string `mapstructure:"addr"`

	// Directory and Compression configure the file backend
	Directory   string `mapstructure:"directory"`
	Compression bool   `mapstructure:"compression"`
}

// Config declares the stores to register at process start
type Config struct {
	// Service labels exported metrics
	Service string `mapstructure:"service"`

	// Prometheus enables the Prometheus exporter for every declared store
	Prometheus bool `mapstructure:"prometheus"`

	Stores map[string]StoreConfig `mapstructure:"stores"`
}

// LoadConfig reads a configuration file and registers every store it
// declares, returning their names. Values can be overridden through
// STOREKIT_* environment variables. Registration is idempotent: stores
// already open under a declared name are left as they are.
func LoadConfig(path string, logger *zap.Logger) ([]string, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("storekit")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.WrapError("LoadConfig", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.WrapError("LoadConfig", path, err)
	}
	return openConfigured(&cfg, logger)
}

// openConfigured opens every store a Config declares
func openConfigured(cfg *Config, logger *zap.Logger) ([]string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	names := make([]string, 0, len(cfg.Stores))
	for name, sc := range cfg.Stores {
		// Registration is fixed at first creation; do not build a backend
		// that Open would discard.
		if _, ok := Lookup(name); ok {
			names = append(names, name)
			continue
		}
		opts, err := sc.storeOptions(name, cfg, logger)
		if err != nil {
			return names, err
		}
		if _, err := Open(name, opts...); err != nil {
			return names, err
		}
		logger.Info("store registered",
			zap.String("store", name),
			zap.String("backend", sc.backendName()))
		names = append(names, name)
	}
	return names, nil
}

func (sc StoreConfig) backendName() string {
	if sc.Backend == "" {
		return "memory"
	}
	return sc.Backend
}

// ttlConfig translates the declared TTL bounds
func (sc StoreConfig) ttlConfig() ttl.Config {
	return ttl.Config{
		DefaultTTL: sc.DefaultTTL,
		MaxTTL:     sc.MaxTTL,
	}
}

// backendOptions translates the shared backend knobs
func (sc StoreConfig) backendOptions(logger *zap.Logger) ([]backend.Option, error) {
	opts := []backend.Option{
		backend.WithTTLConfig(sc.ttlConfig()),
		backend.WithLogger(logger),
	}
	if sc.MaxSize > 0 {
		opts = append(opts, backend.WithMaxSize(sc.MaxSize))
	}
	if sc.JanitorInterval > 0 {
		opts = append(opts, backend.WithJanitorInterval(sc.JanitorInterval))
	}
	if sc.Timeout > 0 {
		opts = append(opts, backend.WithTimeout(sc.Timeout))
	}

	switch strings.ToLower(sc.Policy) {
	case "", "lru":
		// Apply's default
	case "lfu":
		opts = append(opts, backend.WithPolicy(policy.NewLFU[string]()))
	case "fifo":
		opts = append(opts, backend.WithPolicy(policy.NewFIFO[string]()))
	default:
		return nil, errors.NewStoreError(errors.ErrorTypeValidation, "LoadConfig", sc.Policy, errors.ErrInvalidOperation)
	}
	return opts, nil
}

// storeOptions builds the Open options for one declared store
func (sc StoreConfig) storeOptions(name string, cfg *Config, logger *zap.Logger) ([]StoreOption, error) {
	bopts, err := sc.backendOptions(logger)
	if err != nil {
		return nil, err
	}

	var b backend.Backend
	switch strings.ToLower(sc.backendName()) {
	case "memory":
		b, err = backend.NewMemory(bopts...)
	case "file":
		fc := backend.DefaultFileConfig()
		if sc.Directory != "" {
			fc.Directory = sc.Directory
		}
		fc.CompressionEnabled = sc.Compression
		b, err = backend.NewFile(fc, bopts...)
	case "database":
		table := sc.Table
		if table == "" {
			table = name + "_entries"
		}
		b, err = backend.NewDatabase(sc.DSN, table, bopts...)
	case "redis":
		b, err = backend.NewRedis(sc.Addr, name, bopts...)
	default:
		return nil, errors.NewStoreError(errors.ErrorTypeValidation, "LoadConfig", sc.Backend, errors.ErrInvalidOperation)
	}
	if err != nil {
		return nil, err
	}

	opts := []StoreOption{
		WithBackend(b),
		WithTTL(sc.ttlConfig()),
		WithStoreLogger(logger),
	}
	if cfg.Prometheus {
		opts = append(opts, WithPrometheusMetrics(cfg.Service))
	}
	return opts, nil
}
