// Package storekit provides a process-wide, multi-backend, TTL-aware
// key-value store with cache-aside loading and list/set collection
// operations. Stores are opened by name so independent callers rendezvous on
// shared state without coordinating construction.
package storekit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/gozephyr/storekit/backend"
	"github.com/gozephyr/storekit/errors"
	"github.com/gozephyr/storekit/internal"
	"github.com/gozephyr/storekit/metrics"
	"github.com/gozephyr/storekit/ttl"
)

// Loader computes a value for a key on a cache miss. It is invoked at most
// once per concurrent miss on the same key.
type Loader func(ctx context.Context, key string) (any, error)

// Store is a TTL-aware key-value store over a pluggable backend. All methods
// are safe for concurrent use; operations on one key are linearizable with
// respect to each other.
type Store struct {
	name      string
	backend   backend.Backend
	ttlConfig ttl.Config
	locks     *internal.KeyLock
	group     singleflight.Group
	logger    *zap.Logger
	metrics   metrics.Exporter
	closed    atomic.Bool
	closeOnce sync.Once
}

// New creates an unregistered store with the given options. Most callers
// should use Open, which shares stores by name across the process.
func New(name string, opts ...StoreOption) (*Store, error) {
	options := NewStoreOptions()
	if err := options.apply(name, opts...); err != nil {
		return nil, err
	}

	return &Store{
		name:      name,
		backend:   options.Backend,
		ttlConfig: options.TTLConfig,
		locks:     internal.NewKeyLock(options.LockStripes),
		logger:    options.Logger.With(zap.String("store", name)),
		metrics:   options.Metrics,
	}, nil
}

// Name returns the store's name
func (s *Store) Name() string {
	return s.name
}

// checkState returns an error when the store has been closed
func (s *Store) checkState() error {
	if s.closed.Load() {
		return errors.ErrStoreClosed
	}
	return nil
}

// validateKey rejects keys the backends cannot represent
func validateKey(key string) error {
	if key == "" {
		return errors.ErrInvalidKey
	}
	return nil
}

// checkOp bundles the state and argument checks shared by every operation
func (s *Store) checkOp(ctx context.Context, op, key string) error {
	if err := s.checkState(); err != nil {
		return errors.WrapError(op, key, err)
	}
	if err := validateKey(key); err != nil {
		return errors.WrapError(op, key, err)
	}
	if err := ctx.Err(); err != nil {
		return errors.WrapError(op, key, errors.ErrContextCanceled)
	}
	return nil
}

// Set stores a value with the given TTL, overwriting any existing entry and
// resetting its expiry clock. A zero TTL means the entry never expires.
func (s *Store) Set(ctx context.Context, key string, value any, ttlDuration time.Duration) error {
	if err := s.checkOp(ctx, "Set", key); err != nil {
		return err
	}
	if err := ttl.Validate(ttlDuration, s.ttlConfig); err != nil {
		return errors.WrapError("Set", key, err)
	}

	ttlDuration = ttl.Normalize(ttlDuration, s.ttlConfig)

	// Writes hold the per-key lock so they cannot land inside another
	// operation's read-modify-write window.
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	if err := s.backend.Set(ctx, key, value, ttlDuration); err != nil {
		return errors.WrapError("Set", key, err)
	}
	return nil
}

// Get retrieves a value. A miss is reported as found=false, never as an
// error; errors mean the backend could not answer.
func (s *Store) Get(ctx context.Context, key string) (any, bool, error) {
	if err := s.checkOp(ctx, "Get", key); err != nil {
		return nil, false, err
	}

	value, found, err := s.backend.Get(ctx, key)
	if err != nil {
		return nil, false, errors.WrapError("Get", key, err)
	}
	if found {
		s.metrics.RecordHit()
	} else {
		s.metrics.RecordMiss()
	}
	return value, found, nil
}

// Has reports whether an unexpired entry exists for key
func (s *Store) Has(ctx context.Context, key string) (bool, error) {
	if err := s.checkOp(ctx, "Has", key); err != nil {
		return false, err
	}

	found, err := s.backend.Has(ctx, key)
	if err != nil {
		return false, errors.WrapError("Has", key, err)
	}
	return found, nil
}

// Del removes an entry. Deleting an absent key is a no-op, not an error.
func (s *Store) Del(ctx context.Context, key string) error {
	if err := s.checkOp(ctx, "Del", key); err != nil {
		return err
	}

	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	if err := s.backend.Delete(ctx, key); err != nil {
		return errors.WrapError("Del", key, err)
	}
	return nil
}

// GetDel retrieves a value and removes it in one step. The read and delete
// are atomic with respect to other per-key operations.
func (s *Store) GetDel(ctx context.Context, key string) (any, bool, error) {
	if err := s.checkOp(ctx, "GetDel", key); err != nil {
		return nil, false, err
	}

	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	value, found, err := s.backend.Get(ctx, key)
	if err != nil {
		return nil, false, errors.WrapError("GetDel", key, err)
	}
	if !found {
		s.metrics.RecordMiss()
		return nil, false, nil
	}
	if err := s.backend.Delete(ctx, key); err != nil {
		return nil, false, errors.WrapError("GetDel", key, err)
	}
	s.metrics.RecordHit()
	return value, true, nil
}

// Keys returns all unexpired keys. The result is a snapshot; it may be stale
// by the time the caller inspects it.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	if err := s.checkState(); err != nil {
		return nil, errors.WrapError("Keys", nil, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.WrapError("Keys", nil, errors.ErrContextCanceled)
	}

	keys, err := s.backend.Keys(ctx)
	if err != nil {
		return nil, errors.WrapError("Keys", nil, err)
	}
	return keys, nil
}

// Len returns the number of unexpired entries
func (s *Store) Len(ctx context.Context) (int, error) {
	if err := s.checkState(); err != nil {
		return 0, errors.WrapError("Len", nil, err)
	}
	if err := ctx.Err(); err != nil {
		return 0, errors.WrapError("Len", nil, errors.ErrContextCanceled)
	}

	n, err := s.backend.Len(ctx)
	if err != nil {
		return 0, errors.WrapError("Len", nil, err)
	}
	s.metrics.UpdateSize(int64(n))
	return n, nil
}

// Clear removes all entries, including those without a TTL
func (s *Store) Clear(ctx context.Context) error {
	if err := s.checkState(); err != nil {
		return errors.WrapError("Clear", nil, err)
	}
	if err := ctx.Err(); err != nil {
		return errors.WrapError("Clear", nil, errors.ErrContextCanceled)
	}

	if err := s.backend.Clear(ctx); err != nil {
		return errors.WrapError("Clear", nil, err)
	}
	s.metrics.UpdateSize(0)
	return nil
}

// Metrics returns a snapshot of the store's counters
func (s *Store) Metrics() metrics.Snapshot {
	return s.metrics.GetSnapshot()
}

// Close closes the store and its backend. Further operations fail with
// ErrStoreClosed. Close is idempotent.
func (s *Store) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		err = s.backend.Close(ctx)
		if err != nil {
			s.logger.Warn("backend close failed", zap.Error(err))
		} else {
			s.logger.Debug("store closed")
		}
	})
	return err
}
