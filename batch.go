package storekit

import (
	"context"
	"time"

	"github.com/gozephyr/storekit/errors"
	"github.com/gozephyr/storekit/ttl"
)

// SetMulti stores several entries with one shared TTL. Each key is applied
// independently; failures are collected per key into a BatchError while the
// remaining keys stay written.
func (s *Store) SetMulti(ctx context.Context, entries map[string]any, ttlDuration time.Duration) error {
	if err := s.checkState(); err != nil {
		return errors.WrapError("SetMulti", nil, err)
	}
	if err := ttl.Validate(ttlDuration, s.ttlConfig); err != nil {
		return errors.WrapError("SetMulti", nil, err)
	}
	ttlDuration = ttl.Normalize(ttlDuration, s.ttlConfig)

	failed := make(map[string]error)
	for key, value := range entries {
		if err := ctx.Err(); err != nil {
			failed[key] = errors.ErrContextCanceled
			continue
		}
		if err := validateKey(key); err != nil {
			failed[key] = err
			continue
		}
		s.locks.Lock(key)
		err := s.backend.Set(ctx, key, value, ttlDuration)
		s.locks.Unlock(key)
		if err != nil {
			failed[key] = err
		}
	}

	s.metrics.RecordBatch(len(entries), len(failed))
	return errors.NewBatchError("SetMulti", failed)
}

// GetMulti retrieves several keys at once. The result holds found keys only;
// callers must check map membership, not value truthiness. Per-key backend
// failures are reported in a BatchError alongside the keys that did resolve.
func (s *Store) GetMulti(ctx context.Context, keys []string) (map[string]any, error) {
	if err := s.checkState(); err != nil {
		return nil, errors.WrapError("GetMulti", nil, err)
	}

	result := make(map[string]any, len(keys))
	failed := make(map[string]error)
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			failed[key] = errors.ErrContextCanceled
			continue
		}
		if err := validateKey(key); err != nil {
			failed[key] = err
			continue
		}
		value, found, err := s.backend.Get(ctx, key)
		if err != nil {
			failed[key] = err
			continue
		}
		if found {
			s.metrics.RecordHit()
			result[key] = value
		} else {
			s.metrics.RecordMiss()
		}
	}

	s.metrics.RecordBatch(len(keys), len(failed))
	return result, errors.NewBatchError("GetMulti", failed)
}

// DelMulti removes several keys. Each key is applied independently; failures
// are collected per key into a BatchError.
func (s *Store) DelMulti(ctx context.Context, keys []string) error {
	if err := s.checkState(); err != nil {
		return errors.WrapError("DelMulti", nil, err)
	}

	failed := make(map[string]error)
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			failed[key] = errors.ErrContextCanceled
			continue
		}
		if err := validateKey(key); err != nil {
			failed[key] = err
			continue
		}
		s.locks.Lock(key)
		err := s.backend.Delete(ctx, key)
		s.locks.Unlock(key)
		if err != nil {
			failed[key] = err
		}
	}

	s.metrics.RecordBatch(len(keys), len(failed))
	return errors.NewBatchError("DelMulti", failed)
}
