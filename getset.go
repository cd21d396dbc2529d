package storekit

import (
	"context"
	"time"

	"github.com/gozephyr/storekit/errors"
	"github.com/gozephyr/storekit/ttl"
)

// GetSet implements the cache-aside pattern: return the value under key when
// present and unexpired, otherwise invoke loader, store its result with the
// given TTL and return it. Concurrent misses on the same key are coalesced
// into a single loader invocation; every waiting caller receives the same
// result. A loader error is returned to the callers without writing anything.
func (s *Store) GetSet(ctx context.Context, key string, loader Loader, ttlDuration time.Duration) (any, error) {
	if err := s.checkOp(ctx, "GetSet", key); err != nil {
		return nil, err
	}
	if loader == nil {
		return nil, errors.WrapError("GetSet", key, errors.ErrInvalidOperation)
	}
	if err := ttl.Validate(ttlDuration, s.ttlConfig); err != nil {
		return nil, errors.WrapError("GetSet", key, err)
	}
	ttlDuration = ttl.Normalize(ttlDuration, s.ttlConfig)

	value, found, err := s.backend.Get(ctx, key)
	if err != nil {
		return nil, errors.WrapError("GetSet", key, err)
	}
	if found {
		s.metrics.RecordHit()
		return value, nil
	}
	s.metrics.RecordMiss()

	result, err, _ := s.group.Do(key, func() (any, error) {
		// A concurrent flight may have just written the key; settle for its
		// result instead of loading again.
		value, found, err := s.backend.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if found {
			return value, nil
		}

		loaded, err := loader(ctx, key)
		s.metrics.RecordLoader(err)
		if err != nil {
			return nil, err
		}
		// Loaders may call back into the store, so the per-key lock covers
		// only the write itself.
		s.locks.Lock(key)
		err = s.backend.Set(ctx, key, loaded, ttlDuration)
		s.locks.Unlock(key)
		if err != nil {
			return nil, err
		}
		return loaded, nil
	})
	if err != nil {
		return nil, errors.WrapError("GetSet", key, err)
	}
	return result, nil
}
