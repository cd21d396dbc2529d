package backend

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/gozephyr/storekit/errors"
	"github.com/gozephyr/storekit/ttl"
)

// redisBackend implements Backend on a Redis server. Keys are namespaced
// with a per-store prefix so several stores can share one database; values
// cross the wire as JSON bytes and expiry uses Redis-native TTLs.
type redisBackend struct {
	client    *redis.Client
	prefix    string
	ttlConfig ttl.Config
	timeout   time.Duration
	logger    *zap.Logger
}

// NewRedis creates a Redis backend. The prefix namespaces this store's keys,
// conventionally the store name.
func NewRedis(addr string, prefix string, opts ...Option) (Backend, error) {
	options := NewOptions()
	if err := options.Apply(opts...); err != nil {
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  options.Timeout,
		ReadTimeout:  options.Timeout,
		WriteTimeout: options.Timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), options.Timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		options.Logger.Warn("redis ping failed", zap.String("addr", addr), zap.Error(err))
		return nil, errors.NewStoreError(errors.ErrorTypeBackend, "NewRedis", nil, errors.ErrBackendUnavailable)
	}

	return &redisBackend{
		client:    client,
		prefix:    prefix,
		ttlConfig: options.TTLConfig,
		timeout:   options.Timeout,
		logger:    options.Logger,
	}, nil
}

func (r *redisBackend) fullKey(key string) string {
	return fmt.Sprintf("%s:%s", r.prefix, key)
}

// translate maps driver errors onto the backend error taxonomy
func (r *redisBackend) translate(op string, key any, err error) error {
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.NewStoreError(errors.ErrorTypeBackend, op, key, errors.ErrBackendTimeout)
	case stderrors.Is(err, context.Canceled):
		return errors.NewStoreError(errors.ErrorTypeOperation, op, key, errors.ErrContextCanceled)
	default:
		r.logger.Warn("redis backend error", zap.String("op", op), zap.Error(err))
		return errors.NewStoreError(errors.ErrorTypeBackend, op, key, errors.ErrBackendUnavailable)
	}
}

// Get retrieves a value
func (r *redisBackend) Get(ctx context.Context, key string) (any, bool, error) {
	data, err := r.client.Get(ctx, r.fullKey(key)).Bytes()
	if err != nil {
		if stderrors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, r.translate("Get", key, err)
	}

	value, err := Decode(data)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Set stores a value with a Redis-native TTL
func (r *redisBackend) Set(ctx context.Context, key string, value any, ttlDuration time.Duration) error {
	data, err := Encode(value)
	if err != nil {
		return err
	}

	expiration := ttl.Normalize(ttlDuration, r.ttlConfig)
	if ttlDuration == KeepTTL {
		expiration = redis.KeepTTL
	}
	if err := r.client.Set(ctx, r.fullKey(key), data, expiration).Err(); err != nil {
		return r.translate("Set", key, err)
	}
	return nil
}

// Delete removes a value
func (r *redisBackend) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.fullKey(key)).Err(); err != nil {
		return r.translate("Delete", key, err)
	}
	return nil
}

// Has reports whether the key exists
func (r *redisBackend) Has(ctx context.Context, key string) (bool, error) {
	count, err := r.client.Exists(ctx, r.fullKey(key)).Result()
	if err != nil {
		return false, r.translate("Has", key, err)
	}
	return count > 0, nil
}

// Keys scans this store's namespace and returns the bare keys
func (r *redisBackend) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	pattern := r.fullKey("*")
	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), r.prefix+":"))
	}
	if err := iter.Err(); err != nil {
		return nil, r.translate("Keys", nil, err)
	}
	return keys, nil
}

// Len returns the number of keys in this store's namespace
func (r *redisBackend) Len(ctx context.Context) (int, error) {
	keys, err := r.Keys(ctx)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// Clear removes all keys in this store's namespace
func (r *redisBackend) Clear(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.fullKey("*"), 0).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return r.translate("Clear", nil, err)
		}
	}
	return r.translate("Clear", nil, iter.Err())
}

// Close closes the client connection pool
func (r *redisBackend) Close(ctx context.Context) error {
	return r.translate("Close", nil, r.client.Close())
}
