package backend

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gozephyr/storekit/policy"
)

func newTestMemory(t *testing.T, opts ...Option) Backend {
	t.Helper()
	b, err := NewMemory(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close(context.Background()) })
	return b
}

func TestMemoryBasicOperations(t *testing.T) {
	ctx := context.Background()
	b := newTestMemory(t)

	require.NoError(t, b.Set(ctx, "key1", "value1", 0))

	value, found, err := b.Get(ctx, "key1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "value1", value)

	has, err := b.Has(ctx, "key1")
	require.NoError(t, err)
	require.True(t, has)

	require.NoError(t, b.Delete(ctx, "key1"))
	_, found, err = b.Get(ctx, "key1")
	require.NoError(t, err)
	require.False(t, found)

	// Deleting an absent key is not an error.
	require.NoError(t, b.Delete(ctx, "key1"))
}

func TestMemoryMissIsNotAnError(t *testing.T) {
	ctx := context.Background()
	b := newTestMemory(t)

	value, found, err := b.Get(ctx, "absent")
	require.NoError(t, err)
	require.False(t, found)
	require.Nil(t, value)
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	b := newTestMemory(t, WithJanitorInterval(0))

	require.NoError(t, b.Set(ctx, "short", "v", 30*time.Millisecond))
	require.NoError(t, b.Set(ctx, "forever", "v", 0))

	_, found, err := b.Get(ctx, "short")
	require.NoError(t, err)
	require.True(t, found)

	time.Sleep(60 * time.Millisecond)

	_, found, err = b.Get(ctx, "short")
	require.NoError(t, err)
	require.False(t, found)

	has, err := b.Has(ctx, "short")
	require.NoError(t, err)
	require.False(t, has)

	// A zero TTL never expires.
	_, found, err = b.Get(ctx, "forever")
	require.NoError(t, err)
	require.True(t, found)
}

func TestMemoryOverwriteResetsTTL(t *testing.T) {
	ctx := context.Background()
	b := newTestMemory(t)

	require.NoError(t, b.Set(ctx, "k", "v1", 30*time.Millisecond))
	require.NoError(t, b.Set(ctx, "k", "v2", time.Minute))

	time.Sleep(60 * time.Millisecond)

	value, found, err := b.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "v2", value)
}

func TestMemoryKeepTTL(t *testing.T) {
	ctx := context.Background()
	b := newTestMemory(t)

	t.Run("Preserves the running deadline", func(t *testing.T) {
		require.NoError(t, b.Set(ctx, "k", "v1", 50*time.Millisecond))
		require.NoError(t, b.Set(ctx, "k", "v2", KeepTTL))

		value, found, err := b.Get(ctx, "k")
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, "v2", value)

		time.Sleep(80 * time.Millisecond)
		_, found, err = b.Get(ctx, "k")
		require.NoError(t, err)
		require.False(t, found)
	})

	t.Run("Fresh key never expires", func(t *testing.T) {
		require.NoError(t, b.Set(ctx, "fresh", "v", KeepTTL))
		_, found, err := b.Get(ctx, "fresh")
		require.NoError(t, err)
		require.True(t, found)
	})
}

func TestMemoryCapacityEviction(t *testing.T) {
	ctx := context.Background()
	b := newTestMemory(t, WithMaxSize(2), WithPolicy(policy.NewLRU[string]()))

	require.NoError(t, b.Set(ctx, "a", 1, 0))
	require.NoError(t, b.Set(ctx, "b", 2, 0))

	// Touch a so b is the LRU victim.
	_, _, err := b.Get(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, b.Set(ctx, "c", 3, 0))

	_, found, err := b.Get(ctx, "b")
	require.NoError(t, err)
	require.False(t, found)

	n, err := b.Len(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestMemoryConcurrentInsertsRespectCapacity(t *testing.T) {
	ctx := context.Background()
	b := newTestMemory(t, WithMaxSize(4), WithPolicy(policy.NewLRU[string]()))

	// First inserts racing each other must still find an eviction victim.
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = b.Set(ctx, "k"+strconv.Itoa(i), i, 0)
		}(i)
	}
	wg.Wait()

	n, err := b.Len(ctx)
	require.NoError(t, err)
	require.LessOrEqual(t, n, 4)
}

func TestMemoryKeysLenClear(t *testing.T) {
	ctx := context.Background()
	b := newTestMemory(t)

	require.NoError(t, b.Set(ctx, "a", 1, 0))
	require.NoError(t, b.Set(ctx, "b", 2, 0))
	require.NoError(t, b.Set(ctx, "dead", 3, 20*time.Millisecond))
	time.Sleep(40 * time.Millisecond)

	keys, err := b.Keys(ctx)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a", "b"}, keys)

	n, err := b.Len(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	require.NoError(t, b.Clear(ctx))
	n, err = b.Len(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestMemoryJanitorSweep(t *testing.T) {
	ctx := context.Background()
	b := newTestMemory(t, WithJanitorInterval(20*time.Millisecond))

	require.NoError(t, b.Set(ctx, "dead", "v", 10*time.Millisecond))
	time.Sleep(80 * time.Millisecond)

	mb := b.(*memoryBackend)
	mb.mu.RLock()
	_, exists := mb.items["dead"]
	mb.mu.RUnlock()
	require.False(t, exists)
}

func TestMemoryCloseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	b, err := NewMemory()
	require.NoError(t, err)

	require.NoError(t, b.Close(ctx))
	require.NoError(t, b.Close(ctx))
}

func TestMemoryCanceledContext(t *testing.T) {
	b := newTestMemory(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := b.Get(ctx, "k")
	require.Error(t, err)
	require.Error(t, b.Set(ctx, "k", "v", 0))
}
