package backend

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// newTestRedis connects to the redis instance named by STOREKIT_TEST_REDIS,
// skipping the test when none is configured.
func newTestRedis(t *testing.T) Backend {
	t.Helper()
	addr := os.Getenv("STOREKIT_TEST_REDIS")
	if addr == "" {
		t.Skip("STOREKIT_TEST_REDIS not set")
	}

	b, err := NewRedis(addr, "storekit-test")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = b.Clear(context.Background())
		_ = b.Close(context.Background())
	})
	require.NoError(t, b.Clear(context.Background()))
	return b
}

func TestRedisBasicOperations(t *testing.T) {
	ctx := context.Background()
	b := newTestRedis(t)

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
}

func TestRedisNativeExpiry(t *testing.T) {
	ctx := context.Background()
	b := newTestRedis(t)

	require.NoError(t, b.Set(ctx, "short", "v", 100*time.Millisecond))
	time.Sleep(200 * time.Millisecond)

	_, found, err := b.Get(ctx, "short")
	require.NoError(t, err)
	require.False(t, found)
}

func TestRedisKeepTTL(t *testing.T) {
	ctx := context.Background()
	b := newTestRedis(t)

	require.NoError(t, b.Set(ctx, "k", "v1", 200*time.Millisecond))
	require.NoError(t, b.Set(ctx, "k", "v2", KeepTTL))

	value, found, err := b.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "v2", value)

	time.Sleep(300 * time.Millisecond)
	_, found, err = b.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, found)
}

func TestRedisNamespacedKeys(t *testing.T) {
	ctx := context.Background()
	b := newTestRedis(t)

	require.NoError(t, b.Set(ctx, "a", 1, 0))
	require.NoError(t, b.Set(ctx, "b", 2, 0))

	// Keys come back without the namespace prefix.
	keys, err := b.Keys(ctx)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a", "b"}, keys)

	require.NoError(t, b.Clear(ctx))
	n, err := b.Len(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestRedisUnreachableServer(t *testing.T) {
	if os.Getenv("STOREKIT_TEST_REDIS") == "" {
		t.Skip("STOREKIT_TEST_REDIS not set")
	}
	_, err := NewRedis("127.0.0.1:1", "storekit-test", WithTimeout(200*time.Millisecond))
	require.Error(t, err)
}
