package storekit

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGetSetHitSkipsLoader(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Set(ctx, "k", "cached", time.Minute))

	value, err := s.GetSet(ctx, "k", func(ctx context.Context, key string) (any, error) {
		t.Fatal("loader must not run on a hit")
		return nil, nil
	}, time.Minute)
	require.NoError(t, err)
	require.Equal(t, "cached", value)
}

func TestGetSetPopulatesOnMiss(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	calls := 0
	value, err := s.GetSet(ctx, "k", func(ctx context.Context, key string) (any, error) {
		calls++
		require.Equal(t, "k", key)
		return "loaded", nil
	}, time.Minute)
	require.NoError(t, err)
	require.Equal(t, "loaded", value)
	require.Equal(t, 1, calls)

	// The loaded value is stored and visible to plain Get.
	stored, found, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "loaded", stored)
}

func TestGetSetCoalescesConcurrentMisses(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	var calls atomic.Int64
	release := make(chan struct{})
	loader := func(ctx context.Context, key string) (any, error) {
		calls.Add(1)
		<-release
		return "loaded", nil
	}

	const workers = 16
	var wg sync.WaitGroup
	results := make([]any, workers)
	started := make(chan struct{}, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			started <- struct{}{}
			value, err := s.GetSet(ctx, "k", loader, time.Minute)
			require.NoError(t, err)
			results[i] = value
		}(i)
	}

	for i := 0; i < workers; i++ {
		<-started
	}
	// Let the in-flight callers pile up behind the first loader.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, value := range results {
		require.Equal(t, "loaded", value)
	}
	// Stragglers that arrive after the flight completes may load again, but
	// the piled-up callers must not each invoke the loader.
	require.LessOrEqual(t, calls.Load(), int64(2))
}

func TestGetSetLoaderError(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	boom := errors.New("upstream down")
	_, err := s.GetSet(ctx, "k", func(ctx context.Context, key string) (any, error) {
		return nil, boom
	}, time.Minute)
	require.Error(t, err)
	require.ErrorIs(t, err, boom)

	// Nothing was written.
	_, found, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, found)
}

func TestGetSetNilLoader(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.GetSet(ctx, "k", nil, time.Minute)
	require.Error(t, err)
}
