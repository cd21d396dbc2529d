package storekit

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenIsIdempotentByName(t *testing.T) {
	ctx := context.Background()
	t.Cleanup(func() { _ = CloseAll(ctx) })

	first, err := Open("idempotent")
	require.NoError(t, err)
	second, err := Open("idempotent")
	require.NoError(t, err)
	require.Same(t, first, second)

	// Writes through one handle are visible through the other.
	require.NoError(t, first.Set(ctx, "k", "v", 0))
	value, found, err := second.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "v", value)
}

func TestOpenConcurrentCreation(t *testing.T) {
	ctx := context.Background()
	t.Cleanup(func() { _ = CloseAll(ctx) })

	const workers = 32
	stores := make([]*Store, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := Open("race")
			require.NoError(t, err)
			stores[i] = s
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		require.Same(t, stores[0], stores[i])
	}
}

func TestOpenEmptyName(t *testing.T) {
	_, err := Open("")
	require.Error(t, err)
}

func TestLookup(t *testing.T) {
	ctx := context.Background()
	t.Cleanup(func() { _ = CloseAll(ctx) })

	_, ok := Lookup("unknown")
	require.False(t, ok)

	opened, err := Open("known")
	require.NoError(t, err)

	found, ok := Lookup("known")
	require.True(t, ok)
	require.Same(t, opened, found)
}

func TestCloseAll(t *testing.T) {
	ctx := context.Background()

	a, err := Open("teardown-a")
	require.NoError(t, err)
	_, err = Open("teardown-b")
	require.NoError(t, err)

	require.NoError(t, CloseAll(ctx))

	_, ok := Lookup("teardown-a")
	require.False(t, ok)

	// Closed handles refuse further operations.
	err = a.Set(ctx, "k", "v", 0)
	require.Error(t, err)

	// A reopened name gets a fresh instance.
	fresh, err := Open("teardown-a")
	require.NoError(t, err)
	require.NotSame(t, a, fresh)
	require.NoError(t, CloseAll(ctx))
}
