package storekit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	storeerrors "github.com/gozephyr/storekit/errors"
)

func TestSetMulti(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	err := s.SetMulti(ctx, map[string]any{
		"a": 1,
		"b": 2,
		"c": 3,
	}, time.Minute)
	require.NoError(t, err)

	n, err := s.Len(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

func TestSetMultiReportsPerKeyFailures(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	err := s.SetMulti(ctx, map[string]any{
		"ok": 1,
		"":   2,
	}, 0)
	require.Error(t, err)
	require.ErrorIs(t, err, storeerrors.ErrBatchOperation)

	var be *storeerrors.BatchError
	require.True(t, errors.As(err, &be))
	require.Len(t, be.Failed, 1)
	require.ErrorIs(t, be.Failed[""], storeerrors.ErrInvalidKey)

	// The valid key stayed applied.
	_, found, err := s.Get(ctx, "ok")
	require.NoError(t, err)
	require.True(t, found)
}

func TestGetMultiOmitsMissingKeys(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Set(ctx, "a", 1, 0))
	require.NoError(t, s.Set(ctx, "b", nil, 0))

	result, err := s.GetMulti(ctx, []string{"a", "b", "missing"})
	require.NoError(t, err)
	require.Len(t, result, 2)
	require.Contains(t, result, "a")

	// A stored nil value is present in the map; membership is the signal,
	// not value truthiness.
	value, ok := result["b"]
	require.True(t, ok)
	require.Nil(t, value)

	require.NotContains(t, result, "missing")
}

func TestDelMulti(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Set(ctx, "a", 1, 0))
	require.NoError(t, s.Set(ctx, "b", 2, 0))

	require.NoError(t, s.DelMulti(ctx, []string{"a", "b", "missing"}))

	n, err := s.Len(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestBatchMetrics(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.SetMulti(ctx, map[string]any{"a": 1, "b": 2}, 0))
	_, err := s.GetMulti(ctx, []string{"a", "b"})
	require.NoError(t, err)

	snap := s.Metrics()
	require.Equal(t, int64(2), snap.BatchOperations)
	require.Equal(t, int64(4), snap.BatchItems)
	require.Equal(t, int64(0), snap.BatchErrors)
}
