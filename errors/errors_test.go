package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStoreError(t *testing.T) {
	t.Run("Error string with key", func(t *testing.T) {
		err := NewStoreError(ErrorTypeStore, "Get", "user:1", ErrKeyNotFound)
		require.Contains(t, err.Error(), "Get")
		require.Contains(t, err.Error(), "user:1")
		require.Contains(t, err.Error(), "key not found")
	})

	t.Run("Error string without key", func(t *testing.T) {
		err := NewStoreError(ErrorTypeBackend, "Clear", nil, ErrBackendUnavailable)
		require.Contains(t, err.Error(), "Clear")
		require.NotContains(t, err.Error(), "key=")
	})

	t.Run("Unwrap reaches the sentinel", func(t *testing.T) {
		err := NewStoreError(ErrorTypeStore, "Get", "k", ErrKeyNotFound)
		require.ErrorIs(t, err, ErrKeyNotFound)
	})
}

func TestWrapError(t *testing.T) {
	t.Run("Nil stays nil", func(t *testing.T) {
		require.NoError(t, WrapError("Get", "k", nil))
	})

	t.Run("Wrapping picks the error type", func(t *testing.T) {
		require.True(t, IsErrorType(WrapError("Get", "k", ErrKeyNotFound), ErrorTypeStore))
		require.True(t, IsErrorType(WrapError("Set", "k", ErrInvalidTTL), ErrorTypeValidation))
		require.True(t, IsErrorType(WrapError("Get", "k", ErrBackendTimeout), ErrorTypeBackend))
	})

	t.Run("Does not re-wrap", func(t *testing.T) {
		inner := WrapError("Get", "k", ErrKeyNotFound)
		outer := WrapError("GetMulti", "k", inner)
		require.Same(t, inner, outer)
	})
}

func TestBatchError(t *testing.T) {
	t.Run("Empty failures mean no error", func(t *testing.T) {
		require.NoError(t, NewBatchError("SetMulti", nil))
		require.NoError(t, NewBatchError("SetMulti", map[string]error{}))
	})

	t.Run("Failures are reported per key", func(t *testing.T) {
		err := NewBatchError("SetMulti", map[string]error{
			"a": ErrInvalidKey,
			"b": ErrBackendUnavailable,
		})
		require.Error(t, err)
		require.ErrorIs(t, err, ErrBatchOperation)

		var be *BatchError
		require.True(t, errors.As(err, &be))
		require.Len(t, be.Failed, 2)
		require.ErrorIs(t, be.Failed["a"], ErrInvalidKey)
		require.ErrorIs(t, be.Failed["b"], ErrBackendUnavailable)
	})
}

func TestHelpers(t *testing.T) {
	require.True(t, IsKeyNotFound(WrapError("Get", "k", ErrKeyNotFound)))
	require.True(t, IsTypeMismatch(WrapError("Push", "k", ErrTypeMismatch)))
	require.True(t, IsBackendUnavailable(WrapError("Get", "k", ErrBackendUnavailable)))
	require.True(t, IsBackendTimeout(WrapError("Get", "k", ErrBackendTimeout)))
	require.True(t, IsStoreClosed(WrapError("Get", "k", ErrStoreClosed)))
	require.True(t, IsInvalidArgument(WrapError("Set", "", ErrInvalidKey)))
	require.True(t, IsInvalidArgument(WrapError("Set", "k", ErrInvalidTTL)))
	require.True(t, IsInvalidArgument(WrapError("ArraySet", "k", ErrInvalidIndex)))
	require.False(t, IsKeyNotFound(ErrTypeMismatch))
	require.True(t, IsStoreError(WrapError("Get", "k", ErrKeyNotFound)))
	require.False(t, IsStoreError(ErrKeyNotFound))
}
