// Package errors provides error types and utilities for the storekit package.
package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeStore represents store facade errors
	ErrorTypeStore ErrorType = "store"
	// ErrorTypeBackend represents storage backend errors
	ErrorTypeBackend ErrorType = "backend"
	// ErrorTypeValidation represents argument and serialization errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeOperation represents operation-specific errors
	ErrorTypeOperation ErrorType = "operation"
)

// Common error types
var (
	// Store errors
	ErrStoreClosed  = errors.New("store is closed")
	ErrKeyNotFound  = errors.New("key not found")
	ErrTypeMismatch = errors.New("value is not a list")

	// Validation errors
	ErrInvalidKey      = errors.New("invalid key")
	ErrInvalidTTL      = errors.New("invalid TTL value")
	ErrInvalidIndex    = errors.New("index out of range")
	ErrSerialization   = errors.New("serialization error")
	ErrDeserialization = errors.New("deserialization error")

	// Backend errors
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrBackendTimeout     = errors.New("backend operation timed out")
	ErrCapacityLimit      = errors.New("capacity limit exceeded")
	ErrInvalidSize        = errors.New("max size must be greater than 0")

	// Operation errors
	ErrBatchOperation   = errors.New("batch operation failed")
	ErrContextCanceled  = errors.New("operation canceled by context")
	ErrInvalidOperation = errors.New("invalid operation")
)

// StoreError represents a store operation error
type StoreError struct {
	Op      string
	Key     any
	Err     error
	ErrType ErrorType
}

// determineErrorType determines the error type based on the error
func determineErrorType(err error) ErrorType {
	switch {
	case errors.Is(err, ErrStoreClosed) || errors.Is(err, ErrKeyNotFound) ||
		errors.Is(err, ErrTypeMismatch):
		return ErrorTypeStore
	case errors.Is(err, ErrInvalidKey) || errors.Is(err, ErrInvalidTTL) ||
		errors.Is(err, ErrInvalidIndex) || errors.Is(err, ErrSerialization) ||
		errors.Is(err, ErrDeserialization):
		return ErrorTypeValidation
	case errors.Is(err, ErrBackendUnavailable) || errors.Is(err, ErrBackendTimeout) ||
		errors.Is(err, ErrCapacityLimit):
		return ErrorTypeBackend
	default:
		return ErrorTypeOperation
	}
}

// Error implements the error interface
func (e *StoreError) Error() string {
	if e.Key != nil {
		return fmt.Sprintf("%s: %s: key=%v: %v", e.ErrType, e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.ErrType, e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError
func NewStoreError(errType ErrorType, op string, key any, err error) error {
	return &StoreError{
		ErrType: errType,
		Op:      op,
		Key:     key,
		Err:     err,
	}
}

// WrapError wraps an error with operation context
func WrapError(op string, key any, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		// Already wrapped; keep the innermost operation context.
		return err
	}
	return NewStoreError(determineErrorType(err), op, key, err)
}

// BatchError reports per-key failures of a batch operation. Keys not present
// in Failed were applied successfully.
type BatchError struct {
	Op     string
	Failed map[string]error
}

// Error implements the error interface
func (e *BatchError) Error() string {
	return fmt.Sprintf("%s: %v: %d key(s) failed", e.Op, ErrBatchOperation, len(e.Failed))
}

// Unwrap returns the underlying sentinel
func (e *BatchError) Unwrap() error {
	return ErrBatchOperation
}

// NewBatchError creates a BatchError, or returns nil when no key failed
func NewBatchError(op string, failed map[string]error) error {
	if len(failed) == 0 {
		return nil
	}
	return &BatchError{Op: op, Failed: failed}
}

// IsStoreError checks if an error is a StoreError
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	var se *StoreError
	if errors.As(err, &se) {
		return se.ErrType == errType
	}
	return false
}

// IsKeyNotFound checks if the error is a key not found error
func IsKeyNotFound(err error) bool {
	return errors.Is(err, ErrKeyNotFound)
}

// IsTypeMismatch checks if the error is a type mismatch error
func IsTypeMismatch(err error) bool {
	return errors.Is(err, ErrTypeMismatch)
}

// IsBackendUnavailable checks if the error is a backend availability error
func IsBackendUnavailable(err error) bool {
	return errors.Is(err, ErrBackendUnavailable)
}

// IsBackendTimeout checks if the error is a backend timeout error
func IsBackendTimeout(err error) bool {
	return errors.Is(err, ErrBackendTimeout)
}

// IsStoreClosed checks if the error is a store closed error
func IsStoreClosed(err error) bool {
	return errors.Is(err, ErrStoreClosed)
}

// IsInvalidArgument checks if the error is any argument validation error
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidKey) ||
		errors.Is(err, ErrInvalidTTL) ||
		errors.Is(err, ErrInvalidIndex)
}
