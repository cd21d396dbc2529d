// Package backend provides interfaces and implementations for store storage
// backends.
package backend

import (
	"context"
	"time"
)

// Backend defines the uniform contract over heterogeneous storage engines.
// Values are opaque; the serialization format is backend-specific (the memory
// backend holds references directly, durable backends hold serialized bytes).
//
// Get reports a miss with found=false. A backend failure is returned as an
// error (errors.ErrBackendUnavailable, errors.ErrBackendTimeout), never
// collapsed into a miss.
type Backend interface {
	// Get retrieves a value. An expired entry is a miss.
	Get(ctx context.Context, key string) (value any, found bool, err error)

	// Set stores a value, overwriting any existing entry and resetting its
	// TTL. A zero TTL means the entry never expires.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error

	// Delete removes a value. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Has reports whether an unexpired entry exists for key.
	Has(ctx context.Context, key string) (bool, error)

	// Keys returns all unexpired keys in the backend.
	Keys(ctx context.Context) ([]string, error)

	// Len returns the number of unexpired entries.
	Len(ctx context.Context) (int, error)

	// Clear removes all entries, including those without a TTL.
	Clear(ctx context.Context) error

	// Close releases any resources used by the backend.
	Close(ctx context.Context) error
}

// KeepTTL instructs Set to retain the existing entry's expiry deadline,
// mirroring the redis KEEPTTL write option. On a key with no live entry it
// behaves like a zero TTL (never expires). Used for in-place mutations that
// must not reset the clock started by the original write.
const KeepTTL = time.Duration(-1)

// Entry represents a stored value with its absolute expiry deadline. The zero
// Expires time means the entry never expires.
type Entry struct {
	Value   any       `json:"value"`
	Expires time.Time `json:"expires"`
}

// Expired reports whether the entry's deadline has passed
func (e *Entry) Expired() bool {
	if e.Expires.IsZero() {
		return false
	}
	return !time.Now().Before(e.Expires)
}
