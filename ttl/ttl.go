// Package ttl provides functionality for managing time-to-live (TTL) values
// for store entries. It includes utilities for validating TTL durations,
// calculating absolute expiration deadlines, and checking if entries have
// expired.
//
// TTL is always translated to an absolute deadline at write time, so repeated
// reads never drift relative to the original expiry. A zero TTL means the
// entry never expires, which is distinct from an already expired entry.
package ttl

import (
	"time"

	"github.com/gozephyr/storekit/errors"
)

// Config represents configuration for TTL behavior
type Config struct {
	// DefaultTTL is applied when a write does not specify a TTL.
	// Zero means entries without a TTL never expire.
	DefaultTTL time.Duration

	// MinTTL is the minimum allowed TTL value. Zero disables the bound.
	MinTTL time.Duration

	// MaxTTL is the maximum allowed TTL value. Zero disables the bound.
	MaxTTL time.Duration
}

// DefaultConfig returns the default TTL configuration: no default expiry and
// no bounds.
func DefaultConfig() Config {
	return Config{}
}

// Validate validates a TTL value against the configuration
func Validate(ttl time.Duration, config Config) error {
	if ttl < 0 {
		return errors.WrapError("Validate", nil, errors.ErrInvalidTTL)
	}
	if ttl == 0 {
		return nil
	}
	if config.MinTTL > 0 && ttl < config.MinTTL {
		return errors.WrapError("Validate", nil, errors.ErrInvalidTTL)
	}
	if config.MaxTTL > 0 && ttl > config.MaxTTL {
		return errors.WrapError("Validate", nil, errors.ErrInvalidTTL)
	}
	return nil
}

// Normalize normalizes a TTL value according to the configuration
func Normalize(ttl time.Duration, config Config) time.Duration {
	if ttl == 0 {
		return config.DefaultTTL
	}
	if config.MinTTL > 0 && ttl < config.MinTTL {
		return config.MinTTL
	}
	if config.MaxTTL > 0 && ttl > config.MaxTTL {
		return config.MaxTTL
	}
	return ttl
}

// ExpirationTime calculates the absolute expiration deadline for a TTL value.
// The zero time means no expiration.
func ExpirationTime(ttl time.Duration, config Config) time.Time {
	normalized := Normalize(ttl, config)
	if normalized == 0 {
		return time.Time{}
	}
	return time.Now().Add(normalized)
}

// IsExpired checks if a given deadline has passed. The zero time never
// expires.
func IsExpired(expirationTime time.Time) bool {
	if expirationTime.IsZero() {
		return false
	}
	return !time.Now().Before(expirationTime)
}
