package storekit

import (
	"context"
	"sync"

	"github.com/gozephyr/storekit/errors"
)

// The process-wide registry binds store names to instances so independent
// callers rendezvous on shared state. Creation is serialized under the
// registry mutex: exactly one backend instance is ever bound to a name for
// the process lifetime.
var (
	registryMu sync.Mutex
	registry   = make(map[string]*Store)
)

// Open returns the store registered under name, creating it with the given
// options on first use. Open is idempotent by name; options passed on later
// calls are ignored, the configuration is fixed at first creation. When no
// backend option is given the store uses an in-memory LRU backend.
func Open(name string, opts ...StoreOption) (*Store, error) {
	if name == "" {
		return nil, errors.WrapError("Open", name, errors.ErrInvalidKey)
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if store, ok := registry[name]; ok {
		return store, nil
	}

	store, err := New(name, opts...)
	if err != nil {
		return nil, err
	}
	registry[name] = store
	return store, nil
}

// Lookup returns the store registered under name without creating one
func Lookup(name string) (*Store, bool) {
	registryMu.Lock()
	defer registryMu.Unlock()

	store, ok := registry[name]
	return store, ok
}

// CloseAll closes every registered store and empties the registry. Intended
// for process teardown. The first close error is returned; remaining stores
// are still closed.
func CloseAll(ctx context.Context) error {
	registryMu.Lock()
	defer registryMu.Unlock()

	var firstErr error
	for name, store := range registry {
		if err := store.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(registry, name)
	}
	return firstErr
}
