package backend

import (
	"context"
	"sync"
	"time"

	"github.com/gozephyr/storekit/policy"
	"github.com/gozephyr/storekit/ttl"
)

// memoryBackend implements Backend with in-process storage. Values are held
// by reference; no serialization happens. Capacity is enforced by the
// configured eviction policy, expiry lazily on read plus an optional
// background janitor. The two mechanisms are independent: either can remove
// an entry.
type memoryBackend struct {
	mu        sync.RWMutex
	items     map[string]*Entry
	maxSize   int
	ttlConfig ttl.Config
	policy    policy.Policy[string]

	janitorStop chan struct{}
	janitorDone chan struct{}
	closeOnce   sync.Once
}

// NewMemory creates a new in-memory backend
func NewMemory(opts ...Option) (Backend, error) {
	options := NewOptions()
	if err := options.Apply(opts...); err != nil {
		return nil, err
	}

	m := &memoryBackend{
		items:       make(map[string]*Entry),
		maxSize:     options.MaxSize,
		ttlConfig:   options.TTLConfig,
		policy:      options.Policy,
		janitorStop: make(chan struct{}),
		janitorDone: make(chan struct{}),
	}

	if options.JanitorInterval > 0 {
		go m.janitor(options.JanitorInterval)
	} else {
		close(m.janitorDone)
	}
	return m, nil
}

// Get retrieves a value. Reads refresh eviction recency.
func (m *memoryBackend) Get(ctx context.Context, key string) (any, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	m.mu.RLock()
	entry, exists := m.items[key]
	m.mu.RUnlock()
	if !exists {
		return nil, false, nil
	}

	if entry.Expired() {
		m.removeExpired(key)
		return nil, false, nil
	}

	m.policy.OnGet(key)
	return entry.Value, true, nil
}

// Set stores a value, evicting per policy when capacity is exceeded
func (m *memoryBackend) Set(ctx context.Context, key string, value any, ttlDuration time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	existing, exists := m.items[key]

	var expires time.Time
	if ttlDuration == KeepTTL {
		if exists && !existing.Expired() {
			expires = existing.Expires
		}
	} else {
		expires = ttl.ExpirationTime(ttlDuration, m.ttlConfig)
	}
	entry := &Entry{Value: value, Expires: expires}

	if !exists && m.maxSize > 0 {
		for len(m.items) >= m.maxSize {
			victim, ok := m.policy.Evict()
			if !ok {
				break
			}
			delete(m.items, victim)
		}
	}
	m.items[key] = entry
	// OnSet runs under the lock so the policy's key set and the map never
	// diverge while another insert is sizing up a victim.
	m.policy.OnSet(key)
	m.mu.Unlock()
	return nil
}

// Delete removes a value
func (m *memoryBackend) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()

	m.policy.OnDelete(key)
	return nil
}

// Has reports whether an unexpired entry exists
func (m *memoryBackend) Has(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.RLock()
	entry, exists := m.items[key]
	m.mu.RUnlock()
	if !exists {
		return false, nil
	}
	if entry.Expired() {
		m.removeExpired(key)
		return false, nil
	}
	return true, nil
}

// Keys returns all unexpired keys
func (m *memoryBackend) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.items))
	for k, entry := range m.items {
		if entry.Expired() {
			continue
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// Len returns the number of unexpired entries
func (m *memoryBackend) Len(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, entry := range m.items {
		if entry.Expired() {
			continue
		}
		count++
	}
	return count, nil
}

// Clear removes all entries
func (m *memoryBackend) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	m.items = make(map[string]*Entry)
	m.mu.Unlock()

	m.policy.OnClear()
	return nil
}

// Close stops the janitor and releases the held entries
func (m *memoryBackend) Close(ctx context.Context) error {
	m.closeOnce.Do(func() {
		close(m.janitorStop)
	})
	<-m.janitorDone

	m.mu.Lock()
	m.items = make(map[string]*Entry)
	m.mu.Unlock()
	m.policy.OnClear()
	return nil
}

// removeExpired deletes key if its entry is still expired
func (m *memoryBackend) removeExpired(key string) {
	m.mu.Lock()
	if entry, exists := m.items[key]; exists && entry.Expired() {
		delete(m.items, key)
		m.mu.Unlock()
		m.policy.OnDelete(key)
		return
	}
	m.mu.Unlock()
}

// janitor periodically sweeps expired entries
func (m *memoryBackend) janitor(interval time.Duration) {
	defer close(m.janitorDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.sweep()
		case <-m.janitorStop:
			return
		}
	}
}

// sweep removes all expired entries
func (m *memoryBackend) sweep() {
	m.mu.Lock()
	var expired []string
	for key, entry := range m.items {
		if entry.Expired() {
			delete(m.items, key)
			expired = append(expired, key)
		}
	}
	m.mu.Unlock()

	for _, key := range expired {
		m.policy.OnDelete(key)
	}
}
