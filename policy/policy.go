// Package policy provides cache eviction policies like FIFO, LRU, and LFU.
//
// A Policy tracks access order for a set of keys and nominates eviction
// victims; it never removes entries on its own. Capacity decisions belong to
// the backend driving the policy, and expiry is handled independently by the
// TTL layer, so touching a soon-to-expire key still refreshes its recency.
package policy

// Policy defines the interface for cache eviction policies
type Policy[K comparable] interface {
	// OnGet is called when a key is read from the cache
	OnGet(key K)

	// OnSet is called when a key is written to the cache
	OnSet(key K)

	// OnDelete is called when a key is removed from the cache
	OnDelete(key K)

	// OnClear is called when the cache is cleared
	OnClear()

	// Evict removes and returns the next eviction victim
	Evict() (K, bool)

	// Len returns the number of tracked keys
	Len() int
}
