package policy

import (
	"container/list"
	"sync"
)

// LRU implements the Policy interface using the Least Recently Used strategy.
// Both reads and writes count as a use.
type LRU[K comparable] struct {
	items map[K]*list.Element
	list  *list.List
	mu    sync.Mutex
}

// NewLRU creates a new LRU policy
func NewLRU[K comparable]() Policy[K] {
	return &LRU[K]{
		items: make(map[K]*list.Element),
		list:  list.New(),
	}
}

// OnGet is called when a key is read from the cache
func (p *LRU[K]) OnGet(key K) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if element, exists := p.items[key]; exists {
		p.list.MoveToFront(element)
	}
}

// OnSet is called when a key is written to the cache
func (p *LRU[K]) OnSet(key K) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if element, exists := p.items[key]; exists {
		p.list.MoveToFront(element)
		return
	}
	p.items[key] = p.list.PushFront(key)
}

// OnDelete is called when a key is removed from the cache
func (p *LRU[K]) OnDelete(key K) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if element, exists := p.items[key]; exists {
		p.list.Remove(element)
		delete(p.items, key)
	}
}

// OnClear is called when the cache is cleared
func (p *LRU[K]) OnClear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.list = list.New()
	p.items = make(map[K]*list.Element)
}

// Evict removes and returns the least recently used key
func (p *LRU[K]) Evict() (K, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	element := p.list.Back()
	if element == nil {
		var zero K
		return zero, false
	}

	key := element.Value.(K)
	p.list.Remove(element)
	delete(p.items, key)
	return key, true
}

// Len returns the number of tracked keys
func (p *LRU[K]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.list.Len()
}
