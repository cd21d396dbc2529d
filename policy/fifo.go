package policy

import (
	"container/list"
	"sync"
)

// FIFO implements the Policy interface using the First In First Out strategy
type FIFO[K comparable] struct {
	items map[K]*list.Element
	list  *list.List
	mu    sync.Mutex
}

// NewFIFO creates a new FIFO policy
func NewFIFO[K comparable]() Policy[K] {
	return &FIFO[K]{
		items: make(map[K]*list.Element),
		list:  list.New(),
	}
}

// OnGet is called when a key is read from the cache
func (p *FIFO[K]) OnGet(key K) {
	// FIFO ignores reads
}

// OnSet is called when a key is written to the cache
func (p *FIFO[K]) OnSet(key K) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.items[key]; exists {
		// Overwrites keep their original insertion position.
		return
	}
	p.items[key] = p.list.PushFront(key)
}

// OnDelete is called when a key is removed from the cache
func (p *FIFO[K]) OnDelete(key K) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if element, exists := p.items[key]; exists {
		p.list.Remove(element)
		delete(p.items, key)
	}
}

// OnClear is called when the cache is cleared
func (p *FIFO[K]) OnClear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.list = list.New()
	p.items = make(map[K]*list.Element)
}

// Evict removes and returns the oldest inserted key
func (p *FIFO[K]) Evict() (K, bool) {
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
func (p *FIFO[K]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.list.Len()
}
