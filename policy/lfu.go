package policy

import (
	"container/heap"
	"sync"
)

// LFU implements the Policy interface using the Least Frequently Used strategy
type LFU[K comparable] struct {
	items map[K]*lfuItem[K]
	queue lfuQueue[K]
	mu    sync.Mutex
}

type lfuItem[K comparable] struct {
	key   K
	count int64
	index int
}

type lfuQueue[K comparable] []*lfuItem[K]

func (q lfuQueue[K]) Len() int { return len(q) }

func (q lfuQueue[K]) Less(i, j int) bool {
	return q[i].count < q[j].count
}

func (q lfuQueue[K]) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *lfuQueue[K]) Push(x any) {
	item := x.(*lfuItem[K])
	item.index = len(*q)
	*q = append(*q, item)
}

func (q *lfuQueue[K]) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*q = old[:n-1]
	return item
}

// NewLFU creates a new LFU policy
func NewLFU[K comparable]() Policy[K] {
	return &LFU[K]{
		items: make(map[K]*lfuItem[K]),
		queue: lfuQueue[K]{},
	}
}

// OnGet is called when a key is read from the cache
func (p *LFU[K]) OnGet(key K) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if item, exists := p.items[key]; exists {
		item.count++
		heap.Fix(&p.queue, item.index)
	}
}

// OnSet is called when a key is written to the cache
func (p *LFU[K]) OnSet(key K) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if item, exists := p.items[key]; exists {
		item.count++
		heap.Fix(&p.queue, item.index)
		return
	}
	item := &lfuItem[K]{key: key, count: 1}
	p.items[key] = item
	heap.Push(&p.queue, item)
}

// OnDelete is called when a key is removed from the cache
func (p *LFU[K]) OnDelete(key K) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if item, exists := p.items[key]; exists {
		heap.Remove(&p.queue, item.index)
		delete(p.items, key)
	}
}

// OnClear is called when the cache is cleared
func (p *LFU[K]) OnClear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.items = make(map[K]*lfuItem[K])
	p.queue = lfuQueue[K]{}
}

// Evict removes and returns the least frequently used key
func (p *LFU[K]) Evict() (K, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.queue.Len() == 0 {
		var zero K
		return zero, false
	}

	item := heap.Pop(&p.queue).(*lfuItem[K])
	delete(p.items, item.key)
	return item.key, true
}

// Len returns the number of tracked keys
func (p *LFU[K]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.Len()
}
