// Package internal provides internal utility types used across the storekit
// package.
package internal

import (
	"hash/fnv"
	"sync"
)

// DefaultStripes is the stripe count used when none is given.
const DefaultStripes = 64

// KeyLock provides striped per-key mutexes. Operations on the same key always
// contend on the same stripe, so read-modify-write sequences on one key are
// serialized without blocking unrelated keys.
type KeyLock struct {
	stripes []sync.Mutex
}

// NewKeyLock creates a KeyLock with the given number of stripes
func NewKeyLock(stripes int) *KeyLock {
	if stripes <= 0 {
		stripes = DefaultStripes
	}
	return &KeyLock{stripes: make([]sync.Mutex, stripes)}
}

func (l *KeyLock) stripe(key string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(key))
	return &l.stripes[h.Sum32()%uint32(len(l.stripes))]
}

// Lock acquires the stripe for key
func (l *KeyLock) Lock(key string) {
	l.stripe(key).Lock()
}

// Unlock releases the stripe for key
func (l *KeyLock) Unlock(key string) {
	l.stripe(key).Unlock()
}
