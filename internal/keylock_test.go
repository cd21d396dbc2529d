package internal

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyLockSerializesSameKey(t *testing.T) {
	locks := NewKeyLock(8)

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			locks.Lock("key")
			counter++
			locks.Unlock("key")
		}()
	}
	wg.Wait()
	require.Equal(t, 100, counter)
}

func TestKeyLockZeroStripesUsesDefault(t *testing.T) {
	locks := NewKeyLock(0)
	locks.Lock("a")
	locks.Unlock("a")
	require.Len(t, locks.stripes, DefaultStripes)
}
