package policy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLRUEvictionOrder(t *testing.T) {
	p := NewLRU[string]()
	p.OnSet("a")
	p.OnSet("b")
	p.OnSet("c")

	// Touch a so b becomes the least recently used.
	p.OnGet("a")

	victim, ok := p.Evict()
	require.True(t, ok)
	require.Equal(t, "b", victim)

	victim, ok = p.Evict()
	require.True(t, ok)
	require.Equal(t, "c", victim)

	victim, ok = p.Evict()
	require.True(t, ok)
	require.Equal(t, "a", victim)

	_, ok = p.Evict()
	require.False(t, ok)
}

func TestLRUOverwriteRefreshes(t *testing.T) {
	p := NewLRU[string]()
	p.OnSet("a")
	p.OnSet("b")
	p.OnSet("a")

	victim, ok := p.Evict()
	require.True(t, ok)
	require.Equal(t, "b", victim)
}

func TestLRUDeleteAndClear(t *testing.T) {
	p := NewLRU[string]()
	p.OnSet("a")
	p.OnSet("b")
	require.Equal(t, 2, p.Len())

	p.OnDelete("a")
	require.Equal(t, 1, p.Len())

	p.OnClear()
	require.Equal(t, 0, p.Len())
	_, ok := p.Evict()
	require.False(t, ok)
}

func TestLRUGetUnknownKey(t *testing.T) {
	p := NewLRU[string]()
	p.OnGet("missing")
	require.Equal(t, 0, p.Len())
}
