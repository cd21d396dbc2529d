package policy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFIFOEvictionOrder(t *testing.T) {
	p := NewFIFO[string]()
	p.OnSet("a")
	p.OnSet("b")
	p.OnSet("c")

	// Reads do not affect insertion order.
	p.OnGet("a")
	p.OnGet("a")

	victim, ok := p.Evict()
	require.True(t, ok)
	require.Equal(t, "a", victim)

	victim, ok = p.Evict()
	require.True(t, ok)
	require.Equal(t, "b", victim)
}

func TestFIFOOverwriteKeepsPosition(t *testing.T) {
	p := NewFIFO[string]()
	p.OnSet("a")
	p.OnSet("b")
	p.OnSet("a")

	victim, ok := p.Evict()
	require.True(t, ok)
	require.Equal(t, "a", victim)
}

func TestFIFODeleteAndClear(t *testing.T) {
	p := NewFIFO[string]()
	p.OnSet("a")
	p.OnSet("b")
	p.OnDelete("a")
	require.Equal(t, 1, p.Len())

	p.OnClear()
	require.Equal(t, 0, p.Len())
	_, ok := p.Evict()
	require.False(t, ok)
}
