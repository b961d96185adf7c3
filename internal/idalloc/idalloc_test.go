package idalloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSeedsFromMilliseconds(t *testing.T) {
	a := New(1700000000.1234)
	assert.Equal(t, int64(1700000000123), a.Peek())
	assert.Equal(t, int64(1700000000123), a.Next())
	assert.Equal(t, int64(1700000000124), a.Next())
	assert.Equal(t, 2, a.Issued())
}

func TestNextIsStrictlyIncreasing(t *testing.T) {
	a := New(42)
	seen := make(map[int64]bool)
	prev := int64(-1)
	for i := 0; i < 1000; i++ {
		id := a.Next()
		require.Greater(t, id, prev)
		require.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
		prev = id
	}
}

func TestAllocatorsAreIndependent(t *testing.T) {
	a := New(10)
	b := New(10)
	a.Next()
	a.Next()
	assert.Equal(t, int64(10000), b.Next())
}
