package replacement

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTrueLRUMRUFollowsLastTouch(t *testing.T) {
	p := NewTrueLRU(8)
	for _, w := range []uint32{3, 1, 5, 2, 7} {
		p.TouchMRU(w)
		require.Equal(t, w, p.MRUWay())
	}
}

func TestTrueLRUResetCanonical(t *testing.T) {
	p := NewTrueLRU(8)
	p.TouchMRU(3)
	p.TouchMRU(5)
	p.Reset()
	require.Equal(t, uint32(7), p.MRUWay())
	require.Equal(t, uint32(0), p.LRUWay())
}

func TestTrueLRU4ResetCanonical(t *testing.T) {
	p := NewTrueLRU4()
	require.Equal(t, uint32(3), p.MRUWay())
	require.Equal(t, uint32(0), p.LRUWay())
}

func TestTrueLRU4FollowsLastTouch(t *testing.T) {
	p := NewTrueLRU4()
	for _, w := range []uint32{0, 1, 2, 3, 1, 0} {
		p.TouchMRU(w)
		require.Equal(t, w, p.MRUWay())
	}
}

func TestTreePLRUScenario(t *testing.T) {
	p := NewTreePLRU(4)
	p.TouchMRU(0)
	p.TouchMRU(1)
	p.TouchMRU(2)
	p.TouchMRU(3)
	require.Equal(t, uint32(3), p.MRUWay())
	require.Equal(t, uint32(0), p.LRUWay())

	p.TouchMRU(2)
	require.Equal(t, uint32(2), p.MRUWay())
	require.Equal(t, uint32(0), p.LRUWay())

	p.TouchMRU(0)
	require.Equal(t, uint32(0), p.MRUWay())
	require.Equal(t, uint32(3), p.LRUWay())

	p.TouchMRU(2)
	require.Equal(t, uint32(2), p.MRUWay())
	require.Equal(t, uint32(1), p.LRUWay())

	p.TouchLRU(2)
	require.Equal(t, uint32(0), p.MRUWay())
	require.Equal(t, uint32(2), p.LRUWay())
}

func TestTreePLRUResetCanonical(t *testing.T) {
	p := NewTreePLRU(8)
	p.TouchMRU(3)
	p.Reset()
	require.Equal(t, uint32(7), p.MRUWay())
	require.Equal(t, uint32(0), p.LRUWay())
}

func TestHybridPLRU16Scenario(t *testing.T) {
	p := NewHybridPLRU16()
	for w := uint32(0); w <= 15; w++ {
		p.TouchMRU(w)
	}
	p.TouchMRU(5)
	require.Equal(t, uint32(5), p.MRUWay())
	require.Equal(t, uint32(8), p.LRUWay())

	p.TouchMRU(0)
	require.Equal(t, uint32(0), p.MRUWay())
	require.Equal(t, uint32(8), p.LRUWay())

	p.TouchLRU(0)
	require.Equal(t, uint32(15), p.MRUWay())
	require.Equal(t, uint32(0), p.LRUWay())

	p.TouchLRU(5)
	require.Equal(t, uint32(15), p.MRUWay())
	require.Equal(t, uint32(5), p.LRUWay())
}

func TestHybridPLRU816ResetCanonical(t *testing.T) {
	p8 := NewHybridPLRU8()
	require.Equal(t, uint32(7), p8.MRUWay())
	require.Equal(t, uint32(0), p8.LRUWay())

	p16 := NewHybridPLRU16()
	require.Equal(t, uint32(15), p16.MRUWay())
	require.Equal(t, uint32(0), p16.LRUWay())
}

func TestRoundRobinScenario(t *testing.T) {
	p := NewRoundRobin(16)
	for w := uint32(0); w <= 15; w++ {
		p.TouchMRU(w)
	}
	require.Equal(t, uint32(0), p.LRUWay())
	lru := p.LRUWay()
	require.Equal(t, lru, p.LRUWay())
}

func TestBubbleUpBubblesOnePosition(t *testing.T) {
	p := NewBubbleUp(4)
	require.Equal(t, uint32(0), p.LRUWay())
	p.TouchMRU(0)
	// way 0 started at index0 (LRU end); bubbling forward once moves it to index1.
	require.Equal(t, uint32(1), p.LRUWay())
}

func TestRandomDeterministicSeed(t *testing.T) {
	a := NewRandom(8, 42)
	b := NewRandom(8, 42)
	for i := 0; i < 10; i++ {
		require.Equal(t, a.MRUWay(), b.MRUWay())
	}
}

func TestWayOutOfRangePanics(t *testing.T) {
	p := NewTrueLRU(4)
	require.Panics(t, func() { p.TouchMRU(4) })
}

func TestIdempotentReset(t *testing.T) {
	p := NewTreePLRU(8)
	p.TouchMRU(5)
	p.Reset()
	mru1, lru1 := p.MRUWay(), p.LRUWay()
	p.Reset()
	require.Equal(t, mru1, p.MRUWay())
	require.Equal(t, lru1, p.LRUWay())
}

func TestLockWayUnsupportedByDefault(t *testing.T) {
	p := NewTrueLRU(4)
	require.Error(t, p.LockWay(0))
}
