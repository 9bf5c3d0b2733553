package blockingcache

import (
	"testing"

	"github.com/archsim/cachesim/pkg/addrdecode"
	"github.com/archsim/cachesim/pkg/replacement"
	"github.com/stretchr/testify/require"
)

func newTestNTCache(t *testing.T, numSets, numWays uint32, lineSize uint64) (*NTCache, *fakeMemory) {
	t.Helper()
	decoder, err := addrdecode.NewDefault(lineSize, lineSize, numSets)
	require.NoError(t, err)
	mem := newFakeMemory()
	nc := NewNT(decoder, numSets, numWays, lineSize, false, true, replacement.NewTrueLRU(numWays), mem)
	return nc, mem
}

func TestNTCacheRegularFillUsesPlainLRU(t *testing.T) {
	const lineSize = 64
	const numWays = 4
	nc, _ := newTestNTCache(t, 1, numWays, lineSize)

	base := uint64(0x1000)
	buf := make([]byte, 4)
	for i := 0; i < numWays; i++ {
		_, err := nc.ReadWithMRUUpdate(base+uint64(i)*4096, 4, buf)
		require.NoError(t, err)
	}
	require.Equal(t, uint64(numWays), nc.Stats().Reloads)

	// A fifth, non-NT access must evict the LRU way (way 0, touched first).
	item, err := nc.AllocateWithMRUUpdate(base+4*4096, false)
	require.NoError(t, err)
	require.Equal(t, uint32(0), item.WayNum())
}

func TestNTCacheNTFillPrefersWay0ThenWay1(t *testing.T) {
	const lineSize = 64
	const numWays = 4
	nc, _ := newTestNTCache(t, 1, numWays, lineSize)

	base := uint64(0x2000)
	item, err := nc.AllocateWithMRUUpdate(base, true)
	require.NoError(t, err)
	require.Equal(t, uint32(0), item.WayNum())
	require.True(t, item.NonTemporal())

	// Way 0 is now NT-marked, so the next NT fill must land on way 1.
	item2, err := nc.AllocateWithMRUUpdate(base+4096, true)
	require.NoError(t, err)
	require.Equal(t, uint32(1), item2.WayNum())
}

func TestNTCacheNTFillAlternatesOnceBothStreamWaysAreNT(t *testing.T) {
	const lineSize = 64
	const numWays = 4
	nc, _ := newTestNTCache(t, 1, numWays, lineSize)

	base := uint64(0x3000)
	_, err := nc.AllocateWithMRUUpdate(base, true)
	require.NoError(t, err)
	_, err = nc.AllocateWithMRUUpdate(base+4096, true)
	require.NoError(t, err)

	// Both way 0 and way 1 are now NT: the third NT fill alternates,
	// landing on way 1 (the counter starts at 0, so next is 1 then 0...).
	item3, err := nc.AllocateWithMRUUpdate(base+2*4096, true)
	require.NoError(t, err)
	require.Equal(t, uint32(1), item3.WayNum())

	item4, err := nc.AllocateWithMRUUpdate(base+3*4096, true)
	require.NoError(t, err)
	require.Equal(t, uint32(0), item4.WayNum())
}

func TestNTCacheInvalidateLineWithLRUUpdate(t *testing.T) {
	nc, _ := newTestNTCache(t, 1, 4, 64)
	buf := make([]byte, 4)
	_, err := nc.ReadWithMRUUpdate(0x100, 4, buf)
	require.NoError(t, err)

	nc.InvalidateLineWithLRUUpdate(0x100)
	_, hit := nc.lookup(0x100)
	require.False(t, hit)

	item, err := nc.AllocateWithMRUUpdate(0x200, false)
	require.NoError(t, err)
	require.Equal(t, uint32(0), item.WayNum(), "the invalidated line must be the next victim")
}

func TestNTCacheHasOpenWay(t *testing.T) {
	nc, _ := newTestNTCache(t, 1, 2, 64)
	require.True(t, nc.HasOpenWay(0x0))
	buf := make([]byte, 4)
	_, err := nc.ReadWithMRUUpdate(0x0, 4, buf)
	require.NoError(t, err)
	_, err = nc.ReadWithMRUUpdate(0x1000, 4, buf)
	require.NoError(t, err)
	require.False(t, nc.HasOpenWay(0x0))
}
