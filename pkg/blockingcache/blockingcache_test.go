package blockingcache

import (
	"testing"

	"github.com/archsim/cachesim/pkg/addrdecode"
	"github.com/archsim/cachesim/pkg/replacement"
	"github.com/stretchr/testify/require"
)

// fakeMemory is a trivial backing store: every address reads back as
// zeros unless explicitly written to it via a prior castout.
type fakeMemory struct {
	store map[uint64][]byte
}

func newFakeMemory() *fakeMemory { return &fakeMemory{store: map[uint64][]byte{}} }

func (m *fakeMemory) Castout(addr uint64, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	m.store[addr] = cp
	return nil
}

func (m *fakeMemory) Reload(addr uint64, out []byte) error {
	if data, ok := m.store[addr]; ok {
		copy(out, data)
	}
	return nil
}

func (m *fakeMemory) WriteNextLevel(addr uint64, size uint64, data []byte) error {
	return nil
}

func newTestBlockingCache(t *testing.T, numSets, numWays uint32, lineSize uint64, wt, wa bool) (*BlockingCache, *fakeMemory) {
	t.Helper()
	decoder, err := addrdecode.NewDefault(lineSize, lineSize, numSets)
	require.NoError(t, err)
	mem := newFakeMemory()
	bc := New(decoder, numSets, numWays, lineSize, wt, wa, replacement.NewTrueLRU(numWays), mem)
	return bc, mem
}

func TestBlockingCacheScenarioEightModifiedLines(t *testing.T) {
	// 32 KiB, 64B lines, 8 ways, write-allocate=ON, write-through=OFF.
	const lineSize = 64
	const numWays = 8
	const numSets = (32 * 1024) / (lineSize * numWays)

	bc, _ := newTestBlockingCache(t, numSets, numWays, lineSize, false, true)
	bc.InvalidateAll()

	base := uint64(0x1000)
	val := []byte{1, 2, 3, 4}
	var addrs []uint64
	for i := 0; i < numWays; i++ {
		addr := base + uint64(i)*4096
		addrs = append(addrs, addr)
		_, err := bc.Write(addr, 4, val)
		require.NoError(t, err)
	}

	require.Equal(t, uint64(0), bc.Stats().Castouts)
	require.Equal(t, uint64(8), bc.Stats().Reloads)

	// every address should now be in the same set and modified.
	set := bc.cache.CacheSetAt(base)
	for w := uint32(0); w < numWays; w++ {
		item := set.GetWay(w)
		require.True(t, item.IsValid())
		require.True(t, item.Modified())
	}

	readsBefore := bc.Stats().Reads
	readBuf := make([]byte, 4)
	for _, addr := range addrs {
		hit, err := bc.Read(addr, 4, readBuf)
		require.NoError(t, err)
		require.True(t, hit)
		require.Equal(t, val, readBuf)
	}
	require.Equal(t, readsBefore+8, bc.Stats().Reads)
}

func TestBlockingCacheWriteThroughAlwaysPropagates(t *testing.T) {
	bc, _ := newTestBlockingCache(t, 4, 2, 64, true, true)
	_, err := bc.Write(0x100, 4, []byte{1, 2, 3, 4})
	require.NoError(t, err)
	require.Equal(t, uint64(1), bc.Stats().NextLevelWrites)
}

func TestBlockingCacheNoWriteAllocateSkipsFill(t *testing.T) {
	bc, _ := newTestBlockingCache(t, 4, 2, 64, false, false)
	hit, err := bc.Write(0x100, 4, []byte{1, 2, 3, 4})
	require.NoError(t, err)
	require.False(t, hit)
	require.Equal(t, uint64(1), bc.Stats().NextLevelWrites)
	_, valid := bc.lookup(0x100)
	require.False(t, valid)
}

func TestHitWithCastoutQueryDoesNotModifyState(t *testing.T) {
	bc, _ := newTestBlockingCache(t, 1, 2, 64, false, true)
	_, err := bc.Write(0x0, 4, []byte{1, 2, 3, 4})
	require.NoError(t, err)

	hit, needsCastout, castoutAddr, dirty := bc.HitWithCastoutQuery(0x1000)
	require.False(t, hit)
	_ = needsCastout
	_ = castoutAddr
	_ = dirty

	// Probing must not have allocated a line for 0x1000.
	_, stillMiss := bc.lookup(0x1000)
	require.False(t, stillMiss)
}

func TestHitWithCastoutQueryReportsDirtyVictimWithoutEvicting(t *testing.T) {
	bc, _ := newTestBlockingCache(t, 1, 2, 64, false, true)
	_, err := bc.Write(0x0, 4, []byte{1, 2, 3, 4})
	require.NoError(t, err)
	_, err = bc.Write(0x1000, 4, []byte{5, 6, 7, 8})
	require.NoError(t, err)

	castoutsBefore := bc.Stats().Castouts

	// Both ways of the single set are now valid and modified, so probing a
	// third address must report the LRU way as a needed castout.
	hit, needsCastout, castoutAddr, dirty := bc.HitWithCastoutQuery(0x2000)
	require.False(t, hit)
	require.True(t, needsCastout)
	require.Equal(t, uint64(0x0), castoutAddr)
	require.True(t, dirty)

	// The query must be read-only: no castout performed, no line allocated,
	// the original dirty line for 0x0 still present and still dirty.
	require.Equal(t, castoutsBefore, bc.Stats().Castouts)
	_, stillMiss := bc.lookup(0x2000)
	require.False(t, stillMiss)
	item, hit := bc.lookup(0x0)
	require.True(t, hit)
	require.True(t, item.Modified())
}

func TestReadsPlusWritesAtLeastHitsPlusMisses(t *testing.T) {
	bc, _ := newTestBlockingCache(t, 4, 2, 64, false, true)
	buf := make([]byte, 4)
	_, _ = bc.Read(0x0, 4, buf)
	_, _ = bc.Write(0x100, 4, buf)
	_, _ = bc.Read(0x0, 4, buf)

	s := bc.Stats()
	require.GreaterOrEqual(t, s.Reads+s.Writes, s.ReadMisses+s.WriteMisses)
	require.LessOrEqual(t, s.Castouts, s.Reloads)
}
