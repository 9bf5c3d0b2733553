package blockingcache

import (
	"github.com/archsim/cachesim/pkg/addrdecode"
	"github.com/archsim/cachesim/pkg/cacheitem"
	"github.com/archsim/cachesim/pkg/cacheset"
	"github.com/archsim/cachesim/pkg/replacement"
	"github.com/archsim/cachesim/pkg/simerr"
)

// NTCache is the SimpleCache2 extension: a blocking cache of
// LineDataWithNT items that adds a restricted victim-selection mode for
// "non-temporal" fills, so a single streaming NT access does not evict a
// whole set's worth of likely-reused data.
type NTCache struct {
	cache         *cacheset.Cache[*cacheitem.LineDataWithNT]
	lineSize      uint64
	writeThrough  bool
	writeAllocate bool
	next          NextLevel
	stats         Stats
	prevNTWay     []uint32 // per-set "previous NT way" counter, alternates 0/1.
}

// NewNT builds an NT-aware blocking cache.
func NewNT(decoder addrdecode.Decoder, numSets, numWays uint32, lineSize uint64,
	writeThrough, writeAllocate bool, policyProto replacement.Policy, next NextLevel) *NTCache {
	cache := cacheset.NewCache[*cacheitem.LineDataWithNT](decoder, numSets, numWays,
		func() *cacheitem.LineDataWithNT { return cacheitem.NewLineDataWithNT(decoder, lineSize) },
		policyProto)
	return &NTCache{
		cache:         cache,
		lineSize:      lineSize,
		writeThrough:  writeThrough,
		writeAllocate: writeAllocate,
		next:          next,
		prevNTWay:     make([]uint32, numSets),
	}
}

func (nc *NTCache) Stats() Stats   { return nc.stats }
func (nc *NTCache) ResetStats()    { nc.stats = Stats{} }

func (nc *NTCache) lookup(addr uint64) (*cacheitem.LineDataWithNT, bool) {
	set := nc.cache.CacheSetAt(addr)
	return set.GetByTag(nc.cache.Decoder().Tag(addr))
}

// getLineForReplacement is the regular (non-NT) path: plain LRU, no
// invalid-first shortcut.
func (nc *NTCache) getLineForReplacement(addr uint64) *cacheitem.LineDataWithNT {
	set := nc.cache.CacheSetAt(addr)
	return set.LRUItem()
}

// getLineForReplacementNT implements the NT fill algorithm: try way 0 if
// it is not itself NT, else way 1 if it is not NT, else alternate between
// way 0 and way 1 using the set's previous-NT-way counter.
func (nc *NTCache) getLineForReplacementNT(addr uint64) *cacheitem.LineDataWithNT {
	setIdx := nc.cache.Decoder().Index(addr)
	set := nc.cache.SetByIndex(setIdx)

	way0 := set.GetWay(0)
	if !way0.NonTemporal() {
		return way0
	}
	way1 := set.GetWay(1)
	if !way1.NonTemporal() {
		return way1
	}

	next := (nc.prevNTWay[setIdx] + 1) % 2
	nc.prevNTWay[setIdx] = next
	return set.GetWay(next)
}

func (nc *NTCache) replaceLine(addr uint64, nt bool) (*cacheitem.LineDataWithNT, error) {
	var victim *cacheitem.LineDataWithNT
	if nt {
		victim = nc.getLineForReplacementNT(addr)
	} else {
		victim = nc.getLineForReplacement(addr)
	}

	if victim.IsValid() && victim.Modified() {
		data := make([]byte, nc.lineSize)
		_ = victim.ReadBytes(0, nc.lineSize, data)
		if err := nc.next.Castout(victim.Address(), data); err != nil {
			return nil, simerr.Wrap(simerr.IoError, component, "castout failed", err)
		}
		nc.stats.Castouts++
	}

	blockAddr := nc.cache.Decoder().BlockAddress(addr)
	data := make([]byte, nc.lineSize)
	if err := nc.next.Reload(blockAddr, data); err != nil {
		return nil, simerr.Wrap(simerr.IoError, component, "reload failed", err)
	}
	victim.Reset(blockAddr)
	victim.SetModified(false)
	victim.SetNonTemporal(nt)
	_ = victim.WriteBytes(0, nc.lineSize, data)
	nc.stats.Reloads++
	return victim, nil
}

// ReadWithMRUUpdate reads size bytes at addr, allocating (regular fill) on
// miss, and touches MRU on both hit and fill.
func (nc *NTCache) ReadWithMRUUpdate(addr uint64, size uint64, buf []byte) (bool, error) {
	nc.stats.Reads++
	item, hit := nc.lookup(addr)
	if !hit {
		nc.stats.ReadMisses++
		var err error
		item, err = nc.replaceLine(addr, false)
		if err != nil {
			return false, err
		}
	}
	set := nc.cache.CacheSetAt(addr)
	set.Policy().TouchMRU(item.WayNum())

	offset := nc.cache.Decoder().BlockOffset(addr)
	if err := item.ReadBytes(offset, size, buf); err != nil {
		return hit, err
	}
	return hit, nil
}

// AllocateWithMRUUpdate forcibly allocates addr using the NT or regular
// victim-selection path depending on nt, and touches MRU.
func (nc *NTCache) AllocateWithMRUUpdate(addr uint64, nt bool) (*cacheitem.LineDataWithNT, error) {
	item, hit := nc.lookup(addr)
	if !hit {
		var err error
		item, err = nc.replaceLine(addr, nt)
		if err != nil {
			return nil, err
		}
	}
	set := nc.cache.CacheSetAt(addr)
	set.Policy().TouchMRU(item.WayNum())
	return item, nil
}

func (nc *NTCache) InvalidateLineWithLRUUpdate(addr uint64) {
	if item, hit := nc.lookup(addr); hit {
		item.SetValid(false)
		item.SetModified(false)
		set := nc.cache.CacheSetAt(addr)
		set.Policy().TouchLRU(item.WayNum())
	}
}

func (nc *NTCache) InvalidateAll() {
	nc.cache.ForEachSet(func(set *cacheset.CacheSet[*cacheitem.LineDataWithNT]) {
		for i := uint32(0); i < set.NumWays(); i++ {
			w := set.GetWay(i)
			w.SetValid(false)
			w.SetModified(false)
		}
	})
}

func (nc *NTCache) HasOpenWay(addr uint64) bool {
	return nc.cache.CacheSetAt(addr).HasOpenWay()
}
