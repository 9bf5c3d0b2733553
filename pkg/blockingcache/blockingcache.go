// Package blockingcache implements a simple blocking read/write cache with
// write-through/write-back and write-allocate/no-write-allocate policy,
// plus the non-temporal-aware NTCache extension in ntcache.go.
//
// The overall read/write/stat-counter structure is a plain blocking
// cache, while invalid-first victim selection is pulled in from the
// lower-level cache-set component's peek/get/victim contract rather
// than reimplemented here.
package blockingcache

import (
	"github.com/archsim/cachesim/pkg/addrdecode"
	"github.com/archsim/cachesim/pkg/cacheitem"
	"github.com/archsim/cachesim/pkg/cacheset"
	"github.com/archsim/cachesim/pkg/replacement"
	"github.com/archsim/cachesim/pkg/simerr"
	"github.com/archsim/cachesim/pkg/simlog"
)

const component = "BLOCKINGCACHE"

// NextLevel is the memory interface a BlockingCache calls back into for
// castouts, reloads and (on write-through/no-allocate misses) writes.
type NextLevel interface {
	// Castout writes a dirty block back to the next level.
	Castout(addr uint64, data []byte) error
	// Reload fetches a block's contents from the next level into out.
	Reload(addr uint64, out []byte) error
	// WriteNextLevel propagates size bytes of data at addr to the next level.
	WriteNextLevel(addr uint64, size uint64, data []byte) error
}

// Stats holds the approximate traffic counters exported by a cache.
type Stats struct {
	Castouts        uint64
	Reloads         uint64
	Reads           uint64
	Writes          uint64
	ReadMisses      uint64
	WriteMisses     uint64
	NextLevelWrites uint64
	GetLineMisses   uint64
}

// BlockingCache is a set-associative blocking cache of LineData items.
type BlockingCache struct {
	cache         *cacheset.Cache[*cacheitem.LineData]
	lineSize      uint64
	writeThrough  bool
	writeAllocate bool
	next          NextLevel
	stats         Stats
}

// New builds a BlockingCache of numSets x numWays lines of lineSize bytes.
func New(decoder addrdecode.Decoder, numSets, numWays uint32, lineSize uint64,
	writeThrough, writeAllocate bool, policyProto replacement.Policy, next NextLevel) *BlockingCache {
	cache := cacheset.NewCache[*cacheitem.LineData](decoder, numSets, numWays,
		func() *cacheitem.LineData { return cacheitem.NewLineData(decoder, lineSize) },
		policyProto)
	return &BlockingCache{
		cache:         cache,
		lineSize:      lineSize,
		writeThrough:  writeThrough,
		writeAllocate: writeAllocate,
		next:          next,
	}
}

func (bc *BlockingCache) Stats() Stats { return bc.stats }

func (bc *BlockingCache) ResetStats() { bc.stats = Stats{} }

// replaceLine picks a victim with invalid-first semantics, castouts it if
// dirty, reloads the new line from the next level and marks it
// valid/not-modified at the new address.
func (bc *BlockingCache) replaceLine(addr uint64) (*cacheitem.LineData, error) {
	set := bc.cache.CacheSetAt(addr)
	victim := set.VictimItem()

	if victim.IsValid() && victim.Modified() {
		data := make([]byte, bc.lineSize)
		_ = victim.ReadBytes(0, bc.lineSize, data)
		if err := bc.next.Castout(victim.Address(), data); err != nil {
			return nil, simerr.Wrap(simerr.IoError, component, "castout failed", err)
		}
		bc.stats.Castouts++
	}

	blockAddr := bc.cache.Decoder().BlockAddress(addr)
	data := make([]byte, bc.lineSize)
	if err := bc.next.Reload(blockAddr, data); err != nil {
		return nil, simerr.Wrap(simerr.IoError, component, "reload failed", err)
	}
	victim.Reset(blockAddr)
	victim.SetModified(false)
	_ = victim.WriteBytes(0, bc.lineSize, data)
	bc.stats.Reloads++

	return victim, nil
}

func (bc *BlockingCache) lookup(addr uint64) (*cacheitem.LineData, bool) {
	set := bc.cache.CacheSetAt(addr)
	tag := bc.cache.Decoder().Tag(addr)
	return set.GetByTag(tag)
}

// Read locates addr, allocating on miss, touches MRU and copies size bytes
// at the address's block offset into buf.
func (bc *BlockingCache) Read(addr uint64, size uint64, buf []byte) (bool, error) {
	bc.stats.Reads++
	item, hit := bc.lookup(addr)
	if !hit {
		bc.stats.ReadMisses++
		var err error
		item, err = bc.replaceLine(addr)
		if err != nil {
			return false, err
		}
	}

	set := bc.cache.CacheSetAt(addr)
	set.Policy().TouchMRU(item.WayNum())

	offset := bc.cache.Decoder().BlockOffset(addr)
	if err := item.ReadBytes(offset, size, buf); err != nil {
		return hit, err
	}
	return hit, nil
}

// Write locates addr (allocating on miss per writeAllocate), touches MRU,
// writes size bytes at the address's block offset and marks the line
// modified. If needsNextLevel (write-through, or a no-allocate miss),
// propagates the write to the next level as well.
func (bc *BlockingCache) Write(addr uint64, size uint64, buf []byte) (bool, error) {
	bc.stats.Writes++
	needsNextLevel := bc.writeThrough

	item, hit := bc.lookup(addr)
	if !hit {
		bc.stats.WriteMisses++
		if !bc.writeAllocate {
			needsNextLevel = true
		} else {
			var err error
			item, err = bc.replaceLine(addr)
			if err != nil {
				return false, err
			}
			hit = true // allocated: proceed to write into the line below.
		}
	}

	if item != nil {
		set := bc.cache.CacheSetAt(addr)
		set.Policy().TouchMRU(item.WayNum())

		offset := bc.cache.Decoder().BlockOffset(addr)
		if err := item.WriteBytes(offset, size, buf); err != nil {
			return hit, err
		}
		item.SetModified(true)
	}

	if needsNextLevel {
		if err := bc.next.WriteNextLevel(addr, size, buf); err != nil {
			return hit, simerr.Wrap(simerr.IoError, component, "next-level write failed", err)
		}
		bc.stats.NextLevelWrites++
	}

	return hit, nil
}

// HitWithCastoutQuery is a pure probe: reports whether addr hits, and if
// not, whether servicing it would require a castout, the address that
// would be cast out and whether that victim is dirty. It never modifies
// cache state.
func (bc *BlockingCache) HitWithCastoutQuery(addr uint64) (hit, needsCastout bool, castoutAddr uint64, isDirty bool) {
	_, hit = bc.lookup(addr)
	if hit {
		return true, false, 0, false
	}
	set := bc.cache.CacheSetAt(addr)
	victim := set.VictimItem()
	if victim.IsValid() && victim.Modified() {
		return false, true, victim.Address(), true
	}
	return false, false, 0, false
}

// GetLine forcibly allocates a line for addr, running the same
// victim/castout/reload pipeline as a miss, and touches MRU.
func (bc *BlockingCache) GetLine(addr uint64) (*cacheitem.LineData, error) {
	item, hit := bc.lookup(addr)
	if !hit {
		bc.stats.GetLineMisses++
		var err error
		item, err = bc.replaceLine(addr)
		if err != nil {
			return nil, err
		}
	}
	set := bc.cache.CacheSetAt(addr)
	set.Policy().TouchMRU(item.WayNum())
	return item, nil
}

func (bc *BlockingCache) InvalidateLine(addr uint64) {
	if item, hit := bc.lookup(addr); hit {
		item.SetValid(false)
		item.SetModified(false)
	}
}

func (bc *BlockingCache) InvalidateAll() {
	bc.cache.ForEachSet(func(set *cacheset.CacheSet[*cacheitem.LineData]) {
		for i := uint32(0); i < set.NumWays(); i++ {
			w := set.GetWay(i)
			w.SetValid(false)
			w.SetModified(false)
		}
	})
	simlog.Debug("blocking cache invalidated")
}
