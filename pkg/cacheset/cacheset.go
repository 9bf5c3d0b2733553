// Package cacheset implements CacheSet (N ways plus one ReplacementPolicy)
// and Cache (a vector of CacheSets plus one AddressDecoder).
//
// CacheSet is generic over the concrete item type, constrained to
// implement cacheitem.Item, rather than working through a common base
// class.
package cacheset

import (
	"github.com/archsim/cachesim/pkg/addrdecode"
	"github.com/archsim/cachesim/pkg/cacheitem"
	"github.com/archsim/cachesim/pkg/replacement"
)

const component = "CACHESET"

// CacheSet holds num_ways items of type T plus one owned ReplacementPolicy.
type CacheSet[T cacheitem.Item] struct {
	setIndex uint32
	ways     []T
	policy   replacement.Policy
}

// NewCacheSet constructs a set. newItem is invoked once per way to build a
// fresh item bound to decoder; each slot is told its way-index and
// set-index exactly once. policyProto is cloned to give this set its own,
// independent policy instance.
func NewCacheSet[T cacheitem.Item](setIndex, numWays uint32, newItem func() T, policyProto replacement.Policy) *CacheSet[T] {
	cs := &CacheSet[T]{
		setIndex: setIndex,
		ways:     make([]T, numWays),
		policy:   policyProto.Clone(),
	}
	for i := uint32(0); i < numWays; i++ {
		item := newItem()
		item.SetWay(i)
		item.SetSetIndex(setIndex)
		cs.ways[i] = item
	}
	return cs
}

func (cs *CacheSet[T]) SetIndex() uint32        { return cs.setIndex }
func (cs *CacheSet[T]) NumWays() uint32         { return uint32(len(cs.ways)) }
func (cs *CacheSet[T]) Policy() replacement.Policy { return cs.policy }
func (cs *CacheSet[T]) GetWay(i uint32) T       { return cs.ways[i] }

// PeekByTag scans valid slots in ascending way-index order without
// touching the replacement policy.
func (cs *CacheSet[T]) PeekByTag(tag uint64) (T, bool) {
	for _, w := range cs.ways {
		if w.IsValid() && w.Tag() == tag {
			return w, true
		}
	}
	var zero T
	return zero, false
}

// GetByTag is PeekByTag without any policy side effects; touching MRU on
// a hit is the caller's responsibility, keeping locating an item separate
// from updating its recency.
func (cs *CacheSet[T]) GetByTag(tag uint64) (T, bool) {
	return cs.PeekByTag(tag)
}

// GetByTagCold scans for tag and additionally reports whether the scan
// passed over any invalid slot before returning (or failing).
func (cs *CacheSet[T]) GetByTagCold(tag uint64) (T, bool, bool) {
	coldMiss := false
	for _, w := range cs.ways {
		if !w.IsValid() {
			coldMiss = true
		}
		if w.IsValid() && w.Tag() == tag {
			return w, true, coldMiss
		}
	}
	var zero T
	return zero, false, coldMiss
}

// LRUItem returns the current LRU slot, valid or not.
func (cs *CacheSet[T]) LRUItem() T {
	return cs.ways[cs.policy.LRUWay()]
}

// VictimItem returns the first invalid slot in ascending way order if any
// exists, else the current LRU slot.
func (cs *CacheSet[T]) VictimItem() T {
	if w, ok := cs.FindInvalidWay(); ok {
		return cs.ways[w]
	}
	return cs.LRUItem()
}

// FindInvalidWay scans in ascending way-index order for the first invalid
// slot. Returns (numWays, false) - the caller compares against NumWays -
// when every way is valid, matching find_invalid_way's "returns N when
// none is invalid".
func (cs *CacheSet[T]) FindInvalidWay() (uint32, bool) {
	for i, w := range cs.ways {
		if !w.IsValid() {
			return uint32(i), true
		}
	}
	return uint32(len(cs.ways)), false
}

func (cs *CacheSet[T]) HasOpenWay() bool {
	_, ok := cs.FindInvalidWay()
	return ok
}

// Cache is num_sets CacheSets plus one AddressDecoder.
type Cache[T cacheitem.Item] struct {
	decoder addrdecode.Decoder
	sets    []*CacheSet[T]
}

// NewCache allocates numSets sets, each way built fresh via newItem and
// each set's policy cloned from policyProto.
func NewCache[T cacheitem.Item](decoder addrdecode.Decoder, numSets, numWays uint32, newItem func() T, policyProto replacement.Policy) *Cache[T] {
	c := &Cache[T]{decoder: decoder, sets: make([]*CacheSet[T], numSets)}
	for i := uint32(0); i < numSets; i++ {
		c.sets[i] = NewCacheSet[T](i, numWays, newItem, policyProto)
	}
	return c
}

func (c *Cache[T]) Decoder() addrdecode.Decoder { return c.decoder }
func (c *Cache[T]) NumSets() uint32             { return uint32(len(c.sets)) }

func (c *Cache[T]) CacheSetAt(addr uint64) *CacheSet[T] {
	return c.sets[c.decoder.Index(addr)]
}

func (c *Cache[T]) SetByIndex(i uint32) *CacheSet[T] { return c.sets[i] }

func (c *Cache[T]) GetItem(addr uint64) (T, bool) {
	return c.CacheSetAt(addr).GetByTag(c.decoder.Tag(addr))
}

func (c *Cache[T]) PeekItem(addr uint64) (T, bool) {
	return c.CacheSetAt(addr).PeekByTag(c.decoder.Tag(addr))
}

func (c *Cache[T]) GetItemCold(addr uint64) (T, bool, bool) {
	return c.CacheSetAt(addr).GetByTagCold(c.decoder.Tag(addr))
}

func (c *Cache[T]) LRUItem(addr uint64) T {
	return c.CacheSetAt(addr).LRUItem()
}

func (c *Cache[T]) ReplacementOf(addr uint64) T {
	return c.CacheSetAt(addr).VictimItem()
}

func (c *Cache[T]) FindInvalidWay(addr uint64) (uint32, bool) {
	return c.CacheSetAt(addr).FindInvalidWay()
}

// ForEachSet visits every set, in set-index order.
func (c *Cache[T]) ForEachSet(f func(*CacheSet[T])) {
	for _, s := range c.sets {
		f(s)
	}
}
