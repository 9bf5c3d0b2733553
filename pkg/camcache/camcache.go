// Package camcache implements the flat, fully-associative CAMCache
// variant: no sets, no address decoder, items located by an opaque
// caller-supplied tag.
package camcache

import "github.com/archsim/cachesim/pkg/replacement"

// Item is the contract a CAMCache entry satisfies: validity plus an
// opaque, caller-defined tag used for matching.
type Item[Tag comparable] interface {
	IsValid() bool
	SetValid(bool)
	Tag() Tag
	WayNum() uint32
	SetWay(uint32)
}

// CAMCache is a flat, content-addressable cache of numWays entries. The
// replacement policy is supplied at construction and owns the ranking.
type CAMCache[Tag comparable, T Item[Tag]] struct {
	ways   []T
	policy replacement.Policy
}

// New constructs a CAMCache, building each way via newItem and assigning
// its way-number exactly once.
func New[Tag comparable, T Item[Tag]](numWays uint32, newItem func() T, policy replacement.Policy) *CAMCache[Tag, T] {
	c := &CAMCache[Tag, T]{ways: make([]T, numWays), policy: policy}
	for i := uint32(0); i < numWays; i++ {
		item := newItem()
		item.SetWay(i)
		c.ways[i] = item
	}
	return c
}

func (c *CAMCache[Tag, T]) NumWays() uint32 { return uint32(len(c.ways)) }

func (c *CAMCache[Tag, T]) GetWayByIndex(i uint32) T { return c.ways[i] }

// PeekByTag returns the first valid entry matching tag in ascending
// way-index order, without touching the policy.
func (c *CAMCache[Tag, T]) PeekByTag(tag Tag) (T, bool) {
	for _, w := range c.ways {
		if w.IsValid() && w.Tag() == tag {
			return w, true
		}
	}
	var zero T
	return zero, false
}

// GetByTag is PeekByTag; touching MRU on a hit is the caller's
// responsibility via TouchMRU, consistent with CacheSet's GetByTag.
func (c *CAMCache[Tag, T]) GetByTag(tag Tag) (T, bool) { return c.PeekByTag(tag) }

// GetAllMatching returns every valid entry matching tag, in ascending
// way-index order; multiple matches are allowed (unlike a CacheSet, which
// assumes exactly one item per tag within a set).
func (c *CAMCache[Tag, T]) GetAllMatching(tag Tag) []T {
	var out []T
	for _, w := range c.ways {
		if w.IsValid() && w.Tag() == tag {
			out = append(out, w)
		}
	}
	return out
}

func (c *CAMCache[Tag, T]) LRUItem() T { return c.ways[c.policy.LRUWay()] }
func (c *CAMCache[Tag, T]) MRUItem() T { return c.ways[c.policy.MRUWay()] }

func (c *CAMCache[Tag, T]) InvalidateAll() {
	for _, w := range c.ways {
		w.SetValid(false)
	}
}

func (c *CAMCache[Tag, T]) InvalidateWithLRUUpdate(item T) {
	item.SetValid(false)
	c.policy.TouchLRU(item.WayNum())
}

func (c *CAMCache[Tag, T]) TouchMRU(item T) { c.policy.TouchMRU(item.WayNum()) }
func (c *CAMCache[Tag, T]) TouchLRU(item T) { c.policy.TouchLRU(item.WayNum()) }
