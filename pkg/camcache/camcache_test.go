package camcache

import (
	"testing"

	"github.com/archsim/cachesim/pkg/replacement"
	"github.com/stretchr/testify/require"
)

type tag struct {
	High uint64
	Low  int
}

type camEntry struct {
	way     uint32
	valid   bool
	t       tag
	Payload int
}

func (e *camEntry) IsValid() bool    { return e.valid }
func (e *camEntry) SetValid(v bool)  { e.valid = v }
func (e *camEntry) Tag() tag         { return e.t }
func (e *camEntry) WayNum() uint32   { return e.way }
func (e *camEntry) SetWay(w uint32)  { e.way = w }

func newPopulatedCache(t *testing.T) *CAMCache[tag, *camEntry] {
	t.Helper()
	c := New[tag, *camEntry](8, func() *camEntry {
		e := &camEntry{}
		return e
	}, replacement.NewTrueLRU(8))
	for i := 0; i < 8; i++ {
		e := c.GetWayByIndex(uint32(i))
		e.valid = true
		e.t = tag{High: 0x2222, Low: i}
		e.Payload = i * 10
	}
	return c
}

func TestCAMCachePeekByTagReturnsMatchingPayload(t *testing.T) {
	c := newPopulatedCache(t)
	item, ok := c.PeekByTag(tag{High: 0x2222, Low: 1})
	require.True(t, ok)
	require.Equal(t, 10, item.Payload)
}

func TestCAMCacheGetAllMatchingMultipleEntries(t *testing.T) {
	c := New[tag, *camEntry](4, func() *camEntry { return &camEntry{} }, replacement.NewTrueLRU(4))
	for i := 0; i < 4; i++ {
		e := c.GetWayByIndex(uint32(i))
		e.valid = true
		e.t = tag{High: 0xAAAA, Low: 0}
		e.Payload = i
	}
	matches := c.GetAllMatching(tag{High: 0xAAAA, Low: 0})
	require.Len(t, matches, 4)
}

func TestCAMCacheInvalidateWithLRUUpdate(t *testing.T) {
	c := newPopulatedCache(t)
	item, _ := c.PeekByTag(tag{High: 0x2222, Low: 3})
	c.InvalidateWithLRUUpdate(item)
	require.False(t, item.IsValid())
	require.Equal(t, item.WayNum(), c.policy.LRUWay())
}
