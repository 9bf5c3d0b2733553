package preload

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeCacheLine struct {
	valid bool
	tag   uint64
}

type fakeCache struct {
	lines []fakeCacheLine
}

func (c *fakeCache) PreloadPacket(pkt Packet) bool {
	items, err := pkt.List("lines")
	if err != nil {
		return false
	}
	c.lines = make([]fakeCacheLine, len(items))
	for i, it := range items {
		valid, err := GetScalar[bool](it, "valid")
		if err != nil {
			return false
		}
		tag, err := GetScalar[uint64](it, "tag")
		if err != nil {
			return false
		}
		c.lines[i] = fakeCacheLine{valid: valid, tag: tag}
	}
	return true
}

func (c *fakeCache) PreloadDump(e *Emitter) {
	lb := NewListBuilder()
	for _, l := range c.lines {
		m := lb.Begin()
		m["valid"] = l.valid
		m["tag"] = l.tag
	}
	e.PutEntity("top.l1cache", lb.Build())
}

const sampleDoc = `
top.l1cache:
  lines:
    - valid: true
      tag: 256
    - valid: false
      tag: 0
`

func TestPreloadRegisterAndDeliver(t *testing.T) {
	p := NewPreloader()
	cache := &fakeCache{}
	p.Register("top.l1cache", cache)

	pkts, err := ParseYAMLDocument(strings.NewReader(sampleDoc))
	require.NoError(t, err)

	for path, pkt := range pkts {
		require.NoError(t, p.PreloadPacket(path, pkt))
	}

	require.Len(t, cache.lines, 2)
	require.True(t, cache.lines[0].valid)
	require.EqualValues(t, 256, cache.lines[0].tag)
	require.False(t, cache.lines[1].valid)
}

func TestPreloadPacketNoMatchingEntity(t *testing.T) {
	p := NewPreloader()
	pkts, err := ParseYAMLDocument(strings.NewReader(sampleDoc))
	require.NoError(t, err)

	for path, pkt := range pkts {
		err := p.PreloadPacket(path, pkt)
		require.Error(t, err)
	}
}

func TestPreloadWildcardPath(t *testing.T) {
	p := NewPreloader()
	core0 := &fakeCache{}
	core1 := &fakeCache{}
	p.Register("top.core0.l1cache", core0)
	p.Register("top.core1.l1cache", core1)

	pkt := NewYAMLPacket(map[string]any{
		"lines": []any{
			map[string]any{"valid": true, "tag": 1},
		},
	})
	require.NoError(t, p.PreloadPacket("top.*.l1cache", pkt))
	require.Len(t, core0.lines, 1)
	require.Len(t, core1.lines, 1)
}

// Parsing a preload document and dumping it back must yield a document
// that, parsed again, produces the same entity data.
func TestPreloadRoundTrip(t *testing.T) {
	p := NewPreloader()
	cache := &fakeCache{}
	p.Register("top.l1cache", cache)

	pkts, err := ParseYAMLDocument(strings.NewReader(sampleDoc))
	require.NoError(t, err)
	for path, pkt := range pkts {
		require.NoError(t, p.PreloadPacket(path, pkt))
	}

	emitter := p.DumpTree()
	require.NoError(t, emitter.AssertValid())
	rendered, err := emitter.Print()
	require.NoError(t, err)

	cache2 := &fakeCache{}
	p2 := NewPreloader()
	p2.Register("top.l1cache", cache2)
	pkts2, err := ParseYAMLDocument(strings.NewReader(rendered))
	require.NoError(t, err)
	for path, pkt := range pkts2 {
		require.NoError(t, p2.PreloadPacket(path, pkt))
	}

	require.Equal(t, cache.lines, cache2.lines)
}

func TestFlatPacketScalarsOnly(t *testing.T) {
	fp := NewFlatPacket()
	fp.AddValue("ways", "8")
	fp.AddValue("policy", "tree_plru")

	ways, err := GetScalar[int](fp, "ways")
	require.NoError(t, err)
	require.Equal(t, 8, ways)

	policy, err := GetScalar[string](fp, "policy")
	require.NoError(t, err)
	require.Equal(t, "tree_plru", policy)

	_, err = fp.Map("ways")
	require.Error(t, err)
	_, err = fp.List("ways")
	require.Error(t, err)
}

func TestGetScalarMissingKey(t *testing.T) {
	fp := NewFlatPacket()
	_, err := GetScalar[int](fp, "missing")
	require.Error(t, err)
}
