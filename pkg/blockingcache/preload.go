package blockingcache

import (
	"encoding/hex"

	"github.com/archsim/cachesim/pkg/preload"
)

// PreloadPacket fills the cache's lines from a "lines" list, one map per
// line: {"address": uint64, "data": hex string, "modified": bool}. Each line
// is placed exactly as a normal miss-fill would place it, so set/way
// assignment and MRU order still come from the cache's own decoder and
// replacement policy.
func (bc *BlockingCache) PreloadPacket(pkt preload.Packet) bool {
	items, err := pkt.List("lines")
	if err != nil {
		return false
	}

	for _, it := range items {
		addr, err := preload.GetScalar[uint64](it, "address")
		if err != nil {
			return false
		}
		data, err := preload.GetScalar[string](it, "data")
		if err != nil {
			return false
		}
		raw, err := hex.DecodeString(data)
		if err != nil {
			return false
		}
		modified, err := preload.GetScalar[bool](it, "modified")
		if err != nil {
			return false
		}

		line := bc.cache.ReplacementOf(addr)
		line.Reset(addr)
		line.SetValid(true)
		line.SetModified(modified)
		if err := line.WriteBytes(0, uint64(len(raw)), raw); err != nil {
			return false
		}
		bc.cache.CacheSetAt(addr).Policy().TouchMRU(line.WayNum())
	}
	return true
}

// PreloadDump emits every currently valid line as a "lines" list entry,
// the inverse of PreloadPacket.
func (bc *BlockingCache) PreloadDump(e *preload.Emitter) {
	lb := preload.NewListBuilder()
	for i := uint32(0); i < bc.cache.NumSets(); i++ {
		set := bc.cache.SetByIndex(i)
		for w := uint32(0); w < set.NumWays(); w++ {
			line := set.GetWay(w)
			if !line.IsValid() {
				continue
			}
			buf := make([]byte, bc.lineSize)
			if err := line.ReadBytes(0, bc.lineSize, buf); err != nil {
				continue
			}
			m := lb.Begin()
			m["address"] = line.Address()
			m["data"] = hex.EncodeToString(buf)
			m["modified"] = line.Modified()
		}
	}
	e.PutEntity("cache", lb.Build())
}
