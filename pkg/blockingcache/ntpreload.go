package blockingcache

import (
	"encoding/hex"

	"github.com/archsim/cachesim/pkg/preload"
)

// PreloadPacket fills the cache's lines from a "lines" list, the same
// format BlockingCache.PreloadPacket accepts plus an optional
// "non-temporal" bool per line (defaults to false when absent). Each line
// is placed through the regular (non-NT) victim path, so set/way
// assignment and MRU order come from the cache's own decoder and
// replacement policy.
func (nc *NTCache) PreloadPacket(pkt preload.Packet) bool {
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
		nonTemporal, _ := preload.GetScalar[bool](it, "non-temporal")

		line := nc.getLineForReplacement(addr)
		line.Reset(addr)
		line.SetValid(true)
		line.SetModified(modified)
		line.SetNonTemporal(nonTemporal)
		if err := line.WriteBytes(0, uint64(len(raw)), raw); err != nil {
			return false
		}
		nc.cache.CacheSetAt(addr).Policy().TouchMRU(line.WayNum())
	}
	return true
}

// PreloadDump emits every currently valid line as a "lines" list entry,
// the inverse of PreloadPacket.
func (nc *NTCache) PreloadDump(e *preload.Emitter) {
	lb := preload.NewListBuilder()
	for i := uint32(0); i < nc.cache.NumSets(); i++ {
		set := nc.cache.SetByIndex(i)
		for w := uint32(0); w < set.NumWays(); w++ {
			line := set.GetWay(w)
			if !line.IsValid() {
				continue
			}
			buf := make([]byte, nc.lineSize)
			if err := line.ReadBytes(0, nc.lineSize, buf); err != nil {
				continue
			}
			m := lb.Begin()
			m["address"] = line.Address()
			m["data"] = hex.EncodeToString(buf)
			m["modified"] = line.Modified()
			m["non-temporal"] = line.NonTemporal()
		}
	}
	e.PutEntity("cache", lb.Build())
}
