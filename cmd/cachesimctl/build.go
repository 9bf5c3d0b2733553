package main

import (
	"github.com/archsim/cachesim/pkg/addrdecode"
	"github.com/archsim/cachesim/pkg/blockingcache"
	"github.com/archsim/cachesim/pkg/cachesimcfg"
	"github.com/archsim/cachesim/pkg/preload"
	"github.com/archsim/cachesim/pkg/replacement"
	"github.com/archsim/cachesim/pkg/simerr"
)

const component = "CACHESIMCTL"

// simCache is the surface cachesimctl drives regardless of whether a
// config selects the plain BlockingCache or the non-temporal-aware
// NTCache extension.
type simCache interface {
	Stats() blockingcache.Stats
	ResetStats()
	preload.Preloadable
}

func buildDecoder(cc cachesimcfg.CacheConfig, numSets uint32) (addrdecode.Decoder, error) {
	lineSize := uint64(cc.LineSize)
	stride := uint64(cc.Stride)
	if stride == 0 {
		stride = lineSize
	}
	if cc.Decoder == "hash" {
		subsets := make([]addrdecode.BitSubset, len(cc.HashBitSubsets))
		for i, s := range cc.HashBitSubsets {
			subsets[i] = addrdecode.BitSubset(s)
		}
		return addrdecode.NewHash(lineSize, stride, numSets, subsets)
	}
	return addrdecode.NewDefault(lineSize, stride, numSets)
}

func buildPolicy(name string, numWays uint32) (replacement.Policy, error) {
	switch name {
	case "true-lru":
		return replacement.NewTrueLRU(numWays), nil
	case "true-lru-4":
		return replacement.NewTrueLRU4(), nil
	case "tree-plru":
		return replacement.NewTreePLRU(numWays), nil
	case "hybrid-plru-8":
		return replacement.NewHybridPLRU8(), nil
	case "hybrid-plru-16":
		return replacement.NewHybridPLRU16(), nil
	case "bubble-up":
		return replacement.NewBubbleUp(numWays), nil
	case "round-robin":
		return replacement.NewRoundRobin(numWays), nil
	case "random":
		return replacement.NewRandom(numWays, randomSeed()), nil
	default:
		return nil, simerr.Newf(simerr.ConfigError, component, "unknown replacement policy %q", name)
	}
}

// buildCache wires a cache from a cachesimcfg.Config, backed by an
// in-memory NextLevel large enough to answer any address the cache
// decodes. cache.non-temporal selects the NTCache extension in place of
// the plain BlockingCache.
func buildCache(cfg *cachesimcfg.Config, mem *memoryImage) (simCache, error) {
	cc := cfg.Cache
	numSets := uint32(cc.SizeKiB) * 1024 / (uint32(cc.LineSize) * uint32(cc.Ways))
	if numSets == 0 {
		return nil, simerr.Newf(simerr.ConfigError, component,
			"cache geometry yields zero sets: size-kib=%d line-size=%d ways=%d", cc.SizeKiB, cc.LineSize, cc.Ways)
	}

	decoder, err := buildDecoder(cc, numSets)
	if err != nil {
		return nil, err
	}
	policy, err := buildPolicy(cc.ReplacementPolicy, uint32(cc.Ways))
	if err != nil {
		return nil, err
	}

	if cc.NonTemporal {
		return blockingcache.NewNT(decoder, numSets, uint32(cc.Ways), uint64(cc.LineSize),
			cc.WriteThrough, cc.WriteAllocate, policy, mem), nil
	}
	return blockingcache.New(decoder, numSets, uint32(cc.Ways), uint64(cc.LineSize),
		cc.WriteThrough, cc.WriteAllocate, policy, mem), nil
}
