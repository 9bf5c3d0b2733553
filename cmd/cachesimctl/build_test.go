package main

import (
	"testing"

	"github.com/archsim/cachesim/pkg/blockingcache"
	"github.com/archsim/cachesim/pkg/cachesimcfg"
	"github.com/stretchr/testify/require"
)

func TestBuildPolicyKnownNames(t *testing.T) {
	for _, name := range []string{
		"true-lru", "true-lru-4", "tree-plru", "hybrid-plru-8",
		"hybrid-plru-16", "bubble-up", "round-robin", "random",
	} {
		p, err := buildPolicy(name, 8)
		require.NoError(t, err, name)
		require.NotNil(t, p)
	}
}

func TestBuildPolicyUnknownName(t *testing.T) {
	_, err := buildPolicy("not-a-policy", 8)
	require.Error(t, err)
}

func TestBuildCacheWiresGeometry(t *testing.T) {
	cfg := &cachesimcfg.Config{
		Cache: cachesimcfg.CacheConfig{
			SizeKiB:           32,
			LineSize:          64,
			Ways:              8,
			ReplacementPolicy: "true-lru",
			Decoder:           "default",
		},
	}
	mem := newMemoryImage()
	cache, err := buildCache(cfg, mem)
	require.NoError(t, err)
	require.NotNil(t, cache)
}

func TestBuildCacheNonTemporalSelectsNTCache(t *testing.T) {
	cfg := &cachesimcfg.Config{
		Cache: cachesimcfg.CacheConfig{
			SizeKiB:           32,
			LineSize:          64,
			Ways:              8,
			ReplacementPolicy: "true-lru",
			Decoder:           "default",
			NonTemporal:       true,
		},
	}
	cache, err := buildCache(cfg, newMemoryImage())
	require.NoError(t, err)
	_, ok := cache.(*blockingcache.NTCache)
	require.True(t, ok, "non-temporal config must build an NTCache")
}

func TestBuildCacheRejectsZeroSets(t *testing.T) {
	cfg := &cachesimcfg.Config{
		Cache: cachesimcfg.CacheConfig{
			SizeKiB:           1,
			LineSize:          64,
			Ways:              64,
			ReplacementPolicy: "true-lru",
		},
	}
	_, err := buildCache(cfg, newMemoryImage())
	require.Error(t, err)
}
