package main

import (
	"flag"
	"fmt"

	"github.com/archsim/cachesim/pkg/cachesimcfg"
	"github.com/archsim/cachesim/pkg/preload"
	"github.com/archsim/cachesim/pkg/simlog"
)

func runReplay(args []string) error {
	fs := flag.NewFlagSet("replay", flag.ExitOnError)
	configFile := fs.String("config", "./cachesim.json", "path to the cachesimctl config file")
	preloadFile := fs.String("preload", "", "override the config's preload-file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := cachesimcfg.Load(*configFile)
	if err != nil {
		return err
	}

	path := cfg.PreloadFile
	if *preloadFile != "" {
		path = *preloadFile
	}

	mem := newMemoryImage()
	cache, err := buildCache(cfg, mem)
	if err != nil {
		return err
	}

	if path != "" {
		p := preload.NewPreloader()
		p.Register("cache", cache)
		simlog.Infof("loading preload descriptor %s", path)
		if err := p.LoadYAML(path); err != nil {
			return err
		}
	}

	stats := cache.Stats()
	fmt.Printf("cache ready: reads=%d writes=%d read-misses=%d write-misses=%d castouts=%d reloads=%d\n",
		stats.Reads, stats.Writes, stats.ReadMisses, stats.WriteMisses, stats.Castouts, stats.Reloads)
	return nil
}
