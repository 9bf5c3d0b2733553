package main

import (
	"flag"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/archsim/cachesim/pkg/cachesimcfg"
	"github.com/archsim/cachesim/pkg/simlog"
	"github.com/archsim/cachesim/pkg/txndb"
)

// runWatch opens a transaction database and polls it on a schedule,
// re-opening its files whenever the producer has extended them. It runs
// until interrupted.
func runWatch(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	configFile := fs.String("config", "./cachesim.json", "path to the cachesimctl config file")
	dir := fs.String("dir", "", "override the config's transaction-db directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := cachesimcfg.Load(*configFile)
	if err != nil {
		return err
	}

	interval, err := time.ParseDuration(cfg.WatchInterval)
	if err != nil {
		return err
	}

	txnDir := cfg.TransactionDB
	if *dir != "" {
		txnDir = *dir
	}

	r, err := txndb.New(txnDir, printingSink{})
	if err != nil {
		return err
	}
	defer r.Close()

	s, err := gocron.NewScheduler()
	if err != nil {
		return err
	}

	_, err = s.NewJob(gocron.DurationJob(interval), gocron.NewTask(func() {
		updated, err := r.IsUpdated()
		if err != nil {
			simlog.Err("watch: checking for updates", err)
			return
		}
		if updated {
			simlog.Infof("transaction database grew, cycle range is now [%d,%d]",
				r.GetCycleFirst(), r.GetCycleLast())
			r.AckUpdated()
		}
	}))
	if err != nil {
		return err
	}

	simlog.Infof("watching %s every %s", txnDir, interval)
	s.Start()
	select {}
}
