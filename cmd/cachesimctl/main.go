// Command cachesimctl wires the cache-modeling library and the transaction
// database reader together: build a cache from a config file and replay a
// preload trace into it, or open a transaction database and dump a window
// or run its audit pass.
package main

import (
	"fmt"
	"os"

	"github.com/archsim/cachesim/pkg/simlog"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: cachesimctl <replay|dump|audit|watch> [flags]")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "replay":
		err = runReplay(args)
	case "dump":
		err = runDump(args)
	case "audit":
		err = runAudit(args)
	case "watch":
		err = runWatch(args)
	case "-h", "--help", "help":
		usage()
		return
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		simlog.FatalErr(cmd, err)
	}
}
