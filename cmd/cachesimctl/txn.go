package main

import (
	"flag"
	"fmt"

	"github.com/archsim/cachesim/pkg/cachesimcfg"
	"github.com/archsim/cachesim/pkg/txndb"
)

// printingSink prints every delivered record to stdout, one line each.
type printingSink struct{}

func (printingSink) OnAnnotation(r *txndb.Annotation) {
	fmt.Printf("annotation  [%d,%d] txn=%d %q\n", r.TimeStart, r.TimeEnd, r.TransactionID, r.Text)
}

func (printingSink) OnInstruction(r *txndb.Instruction) {
	fmt.Printf("instruction [%d,%d] txn=%d opcode=%#x\n", r.TimeStart, r.TimeEnd, r.TransactionID, r.Opcode)
}

func (printingSink) OnMemory(r *txndb.MemoryOperation) {
	fmt.Printf("memop       [%d,%d] txn=%d addr=%#x\n", r.TimeStart, r.TimeEnd, r.TransactionID, r.RealAddr)
}

func (printingSink) OnPair(r *txndb.Pair) {
	fmt.Printf("pair        [%d,%d] txn=%d pairid=%d", r.TimeStart, r.TimeEnd, r.TransactionID, r.PairID)
	for i, name := range r.Names {
		fmt.Printf(" %s=%s", name, r.Strings[i])
	}
	fmt.Println()
}

func openReader(configFile, txnDirOverride string) (*txndb.Reader, error) {
	cfg, err := cachesimcfg.Load(configFile)
	if err != nil {
		return nil, err
	}
	dir := cfg.TransactionDB
	if txnDirOverride != "" {
		dir = txnDirOverride
	}
	return txndb.New(dir, printingSink{})
}

func runDump(args []string) error {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	configFile := fs.String("config", "./cachesim.json", "path to the cachesimctl config file")
	dir := fs.String("dir", "", "override the config's transaction-db directory")
	start := fs.Uint64("start", 0, "window start time")
	end := fs.Uint64("end", 0, "window end time")
	if err := fs.Parse(args); err != nil {
		return err
	}

	r, err := openReader(*configFile, *dir)
	if err != nil {
		return err
	}
	defer r.Close()

	return r.GetWindow(*start, *end)
}

func runAudit(args []string) error {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	configFile := fs.String("config", "./cachesim.json", "path to the cachesimctl config file")
	dir := fs.String("dir", "", "override the config's transaction-db directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	r, err := openReader(*configFile, *dir)
	if err != nil {
		return err
	}
	defer r.Close()

	return r.DumpIndexTransactions()
}
