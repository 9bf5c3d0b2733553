package txndb

import (
	"io"

	"github.com/archsim/cachesim/pkg/simlog"
)

// boundsCheckingSink wraps no downstream sink; it only verifies that
// every record handed to it by DumpIndexTransactions actually belongs to
// the heartbeat bucket it was fetched for, logging a warning for any
// that don't.
type boundsCheckingSink struct {
	start, end uint64
}

func (c *boundsCheckingSink) check(kind string, timeStart, timeEnd uint64, txnID uint64) {
	if timeStart < c.start || timeEnd > c.end {
		simlog.Warnf("transaction out of heartbeat bounds [%d,%d): kind=%s id=%d start=%d end=%d",
			c.start, c.end, kind, txnID, timeStart, timeEnd)
	}
}

func (c *boundsCheckingSink) OnAnnotation(r *Annotation) {
	c.check("annotation", r.TimeStart, r.TimeEnd, r.TransactionID)
}
func (c *boundsCheckingSink) OnInstruction(r *Instruction) {
	c.check("instruction", r.TimeStart, r.TimeEnd, r.TransactionID)
}
func (c *boundsCheckingSink) OnMemory(r *MemoryOperation) {
	c.check("memory", r.TimeStart, r.TimeEnd, r.TransactionID)
}
func (c *boundsCheckingSink) OnPair(r *Pair) {
	c.check("pair", r.TimeStart, r.TimeEnd, r.TransactionID)
}

// DumpIndexTransactions replays the entire record file one heartbeat
// bucket at a time through a bounds-checking sink, to audit that the
// index file and record file agree with each other. The reader's real
// sink is restored before returning, even on error.
func (r *Reader) DumpIndexTransactions() error {
	prevSink := r.sink
	defer func() { r.sink = prevSink }()

	if _, err := r.index.seek(0, io.SeekStart); err != nil {
		return err
	}

	last := r.GetCycleLast()
	for tick := uint64(0); tick <= last+(r.heartbeat-1); tick += r.heartbeat {
		r.sink = &boundsCheckingSink{start: tick, end: tick + r.heartbeat}

		pos, err := r.findRecordReadPos(tick)
		if err != nil {
			return err
		}
		if _, err := r.record.seek(pos, io.SeekStart); err != nil {
			return err
		}
		readPos, err := r.record.tell()
		if err != nil {
			return err
		}

		chunkEnd := roundUp(tick+r.heartbeat, r.heartbeat)
		endPos, err := r.findRecordReadPos(chunkEnd)
		if err != nil {
			return err
		}

		recsRead := 0
		for {
			cur, err := r.record.tell()
			if err != nil {
				return err
			}
			if cur >= endPos || cur < 0 {
				break
			}
			if err := r.readOneRecord(tick, tick+r.heartbeat); err != nil {
				return err
			}
			recsRead++
		}
		simlog.Debugf("heartbeat at t=%d @ filepos=%d read %d records (readPos=%d)", tick, pos, recsRead, readPos)
	}

	var junk []uint64
	for {
		var v uint64
		if err := r.index.read(&v); err != nil {
			break
		}
		junk = append(junk, v)
	}
	if len(junk) > 0 {
		simlog.Warnf("found %d trailing value(s) at the end of the index file: %v", len(junk), junk)
	}
	return nil
}
