package txndb

import (
	"encoding/binary"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/archsim/cachesim/pkg/simerr"
	"github.com/archsim/cachesim/pkg/simlog"
)

const txnSize = 8 + 8 + 8 + 8 + 8 + 4 + 2

// Reader answers heartbeat-aligned window queries against a transaction
// database directory, reconstructing variable-width pair records from the
// schema tables built once at open.
//
// A Reader is not safe for concurrent use; GetWindow enforces this with a
// cooperative lock that fails fast on re-entry rather than attempting any
// actual synchronization.
type Reader struct {
	dir    string
	record *binFile
	index  *binFile
	schema *schemaTables

	sink Sink

	heartbeat    uint64
	firstIndex   int64
	version      uint32
	sizeOfIndex  int64
	sizeOfRecord int64
	lowestCycle  uint64
	highestCycle uint64
	locked       bool
	fileUpdated  bool
}

// New opens the six-file database rooted at dir and readies it to serve
// window queries, delivering decoded records to sink.
func New(dir string, sink Sink) (*Reader, error) {
	dir = strings.TrimRight(dir, "/")

	record, err := openBinFile(dir + "/record.bin")
	if err != nil {
		return nil, err
	}
	index, err := openBinFile(dir + "/index.bin")
	if err != nil {
		record.close()
		return nil, err
	}

	r := &Reader{dir: dir, record: record, index: index, sink: sink}

	if err := r.readHeader(); err != nil {
		r.record.close()
		r.index.close()
		return nil, err
	}

	if r.sizeOfIndex, err = r.index.size(); err != nil {
		return nil, err
	}
	if r.sizeOfRecord, err = r.record.size(); err != nil {
		return nil, err
	}

	if r.lowestCycle, err = r.findCycleFirst(); err != nil {
		return nil, err
	}
	if r.highestCycle, err = r.findCycleLast(); err != nil {
		return nil, err
	}

	schema, err := loadSchemaTables(dir)
	if err != nil {
		return nil, err
	}
	r.schema = schema

	simlog.Debugf("txndb reader opened %s, heartbeat=%d version=%d", dir, r.heartbeat, r.version)
	return r, nil
}

// readHeader parses the optional versioned header, then the heartbeat,
// leaving the index file cursor at the first index entry.
func (r *Reader) readHeader() error {
	headerBuf := make([]byte, HeaderSize)
	n, err := io.ReadFull(r.index.f, headerBuf)
	r.version = 1
	if err != nil || n != HeaderSize {
		if _, serr := r.index.seek(0, io.SeekStart); serr != nil {
			return serr
		}
	} else if !strings.HasPrefix(string(headerBuf), HeaderPrefix) {
		if _, serr := r.index.seek(0, io.SeekStart); serr != nil {
			return serr
		}
	} else {
		rest := headerBuf[len(HeaderPrefix):]
		if idx := indexByte(rest, 0); idx >= 0 {
			rest = rest[:idx]
		}
		v, perr := strconv.ParseUint(strings.TrimSpace(string(rest)), 10, 32)
		if perr != nil {
			return simerr.Wrap(simerr.CorruptData, component, "malformed index file header version", perr)
		}
		r.version = uint32(v)
	}

	if r.version < 1 || r.version > MaxSupportedVersion {
		return simerr.Newf(simerr.Unsupported, component,
			"index file version %d out of supported range [1, %d]", r.version, MaxSupportedVersion)
	}

	if err := r.index.read(&r.heartbeat); err != nil {
		return err
	}
	if r.heartbeat == 0 {
		return simerr.New(simerr.ConfigError, component, "heartbeat must be greater than zero")
	}

	firstIndex, err := r.index.tell()
	if err != nil {
		return err
	}
	r.firstIndex = firstIndex
	return nil
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

func (r *Reader) acquireLock() error {
	if r.locked {
		return simerr.New(simerr.ContractError, component,
			"txndb Reader is not thread-safe; get_window was re-entered")
	}
	r.locked = true
	return nil
}

func (r *Reader) releaseLock() { r.locked = false }

func (r *Reader) findCycleFirst() (uint64, error) {
	if _, err := r.record.seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	var txn Txn
	if err := r.record.read(&txn); err != nil {
		return 0, err
	}
	return txn.TimeStart, nil
}

// findCycleLast reads the last entry of the index file and the
// transaction it points to; on a short read it falls back to the
// currently cached highestCycle, tolerating a file still being written.
func (r *Reader) findCycleLast() (uint64, error) {
	if _, err := r.index.seek(-8, io.SeekEnd); err != nil {
		return r.highestCycle, nil
	}
	var pos uint64
	if err := r.index.read(&pos); err != nil {
		return r.highestCycle, nil
	}
	if _, err := r.record.seek(int64(pos), io.SeekStart); err != nil {
		return r.highestCycle, nil
	}
	var txn Txn
	if err := binary.Read(r.record.f, binary.LittleEndian, &txn); err != nil {
		return r.highestCycle, nil
	}
	return txn.TimeEnd - 1, nil
}

func roundUp(num, heartbeat uint64) uint64 {
	sub := num + heartbeat - 1
	return sub - (sub % heartbeat)
}

// findRecordReadPos returns the record-file byte offset of the first
// record whose time_end is at or beyond start, clamping to the end of
// the record file when start is beyond the indexed range.
func (r *Reader) findRecordReadPos(start uint64) (int64, error) {
	step := r.firstIndex + int64(start/r.heartbeat)*8
	if _, err := r.index.seek(step, io.SeekStart); err != nil {
		return r.sizeOfRecord, nil
	}
	filepos, err := r.index.tell()
	if err != nil {
		return r.sizeOfRecord, nil
	}
	if filepos >= r.sizeOfIndex-8 || filepos == -1 {
		return r.sizeOfRecord, nil
	}
	var pos uint64
	if err := r.index.read(&pos); err != nil {
		return r.sizeOfRecord, nil
	}
	return int64(pos), nil
}

// GetWindow reads, in ascending record.bin order, the records from the
// index bucket containing start up to the bucket boundary at or after end,
// and delivers them to the reader's sink. Only annotations are filtered:
// one with time_end < start or time_start > end is dropped. Instruction,
// memory-operation and pair records in that range are delivered as read.
func (r *Reader) GetWindow(start, end uint64) error {
	if err := r.acquireLock(); err != nil {
		return err
	}
	defer r.releaseLock()

	if r.version != 2 {
		return simerr.Newf(simerr.Unsupported, component, "record reading requires version 2, file is version %d", r.version)
	}

	chunkEnd := roundUp(end, r.heartbeat)

	readPos, err := r.findRecordReadPos(start)
	if err != nil {
		return err
	}
	if _, err := r.record.seek(readPos, io.SeekStart); err != nil {
		return err
	}
	endPos, err := r.findRecordReadPos(chunkEnd)
	if err != nil {
		return err
	}

	for {
		pos, err := r.record.tell()
		if err != nil {
			return err
		}
		if pos >= endPos || pos < 0 {
			break
		}
		if err := r.readOneRecord(start, end); err != nil {
			return err
		}
	}
	return nil
}

// readOneRecord decodes a single record at the current record-file cursor
// and delivers it to the sink (or drops it, for an out-of-window
// annotation), advancing the cursor past it.
func (r *Reader) readOneRecord(start, end uint64) error {
	var txn Txn
	if err := binary.Read(r.record.f, binary.LittleEndian, &txn); err != nil {
		return simerr.Wrap(simerr.ContractError, component, "failed to read transaction header", err)
	}

	switch txn.kind() {
	case KindAnnotation:
		var length uint16
		if err := r.record.read(&length); err != nil {
			return simerr.Wrap(simerr.ContractError, component, "failed to read annotation length", err)
		}
		text, err := r.record.readBytes(int(length))
		if err != nil {
			return simerr.Wrap(simerr.ContractError, component, "failed to read annotation text", err)
		}
		if txn.TimeEnd < start || txn.TimeStart > end {
			simlog.Debugf("skipped annotation outside window [%d,%d): start=%d end=%d", start, end, txn.TimeStart, txn.TimeEnd)
			return nil
		}
		a := Annotation{Txn: txn, Text: string(text)}
		r.sink.OnAnnotation(&a)

	case KindInstruction:
		if _, err := r.record.seek(-txnSize, io.SeekCurrent); err != nil {
			return err
		}
		var inst Instruction
		if err := binary.Read(r.record.f, binary.LittleEndian, &inst); err != nil {
			return simerr.Wrap(simerr.ContractError, component, "failed to read instruction record", err)
		}
		r.sink.OnInstruction(&inst)

	case KindMemoryOperation:
		if _, err := r.record.seek(-txnSize, io.SeekCurrent); err != nil {
			return err
		}
		var memop MemoryOperation
		if err := binary.Read(r.record.f, binary.LittleEndian, &memop); err != nil {
			return simerr.Wrap(simerr.ContractError, component, "failed to read memory operation record", err)
		}
		r.sink.OnMemory(&memop)

	case KindPair:
		pair, err := r.readPair(txn)
		if err != nil {
			return err
		}
		r.sink.OnPair(pair)

	default:
		return corrupt("unknown transaction kind %d found; data might be corrupt", txn.kind())
	}
	return nil
}

func (r *Reader) readPair(txn Txn) (*Pair, error) {
	pairID, ok := r.schema.locMap[txn.LocationID]
	if !ok {
		return nil, simerr.Newf(simerr.ContractError, component, "no pair id mapped for location %d", txn.LocationID)
	}
	schema, ok := r.schema.pairSchemas[pairID]
	if !ok {
		return nil, simerr.Newf(simerr.ContractError, component, "no pair schema for pair id %d", pairID)
	}

	p := &Pair{
		Txn:     txn,
		PairID:  pairID,
		Names:   schema.names,
		Values:  make([]PairValue, 1, schema.length),
		Strings: make([]string, 1, schema.length),
	}
	p.Values[0] = PairValue{IntValue: uint64(pairID)}
	p.Strings[0] = strconv.FormatUint(uint64(pairID), 10)

	for i := 1; i < int(schema.length); i++ {
		switch schema.types[i] {
		case fieldInt:
			size := int(schema.sizes[i])
			v, err := r.readLittleEndianUint(size)
			if err != nil {
				return nil, err
			}
			p.Values = append(p.Values, PairValue{IntValue: v})

			key := stringMapKey{pairID: pairID, fieldIndex: uint16(i - 1), intValue: v}
			if s, found := r.schema.stringMap[key]; found {
				p.Strings = append(p.Strings, s)
			} else if v == math.MaxUint64 {
				p.Strings = append(p.Strings, "")
			} else {
				p.Strings = append(p.Strings, renderInt(v, schema.formats[i]))
			}

		case fieldString:
			var length uint16
			if err := r.record.read(&length); err != nil {
				return nil, simerr.Wrap(simerr.ContractError, component, "failed to read pair string length", err)
			}
			text, err := r.record.readBytes(int(length))
			if err != nil {
				return nil, simerr.Wrap(simerr.ContractError, component, "failed to read pair string", err)
			}
			p.Strings = append(p.Strings, string(text))
			p.Values = append(p.Values, PairValue{IntValue: math.MaxUint64, StringOnly: true})

		default:
			p.Strings = append(p.Strings, "none")
			p.Values = append(p.Values, PairValue{})
		}
	}

	return p, nil
}

// readLittleEndianUint reads n (<= 8) bytes from the record file and
// zero-extends them into a uint64, matching the producer's narrow
// integer-field encoding.
func (r *Reader) readLittleEndianUint(n int) (uint64, error) {
	if n > 8 {
		return 0, simerr.Newf(simerr.CorruptData, component, "pair field size %d exceeds 8 bytes", n)
	}
	buf, err := r.record.readBytes(n)
	if err != nil {
		return 0, simerr.Wrap(simerr.ContractError, component, "failed to read pair integer field", err)
	}
	var v uint64
	for i := n - 1; i >= 0; i-- {
		v = (v << 8) | uint64(buf[i])
	}
	return v, nil
}

// GetChunkSize returns the heartbeat size, in cycles, that index entries
// are aligned to.
func (r *Reader) GetChunkSize() uint64 { return r.heartbeat }

// GetCycleFirst returns the earliest time_start found in the record file.
func (r *Reader) GetCycleFirst() uint64 { return r.lowestCycle }

// GetCycleLast returns the latest time_end - 1 found in the record file.
func (r *Reader) GetCycleLast() uint64 { return r.highestCycle }

// GetVersion returns the detected index/record file format version.
func (r *Reader) GetVersion() uint32 { return r.version }

// IsUpdated refreshes the reader's view of file sizes and reports whether
// the producer has appended new, complete heartbeat chunks.
func (r *Reader) IsUpdated() (bool, error) {
	if err := r.checkIndexUpdates(); err != nil {
		return false, err
	}
	return r.fileUpdated, nil
}

// AckUpdated clears the updated flag set by IsUpdated.
func (r *Reader) AckUpdated() { r.fileUpdated = false }

func (r *Reader) checkIndexUpdates() error {
	indexSize, err := r.index.size()
	if err != nil {
		return err
	}
	recordSize, err := r.record.size()
	if err != nil {
		return err
	}

	if indexSize == r.sizeOfIndex && recordSize == r.sizeOfRecord {
		return nil
	}

	remainder := recordSize % int64(r.heartbeat)
	if recordSize-remainder == r.sizeOfRecord {
		return nil
	}

	if err := r.reopenAll(); err != nil {
		return err
	}

	r.sizeOfIndex = indexSize
	if remainder != 0 {
		r.sizeOfRecord = recordSize - remainder
	} else {
		r.sizeOfRecord = recordSize
	}

	last, err := r.findCycleLast()
	if err != nil {
		return err
	}
	r.highestCycle = last
	r.fileUpdated = true
	return nil
}

// reopenAll re-opens the two streamed binary files at their current
// cursors and re-parses the schema tables from scratch. Unlike the
// original, the four auxiliary schema files are never held open between
// parses (they are read once, fully, into memory), so "reopening" them
// is simply redoing that one-shot parse.
func (r *Reader) reopenAll() error {
	if err := r.record.reopen(); err != nil {
		return err
	}
	if err := r.index.reopen(); err != nil {
		return err
	}
	schema, err := loadSchemaTables(r.dir)
	if err != nil {
		return err
	}
	r.schema = schema
	return nil
}

// Close releases the reader's open file handles.
func (r *Reader) Close() error {
	err1 := r.record.close()
	err2 := r.index.close()
	if err1 != nil {
		return err1
	}
	return err2
}
