// Package txndb implements a reader for the pipeline-collection transaction
// database: a binary record file plus an index file and four auxiliary
// colon-delimited schema files, answering "every transaction whose end time
// falls in [start, end)" with heartbeat-aligned random access.
package txndb

import "github.com/archsim/cachesim/pkg/simerr"

const component = "TXNDB"

// RecordKind identifies which of the four on-disk record shapes a Txn
// header's flags select.
type RecordKind uint16

const (
	KindAnnotation RecordKind = iota
	KindInstruction
	KindMemoryOperation
	KindPair
)

// TypeMask isolates the record-kind bits of Txn.Flags; the remaining bits
// are reserved for the producer and are not interpreted here.
const TypeMask uint16 = 0x0F

// HeaderPrefix is the ASCII tag that, if present at the start of the index
// file, marks a versioned file; its absence means version 1.
const HeaderPrefix = "sparta_pipeout_version_"

// HeaderSize is the fixed number of bytes reserved for the optional index
// file header (prefix + decimal version + NUL padding).
const HeaderSize = 32

// MaxSupportedVersion is the newest index/record file version this reader
// understands. Older versions are rejected as Unsupported.
const MaxSupportedVersion = 2

// Txn is the common fixed header shared by every record kind, exactly as
// laid out on disk: 7 little-endian fields, no padding.
type Txn struct {
	TimeStart     uint64
	TimeEnd       uint64
	ParentID      uint64
	TransactionID uint64
	DisplayID     uint64
	LocationID    uint32
	Flags         uint16
}

func (t Txn) kind() RecordKind { return RecordKind(t.Flags & TypeMask) }

// Annotation is a Txn plus a variable-length text payload.
type Annotation struct {
	Txn
	Text string
}

// Instruction is a fixed-size record extending Txn with instruction-level
// detail. The reader treats the extra fields as opaque payload bytes since
// no instruction-set semantics are specified here.
type Instruction struct {
	Txn
	Opcode   uint64
	VirtAddr uint64
	RealAddr uint64
	Extra    uint32
}

// MemoryOperation mirrors Instruction's layout; the two kinds differ only
// in how a consumer interprets the payload fields.
type MemoryOperation struct {
	Txn
	Opcode   uint64
	VirtAddr uint64
	RealAddr uint64
	Extra    uint32
}

// PairValue is one reconstructed field of a Pair record: an optional
// integer form and its rendered string form. StringOnly is set for fields
// whose on-disk representation is a string with no integer counterpart.
type PairValue struct {
	IntValue   uint64
	StringOnly bool
}

// Pair is a variable-width record whose shape comes from the pair schema
// tables built at open: Names/Values/Strings are parallel arrays, index 0
// always being the synthetic "pairid" field. The schema's per-field byte
// sizes and format codes are not copied onto the record.
type Pair struct {
	Txn
	PairID  uint16
	Names   []string
	Values  []PairValue
	Strings []string
}

// Sink receives records as get_window/dump_index_transactions decode them.
// Implementations must not retain the passed pointer past the call.
type Sink interface {
	OnAnnotation(*Annotation)
	OnInstruction(*Instruction)
	OnMemory(*MemoryOperation)
	OnPair(*Pair)
}

func corrupt(format string, args ...interface{}) error {
	return simerr.Newf(simerr.CorruptData, component, format, args...)
}
