// Package cacheitem implements the slot types a CacheSet holds: Basic,
// LineData (holds the actual block bytes), TaggedOnly (tag-only, carries a
// caller payload instead of data) and LineDataWithNT (LineData plus a
// non-temporal flag consumed by the NT-aware blocking cache).
package cacheitem

import (
	"encoding/binary"
	"unsafe"

	"github.com/archsim/cachesim/pkg/addrdecode"
	"github.com/archsim/cachesim/pkg/simerr"
)

const component = "CACHEITEM"

// InvalidWay is the sentinel way-number before an item is placed in a set.
const InvalidWay = ^uint32(0)

// Item is the contract every concrete item variant satisfies.
type Item interface {
	IsValid() bool
	SetAddress(addr uint64)
	WayNum() uint32
	SetWay(w uint32)
	SetIndex() uint32
	SetSetIndex(i uint32)
	Tag() uint64
	Address() uint64
	Reset(addr uint64)
}

// Basic holds the fields common to every item variant: its slot identity
// (set-index, way-number), its tag/address and a reference to the decoder
// that computed them.
type Basic struct {
	decoder    addrdecode.Decoder
	setIndex   uint32
	wayNum     uint32
	tag        uint64
	blockAddr  uint64
	hasWay     bool
	hasSetIdx  bool
}

// NewBasic constructs a Basic item bound to decoder. way-number and
// set-index are assigned later, exactly once each, via SetWay/SetSetIndex.
func NewBasic(decoder addrdecode.Decoder) Basic {
	return Basic{decoder: decoder, wayNum: InvalidWay, setIndex: InvalidWay}
}

func (b *Basic) WayNum() uint32 { return b.wayNum }

// SetWay may only be called once; a second call is a programming error.
func (b *Basic) SetWay(w uint32) {
	if b.hasWay {
		panic(simerr.New(simerr.ContractError, component, "way number assigned twice"))
	}
	b.wayNum = w
	b.hasWay = true
}

func (b *Basic) SetIndex() uint32 { return b.setIndex }

// SetSetIndex may only be called once; a second call is a programming error.
//
// Way-number and set-index are tracked and guarded independently, each
// with its own assigned-once flag, rather than sharing one "unassigned"
// sentinel across both fields.
func (b *Basic) SetSetIndex(i uint32) {
	if b.hasSetIdx {
		panic(simerr.New(simerr.ContractError, component, "set index assigned twice"))
	}
	b.setIndex = i
	b.hasSetIdx = true
}

func (b *Basic) Tag() uint64     { return b.tag }
func (b *Basic) Address() uint64 { return b.blockAddr }

// SetAddress recomputes tag and block-address via the bound decoder.
func (b *Basic) SetAddress(addr uint64) {
	b.tag = b.decoder.Tag(addr)
	b.blockAddr = b.decoder.BlockAddress(addr)
}

// LineData is a Basic slot that additionally holds the cache line's bytes
// and MESI-ish state bits.
type LineData struct {
	Basic
	lineSize uint64
	valid    bool
	modified bool
	exclusive bool
	shared   bool
	bytes    []byte
}

// NewLineData constructs a LineData item of the given line size bound to decoder.
func NewLineData(decoder addrdecode.Decoder, lineSize uint64) *LineData {
	return &LineData{
		Basic:    NewBasic(decoder),
		lineSize: lineSize,
		bytes:    make([]byte, lineSize),
	}
}

// Clone returns a deep, independent copy (fresh byte slice, same slot
// identity) as required by "copying is deep".
func (l *LineData) Clone() *LineData {
	cp := *l
	cp.bytes = make([]byte, len(l.bytes))
	copy(cp.bytes, l.bytes)
	return &cp
}

func (l *LineData) IsValid() bool    { return l.valid }
func (l *LineData) Modified() bool   { return l.modified }
func (l *LineData) Exclusive() bool  { return l.exclusive }
func (l *LineData) Shared() bool     { return l.shared }
func (l *LineData) SetModified(m bool) {
	l.modified = m
	if m {
		l.valid = true // modified implies valid
	}
}
func (l *LineData) SetExclusive(e bool) { l.exclusive = e }
func (l *LineData) SetShared(s bool)    { l.shared = s }
func (l *LineData) SetValid(v bool)     { l.valid = v }

// Reset returns the item to valid && !modified && exclusive && !shared at
// the new address.
func (l *LineData) Reset(addr uint64) {
	l.SetAddress(addr)
	l.valid = true
	l.modified = false
	l.exclusive = true
	l.shared = false
}

func (l *LineData) checkRange(offset, n uint64) error {
	if offset+n > l.lineSize {
		return simerr.Newf(simerr.ContractError, component,
			"line I/O out of range: offset=%d n=%d lineSize=%d", offset, n, l.lineSize)
	}
	return nil
}

// ReadBytes copies n bytes starting at offset into out. Fails if
// offset+n > line size.
func (l *LineData) ReadBytes(offset, n uint64, out []byte) error {
	if err := l.checkRange(offset, n); err != nil {
		return err
	}
	copy(out, l.bytes[offset:offset+n])
	return nil
}

// WriteBytes copies n bytes from in into the line starting at offset.
// Fails if offset+n > line size.
func (l *LineData) WriteBytes(offset, n uint64, in []byte) error {
	if err := l.checkRange(offset, n); err != nil {
		return err
	}
	copy(l.bytes[offset:offset+n], in[:n])
	return nil
}

// Read decodes a fixed-width unsigned integer out of the line at offset,
// little-endian, the generic counterpart to ReadBytes.
func Read[T uint8 | uint16 | uint32 | uint64](l *LineData, offset uint64) (T, error) {
	var zero T
	size := uint64(unsafe.Sizeof(zero))
	buf := make([]byte, size)
	if err := l.ReadBytes(offset, size, buf); err != nil {
		return zero, err
	}
	return decodeUint[T](buf), nil
}

// Write encodes val as a fixed-width unsigned integer into the line at
// offset, little-endian, the generic counterpart to WriteBytes.
func Write[T uint8 | uint16 | uint32 | uint64](l *LineData, offset uint64, val T) error {
	size := uint64(unsafe.Sizeof(val))
	buf := make([]byte, size)
	encodeUint(val, buf)
	return l.WriteBytes(offset, size, buf)
}

func decodeUint[T uint8 | uint16 | uint32 | uint64](buf []byte) T {
	switch len(buf) {
	case 1:
		return T(buf[0])
	case 2:
		return T(binary.LittleEndian.Uint16(buf))
	case 4:
		return T(binary.LittleEndian.Uint32(buf))
	default:
		return T(binary.LittleEndian.Uint64(buf))
	}
}

func encodeUint[T uint8 | uint16 | uint32 | uint64](v T, buf []byte) {
	switch len(buf) {
	case 1:
		buf[0] = uint8(v)
	case 2:
		binary.LittleEndian.PutUint16(buf, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(buf, uint32(v))
	default:
		binary.LittleEndian.PutUint64(buf, uint64(v))
	}
}

// TaggedOnly is a Basic slot with a valid flag and an opaque caller payload,
// used where line contents are irrelevant (e.g. tag/coherence-directory
// simulations).
type TaggedOnly struct {
	Basic
	valid   bool
	Payload interface{}
}

func NewTaggedOnly(decoder addrdecode.Decoder) *TaggedOnly {
	return &TaggedOnly{Basic: NewBasic(decoder)}
}

func (t *TaggedOnly) IsValid() bool { return t.valid }
func (t *TaggedOnly) SetValid(v bool) { t.valid = v }

func (t *TaggedOnly) Reset(addr uint64) {
	t.SetAddress(addr)
	t.valid = true
}

// LineDataWithNT is a LineData slot plus the non-temporal flag consumed by
// the NT-aware blocking cache extension.
type LineDataWithNT struct {
	LineData
	nonTemporal bool
}

func NewLineDataWithNT(decoder addrdecode.Decoder, lineSize uint64) *LineDataWithNT {
	return &LineDataWithNT{LineData: *NewLineData(decoder, lineSize)}
}

func (l *LineDataWithNT) NonTemporal() bool      { return l.nonTemporal }
func (l *LineDataWithNT) SetNonTemporal(nt bool)  { l.nonTemporal = nt }

func (l *LineDataWithNT) Clone() *LineDataWithNT {
	cp := *l
	cp.bytes = make([]byte, len(l.bytes))
	copy(cp.bytes, l.bytes)
	return &cp
}
