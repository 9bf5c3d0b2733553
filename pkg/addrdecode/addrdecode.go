// Package addrdecode maps a 64-bit address onto the coordinates a
// set-associative cache needs: tag, set index, block-aligned address and
// block offset.
//
// Two variants are provided. Default splits the address into contiguous
// bit fields. Hash additionally XOR-reduces configured bit-subsets of the
// address into the low bits of the index, the way a real cache spreads
// accesses across sets more evenly than a plain bit-field split.
package addrdecode

import (
	"math/bits"

	"github.com/archsim/cachesim/pkg/simerr"
)

const component = "ADDRDECODE"

// Decoder is the contract every address decoder variant implements.
type Decoder interface {
	Tag(addr uint64) uint64
	Index(addr uint64) uint32
	BlockAddress(addr uint64) uint64
	BlockOffset(addr uint64) uint64
	LineSize() uint64
	NumSets() uint32
}

func isPowerOfTwo(v uint64) bool {
	return v != 0 && v&(v-1) == 0
}

// Default is the plain bit-field decoder:
//
//	block_offset = addr & (lineSize-1)
//	index        = (addr >> log2(stride)) & (numSets-1)
//	block_address = addr &^ (lineSize-1)
//	tag          = addr >> tagShift, tagShift = log2(numSets*stride)
type Default struct {
	lineSize  uint64
	stride    uint64
	numSets   uint32
	offMask   uint64
	idxShift  uint
	idxMask   uint64
	tagShift  uint
	blockMask uint64
}

// NewDefault builds a Default decoder from line size, stride and set count,
// all required to be powers of two, with stride >= lineSize.
func NewDefault(lineSize, stride uint64, numSets uint32) (*Default, error) {
	if !isPowerOfTwo(lineSize) {
		return nil, simerr.Newf(simerr.ConfigError, component, "line size %d is not a power of two", lineSize)
	}
	if !isPowerOfTwo(stride) {
		return nil, simerr.Newf(simerr.ConfigError, component, "stride %d is not a power of two", stride)
	}
	if stride < lineSize {
		return nil, simerr.Newf(simerr.ConfigError, component, "stride %d smaller than line size %d", stride, lineSize)
	}
	if numSets == 0 || !isPowerOfTwo(uint64(numSets)) {
		return nil, simerr.Newf(simerr.ConfigError, component, "number of sets %d is not a power of two", numSets)
	}

	offMask := lineSize - 1
	idxShift := uint(bits.TrailingZeros64(stride))
	idxMask := uint64(numSets) - 1
	tagShift := uint(bits.TrailingZeros64(uint64(numSets) * stride))

	return &Default{
		lineSize:  lineSize,
		stride:    stride,
		numSets:   numSets,
		offMask:   offMask,
		idxShift:  idxShift,
		idxMask:   idxMask,
		tagShift:  tagShift,
		blockMask: ^offMask,
	}, nil
}

func (d *Default) Tag(addr uint64) uint64          { return addr >> d.tagShift }
func (d *Default) Index(addr uint64) uint32        { return uint32((addr >> d.idxShift) & d.idxMask) }
func (d *Default) BlockAddress(addr uint64) uint64 { return addr & d.blockMask }
func (d *Default) BlockOffset(addr uint64) uint64  { return addr & d.offMask }
func (d *Default) LineSize() uint64                { return d.lineSize }
func (d *Default) NumSets() uint32                 { return d.numSets }

// BitSubset is a set of address bit positions that get XOR-reduced into a
// single hash-index bit.
type BitSubset []uint

// Hash decoder: computes the base index exactly as Default, then replaces
// its low len(subsets) bits with a hash computed by XOR-reducing each
// configured BitSubset across the address bits.
type Hash struct {
	*Default
	subsets []BitSubset
}

// NewHash builds a Hash decoder. numSets must additionally be a power of
// two (already required by Default); len(subsets) must be <= log2(numSets).
func NewHash(lineSize, stride uint64, numSets uint32, subsets []BitSubset) (*Hash, error) {
	base, err := NewDefault(lineSize, stride, numSets)
	if err != nil {
		return nil, err
	}
	width := uint(bits.TrailingZeros64(uint64(numSets)))
	if uint(len(subsets)) > width {
		return nil, simerr.Newf(simerr.ConfigError, component,
			"hash decoder has %d bit-subsets but only %d index bits available", len(subsets), width)
	}
	return &Hash{Default: base, subsets: subsets}, nil
}

func (h *Hash) Index(addr uint64) uint32 {
	base := h.Default.Index(addr)
	width := uint(len(h.subsets))
	if width == 0 {
		return base
	}
	var hashIdx uint32
	for bitPos, subset := range h.subsets {
		var parity uint64
		for _, b := range subset {
			parity ^= (addr >> b) & 1
		}
		hashIdx |= uint32(parity) << uint(bitPos)
	}
	lowMask := (uint32(1) << width) - 1
	return (base &^ lowMask) | (hashIdx & lowMask)
}
