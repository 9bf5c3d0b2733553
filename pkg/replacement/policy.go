// Package replacement implements the per-set ranked-list replacement
// policies: TrueLRU, TrueLRU-4, TreePLRU, HybridPLRU-8/16, BubbleUp,
// RoundRobin and Random.
//
// All variants share one public contract (Policy) and enforce way < N on
// every input: one Go interface with a concrete type per variant, and
// an explicit Clone method rather than any form of copy-construction.
package replacement

import (
	"math/rand"

	"github.com/archsim/cachesim/pkg/simerr"
)

const component = "REPLACEMENT"

// Policy is the contract every replacement-policy variant implements.
type Policy interface {
	TouchMRU(way uint32)
	TouchLRU(way uint32)
	MRUWay() uint32
	LRUWay() uint32
	Reset()
	Clone() Policy
	LockWay(way uint32) error
	NumWays() uint32
}

func checkWay(numWays, way uint32) {
	if way >= numWays {
		panic(simerr.Newf(simerr.ContractError, component, "way %d out of range [0,%d)", way, numWays))
	}
}

func unsupportedLockWay(numWays, way uint32) error {
	checkWay(numWays, way)
	return simerr.New(simerr.Unsupported, component, "lock_way is not supported by this policy")
}

// ---------------------------------------------------------------------
// TrueLRU: an ordered list of way indices, unbounded N, O(N) per touch.
// ---------------------------------------------------------------------

type TrueLRU struct {
	// order[0] is LRU, order[len-1] is MRU.
	order []uint32
}

func NewTrueLRU(numWays uint32) *TrueLRU {
	t := &TrueLRU{}
	t.initOrder(numWays)
	return t
}

func (t *TrueLRU) initOrder(numWays uint32) {
	t.order = make([]uint32, numWays)
	for i := range t.order {
		t.order[i] = uint32(i)
	}
}

func (t *TrueLRU) NumWays() uint32 { return uint32(len(t.order)) }

func (t *TrueLRU) removeWay(way uint32) int {
	for i, w := range t.order {
		if w == way {
			t.order = append(t.order[:i], t.order[i+1:]...)
			return i
		}
	}
	return -1
}

func (t *TrueLRU) TouchMRU(way uint32) {
	checkWay(t.NumWays(), way)
	t.removeWay(way)
	t.order = append(t.order, way)
}

func (t *TrueLRU) TouchLRU(way uint32) {
	checkWay(t.NumWays(), way)
	t.removeWay(way)
	t.order = append([]uint32{way}, t.order...)
}

func (t *TrueLRU) MRUWay() uint32 { return t.order[len(t.order)-1] }
func (t *TrueLRU) LRUWay() uint32 { return t.order[0] }

func (t *TrueLRU) Reset() { t.initOrder(t.NumWays()) }

func (t *TrueLRU) Clone() Policy {
	cp := &TrueLRU{order: make([]uint32, len(t.order))}
	copy(cp.order, t.order)
	return cp
}

func (t *TrueLRU) LockWay(way uint32) error { return unsupportedLockWay(t.NumWays(), way) }

// ---------------------------------------------------------------------
// TrueLRU4: 4-way, 6-bit pairwise-relation encoding with a precomputed
// 64-entry transition table (24 valid encodings).
// ---------------------------------------------------------------------

const invalidEncoding = 0xFFFFFFFF

type trueLRU4Entry struct {
	encoding        uint32
	wayOrder        [4]uint32
	nextMRUEncoding [4]uint32
	nextLRUEncoding [4]uint32
}

// transitionTable ported verbatim from the bit-pattern transition table:
// way-order={0,1,2,3} means W0 is MRU & W3 is LRU, b0 is least significant.
var trueLRU4Table = [24]trueLRU4Entry{
	{0x3F, [4]uint32{0, 1, 2, 3}, [4]uint32{0x3F, 0x3E, 0x35, 0x0B}, [4]uint32{0x38, 0x27, 0x1F, 0x3F}},
	{0x1F, [4]uint32{0, 1, 3, 2}, [4]uint32{0x1F, 0x1E, 0x35, 0x0B}, [4]uint32{0x18, 0x07, 0x1F, 0x3F}},
	{0x37, [4]uint32{0, 2, 1, 3}, [4]uint32{0x37, 0x3E, 0x35, 0x03}, [4]uint32{0x30, 0x27, 0x1F, 0x37}},
	{0x0F, [4]uint32{0, 3, 1, 2}, [4]uint32{0x0F, 0x1E, 0x25, 0x0B}, [4]uint32{0x08, 0x07, 0x0F, 0x3F}},
	{0x27, [4]uint32{0, 2, 3, 1}, [4]uint32{0x27, 0x3E, 0x25, 0x03}, [4]uint32{0x20, 0x27, 0x0F, 0x37}},
	{0x07, [4]uint32{0, 3, 2, 1}, [4]uint32{0x07, 0x1E, 0x25, 0x03}, [4]uint32{0x00, 0x07, 0x0F, 0x37}},
	{0x3E, [4]uint32{1, 0, 2, 3}, [4]uint32{0x3F, 0x3E, 0x34, 0x0A}, [4]uint32{0x38, 0x27, 0x1E, 0x3E}},
	{0x1E, [4]uint32{1, 0, 3, 2}, [4]uint32{0x1F, 0x1E, 0x34, 0x0A}, [4]uint32{0x18, 0x07, 0x1E, 0x3E}},
	{0x35, [4]uint32{2, 0, 1, 3}, [4]uint32{0x37, 0x3C, 0x35, 0x01}, [4]uint32{0x30, 0x25, 0x1F, 0x35}},
	{0x0B, [4]uint32{3, 0, 1, 2}, [4]uint32{0x0F, 0x1A, 0x21, 0x0B}, [4]uint32{0x08, 0x03, 0x0B, 0x3F}},
	{0x25, [4]uint32{2, 0, 3, 1}, [4]uint32{0x27, 0x3C, 0x25, 0x01}, [4]uint32{0x20, 0x25, 0x0F, 0x35}},
	{0x03, [4]uint32{3, 0, 2, 1}, [4]uint32{0x07, 0x1A, 0x21, 0x03}, [4]uint32{0x00, 0x03, 0x0B, 0x37}},
	{0x3C, [4]uint32{1, 2, 0, 3}, [4]uint32{0x3F, 0x3C, 0x34, 0x08}, [4]uint32{0x38, 0x25, 0x1E, 0x3C}},
	{0x1A, [4]uint32{1, 3, 0, 2}, [4]uint32{0x1F, 0x1A, 0x30, 0x0A}, [4]uint32{0x18, 0x03, 0x1A, 0x3E}},
	{0x34, [4]uint32{2, 1, 0, 3}, [4]uint32{0x37, 0x3C, 0x34, 0x00}, [4]uint32{0x30, 0x25, 0x1E, 0x34}},
	{0x0A, [4]uint32{3, 1, 0, 2}, [4]uint32{0x0F, 0x1A, 0x20, 0x0A}, [4]uint32{0x08, 0x03, 0x0A, 0x3E}},
	{0x21, [4]uint32{2, 3, 0, 1}, [4]uint32{0x27, 0x38, 0x21, 0x01}, [4]uint32{0x20, 0x21, 0x0B, 0x35}},
	{0x01, [4]uint32{3, 2, 0, 1}, [4]uint32{0x07, 0x18, 0x21, 0x01}, [4]uint32{0x00, 0x01, 0x0B, 0x35}},
	{0x38, [4]uint32{1, 2, 3, 0}, [4]uint32{0x3F, 0x38, 0x30, 0x08}, [4]uint32{0x38, 0x21, 0x1A, 0x3C}},
	{0x18, [4]uint32{1, 3, 2, 0}, [4]uint32{0x1F, 0x18, 0x30, 0x08}, [4]uint32{0x18, 0x01, 0x1A, 0x3C}},
	{0x30, [4]uint32{2, 1, 3, 0}, [4]uint32{0x37, 0x38, 0x30, 0x00}, [4]uint32{0x30, 0x21, 0x1A, 0x34}},
	{0x08, [4]uint32{3, 1, 2, 0}, [4]uint32{0x0F, 0x18, 0x20, 0x08}, [4]uint32{0x08, 0x01, 0x0A, 0x3C}},
	{0x20, [4]uint32{2, 3, 1, 0}, [4]uint32{0x27, 0x38, 0x20, 0x00}, [4]uint32{0x20, 0x21, 0x0A, 0x34}},
	{0x00, [4]uint32{3, 2, 1, 0}, [4]uint32{0x07, 0x18, 0x20, 0x00}, [4]uint32{0x00, 0x01, 0x0A, 0x34}},
}

var trueLRU4TransitionTbl [64]trueLRU4Entry

func init() {
	for i := 0; i < 64; i++ {
		trueLRU4TransitionTbl[i] = trueLRU4Entry{
			encoding:        invalidEncoding,
			nextMRUEncoding: [4]uint32{invalidEncoding, invalidEncoding, invalidEncoding, invalidEncoding},
			nextLRUEncoding: [4]uint32{invalidEncoding, invalidEncoding, invalidEncoding, invalidEncoding},
		}
	}
	for _, e := range trueLRU4Table {
		trueLRU4TransitionTbl[e.encoding] = e
	}
}

type TrueLRU4 struct {
	curEncoding uint32
}

func NewTrueLRU4() *TrueLRU4 {
	t := &TrueLRU4{}
	t.Reset()
	return t
}

func (t *TrueLRU4) NumWays() uint32 { return 4 }

func (t *TrueLRU4) MRUWay() uint32 { return trueLRU4TransitionTbl[t.curEncoding].wayOrder[0] }
func (t *TrueLRU4) LRUWay() uint32 { return trueLRU4TransitionTbl[t.curEncoding].wayOrder[3] }

func (t *TrueLRU4) TouchMRU(way uint32) {
	checkWay(4, way)
	next := trueLRU4TransitionTbl[t.curEncoding].nextMRUEncoding[way]
	if next == invalidEncoding {
		panic(simerr.New(simerr.ContractError, component, "undefined TrueLRU4 encoding transition"))
	}
	t.curEncoding = next
}

func (t *TrueLRU4) TouchLRU(way uint32) {
	checkWay(4, way)
	next := trueLRU4TransitionTbl[t.curEncoding].nextLRUEncoding[way]
	if next == invalidEncoding {
		panic(simerr.New(simerr.ContractError, component, "undefined TrueLRU4 encoding transition"))
	}
	t.curEncoding = next
}

// Reset returns to encoding 0x00 (way-order {3,2,1,0}: W3 is MRU, W0 is LRU),
// matching the canonical mru=N-1, lru=0 initial state every LRU-style
// policy resets to.
func (t *TrueLRU4) Reset() { t.curEncoding = 0x00 }

func (t *TrueLRU4) Clone() Policy {
	cp := *t
	return &cp
}

func (t *TrueLRU4) LockWay(way uint32) error { return unsupportedLockWay(4, way) }

// ---------------------------------------------------------------------
// TreePLRU: implicit binary tree with N-1 pseudo-LRU bits, N a power of two.
// ---------------------------------------------------------------------

type TreePLRU struct {
	numWays   uint32
	numLevels uint32
	bits      []bool // indexed 1..numWays-1, implicit-tree convention; bits[0] unused.
}

func NewTreePLRU(numWays uint32) *TreePLRU {
	if numWays == 0 || numWays&(numWays-1) != 0 {
		panic(simerr.Newf(simerr.ConfigError, component, "TreePLRU way count %d is not a power of two", numWays))
	}
	levels := uint32(0)
	for n := numWays; n > 1; n >>= 1 {
		levels++
	}
	t := &TreePLRU{numWays: numWays, numLevels: levels, bits: make([]bool, numWays)}
	t.Reset()
	return t
}

func (t *TreePLRU) NumWays() uint32 { return t.numWays }

// Reset sets every bit to point toward way 0 as LRU and way N-1 as MRU.
func (t *TreePLRU) Reset() {
	for i := range t.bits {
		t.bits[i] = false
	}
}

func (t *TreePLRU) getWay(followMRU bool) uint32 {
	idx := uint32(1)
	for level := uint32(0); level < t.numLevels; level++ {
		bit := t.bits[idx]
		goRight := bit
		if followMRU {
			goRight = !bit
		}
		if goRight {
			idx = idx*2 + 1
		} else {
			idx = idx * 2
		}
	}
	return idx - t.numWays
}

func (t *TreePLRU) MRUWay() uint32 { return t.getWay(true) }
func (t *TreePLRU) LRUWay() uint32 { return t.getWay(false) }

// touch walks leaf->root, setting each ancestor's bit to point away from
// way (toward the opposite subtree), or toward way for touchLRU.
func (t *TreePLRU) touch(way uint32, mru bool) {
	checkWay(t.numWays, way)
	idx := way + t.numWays
	for idx > 1 {
		parent := idx / 2
		wentRight := idx%2 == 1
		// bit==true means "go right to find LRU". For touchMRU we point
		// away from the child we came from (opposite direction); for
		// touchLRU we point toward it.
		if mru {
			t.bits[parent] = !wentRight
		} else {
			t.bits[parent] = wentRight
		}
		idx = parent
	}
}

func (t *TreePLRU) TouchMRU(way uint32) { t.touch(way, true) }
func (t *TreePLRU) TouchLRU(way uint32) { t.touch(way, false) }

func (t *TreePLRU) Clone() Policy {
	cp := &TreePLRU{numWays: t.numWays, numLevels: t.numLevels, bits: make([]bool, len(t.bits))}
	copy(cp.bits, t.bits)
	return cp
}

func (t *TreePLRU) LockWay(way uint32) error { return unsupportedLockWay(t.numWays, way) }

// ---------------------------------------------------------------------
// HybridPLRU8: TrueLRU4 over 4 super-ways, plus 4 expansion bits.
// ---------------------------------------------------------------------

type HybridPLRU8 struct {
	top4      *TrueLRU4
	expansion [4]bool // expansion_lru_bits_[super-way]
}

func NewHybridPLRU8() *HybridPLRU8 {
	h := &HybridPLRU8{top4: NewTrueLRU4()}
	h.Reset()
	return h
}

func (h *HybridPLRU8) NumWays() uint32 { return 8 }

func (h *HybridPLRU8) MRUWay() uint32 {
	top := h.top4.MRUWay()
	bit := uint32(0)
	if !h.expansion[top] {
		bit = 1
	}
	return top<<1 + bit
}

func (h *HybridPLRU8) LRUWay() uint32 {
	top := h.top4.LRUWay()
	bit := uint32(0)
	if h.expansion[top] {
		bit = 1
	}
	return top<<1 + bit
}

func (h *HybridPLRU8) TouchMRU(way uint32) {
	checkWay(8, way)
	top := way >> 1
	expBit := way & 1
	h.top4.TouchMRU(top)
	h.expansion[top] = expBit == 0
}

func (h *HybridPLRU8) TouchLRU(way uint32) {
	checkWay(8, way)
	top := way >> 1
	expBit := way & 1
	h.top4.TouchLRU(top)
	h.expansion[top] = expBit == 1
}

func (h *HybridPLRU8) Reset() {
	h.top4.Reset()
	for i := range h.expansion {
		h.expansion[i] = false
	}
}

func (h *HybridPLRU8) Clone() Policy {
	cp := &HybridPLRU8{top4: h.top4.Clone().(*TrueLRU4), expansion: h.expansion}
	return cp
}

func (h *HybridPLRU8) LockWay(way uint32) error { return unsupportedLockWay(8, way) }

// ---------------------------------------------------------------------
// HybridPLRU16: two HybridPLRU8 halves, plus one top bit.
// ---------------------------------------------------------------------

type HybridPLRU16 struct {
	halves    [2]*HybridPLRU8
	topLRUBit bool
}

func NewHybridPLRU16() *HybridPLRU16 {
	h := &HybridPLRU16{halves: [2]*HybridPLRU8{NewHybridPLRU8(), NewHybridPLRU8()}}
	h.Reset()
	return h
}

func (h *HybridPLRU16) NumWays() uint32 { return 16 }

func (h *HybridPLRU16) MRUWay() uint32 {
	if !h.topLRUBit {
		return h.halves[1].MRUWay() + 8
	}
	return h.halves[0].MRUWay()
}

func (h *HybridPLRU16) LRUWay() uint32 {
	if h.topLRUBit {
		return h.halves[1].LRUWay() + 8
	}
	return h.halves[0].LRUWay()
}

func (h *HybridPLRU16) TouchMRU(way uint32) {
	checkWay(16, way)
	topBit := (way >> 3) & 1
	bottom := way & 7
	h.topLRUBit = topBit == 0
	h.halves[topBit].TouchMRU(bottom)
}

func (h *HybridPLRU16) TouchLRU(way uint32) {
	checkWay(16, way)
	topBit := (way >> 3) & 1
	bottom := way & 7
	h.topLRUBit = topBit == 1
	h.halves[topBit].TouchLRU(bottom)
}

func (h *HybridPLRU16) Reset() {
	h.halves[0].Reset()
	h.halves[1].Reset()
	h.topLRUBit = false
}

func (h *HybridPLRU16) Clone() Policy {
	cp := &HybridPLRU16{topLRUBit: h.topLRUBit}
	cp.halves[0] = h.halves[0].Clone().(*HybridPLRU8)
	cp.halves[1] = h.halves[1].Clone().(*HybridPLRU8)
	return cp
}

func (h *HybridPLRU16) LockWay(way uint32) error { return unsupportedLockWay(16, way) }

// ---------------------------------------------------------------------
// BubbleUp: ordered list; touch bubbles one position only.
// ---------------------------------------------------------------------

type BubbleUp struct {
	// order[0] is LRU, order[len-1] is MRU.
	order []uint32
}

func NewBubbleUp(numWays uint32) *BubbleUp {
	b := &BubbleUp{}
	b.initOrder(numWays)
	return b
}

func (b *BubbleUp) initOrder(numWays uint32) {
	b.order = make([]uint32, numWays)
	for i := range b.order {
		b.order[i] = uint32(i)
	}
}

func (b *BubbleUp) NumWays() uint32 { return uint32(len(b.order)) }

func (b *BubbleUp) indexOf(way uint32) int {
	for i, w := range b.order {
		if w == way {
			return i
		}
	}
	return -1
}

func (b *BubbleUp) TouchMRU(way uint32) {
	checkWay(b.NumWays(), way)
	i := b.indexOf(way)
	if i < len(b.order)-1 {
		b.order[i], b.order[i+1] = b.order[i+1], b.order[i]
	}
}

func (b *BubbleUp) TouchLRU(way uint32) {
	checkWay(b.NumWays(), way)
	i := b.indexOf(way)
	if i > 0 {
		b.order[i], b.order[i-1] = b.order[i-1], b.order[i]
	}
}

func (b *BubbleUp) MRUWay() uint32 { return b.order[len(b.order)-1] }
func (b *BubbleUp) LRUWay() uint32 { return b.order[0] }

func (b *BubbleUp) Reset() { b.initOrder(b.NumWays()) }

func (b *BubbleUp) Clone() Policy {
	cp := &BubbleUp{order: make([]uint32, len(b.order))}
	copy(cp.order, b.order)
	return cp
}

func (b *BubbleUp) LockWay(way uint32) error { return unsupportedLockWay(b.NumWays(), way) }

// ---------------------------------------------------------------------
// RoundRobin: a single counter.
// ---------------------------------------------------------------------

type RoundRobin struct {
	numWays uint32
	counter uint32
}

func NewRoundRobin(numWays uint32) *RoundRobin {
	return &RoundRobin{numWays: numWays}
}

func (r *RoundRobin) NumWays() uint32 { return r.numWays }

func (r *RoundRobin) MRUWay() uint32 { return (r.counter + r.numWays - 1) % r.numWays }
func (r *RoundRobin) LRUWay() uint32 { return r.counter }

func (r *RoundRobin) TouchMRU(way uint32) {
	checkWay(r.numWays, way)
	r.counter = (way + 1) % r.numWays
}

func (r *RoundRobin) TouchLRU(way uint32) {
	checkWay(r.numWays, way)
	r.counter = way
}

func (r *RoundRobin) Reset() { r.counter = 0 }

func (r *RoundRobin) Clone() Policy {
	cp := *r
	return &cp
}

func (r *RoundRobin) LockWay(way uint32) error { return unsupportedLockWay(r.numWays, way) }

// ---------------------------------------------------------------------
// Random: touch is a no-op, way selection is uniform random from a
// deterministic seed (required for tests).
// ---------------------------------------------------------------------

type Random struct {
	numWays uint32
	rng     *rand.Rand
	seed    int64
}

func NewRandom(numWays uint32, seed int64) *Random {
	return &Random{numWays: numWays, rng: rand.New(rand.NewSource(seed)), seed: seed}
}

func (r *Random) NumWays() uint32 { return r.numWays }

func (r *Random) MRUWay() uint32 { return uint32(r.rng.Intn(int(r.numWays))) }
func (r *Random) LRUWay() uint32 { return uint32(r.rng.Intn(int(r.numWays))) }

func (r *Random) TouchMRU(way uint32) { checkWay(r.numWays, way) }
func (r *Random) TouchLRU(way uint32) { checkWay(r.numWays, way) }

func (r *Random) Reset() { r.rng = rand.New(rand.NewSource(r.seed)) }

func (r *Random) Clone() Policy {
	return &Random{numWays: r.numWays, rng: rand.New(rand.NewSource(r.seed)), seed: r.seed}
}

func (r *Random) LockWay(way uint32) error { return unsupportedLockWay(r.numWays, way) }
