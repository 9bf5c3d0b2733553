package txndb

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type capturingSink struct {
	annotations  []Annotation
	instructions []Instruction
	memops       []MemoryOperation
	pairs        []Pair
}

func (c *capturingSink) OnAnnotation(r *Annotation)   { c.annotations = append(c.annotations, *r) }
func (c *capturingSink) OnInstruction(r *Instruction) { c.instructions = append(c.instructions, *r) }
func (c *capturingSink) OnMemory(r *MemoryOperation)  { c.memops = append(c.memops, *r) }
func (c *capturingSink) OnPair(r *Pair)               { c.pairs = append(c.pairs, *r) }

func encodeTxn(t *testing.T, buf *bytes.Buffer, timeStart, timeEnd, parent, txnID, dispID uint64, loc uint32, flags uint16) {
	txn := Txn{
		TimeStart:     timeStart,
		TimeEnd:       timeEnd,
		ParentID:      parent,
		TransactionID: txnID,
		DisplayID:     dispID,
		LocationID:    loc,
		Flags:         flags,
	}
	require.NoError(t, binary.Write(buf, binary.LittleEndian, txn))
}

func encodeAnnotation(t *testing.T, timeStart, timeEnd uint64, txnID uint64, text string) []byte {
	var buf bytes.Buffer
	encodeTxn(t, &buf, timeStart, timeEnd, 0, txnID, 0, 0, uint16(KindAnnotation))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(len(text))))
	buf.WriteString(text)
	return buf.Bytes()
}

func encodePair(t *testing.T, timeStart, timeEnd uint64, txnID uint64, loc uint32, value uint32) []byte {
	var buf bytes.Buffer
	encodeTxn(t, &buf, timeStart, timeEnd, 0, txnID, 0, loc, uint16(KindPair))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, value))
	return buf.Bytes()
}

// buildTestDatabase lays out the scenario from the test-property section:
// heartbeat=1000, three annotations ending at t=500,1500,2500 and one pair
// record ending at t=1800, referencing pair id 5 whose single integer
// field has a string_map entry for value 7.
func buildTestDatabase(t *testing.T) string {
	dir := t.TempDir()

	r1 := encodeAnnotation(t, 0, 500, 1, "ann1")
	r2 := encodeAnnotation(t, 1000, 1500, 2, "ann2")
	r3 := encodePair(t, 1200, 1800, 3, 42, 7)
	r4 := encodeAnnotation(t, 2000, 2500, 4, "ann3")

	posR1 := int64(0)
	posR2 := posR1 + int64(len(r1))
	posR3 := posR2 + int64(len(r2))
	posR4 := posR3 + int64(len(r3))

	var record bytes.Buffer
	record.Write(r1)
	record.Write(r2)
	record.Write(r3)
	record.Write(r4)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "record.bin"), record.Bytes(), 0o644))

	var index bytes.Buffer
	header := make([]byte, HeaderSize)
	copy(header, HeaderPrefix)
	copy(header[len(HeaderPrefix):], "2")
	index.Write(header)
	require.NoError(t, binary.Write(&index, binary.LittleEndian, uint64(1000)))
	require.NoError(t, binary.Write(&index, binary.LittleEndian, uint64(posR1))) // bucket 0
	require.NoError(t, binary.Write(&index, binary.LittleEndian, uint64(posR2))) // bucket 1
	require.NoError(t, binary.Write(&index, binary.LittleEndian, uint64(posR4))) // bucket 2
	// The last index entry always points to the start of the last record,
	// duplicating bucket 2 here; findRecordReadPos treats the final entry
	// as unreachable by design (it exists only for findCycleLast), so a
	// real bucket-2 lookup needs bucket 2 to NOT be the last entry.
	require.NoError(t, binary.Write(&index, binary.LittleEndian, uint64(posR4)))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.bin"), index.Bytes(), 0o644))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "map.dat"), []byte("42:5\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.dat"), []byte("5:1:val1:4:0\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "display_format.dat"), []byte("5:0\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "string_map.dat"), []byte("5:0:7:seven\n"), 0o644))

	_ = posR3 // only used to document layout; pair record location is found via the index, not this offset
	return dir
}

func TestReaderGetWindowScenario(t *testing.T) {
	dir := buildTestDatabase(t)

	sink := &capturingSink{}
	r, err := New(dir, sink)
	require.NoError(t, err)
	defer r.Close()

	require.Equal(t, uint32(2), r.GetVersion())
	require.Equal(t, uint64(1000), r.GetChunkSize())
	require.Equal(t, uint64(0), r.GetCycleFirst())
	require.Equal(t, uint64(2499), r.GetCycleLast())

	require.NoError(t, r.GetWindow(0, 1000))
	require.Len(t, sink.annotations, 1)
	require.Equal(t, "ann1", sink.annotations[0].Text)
	require.Empty(t, sink.pairs)

	sink.annotations = nil
	require.NoError(t, r.GetWindow(1000, 2000))
	require.Len(t, sink.annotations, 1)
	require.Equal(t, "ann2", sink.annotations[0].Text)
	require.Len(t, sink.pairs, 1)
	require.Equal(t, uint16(5), sink.pairs[0].PairID)
	require.Equal(t, "seven", sink.pairs[0].Strings[1])
	require.EqualValues(t, 7, sink.pairs[0].Values[1].IntValue)

	sink.annotations = nil
	sink.pairs = nil
	require.NoError(t, r.GetWindow(2000, 3000))
	require.Len(t, sink.annotations, 1)
	require.Equal(t, "ann3", sink.annotations[0].Text)
	require.Empty(t, sink.pairs)
}

func TestReaderReentrantGetWindowFails(t *testing.T) {
	dir := buildTestDatabase(t)
	sink := &capturingSink{}
	r, err := New(dir, sink)
	require.NoError(t, err)
	defer r.Close()

	r.locked = true
	err = r.GetWindow(0, 1000)
	require.Error(t, err)
}

func TestReaderDumpIndexTransactions(t *testing.T) {
	dir := buildTestDatabase(t)
	sink := &capturingSink{}
	r, err := New(dir, sink)
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.DumpIndexTransactions())
	// The real sink must be restored and untouched by the audit pass.
	require.Empty(t, sink.annotations)
	require.Empty(t, sink.pairs)
}

func TestReaderIsUpdatedNoChange(t *testing.T) {
	dir := buildTestDatabase(t)
	sink := &capturingSink{}
	r, err := New(dir, sink)
	require.NoError(t, err)
	defer r.Close()

	updated, err := r.IsUpdated()
	require.NoError(t, err)
	require.False(t, updated)
}
