package main

// memoryImage is a sparse byte-addressable backing store standing in for
// "the rest of the memory hierarchy" below the simulated cache. It has no
// analogue in the core library: a real embedding supplies its own
// NextLevel (a real DRAM model, a trace replay target, ...), this one just
// makes the CLI runnable standalone.
type memoryImage struct {
	blocks map[uint64][]byte
}

func newMemoryImage() *memoryImage {
	return &memoryImage{blocks: make(map[uint64][]byte)}
}

func (m *memoryImage) block(addr uint64, size int) []byte {
	b, ok := m.blocks[addr]
	if !ok {
		b = make([]byte, size)
		m.blocks[addr] = b
	}
	return b
}

func (m *memoryImage) Castout(addr uint64, data []byte) error {
	copy(m.block(addr, len(data)), data)
	return nil
}

func (m *memoryImage) Reload(addr uint64, out []byte) error {
	copy(out, m.block(addr, len(out)))
	return nil
}

func (m *memoryImage) WriteNextLevel(addr uint64, size uint64, data []byte) error {
	b := m.block(addr&^(size-1), int(size))
	copy(b, data[:size])
	return nil
}
