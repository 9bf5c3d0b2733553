package addrdecode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultBlockAddressPlusOffset(t *testing.T) {
	d, err := NewDefault(64, 64, 256)
	require.NoError(t, err)

	addrs := []uint64{0, 1, 63, 64, 0xDEADBEEF, 0xFFFFFFFFFFFFFFFF}
	for _, a := range addrs {
		require.Equal(t, a, d.BlockAddress(a)+d.BlockOffset(a))
		require.Less(t, d.Index(a), uint32(256))
	}
}

func TestDefaultRejectsBadGeometry(t *testing.T) {
	_, err := NewDefault(63, 64, 256)
	require.Error(t, err)

	_, err = NewDefault(64, 32, 256)
	require.Error(t, err)

	_, err = NewDefault(64, 64, 3)
	require.Error(t, err)
}

func TestHashIndexWidth(t *testing.T) {
	h, err := NewHash(64, 64, 256, []BitSubset{{12, 20}, {13, 21}})
	require.NoError(t, err)

	// only the low 2 bits of the index may differ from the base decoder.
	base := h.Default.Index(0x1234)
	hashed := h.Index(0x1234)
	require.Equal(t, base&^uint32(3), hashed&^uint32(3))
}

func TestHashRejectsTooManySubsets(t *testing.T) {
	subsets := make([]BitSubset, 16)
	_, err := NewHash(64, 64, 256, subsets)
	require.Error(t, err)
}
