package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadLeafNumeric(t *testing.T) {
	tests := []struct {
		name  string
		data  []byte
		leaf  uint16
		value uint64
	}{
		{"inline", []byte{0x34, 0x12}, 0, 0x1234},
		{"char", []byte{0x00, 0x80, 0xff}, LeafChar, 0xffffffffffffffff},
		{"short", []byte{0x01, 0x80, 0xfe, 0xff}, LeafShort, 0xfffffffffffffffe},
		{"ushort", []byte{0x02, 0x80, 0xfe, 0xff}, LeafUShort, 0xfffe},
		{"long", []byte{0x03, 0x80, 0x00, 0x00, 0x00, 0x80}, LeafLong, 0xffffffff80000000},
		{"ulong", []byte{0x04, 0x80, 0x00, 0x00, 0x00, 0x80}, LeafULong, 0x80000000},
		{"uquad", []byte{0x0a, 0x80, 1, 0, 0, 0, 0, 0, 0, 0x80}, LeafUQuadWord, 0x8000000000000001},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(tt.data)
			n, err := r.ReadLeafNumeric()
			require.NoError(t, err)
			assert.Equal(t, tt.leaf, n.Leaf)
			assert.Equal(t, tt.value, n.Value)
			assert.Zero(t, r.Remaining())
		})
	}
}

func TestReadLeafNumericRejectsUnknownLeaf(t *testing.T) {
	r := NewReader([]byte{0x05, 0x80, 0, 0, 0, 0})
	_, err := r.ReadLeafNumeric()
	assert.ErrorIs(t, err, ErrInvalidNumeric)
}

func TestReadCString(t *testing.T) {
	r := NewReader([]byte("abc\x00de\x00f"))
	s, err := r.ReadCString()
	require.NoError(t, err)
	assert.Equal(t, "abc", s)

	s, err = r.ReadCString()
	require.NoError(t, err)
	assert.Equal(t, "de", s)

	_, err = r.ReadCString()
	assert.ErrorIs(t, err, ErrUnexpectedEOF)
}

func TestAlignAndSkip(t *testing.T) {
	r := NewReader(make([]byte, 16))
	require.NoError(t, r.Skip(5))
	r.Align(4)
	assert.Equal(t, 8, r.Offset())
	assert.ErrorIs(t, r.Skip(9), ErrUnexpectedEOF)
	assert.ErrorIs(t, r.Skip(-1), ErrNegativeLength)
}

func TestSubReader(t *testing.T) {
	r := NewReader([]byte{1, 2, 3, 4, 5})
	sub, err := r.SubReader(3)
	require.NoError(t, err)
	assert.Equal(t, 3, sub.Remaining())
	assert.Equal(t, 2, r.Remaining())
}

func TestPeek(t *testing.T) {
	r := NewReader([]byte{0x04, 0x80, 0x01})
	v, err := r.PeekU16()
	require.NoError(t, err)
	assert.Equal(t, LeafULong, v)
	b, err := r.PeekU8()
	require.NoError(t, err)
	assert.Equal(t, uint8(0x04), b)
	assert.Equal(t, 0, r.Offset())

	require.NoError(t, r.Skip(2))
	_, err = r.PeekU16()
	assert.ErrorIs(t, err, ErrUnexpectedEOF)
}
