package tpi

import (
	"encoding/binary"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skdltmxn/pdbview/internal/pdbtest"
)

func TestParseStream(t *testing.T) {
	data := pdbtest.TypeStream(0x1000,
		pdbtest.Pointer(0x74, pdbtest.PtrNear64),
		pdbtest.Modifier(0x1000, 1),
	)

	s, err := ParseStream(data)
	require.NoError(t, err)
	assert.Equal(t, TPIVersionV80, s.Header.Version)
	assert.Equal(t, uint32(2), s.Header.TypeCount())

	rec, ok := s.Record(0x1001)
	require.True(t, ok)
	assert.Equal(t, LF_MODIFIER, rec.Kind)

	_, ok = s.Record(0x74)
	assert.False(t, ok)
	_, ok = s.Record(0x1002)
	assert.False(t, ok)

	assert.Equal(t, []TypeIndex{0x1000, 0x1001}, slices.Collect(s.Indices()))
}

func TestParseStreamRejectsBadHeader(t *testing.T) {
	_, err := ParseStream(make([]byte, 10))
	assert.ErrorIs(t, err, ErrInvalidTPIHeader)

	data := pdbtest.TypeStream(0x1000)
	data[0] = 1
	_, err = ParseStream(data)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestParseStreamTruncatedRecord(t *testing.T) {
	data := pdbtest.TypeStream(0x1000, pdbtest.Pointer(0x74, pdbtest.PtrNear64))
	// Claim a longer record than the stream holds.
	data[TPIHeaderSize] = 0x40
	_, err := ParseStream(data)
	assert.ErrorIs(t, err, ErrInvalidTypeRecord)
}

func TestParseStreamBoundsRecordCount(t *testing.T) {
	data := pdbtest.TypeStream(0x1000, pdbtest.Pointer(0x74, pdbtest.PtrNear64))
	// TypeIndexEnd claims about four billion records.
	binary.LittleEndian.PutUint32(data[12:], 0xFFFFFFF0)

	s, err := ParseStream(data)
	require.NoError(t, err)
	assert.Len(t, s.records, 1)
	assert.LessOrEqual(t, cap(s.records), (len(data)-TPIHeaderSize)/4)
}
