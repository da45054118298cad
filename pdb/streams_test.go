package pdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skdltmxn/pdbview/internal/pdbtest"
	"github.com/skdltmxn/pdbview/internal/symbols"
)

func TestParseInfo(t *testing.T) {
	info, err := parseInfo(pdbtest.Info(7, 2, testGUID,
		pdbtest.NamedStream{Name: "/LinkInfo", Index: 5},
		pdbtest.NamedStream{Name: "/names", Index: 12},
	))
	require.NoError(t, err)
	assert.Equal(t, InfoVersionVC70, info.Version)
	assert.Equal(t, uint32(7), info.Signature)
	assert.Equal(t, uint32(2), info.Age)
	assert.Equal(t, map[string]uint32{"/LinkInfo": 5, "/names": 12}, info.NamedStreams)

	_, err = parseInfo(make([]byte, 10))
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "PDB info", pe.Stream)
}

func TestStringTable(t *testing.T) {
	data, offs := pdbtest.Names("a.c", "b.h")
	st, err := parseStringTable(data)
	require.NoError(t, err)

	s, err := st.Get(offs[1])
	require.NoError(t, err)
	assert.Equal(t, "b.h", s)

	s, err = st.Get(0)
	require.NoError(t, err)
	assert.Empty(t, s)

	_, err = st.Get(1000)
	assert.ErrorIs(t, err, ErrInvalidStream)

	data[0] = 0
	_, err = parseStringTable(data)
	assert.ErrorIs(t, err, ErrInvalidStream)
}

func TestSectionHeaders(t *testing.T) {
	sh, err := parseSectionHeaders(pdbtest.Sections(
		pdbtest.Section{Name: ".text", VirtualAddress: 0x1000},
		pdbtest.Section{Name: ".rdata", VirtualAddress: 0x5000},
	))
	require.NoError(t, err)
	require.Len(t, sh.sections, 2)
	assert.Equal(t, [8]byte{'.', 'r', 'd', 'a', 't', 'a'}, sh.sections[1].Name)
	assert.Equal(t, uint32(0x5000), sh.sections[1].VirtualAddress)

	tests := []struct {
		addr symbols.SectionOffset
		rva  uint32
		ok   bool
	}{
		{symbols.SectionOffset{Section: 1, Offset: 0x10}, 0x1010, true},
		{symbols.SectionOffset{Section: 2, Offset: 0}, 0x5000, true},
		{symbols.SectionOffset{Section: 0, Offset: 0x10}, 0, false},
		{symbols.SectionOffset{Section: 3, Offset: 0x10}, 0, false},
		{symbols.SectionOffset{Section: 2, Offset: 0xFFFFFFFF}, 0, false},
	}
	for _, tt := range tests {
		rva, ok := sh.RVA(tt.addr)
		assert.Equal(t, tt.ok, ok, "%+v", tt.addr)
		assert.Equal(t, tt.rva, rva, "%+v", tt.addr)
	}

	_, err = parseSectionHeaders(make([]byte, 41))
	assert.ErrorIs(t, err, ErrInvalidStream)
}

func TestModelStrings(t *testing.T) {
	assert.Equal(t, "V110", Version(InfoVersionVC140).String())
	assert.Equal(t, "Other(5)", Version(5).String())
	assert.Equal(t, "Arm64", MachineType(0xaa64).String())
	assert.Equal(t, "Invalid", MachineType(0x1234).String())
	assert.False(t, MachineType(0x1234).Known())
}
