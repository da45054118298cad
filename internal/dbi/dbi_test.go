package dbi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skdltmxn/pdbview/internal/pdbtest"
)

func TestParseStream(t *testing.T) {
	data := pdbtest.DBI{
		Age:        3,
		Machine:    0x8664,
		SymRecords: 7,
		Modules: []pdbtest.Module{
			{Name: `d:\obj\main.obj`, ObjName: `d:\obj\main.obj`, Stream: 9},
			{Name: "* Linker *", Stream: 0xFFFF},
		},
		DbgHeader: []uint16{0xFFFF, 0xFFFF, 0xFFFF, 0xFFFF, 0xFFFF, 12},
	}.Bytes()

	s, err := ParseStream(data)
	require.NoError(t, err)
	assert.Equal(t, VersionV70, s.Header.VersionHeader)
	assert.Equal(t, uint32(3), s.Header.Age)
	assert.Equal(t, uint16(0x8664), s.Header.Machine)
	assert.Equal(t, uint16(7), s.Header.SymRecordStreamIndex)

	require.Len(t, s.Modules, 2)
	assert.Equal(t, `d:\obj\main.obj`, s.Modules[0].ModuleName)
	assert.Equal(t, uint16(9), s.Modules[0].ModuleSymStreamIndex)
	assert.True(t, s.Modules[0].HasStream())
	assert.Equal(t, "* Linker *", s.Modules[1].ModuleName)
	assert.Empty(t, s.Modules[1].ObjFileName)
	assert.False(t, s.Modules[1].HasStream())

	require.NotNil(t, s.OptionalDbgStreams)
	assert.Equal(t, uint16(12), s.OptionalDbgStreams.SectionHdrStreamIndex)
	assert.Equal(t, InvalidStreamIndex, s.OptionalDbgStreams.SectionHdrOrigStreamIndex, "short header")
}

func TestParseStreamWithoutDebugHeader(t *testing.T) {
	s, err := ParseStream(pdbtest.DBI{Age: 1}.Bytes())
	require.NoError(t, err)
	assert.Empty(t, s.Modules)
	assert.Nil(t, s.OptionalDbgStreams)
}

func TestParseStreamErrors(t *testing.T) {
	_, err := ParseStream(make([]byte, 10))
	assert.ErrorIs(t, err, ErrInvalidHeader)

	data := pdbtest.DBI{}.Bytes()
	data[0] = 0
	_, err = ParseStream(data)
	assert.ErrorIs(t, err, ErrInvalidHeader)

	data = pdbtest.DBI{Modules: []pdbtest.Module{{Name: "a.obj"}}}.Bytes()
	_, err = ParseStream(data[:len(data)-8])
	assert.ErrorIs(t, err, ErrTruncatedStream)
}

func TestModuleStreamFileChecksums(t *testing.T) {
	md5 := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}
	mod := pdbtest.Module{
		Name:    "main.obj",
		Symbols: pdbtest.Symbol(0x1101, (&pdbtest.Writer{}).U32(0).Str("main.obj").Bytes()),
		C13: append(
			pdbtest.Subsection(DebugSubsectionLines, []byte{1, 2, 3}),
			pdbtest.FileChecksums(
				pdbtest.FileChecksum{NameOffset: 1, Kind: 1, Sum: md5},
				pdbtest.FileChecksum{NameOffset: 10, Kind: 0},
			)...,
		),
	}
	s, err := ParseStream(pdbtest.DBI{Modules: []pdbtest.Module{mod}}.Bytes())
	require.NoError(t, err)

	ms, err := ParseModuleStream(&s.Modules[0], mod.StreamBytes())
	require.NoError(t, err)
	assert.Equal(t, mod.Symbols, ms.Symbols)

	sums, err := ms.FileChecksums()
	require.NoError(t, err)
	require.Len(t, sums, 2)
	assert.Equal(t, FileChecksum{NameOffset: 1, Kind: ChecksumMD5, Checksum: md5}, sums[0])
	assert.Equal(t, uint32(10), sums[1].NameOffset)
	assert.Equal(t, ChecksumNone, sums[1].Kind)
	assert.Empty(t, sums[1].Checksum)
	assert.Equal(t, "Md5", sums[0].Kind.String())
}

func TestModuleStreamWithoutLines(t *testing.T) {
	mod := pdbtest.Module{Name: "a.obj"}
	ms, err := ParseModuleStream(&ModuleInfo{SymByteSize: 4}, mod.StreamBytes())
	require.NoError(t, err)
	assert.Empty(t, ms.Symbols)

	sums, err := ms.FileChecksums()
	require.NoError(t, err)
	assert.Nil(t, sums)
}

func TestModuleStreamErrors(t *testing.T) {
	_, err := ParseModuleStream(&ModuleInfo{SymByteSize: 8}, []byte{1, 0, 0, 0, 0, 0, 0, 0})
	assert.ErrorIs(t, err, ErrInvalidModuleStream)

	_, err = ParseModuleStream(&ModuleInfo{SymByteSize: 64}, []byte{4, 0, 0, 0})
	assert.ErrorIs(t, err, ErrInvalidModuleStream)

	ms := &ModuleStream{C13: pdbtest.Subsection(DebugSubsectionFileChecksums, nil)[:4]}
	_, err = ms.FileChecksums()
	assert.Error(t, err)
}
