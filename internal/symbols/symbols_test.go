package symbols

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skdltmxn/pdbview/internal/pdbtest"
)

func collect(t *testing.T, data []byte) []*SymbolRecord {
	t.Helper()
	var out []*SymbolRecord
	it := NewSymbolIterator(data)
	for {
		rec, err := it.Next()
		require.NoError(t, err)
		if rec == nil {
			return out
		}
		out = append(out, rec)
	}
}

func TestSymbolIterator(t *testing.T) {
	data := bytes.Join([][]byte{
		pdbtest.Pub32(3, 0x10, 1, "main"),
		pdbtest.Data(pdbtest.SymGData32, 0x74, 0x20, 2, "g_counter"),
		pdbtest.BuildInfoSymbol(0x1003),
	}, nil)

	recs := collect(t, data)
	require.Len(t, recs, 3)
	assert.Equal(t, S_PUB32, recs[0].Kind)
	assert.Equal(t, 0, recs[0].Offset)
	assert.Equal(t, S_GDATA32, recs[1].Kind)
	assert.Equal(t, len(pdbtest.Pub32(3, 0x10, 1, "main")), recs[1].Offset)
	assert.Equal(t, S_BUILDINFO, recs[2].Kind)
	assert.Equal(t, "S_BUILDINFO", recs[2].Kind.String())
}

func TestSymbolIteratorStopsOnBadFraming(t *testing.T) {
	good := pdbtest.Pub32(0, 0, 1, "a")
	data := append(bytes.Clone(good), 0x40, 0x00, 0x0e, 0x11)

	it := NewSymbolIterator(data)
	rec, err := it.Next()
	require.NoError(t, err)
	require.NotNil(t, rec)

	_, err = it.Next()
	assert.ErrorIs(t, err, ErrUnexpectedEnd)

	rec, err = it.Next()
	assert.NoError(t, err)
	assert.Nil(t, rec, "iteration ends after a framing error")

	_, _, err = ParseSymbolRecord([]byte{1, 0, 0, 0})
	assert.ErrorIs(t, err, ErrInvalidSymbolRecord)
}

func TestParsePublicSym32(t *testing.T) {
	recs := collect(t, pdbtest.Pub32(0x0B, 0x1234, 1, "?Run@@YAXXZ"))
	pub, err := ParsePublicSym32(recs[0].Data)
	require.NoError(t, err)
	assert.Equal(t, "?Run@@YAXXZ", pub.Name)
	assert.Equal(t, SectionOffset{Offset: 0x1234, Section: 1}, pub.Address)
	assert.True(t, pub.Flags.IsCode())
	assert.True(t, pub.Flags.IsFunction())
	assert.False(t, pub.Flags.IsManaged())
	assert.True(t, pub.Flags.IsMSIL())
}

func TestParseProcSym(t *testing.T) {
	tests := []struct {
		kind   uint16
		global bool
		dpc    bool
	}{
		{pdbtest.SymGProc32, true, false},
		{pdbtest.SymLProc32, false, false},
		{pdbtest.SymGProc32ID, true, false},
		{pdbtest.SymLProcDPC, false, true},
	}
	for _, tt := range tests {
		data := pdbtest.Proc{Kind: tt.kind, Len: 0x40, DbgStart: 4, DbgEnd: 0x3c, Type: 0x1001, Offset: 0x100, Section: 1, Name: "f"}.Bytes()
		rec := collect(t, data)[0]
		require.True(t, rec.Kind.IsProc())

		p, err := ParseProcSym(rec.Kind, rec.Data)
		require.NoError(t, err)
		assert.Equal(t, "f", p.Name)
		assert.Equal(t, uint32(0x40), p.CodeSize)
		assert.Equal(t, uint32(4), p.DbgStart)
		assert.Equal(t, uint32(0x3c), p.DbgEnd)
		assert.EqualValues(t, 0x1001, p.FunctionType)
		assert.Equal(t, SectionOffset{Offset: 0x100, Section: 1}, p.Address)
		assert.Equal(t, tt.global, p.Global, rec.Kind.String())
		assert.Equal(t, tt.dpc, p.DPC, rec.Kind.String())
	}

	_, err := ParseProcSym(S_GPROC32, make([]byte, 10))
	assert.Error(t, err)
}

func TestParseDataSym(t *testing.T) {
	rec := collect(t, pdbtest.Data(pdbtest.SymGManData, 0x1002, 8, 3, "s_table"))[0]
	require.True(t, rec.Kind.IsData())
	d, err := ParseDataSym(rec.Kind, rec.Data)
	require.NoError(t, err)
	assert.Equal(t, "s_table", d.Name)
	assert.EqualValues(t, 0x1002, d.Type)
	assert.True(t, d.Global)
	assert.True(t, d.Managed)

	rec = collect(t, pdbtest.Data(pdbtest.SymLData32, 0x74, 8, 3, "local"))[0]
	d, err = ParseDataSym(rec.Kind, rec.Data)
	require.NoError(t, err)
	assert.False(t, d.Global)
	assert.False(t, d.Managed)
}

func TestParseCompileSym(t *testing.T) {
	flags := uint32(0x01) | 1<<10 | 1<<13 | 1<<17
	rec := collect(t, pdbtest.Compile3(flags, 0xD0, [4]uint16{19, 29, 30133, 2}, [4]uint16{19, 29, 30133, 0}, "Microsoft (R) Optimizing Compiler"))[0]

	c, err := ParseCompileSym(rec.Kind, rec.Data)
	require.NoError(t, err)
	assert.Equal(t, "Cpp", c.Flags.Language().String())
	assert.Equal(t, "X64", c.Machine.String())
	assert.True(t, c.Flags.LinkTimeCodegen())
	assert.True(t, c.Flags.SecurityChecks())
	assert.True(t, c.Flags.SDL())
	assert.False(t, c.Flags.Managed())
	assert.False(t, c.Flags.PGO())
	assert.Equal(t, uint16(30133), c.Frontend.Build)
	require.NotNil(t, c.Frontend.QFE)
	assert.Equal(t, uint16(2), *c.Frontend.QFE)
	assert.Equal(t, "Microsoft (R) Optimizing Compiler", c.Version)

	w := &pdbtest.Writer{}
	w.U32(0).U16(0x07).U16(12).U16(0).U16(1).U16(12).U16(0).U16(2).Str("old")
	c, err = ParseCompileSym(S_COMPILE2, w.Bytes())
	require.NoError(t, err)
	assert.Nil(t, c.Frontend.QFE)
	assert.Equal(t, uint16(2), c.Backend.Build)
	assert.Equal(t, "C", c.Flags.Language().String())
	assert.Equal(t, "Pentium3", c.Machine.String())
	assert.Equal(t, "old", c.Version)
}

func TestParseBuildInfo(t *testing.T) {
	rec := collect(t, pdbtest.BuildInfoSymbol(0x1003))[0]
	b, err := ParseBuildInfoSym(rec.Data)
	require.NoError(t, err)
	assert.EqualValues(t, 0x1003, b.ID)
}

func TestNames(t *testing.T) {
	assert.Equal(t, "Language(0x7F)", Language(0x7F).String())
	assert.Equal(t, "CPUType(0x1234)", CPUType(0x1234).String())
	assert.Equal(t, "S_(0x9999)", SymbolRecordKind(0x9999).String())
}
