package pdb

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skdltmxn/pdbview/internal/pdbtest"
	"github.com/skdltmxn/pdbview/typeinfo"
)

var testGUID = [16]byte{
	0x78, 0x56, 0x34, 0x12, 0x34, 0x12, 0x78, 0x56,
	0x9a, 0xbc, 0xde, 0xf0, 0x12, 0x34, 0x56, 0x78,
}

// testImage describes the streams of a synthetic PDB. Stream indices are
// fixed: 5 names, 6 global symbols, 7 section headers, 8 module.
type testImage struct {
	noIPI      bool
	noSections bool
	globals    [][]byte
	module     [][]byte
	modules    []pdbtest.Module
}

func (ti testImage) bytes() []byte {
	names, offs := pdbtest.Names("c:\\src\\foo.cpp", "c:\\src\\foo.h")

	c13 := pdbtest.FileChecksums(
		pdbtest.FileChecksum{NameOffset: offs[0], Kind: 1, Sum: bytes.Repeat([]byte{0xab}, 16)},
		pdbtest.FileChecksum{NameOffset: offs[1], Kind: 0},
	)

	mod := pdbtest.Module{Name: "foo.obj", ObjName: "foo.obj", Stream: 8, Symbols: bytes.Join(ti.module, nil), C13: c13}
	modules := append([]pdbtest.Module{mod}, ti.modules...)

	dbg := []uint16{0xFFFF, 0xFFFF, 0xFFFF, 0xFFFF, 0xFFFF, 7}
	if ti.noSections {
		dbg[5] = 0xFFFF
	}

	ipi := pdbtest.TypeStream(0x1000,
		pdbtest.StringID("cl.exe"),         // 0x1000
		pdbtest.StringID("-c foo.cpp"),     // 0x1001
		pdbtest.BuildInfo(0x1000, 0x1001),  // 0x1002
		pdbtest.FuncID(0, 0x1001, "by_id"), // 0x1003
	)
	if ti.noIPI {
		ipi = nil
	}

	return pdbtest.MSF(512,
		[]byte{},
		pdbtest.Info(0x5f5e100, 2, testGUID, pdbtest.NamedStream{Name: "/names", Index: 5}),
		pdbtest.TypeStream(0x1000,
			pdbtest.ArgList(0x74),                                                // 0x1000
			pdbtest.Procedure(0x74, 1, 0x1000),                                   // 0x1001
			pdbtest.Class{Name: "Foo", UniqueName: ".?AVFoo@@", Size: 8}.Bytes(), // 0x1002
		),
		pdbtest.DBI{Age: 3, Machine: 0x8664, SymRecords: 6, Modules: modules, DbgHeader: dbg}.Bytes(),
		ipi,
		names,
		bytes.Join(ti.globals, nil),
		pdbtest.Sections(
			pdbtest.Section{Name: ".text", VirtualSize: 0x2000, VirtualAddress: 0x1000},
			pdbtest.Section{Name: ".data", VirtualSize: 0x1000, VirtualAddress: 0x3000},
		),
		mod.StreamBytes(),
	)
}

func parseImage(t *testing.T, ti testImage, opts Options) (*ParsedPDB, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	opts.Logger = slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	image := ti.bytes()
	out, err := ParseReader(context.Background(), bytes.NewReader(image), int64(len(image)), "test.pdb", opts)
	require.NoError(t, err)
	return out, &logs
}

func fullImage() testImage {
	return testImage{
		globals: [][]byte{
			pdbtest.Pub32(0x03, 0x10, 1, "?pub@@YAXXZ"),
			pdbtest.Data(pdbtest.SymGData32, 0x1002, 0x20, 2, "g_foo"),
			pdbtest.Data(pdbtest.SymLData32, 0x74, 0x24, 2, "s_local"),
		},
		module: [][]byte{
			pdbtest.Compile3(0x01, 0xD0, [4]uint16{19, 29, 30133, 1}, [4]uint16{19, 29, 30133, 2}, "Microsoft (R) Optimizing Compiler"),
			pdbtest.BuildInfoSymbol(0x1002),
			pdbtest.Proc{Kind: pdbtest.SymGProc32, Len: 0x30, DbgStart: 4, DbgEnd: 0x2c, Type: 0x1001, Offset: 0x100, Section: 1, Name: "main"}.Bytes(),
			pdbtest.Proc{Kind: pdbtest.SymGProc32ID, Len: 8, Type: 0x1003, Offset: 0x200, Section: 1, Name: "by_id"}.Bytes(),
			pdbtest.Proc{Kind: pdbtest.SymLProcDPC, Len: 4, Type: 0x1001, Name: "dpc"}.Bytes(),
		},
		modules: []pdbtest.Module{{Name: "* Linker *", Stream: 0xFFFF}},
	}
}

func TestParse(t *testing.T) {
	out, logs := parseImage(t, fullImage(), Options{})

	assert.Equal(t, "test.pdb", out.Path)
	assert.Equal(t, "V70", out.Version.String())
	assert.Equal(t, "12345678-1234-5678-9abc-def012345678", out.GUID.String())
	assert.Equal(t, uint32(3), out.Age)
	assert.Equal(t, uint32(0x5f5e100), out.Timestamp)
	assert.Equal(t, "Amd64", out.MachineType.String())
	assert.Len(t, out.Types, 4) // three records and int32_t

	require.Len(t, out.PublicSymbols, 1)
	pub := out.PublicSymbols[0]
	assert.Equal(t, "?pub@@YAXXZ", pub.Name)
	assert.True(t, pub.IsCode)
	assert.True(t, pub.IsFunction)
	assert.False(t, pub.IsManaged)
	require.NotNil(t, pub.Offset)
	assert.Equal(t, uint64(0x1010), *pub.Offset)

	require.Len(t, out.GlobalData, 1, "local data is not kept")
	g := out.GlobalData[0]
	assert.Equal(t, "g_foo", g.Name)
	assert.True(t, g.IsGlobal)
	assert.Equal(t, typeinfo.TypeIndex(0x1002), g.TypeIndex)
	require.IsType(t, &typeinfo.Class{}, g.Type)
	size, err := out.SizeOf(g.Type)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), size)
	require.NotNil(t, g.Offset)
	assert.Equal(t, uint64(0x3020), *g.Offset)

	require.Len(t, out.Procedures, 3)
	main := out.Procedures[0]
	assert.Equal(t, "main", main.Name)
	assert.Equal(t, uint32(0x30), main.Len)
	assert.Equal(t, uint32(4), main.PrologueEnd)
	assert.Equal(t, uint32(0x2c), main.EpilogueStart)
	assert.True(t, main.IsGlobal)
	assert.False(t, main.IsDPC)
	require.NotNil(t, main.Signature)
	assert.Equal(t, typeinfo.TypeName(out.Types[0x1001]), *main.Signature)
	require.NotNil(t, main.Offset)
	assert.Equal(t, uint64(0x1100), *main.Offset)

	byID := out.Procedures[1]
	assert.Equal(t, typeinfo.TypeIndex(0x1001), byID.TypeIndex, "function ids resolve to their type")
	assert.Equal(t, main.Signature, byID.Signature)

	dpc := out.Procedures[2]
	assert.True(t, dpc.IsDPC)
	assert.False(t, dpc.IsGlobal)
	assert.Nil(t, dpc.Offset)
	assert.Contains(t, logs.String(), "invalid section index")

	ci := out.AssemblyInfo.CompilerInfo
	require.NotNil(t, ci)
	assert.Equal(t, "Cpp", ci.Language)
	assert.Equal(t, "X64", ci.CPUType)
	assert.Equal(t, uint16(30133), ci.FrontendVersion.Build)
	require.NotNil(t, ci.BackendVersion.QFE)
	assert.Equal(t, uint16(2), *ci.BackendVersion.QFE)
	assert.Equal(t, "Microsoft (R) Optimizing Compiler", ci.VersionString)

	require.NotNil(t, out.AssemblyInfo.BuildInfo)
	assert.Equal(t, []string{"cl.exe", "-c foo.cpp"}, out.AssemblyInfo.BuildInfo.Arguments)

	require.Len(t, out.DebugModules, 2)
	mod := out.DebugModules[0]
	assert.Equal(t, "foo.obj", mod.ObjectFileName)
	require.Len(t, mod.SourceFiles, 2)
	assert.Equal(t, "c:\\src\\foo.cpp", mod.SourceFiles[0].Name)
	assert.Equal(t, Checksum{Kind: "Md5", Value: "abababababababababababababababab"}, mod.SourceFiles[0].Checksum)
	assert.Equal(t, Checksum{Kind: "None"}, mod.SourceFiles[1].Checksum)
	assert.Equal(t, DebugModule{Name: "* Linker *"}, out.DebugModules[1])
}

func TestParseBaseAddress(t *testing.T) {
	out, _ := parseImage(t, fullImage(), Options{BaseAddress: 0x140000000})
	require.NotNil(t, out.PublicSymbols[0].Offset)
	assert.Equal(t, uint64(0x140001010), *out.PublicSymbols[0].Offset)
}

func TestParseSkipsBadSymbols(t *testing.T) {
	img := fullImage()
	img.globals = [][]byte{
		pdbtest.Data(pdbtest.SymGData32, 0x1002, 0x00, 2, "a"),
		pdbtest.Data(pdbtest.SymGData32, 0x1fff, 0x08, 2, "missing"),
		pdbtest.Data(pdbtest.SymGData32, 0x74, 0x10, 2, "b"),
		pdbtest.Data(pdbtest.SymGManData, 0x74, 0x18, 2, "c"),
	}
	out, logs := parseImage(t, img, Options{})

	var names []string
	for _, d := range out.GlobalData {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)
	assert.True(t, out.GlobalData[2].IsManaged)
	assert.Contains(t, logs.String(), "skipping symbol")
	assert.Contains(t, logs.String(), "S_GDATA32")
}

func TestParseGlobalsOfPrimitiveType(t *testing.T) {
	img := fullImage()
	img.globals = [][]byte{
		pdbtest.Data(pdbtest.SymGData32, 0x74, 0x00, 2, "g_int"),
		pdbtest.Data(pdbtest.SymGData32, 0x13, 0x08, 2, "g_int64"),
	}
	out, _ := parseImage(t, img, Options{})

	require.Len(t, out.GlobalData, 2)
	assert.Equal(t, "g_int", out.GlobalData[0].Name)
	assert.Equal(t, "g_int64", out.GlobalData[1].Name)
	require.IsType(t, &typeinfo.Primitive{}, out.GlobalData[1].Type)
	assert.Same(t, out.GlobalData[1].Type, out.Types[0x13], "primitives resolved for symbols join the type map")
}

func TestParseWithoutIPI(t *testing.T) {
	img := fullImage()
	img.noIPI = true
	out, logs := parseImage(t, img, Options{})

	assert.Nil(t, out.AssemblyInfo.BuildInfo)
	assert.NotNil(t, out.AssemblyInfo.CompilerInfo)
	assert.Contains(t, logs.String(), "IPI stream unavailable")
	assert.Contains(t, logs.String(), ErrMissingDependency.Error())

	// Without IPI the item id cannot be mapped and has no signature.
	require.Len(t, out.Procedures, 3)
	assert.Equal(t, typeinfo.TypeIndex(0x1003), out.Procedures[1].TypeIndex)
	assert.Nil(t, out.Procedures[1].Signature)
}

func TestParseWithoutSections(t *testing.T) {
	img := fullImage()
	img.noSections = true
	out, logs := parseImage(t, img, Options{BaseAddress: 0x1000})

	for _, p := range out.Procedures {
		assert.Nil(t, p.Offset, p.Name)
	}
	assert.Nil(t, out.PublicSymbols[0].Offset)
	assert.Contains(t, logs.String(), "section headers unavailable")
}

func TestParseUnreadableModule(t *testing.T) {
	img := fullImage()
	img.modules = append(img.modules, pdbtest.Module{Name: "gone.obj", ObjName: "gone.obj", Stream: 42})
	out, logs := parseImage(t, img, Options{Concurrency: 1})

	require.Len(t, out.DebugModules, 3)
	assert.Equal(t, "gone.obj", out.DebugModules[2].Name)
	assert.Nil(t, out.DebugModules[2].SourceFiles)
	assert.Len(t, out.Procedures, 3)
	assert.Contains(t, logs.String(), "skipping module stream")
}

func TestParseLastCompilerInfoWins(t *testing.T) {
	img := fullImage()
	img.module = append(img.module,
		pdbtest.Compile3(0x00, 0x07, [4]uint16{1}, [4]uint16{2}, "second"))
	out, _ := parseImage(t, img, Options{})

	require.NotNil(t, out.AssemblyInfo.CompilerInfo)
	assert.Equal(t, "second", out.AssemblyInfo.CompilerInfo.VersionString)
	assert.Equal(t, "C", out.AssemblyInfo.CompilerInfo.Language)
	assert.Equal(t, "Pentium3", out.AssemblyInfo.CompilerInfo.CPUType)
}

func TestParseJSON(t *testing.T) {
	out, _ := parseImage(t, fullImage(), Options{})

	data, err := json.Marshal(out)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "V70", got["version"])
	assert.Equal(t, "Amd64", got["machine_type"])
	assert.Equal(t, "12345678-1234-5678-9abc-def012345678", got["guid"])

	types := got["types"].(map[string]any)
	assert.Equal(t, "Class", types["4098"].(map[string]any)["kind"])

	globals := got["global_data"].([]any)
	require.Len(t, globals, 1)
	assert.EqualValues(t, 0x1002, globals[0].(map[string]any)["ty"])

	procs := got["procedures"].([]any)
	assert.Nil(t, procs[2].(map[string]any)["offset"])
}

func TestParseErrors(t *testing.T) {
	ctx := context.Background()

	_, err := Parse(ctx, filepath.Join(t.TempDir(), "missing.pdb"), Options{})
	assert.ErrorIs(t, err, os.ErrNotExist)

	image := pdbtest.MSF(512, []byte{}, []byte{1, 2})
	_, err = ParseReader(ctx, bytes.NewReader(image), int64(len(image)), "short", Options{})
	var pe *ParseError
	assert.ErrorAs(t, err, &pe)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	image = fullImage().bytes()
	_, err = ParseReader(cancelled, bytes.NewReader(image), int64(len(image)), "x", Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.pdb")
	require.NoError(t, os.WriteFile(path, fullImage().bytes(), 0o644))

	out, err := Parse(context.Background(), path, Options{})
	require.NoError(t, err)
	assert.Equal(t, path, out.Path)
	assert.Len(t, out.PublicSymbols, 1)
}
