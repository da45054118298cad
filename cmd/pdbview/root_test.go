package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/skdltmxn/pdbview/internal/pdbtest"
)

// writeTestPDB writes a PDB with one struct, one global of that type and
// one public symbol. Streams: 4 IPI (absent), 5 globals, 6 sections.
func writeTestPDB(t *testing.T) string {
	t.Helper()
	image := pdbtest.MSF(512,
		[]byte{},
		pdbtest.Info(1, 1, [16]byte{1}),
		pdbtest.TypeStream(0x1000,
			pdbtest.FieldList(
				pdbtest.Member(0x74, 0, "x"),
				pdbtest.Member(0x74, 4, "y"),
			),
			pdbtest.Class{Struct: true, Count: 2, FieldList: 0x1000, Size: 8, Name: "Point", UniqueName: ".?AUPoint@@"}.Bytes(),
		),
		pdbtest.DBI{Age: 1, Machine: 0x14c, SymRecords: 5, DbgHeader: []uint16{0xFFFF, 0xFFFF, 0xFFFF, 0xFFFF, 0xFFFF, 6}}.Bytes(),
		nil,
		bytes.Join([][]byte{
			pdbtest.Pub32(0x02, 0x10, 1, "_main"),
			pdbtest.Data(pdbtest.SymGData32, 0x1001, 0x4, 1, "g_origin"),
		}, nil),
		pdbtest.Sections(pdbtest.Section{Name: ".text", VirtualSize: 0x1000, VirtualAddress: 0x1000}),
	)
	path := filepath.Join(t.TempDir(), "test.pdb")
	require.NoError(t, os.WriteFile(path, image, 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestPlainOutput(t *testing.T) {
	path := writeTestPDB(t)
	out, _, err := execute(t, path, "--color", "never", "-b", "0x400000")
	require.NoError(t, err)

	assert.Contains(t, out, "PDB Version: V70\n")
	assert.Contains(t, out, "Machine Type: X86\n")
	assert.Contains(t, out, "\t0x00401010 _main\n")
	assert.Contains(t, out, "\t0x00401004 g_origin\n\t\tType: Point\n\t\tSize: 0x8\n\t\tIs Managed: false\n")
	assert.Contains(t, out, "\tStruct     Point .?AUPoint@@\n\tSize: 0x8\n\tFields:\n")
	assert.Contains(t, out, "\t\t0x0004 y                    int32_t\n")
	assert.NotContains(t, out, "\x1b[", "colour is off")
}

func TestJSONOutput(t *testing.T) {
	path := writeTestPDB(t)
	out, _, err := execute(t, path, "--format", "JSON")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "X86", got["machine_type"])
	assert.Len(t, got["public_symbols"], 1)
	assert.Contains(t, got["types"], "4097")
}

func TestMsgpackOutputFile(t *testing.T) {
	path := writeTestPDB(t)
	dest := filepath.Join(t.TempDir(), "out.msgpack")
	out, _, err := execute(t, path, "-f", "msgpack", "-o", dest)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	// Type maps are keyed by index, so decode only the fields under test.
	var got struct {
		Version    string `msgpack:"version"`
		GlobalData []struct {
			Name string `msgpack:"name"`
			Ty   uint32 `msgpack:"ty"`
		} `msgpack:"global_data"`
		Types map[uint32]map[string]any `msgpack:"types"`
	}
	require.NoError(t, msgpack.Unmarshal(data, &got))
	assert.Equal(t, "V70", got.Version)
	require.Len(t, got.GlobalData, 1)
	assert.Equal(t, "g_origin", got.GlobalData[0].Name)
	assert.Equal(t, uint32(0x1001), got.GlobalData[0].Ty)
	assert.Equal(t, "Class", got.Types[0x1001]["kind"])
}

func TestConfigFile(t *testing.T) {
	path := writeTestPDB(t)
	cfg := filepath.Join(t.TempDir(), "pdbview.toml")
	require.NoError(t, os.WriteFile(cfg, []byte("format = \"json\"\nbase_address = 0x1000\ncolor = \"never\"\n"), 0o644))

	out, _, err := execute(t, path, "--config", cfg)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	pub := got["public_symbols"].([]any)[0].(map[string]any)
	assert.EqualValues(t, 0x2010, pub["offset"])

	// Flags win over the file.
	out, _, err = execute(t, path, "--config", cfg, "-f", "plain")
	require.NoError(t, err)
	assert.Contains(t, out, "\t0x00002010 _main\n")
}

func TestConfigFileErrors(t *testing.T) {
	path := writeTestPDB(t)
	dir := t.TempDir()

	unknown := filepath.Join(dir, "unknown.toml")
	require.NoError(t, os.WriteFile(unknown, []byte("colour = \"never\"\n"), 0o644))
	_, _, err := execute(t, path, "--config", unknown)
	assert.ErrorContains(t, err, "unknown key")

	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("format = \"xml\"\n"), 0o644))
	_, _, err = execute(t, path, "--config", bad)
	assert.ErrorContains(t, err, "invalid value")
}

func TestInvalidArguments(t *testing.T) {
	_, _, err := execute(t, "--format", "xml", "x.pdb")
	assert.ErrorContains(t, err, "invalid value \"xml\"")

	_, _, err = execute(t)
	assert.Error(t, err)

	_, _, err = execute(t, filepath.Join(t.TempDir(), "missing.pdb"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWarningsGoToStderr(t *testing.T) {
	path := writeTestPDB(t)
	_, stderr, err := execute(t, path, "-d")
	require.NoError(t, err)
	assert.Contains(t, stderr, "level=WARN")
	assert.Contains(t, stderr, "IPI stream unavailable")
}

func TestFlagValues(t *testing.T) {
	var f outputFormat
	require.NoError(t, f.Set("MsgPack"))
	assert.Equal(t, formatMsgpack, f)
	assert.Equal(t, "msgpack", f.String())

	var c colorMode
	assert.Equal(t, "auto", c.String())
	require.NoError(t, c.Set("always"))
	assert.Equal(t, colorAlways, c)
	assert.Error(t, c.Set("sometimes"))
}
