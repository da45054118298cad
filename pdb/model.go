package pdb

import (
	"encoding/binary"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/skdltmxn/pdbview/typeinfo"
)

// ParsedPDB is the fully mapped content of a PDB file.
type ParsedPDB struct {
	Path          string                               `json:"path"`
	AssemblyInfo  AssemblyInfo                         `json:"assembly_info"`
	PublicSymbols []PublicSymbol                       `json:"public_symbols"`
	Types         map[typeinfo.TypeIndex]typeinfo.Node `json:"types"`
	Procedures    []Procedure                          `json:"procedures"`
	GlobalData    []Data                               `json:"global_data"`
	DebugModules  []DebugModule                        `json:"debug_modules"`
	Version       Version                              `json:"version"`
	GUID          GUID                                 `json:"guid"`
	Age           uint32                               `json:"age"`
	Timestamp     uint32                               `json:"timestamp"`
	MachineType   MachineType                          `json:"machine_type"`

	cache *typeinfo.Cache
}

// SizeOf returns the byte size of a node from Types, following forward
// references to their definitions.
func (p *ParsedPDB) SizeOf(n typeinfo.Node) (uint64, error) {
	return p.cache.SizeOf(n)
}

// Definition returns the full definition of a forward-referenced class
// or union.
func (p *ParsedPDB) Definition(n typeinfo.Node) (typeinfo.Node, bool) {
	return p.cache.Definition(n)
}

// AssemblyInfo holds the last build and compiler information seen.
type AssemblyInfo struct {
	BuildInfo    *BuildInfo    `json:"build_info"`
	CompilerInfo *CompilerInfo `json:"compiler_info"`
}

// BuildInfo is the command line of the compiler invocation, resolved
// from the IPI stream.
type BuildInfo struct {
	Arguments []string `json:"arguments"`
}

// CompilerInfo is the content of a compile flags symbol.
type CompilerInfo struct {
	Language        string          `json:"language"`
	Flags           CompileFlags    `json:"flags"`
	CPUType         string          `json:"cpu_type"`
	FrontendVersion CompilerVersion `json:"frontend_version"`
	BackendVersion  CompilerVersion `json:"backend_version"`
	VersionString   string          `json:"version_string"`
}

type CompileFlags struct {
	EditAndContinue bool `json:"edit_and_continue"`
	NoDebugInfo     bool `json:"no_debug_info"`
	LinkTimeCodegen bool `json:"link_time_codegen"`
	NoDataAlign     bool `json:"no_data_align"`
	Managed         bool `json:"managed"`
	SecurityChecks  bool `json:"security_checks"`
	HotPatch        bool `json:"hot_patch"`
	CvtCIL          bool `json:"cvtcil"`
	MSILModule      bool `json:"msil_module"`
	SDL             bool `json:"sdl"`
	PGO             bool `json:"pgo"`
	ExpModule       bool `json:"exp_module"`
}

type CompilerVersion struct {
	Major uint16  `json:"major"`
	Minor uint16  `json:"minor"`
	Build uint16  `json:"build"`
	QFE   *uint16 `json:"qfe"`
}

// DebugModule is one compilation unit from the DBI module list.
type DebugModule struct {
	Name           string `json:"name"`
	ObjectFileName string `json:"object_file_name"`
	// SourceFiles is nil when the module has no line information or the
	// file has no string table.
	SourceFiles []FileInfo `json:"source_files"`
}

type FileInfo struct {
	Name     string   `json:"name"`
	Checksum Checksum `json:"checksum"`
}

// Checksum is a source file hash. Value is hex encoded and empty for
// kind "None".
type Checksum struct {
	Kind  string `json:"kind"`
	Value string `json:"value,omitempty"`
}

// PublicSymbol is an S_PUB32 record. Offset is nil when the address
// cannot be mapped to an RVA.
type PublicSymbol struct {
	Name       string  `json:"name"`
	IsCode     bool    `json:"is_code"`
	IsFunction bool    `json:"is_function"`
	IsManaged  bool    `json:"is_managed"`
	IsMSIL     bool    `json:"is_msil"`
	Offset     *uint64 `json:"offset"`
}

// Procedure is a procedure symbol from a module stream.
type Procedure struct {
	Name      string             `json:"name"`
	Signature *string            `json:"signature"`
	TypeIndex typeinfo.TypeIndex `json:"type_index"`
	Offset    *uint64            `json:"offset"`
	// Len is the length of the procedure in bytes.
	Len           uint32 `json:"len"`
	IsGlobal      bool   `json:"is_global"`
	IsDPC         bool   `json:"is_dpc"`
	PrologueEnd   uint32 `json:"prologue_end"`
	EpilogueStart uint32 `json:"epilogue_start"`
}

// Data is a global data symbol. Type is the resolved node for TypeIndex
// and is encoded by index only.
type Data struct {
	Name      string             `json:"name"`
	IsGlobal  bool               `json:"is_global"`
	IsManaged bool               `json:"is_managed"`
	TypeIndex typeinfo.TypeIndex `json:"ty"`
	Type      typeinfo.Node      `json:"-"`
	Offset    *uint64            `json:"offset"`
}

// Version is the PDB info stream format version.
type Version uint32

func (v Version) String() string {
	switch uint32(v) {
	case InfoVersionVC41:
		return "V41"
	case InfoVersionVC50:
		return "V50"
	case InfoVersionVC60:
		return "V60"
	case InfoVersionVC70:
		return "V70"
	case InfoVersionVC140:
		return "V110"
	}
	return fmt.Sprintf("Other(%d)", uint32(v))
}

func (v Version) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

func (v Version) EncodeMsgpack(enc *msgpack.Encoder) error { return enc.EncodeString(v.String()) }

// GUID is the PDB signature GUID in its on-disk layout.
type GUID [16]byte

// String formats the GUID as lowercase hyphenated hex, with the first
// three fields in little-endian order.
func (g GUID) String() string {
	return fmt.Sprintf("%08x-%04x-%04x-%x-%x",
		binary.LittleEndian.Uint32(g[0:4]),
		binary.LittleEndian.Uint16(g[4:6]),
		binary.LittleEndian.Uint16(g[6:8]),
		g[8:10], g[10:16])
}

func (g GUID) MarshalText() ([]byte, error) { return []byte(g.String()), nil }

func (g GUID) EncodeMsgpack(enc *msgpack.Encoder) error { return enc.EncodeString(g.String()) }

// MachineType is the IMAGE_FILE_MACHINE_* value from the DBI header.
type MachineType uint16

var machineNames = map[MachineType]string{
	0x0000: "Unknown",
	0x01d3: "Am33",
	0x8664: "Amd64",
	0x01c0: "Arm",
	0xaa64: "Arm64",
	0x01c4: "ArmNT",
	0x0ebc: "Ebc",
	0x014c: "X86",
	0x0200: "Ia64",
	0x9041: "M32R",
	0x0266: "Mips16",
	0x0366: "MipsFpu",
	0x0466: "MipsFpu16",
	0x01f0: "PowerPC",
	0x01f1: "PowerPCFP",
	0x0166: "R4000",
	0x5032: "RiscV32",
	0x5064: "RiscV64",
	0x5128: "RiscV128",
	0x01a2: "SH3",
	0x01a3: "SH3DSP",
	0x01a6: "SH4",
	0x01a8: "SH5",
	0x01c2: "Thumb",
	0x0169: "WceMipsV2",
}

// Known reports whether m is one of the named machine types.
func (m MachineType) Known() bool {
	_, ok := machineNames[m]
	return ok
}

func (m MachineType) String() string {
	if name, ok := machineNames[m]; ok {
		return name
	}
	return "Invalid"
}

func (m MachineType) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m MachineType) EncodeMsgpack(enc *msgpack.Encoder) error { return enc.EncodeString(m.String()) }
