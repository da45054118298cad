// Package dbi provides parsing for the DBI (Debug Information) stream.
package dbi

import (
	"encoding/binary"
	"errors"
	"fmt"

	"fortio.org/safecast"

	"github.com/skdltmxn/pdbview/internal/stream"
)

// DBI stream version constants
const (
	VersionV41  uint32 = 930803
	VersionV50  uint32 = 19960307
	VersionV60  uint32 = 19970606
	VersionV70  uint32 = 19990903
	VersionV110 uint32 = 20091201
)

// HeaderSize is the size of the fixed DBI header.
const HeaderSize = 64

// moduleInfoSize is the fixed part of a module info entry, before the names.
const moduleInfoSize = 64

// InvalidStreamIndex marks an absent optional stream.
const InvalidStreamIndex uint16 = 0xFFFF

// Errors
var (
	ErrInvalidHeader   = errors.New("dbi: invalid DBI header")
	ErrTruncatedStream = errors.New("dbi: truncated stream")
)

// Header represents the DBI stream header.
type Header struct {
	// VersionSignature is always -1
	VersionSignature int32

	// VersionHeader is typically V70 (19990903) or V110 (20091201)
	VersionHeader uint32

	// Age matches the PDB stream Age field
	Age uint32

	GlobalStreamIndex uint16

	// BuildNumber encodes toolchain version
	// Bits 0-7: minor version, Bits 8-14: major version, Bit 15: new version flag
	BuildNumber uint16

	PublicStreamIndex uint16
	PDBDllVersion     uint16

	// SymRecordStreamIndex is the MSF stream with deduplicated symbol records
	SymRecordStreamIndex uint16

	PDBDllRbld uint16

	// Substream sizes in bytes
	ModInfoSize             uint32
	SectionContributionSize uint32
	SectionMapSize          uint32
	SourceInfoSize          uint32
	TypeServerMapSize       uint32
	MFCTypeServerIndex      uint32
	OptionalDbgHeaderSize   uint32
	ECSubstreamSize         uint32

	Flags uint16

	// Machine is the IMAGE_FILE_MACHINE_* value of the linked image.
	Machine uint16

	Padding uint32
}

// Stream represents a parsed DBI stream.
type Stream struct {
	Header Header

	// Modules is the list of all compilation units
	Modules []ModuleInfo

	// OptionalDbgStreams is nil when the stream has no debug header.
	OptionalDbgStreams *OptionalDbgHeader
}

// SectionContribution describes a module's contribution to a PE section.
type SectionContribution struct {
	Section         uint16
	Padding1        uint16
	Offset          int32
	Size            int32
	Characteristics uint32
	ModuleIndex     uint16
	Padding2        uint16
	DataCrc         uint32
	RelocCrc        uint32
}

// moduleInfoHeader is the on-disk fixed part of a module info entry.
type moduleInfoHeader struct {
	Opened               uint32
	Section              SectionContribution
	Flags                uint16
	ModuleSymStreamIndex uint16
	SymByteSize          uint32
	C11ByteSize          uint32
	C13ByteSize          uint32
	SourceFileCount      uint16
	Padding              uint16
	Unused               uint32
	SourceFileNameIndex  uint32
	PDBFilePathNameIndex uint32
}

// ModuleInfo describes a single compilation unit/object file.
type ModuleInfo struct {
	Section SectionContribution
	Flags   uint16

	// ModuleSymStreamIndex is the MSF stream with this module's symbols
	// and line information, or InvalidStreamIndex.
	ModuleSymStreamIndex uint16

	// SymByteSize is the size of symbol data in bytes, signature included.
	SymByteSize uint32
	C11ByteSize uint32
	C13ByteSize uint32

	SourceFileCount uint16

	// ModuleName is the object file path
	ModuleName string

	// ObjFileName is the library or object the module came from
	ObjFileName string
}

// HasStream reports whether the module has a symbol stream.
func (m *ModuleInfo) HasStream() bool {
	return m.ModuleSymStreamIndex != InvalidStreamIndex
}

// OptionalDbgHeader contains stream indices for additional debug data.
type OptionalDbgHeader struct {
	FPOStreamIndex            uint16
	ExceptionStreamIndex      uint16
	FixupStreamIndex          uint16
	OmapToSrcStreamIndex      uint16
	OmapFromSrcStreamIndex    uint16
	SectionHdrStreamIndex     uint16
	TokenRidMapStreamIndex    uint16
	XDataStreamIndex          uint16
	PDataStreamIndex          uint16
	NewFPOStreamIndex         uint16
	SectionHdrOrigStreamIndex uint16
}

// ParseStream parses a DBI stream from raw data.
func ParseStream(data []byte) (*Stream, error) {
	if len(data) < HeaderSize {
		return nil, ErrInvalidHeader
	}

	s := &Stream{}
	if _, err := binary.Decode(data[:HeaderSize], binary.LittleEndian, &s.Header); err != nil {
		return nil, fmt.Errorf("dbi: failed to read header: %w", err)
	}
	if s.Header.VersionSignature != -1 {
		return nil, fmt.Errorf("%w: signature %d", ErrInvalidHeader, s.Header.VersionSignature)
	}

	r := stream.NewReader(data[HeaderSize:])
	substream := func(name string, size uint32) (*stream.Reader, error) {
		n, err := safecast.Conv[int](size)
		if err != nil {
			return nil, fmt.Errorf("%w: %s size %d", ErrTruncatedStream, name, size)
		}
		sub, err := r.SubReader(n)
		if err != nil {
			return nil, fmt.Errorf("%w: %s substream of %d bytes", ErrTruncatedStream, name, size)
		}
		return sub, nil
	}

	mods, err := substream("module info", s.Header.ModInfoSize)
	if err != nil {
		return nil, err
	}
	if s.Modules, err = parseModuleInfo(mods); err != nil {
		return nil, fmt.Errorf("dbi: failed to parse module info: %w", err)
	}

	// Section contributions, section map, file info, type server map and
	// the EC substream are not used.
	for _, skip := range []struct {
		name string
		size uint32
	}{
		{"section contribution", s.Header.SectionContributionSize},
		{"section map", s.Header.SectionMapSize},
		{"source info", s.Header.SourceInfoSize},
		{"type server map", s.Header.TypeServerMapSize},
		{"EC", s.Header.ECSubstreamSize},
	} {
		if _, err := substream(skip.name, skip.size); err != nil {
			return nil, err
		}
	}

	if s.Header.OptionalDbgHeaderSize > 0 {
		dbg, err := substream("optional debug header", s.Header.OptionalDbgHeaderSize)
		if err != nil {
			return nil, err
		}
		s.OptionalDbgStreams = parseOptionalDbgHeader(dbg)
	}

	return s, nil
}

func parseModuleInfo(r *stream.Reader) ([]ModuleInfo, error) {
	var modules []ModuleInfo
	for r.Remaining() > 0 {
		raw, err := r.ReadBytesRef(moduleInfoSize)
		if err != nil {
			return nil, fmt.Errorf("module %d: %w", len(modules), err)
		}
		var h moduleInfoHeader
		if _, err := binary.Decode(raw, binary.LittleEndian, &h); err != nil {
			return nil, fmt.Errorf("module %d: %w", len(modules), err)
		}

		mod := ModuleInfo{
			Section:              h.Section,
			Flags:                h.Flags,
			ModuleSymStreamIndex: h.ModuleSymStreamIndex,
			SymByteSize:          h.SymByteSize,
			C11ByteSize:          h.C11ByteSize,
			C13ByteSize:          h.C13ByteSize,
			SourceFileCount:      h.SourceFileCount,
		}
		if mod.ModuleName, err = r.ReadCString(); err != nil {
			return nil, fmt.Errorf("module %d name: %w", len(modules), err)
		}
		if mod.ObjFileName, err = r.ReadCString(); err != nil {
			return nil, fmt.Errorf("module %d object name: %w", len(modules), err)
		}
		r.Align(4)

		modules = append(modules, mod)
	}
	return modules, nil
}

func parseOptionalDbgHeader(r *stream.Reader) *OptionalDbgHeader {
	h := &OptionalDbgHeader{}

	// Older linkers write fewer entries; missing ones are absent streams.
	fields := []*uint16{
		&h.FPOStreamIndex,
		&h.ExceptionStreamIndex,
		&h.FixupStreamIndex,
		&h.OmapToSrcStreamIndex,
		&h.OmapFromSrcStreamIndex,
		&h.SectionHdrStreamIndex,
		&h.TokenRidMapStreamIndex,
		&h.XDataStreamIndex,
		&h.PDataStreamIndex,
		&h.NewFPOStreamIndex,
		&h.SectionHdrOrigStreamIndex,
	}
	for _, field := range fields {
		val, err := r.ReadU16()
		if err != nil {
			val = InvalidStreamIndex
		}
		*field = val
	}
	return h
}
