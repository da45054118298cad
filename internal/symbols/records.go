package symbols

import (
	"github.com/skdltmxn/pdbview/internal/stream"
	"github.com/skdltmxn/pdbview/internal/tpi"
)

// PublicSymFlags describes public symbol attributes.
type PublicSymFlags uint32

func (psf PublicSymFlags) IsCode() bool     { return (psf & 0x01) != 0 }
func (psf PublicSymFlags) IsFunction() bool { return (psf & 0x02) != 0 }
func (psf PublicSymFlags) IsManaged() bool  { return (psf & 0x04) != 0 }
func (psf PublicSymFlags) IsMSIL() bool     { return (psf & 0x08) != 0 }

// SectionOffset is a section:offset address. Section numbers are 1-based;
// zero means the address is not in any section.
type SectionOffset struct {
	Offset  uint32
	Section uint16
}

func readSectionOffset(r *stream.Reader) (SectionOffset, error) {
	off, err := r.ReadU32()
	if err != nil {
		return SectionOffset{}, err
	}
	sec, err := r.ReadU16()
	return SectionOffset{Offset: off, Section: sec}, err
}

// ProcSym represents S_GPROC32, S_LPROC32, and related procedure symbols.
type ProcSym struct {
	PtrParent    uint32
	PtrEnd       uint32
	PtrNext      uint32
	CodeSize     uint32
	DbgStart     uint32
	DbgEnd       uint32
	FunctionType tpi.TypeIndex
	Address      SectionOffset
	Name         string

	Global bool
	DPC    bool
}

// ParseProcSym parses a procedure symbol of the given kind.
func ParseProcSym(kind SymbolRecordKind, data []byte) (*ProcSym, error) {
	r := stream.NewReader(data)
	p := &ProcSym{
		Global: kind == S_GPROC32 || kind == S_GPROC32_ID,
		DPC:    kind == S_LPROC32_DPC || kind == S_LPROC32_DPC_ID,
	}

	for _, field := range []*uint32{&p.PtrParent, &p.PtrEnd, &p.PtrNext, &p.CodeSize, &p.DbgStart, &p.DbgEnd} {
		v, err := r.ReadU32()
		if err != nil {
			return nil, err
		}
		*field = v
	}
	ti, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	p.FunctionType = tpi.TypeIndex(ti)
	if p.Address, err = readSectionOffset(r); err != nil {
		return nil, err
	}
	// Frame and inlining flags.
	if err = r.Skip(1); err != nil {
		return nil, err
	}
	if p.Name, err = r.ReadCString(); err != nil {
		return nil, err
	}
	return p, nil
}

// DataSym represents S_GDATA32, S_LDATA32 and their managed variants.
type DataSym struct {
	Type    tpi.TypeIndex
	Address SectionOffset
	Name    string

	Global  bool
	Managed bool
}

// ParseDataSym parses a data symbol of the given kind.
func ParseDataSym(kind SymbolRecordKind, data []byte) (*DataSym, error) {
	r := stream.NewReader(data)
	d := &DataSym{
		Global:  kind == S_GDATA32 || kind == S_GMANDATA,
		Managed: kind == S_LMANDATA || kind == S_GMANDATA,
	}

	ti, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	d.Type = tpi.TypeIndex(ti)
	if d.Address, err = readSectionOffset(r); err != nil {
		return nil, err
	}
	if d.Name, err = r.ReadCString(); err != nil {
		return nil, err
	}
	return d, nil
}

// PublicSym32 represents S_PUB32 (public symbol).
type PublicSym32 struct {
	Flags   PublicSymFlags
	Address SectionOffset
	Name    string
}

// ParsePublicSym32 parses a public symbol (S_PUB32).
func ParsePublicSym32(data []byte) (*PublicSym32, error) {
	r := stream.NewReader(data)

	flags, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	addr, err := readSectionOffset(r)
	if err != nil {
		return nil, err
	}
	name, err := r.ReadCString()
	if err != nil {
		return nil, err
	}

	return &PublicSym32{
		Flags:   PublicSymFlags(flags),
		Address: addr,
		Name:    name,
	}, nil
}

// CompileFlags is the flag word of S_COMPILE2 and S_COMPILE3. The low
// byte holds the source language.
type CompileFlags uint32

func (f CompileFlags) Language() Language     { return Language(f & 0xFF) }
func (f CompileFlags) EditAndContinue() bool  { return f&(1<<8) != 0 }
func (f CompileFlags) NoDebugInfo() bool      { return f&(1<<9) != 0 }
func (f CompileFlags) LinkTimeCodegen() bool  { return f&(1<<10) != 0 }
func (f CompileFlags) NoDataAlign() bool      { return f&(1<<11) != 0 }
func (f CompileFlags) Managed() bool          { return f&(1<<12) != 0 }
func (f CompileFlags) SecurityChecks() bool   { return f&(1<<13) != 0 }
func (f CompileFlags) HotPatch() bool         { return f&(1<<14) != 0 }
func (f CompileFlags) CvtCIL() bool           { return f&(1<<15) != 0 }
func (f CompileFlags) MSILModule() bool       { return f&(1<<16) != 0 }
func (f CompileFlags) SDL() bool              { return f&(1<<17) != 0 }
func (f CompileFlags) PGO() bool              { return f&(1<<18) != 0 }
func (f CompileFlags) ExpModule() bool        { return f&(1<<19) != 0 }

// CompilerVersion is a front or back end version. QFE is only recorded
// by S_COMPILE3.
type CompilerVersion struct {
	Major, Minor, Build uint16
	QFE                 *uint16
}

// CompileSym represents S_COMPILE2 and S_COMPILE3.
type CompileSym struct {
	Flags    CompileFlags
	Machine  CPUType
	Frontend CompilerVersion
	Backend  CompilerVersion
	Version  string
}

// ParseCompileSym parses a compile symbol of the given kind.
func ParseCompileSym(kind SymbolRecordKind, data []byte) (*CompileSym, error) {
	r := stream.NewReader(data)
	c := &CompileSym{}

	flags, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	c.Flags = CompileFlags(flags)
	machine, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	c.Machine = CPUType(machine)

	readVersion := func(v *CompilerVersion) error {
		for _, field := range []*uint16{&v.Major, &v.Minor, &v.Build} {
			x, err := r.ReadU16()
			if err != nil {
				return err
			}
			*field = x
		}
		if kind == S_COMPILE3 {
			qfe, err := r.ReadU16()
			if err != nil {
				return err
			}
			v.QFE = &qfe
		}
		return nil
	}
	if err := readVersion(&c.Frontend); err != nil {
		return nil, err
	}
	if err := readVersion(&c.Backend); err != nil {
		return nil, err
	}
	if c.Version, err = r.ReadCString(); err != nil {
		return nil, err
	}
	return c, nil
}

// BuildInfoSym represents S_BUILDINFO.
type BuildInfoSym struct {
	// ID is the LF_BUILDINFO record in the IPI stream.
	ID tpi.TypeIndex
}

// ParseBuildInfoSym parses a build info symbol (S_BUILDINFO).
func ParseBuildInfoSym(data []byte) (*BuildInfoSym, error) {
	r := stream.NewReader(data)
	id, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	return &BuildInfoSym{ID: tpi.TypeIndex(id)}, nil
}
