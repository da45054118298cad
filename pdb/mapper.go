package pdb

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"

	"github.com/skdltmxn/pdbview/internal/dbi"
	"github.com/skdltmxn/pdbview/internal/symbols"
	"github.com/skdltmxn/pdbview/internal/tpi"
	"github.com/skdltmxn/pdbview/typeinfo"
)

// mapper converts symbol records into the output model. Failures are
// per symbol: the record is dropped, logged, and mapping continues.
type mapper struct {
	out   *ParsedPDB
	cache *typeinfo.Cache
	log   *slog.Logger
	base  uint64

	// Optional side tables; nil when the file lacks them.
	sections *SectionHeaders
	ids      *tpi.Stream
	names    *StringTable
}

// symbols maps every record of one symbol stream.
func (m *mapper) symbols(source string, data []byte) {
	it := symbols.NewSymbolIterator(data)
	for {
		rec, err := it.Next()
		if err != nil {
			m.log.Warn("symbol stream truncated", "source", source, "error", err)
			return
		}
		if rec == nil {
			return
		}
		if err := m.symbol(rec); err != nil {
			m.log.Warn("skipping symbol", "error", &ParseError{
				Stream:  source,
				Offset:  int64(rec.Offset),
				Message: rec.Kind.String(),
				Err:     err,
			})
		}
	}
}

func (m *mapper) symbol(rec *symbols.SymbolRecord) error {
	switch {
	case rec.Kind == symbols.S_PUB32:
		return m.public(rec)
	case rec.Kind.IsProc():
		return m.procedure(rec)
	case rec.Kind.IsData():
		return m.data(rec)
	case rec.Kind == symbols.S_COMPILE2 || rec.Kind == symbols.S_COMPILE3:
		return m.compileFlags(rec)
	case rec.Kind == symbols.S_BUILDINFO:
		return m.buildInfo(rec)
	}
	return nil
}

// offset maps addr to base + RVA, or nil when it cannot be mapped.
func (m *mapper) offset(addr symbols.SectionOffset, name string) *uint64 {
	if addr.Section == 0 {
		m.log.Warn("symbol has an invalid section index and its RVA will be invalid", "symbol", name)
	}
	if m.sections == nil {
		return nil
	}
	rva, ok := m.sections.RVA(addr)
	if !ok {
		return nil
	}
	if uint64(rva) > math.MaxUint64-m.base {
		m.log.Warn("symbol address overflows", "symbol", name, "rva", rva, "base", m.base)
		return nil
	}
	off := m.base + uint64(rva)
	return &off
}

func (m *mapper) public(rec *symbols.SymbolRecord) error {
	sym, err := symbols.ParsePublicSym32(rec.Data)
	if err != nil {
		return err
	}
	m.out.PublicSymbols = append(m.out.PublicSymbols, PublicSymbol{
		Name:       sym.Name,
		IsCode:     sym.Flags.IsCode(),
		IsFunction: sym.Flags.IsFunction(),
		IsManaged:  sym.Flags.IsManaged(),
		IsMSIL:     sym.Flags.IsMSIL(),
		Offset:     m.offset(sym.Address, sym.Name),
	})
	return nil
}

func (m *mapper) procedure(rec *symbols.SymbolRecord) error {
	sym, err := symbols.ParseProcSym(rec.Kind, rec.Data)
	if err != nil {
		return err
	}

	ti := sym.FunctionType
	if rec.Kind == symbols.S_GPROC32_ID || rec.Kind == symbols.S_LPROC32_ID || rec.Kind == symbols.S_LPROC32_DPC_ID {
		ti = m.functionType(ti)
	}

	var signature *string
	if n, ok := m.cache.Lookup(ti); ok {
		s := typeinfo.TypeName(n)
		signature = &s
	}

	m.out.Procedures = append(m.out.Procedures, Procedure{
		Name:          sym.Name,
		Signature:     signature,
		TypeIndex:     ti,
		Offset:        m.offset(sym.Address, sym.Name),
		Len:           sym.CodeSize,
		IsGlobal:      sym.Global,
		IsDPC:         sym.DPC,
		PrologueEnd:   sym.DbgStart,
		EpilogueStart: sym.DbgEnd,
	})
	return nil
}

// functionType maps the item id of an *_ID procedure to its TPI
// function type. Without IPI the id is returned unchanged.
func (m *mapper) functionType(id tpi.TypeIndex) tpi.TypeIndex {
	if m.ids == nil {
		return id
	}
	rec, ok := m.ids.Record(id)
	if !ok {
		return id
	}
	data, err := tpi.Decode(rec)
	if err != nil {
		m.log.Debug("undecodable function id", "id", id, "error", err)
		return id
	}
	if fn, ok := data.(*tpi.FuncIDRecord); ok {
		return fn.FunctionType
	}
	return id
}

func (m *mapper) data(rec *symbols.SymbolRecord) error {
	sym, err := symbols.ParseDataSym(rec.Kind, rec.Data)
	if err != nil {
		return err
	}
	if !sym.Global {
		return nil
	}

	// Primitives have no record, so one that no type references is not
	// cached yet. Anything else must already be loaded.
	var n typeinfo.Node
	if sym.Type.IsSimpleType() {
		if n, err = m.cache.Resolve(sym.Type); err != nil {
			return err
		}
	} else {
		var ok bool
		if n, ok = m.cache.Lookup(sym.Type); !ok {
			return &typeinfo.Error{Index: sym.Type, Err: typeinfo.ErrUnresolvedType}
		}
	}
	m.out.GlobalData = append(m.out.GlobalData, Data{
		Name:      sym.Name,
		IsGlobal:  sym.Global,
		IsManaged: sym.Managed,
		TypeIndex: sym.Type,
		Type:      n,
		Offset:    m.offset(sym.Address, sym.Name),
	})
	return nil
}

func (m *mapper) compileFlags(rec *symbols.SymbolRecord) error {
	sym, err := symbols.ParseCompileSym(rec.Kind, rec.Data)
	if err != nil {
		return err
	}
	version := func(v symbols.CompilerVersion) CompilerVersion {
		return CompilerVersion{Major: v.Major, Minor: v.Minor, Build: v.Build, QFE: v.QFE}
	}
	f := sym.Flags
	m.out.AssemblyInfo.CompilerInfo = &CompilerInfo{
		Language: f.Language().String(),
		Flags: CompileFlags{
			EditAndContinue: f.EditAndContinue(),
			NoDebugInfo:     f.NoDebugInfo(),
			LinkTimeCodegen: f.LinkTimeCodegen(),
			NoDataAlign:     f.NoDataAlign(),
			Managed:         f.Managed(),
			SecurityChecks:  f.SecurityChecks(),
			HotPatch:        f.HotPatch(),
			CvtCIL:          f.CvtCIL(),
			MSILModule:      f.MSILModule(),
			SDL:             f.SDL(),
			PGO:             f.PGO(),
			ExpModule:       f.ExpModule(),
		},
		CPUType:         sym.Machine.String(),
		FrontendVersion: version(sym.Frontend),
		BackendVersion:  version(sym.Backend),
		VersionString:   sym.Version,
	}
	return nil
}

func (m *mapper) buildInfo(rec *symbols.SymbolRecord) error {
	sym, err := symbols.ParseBuildInfoSym(rec.Data)
	if err != nil {
		return err
	}
	if m.ids == nil {
		return fmt.Errorf("%w: build info needs the IPI stream", ErrMissingDependency)
	}

	info, err := m.idRecord(sym.ID)
	if err != nil {
		return err
	}
	bi, ok := info.(*tpi.BuildInfoRecord)
	if !ok {
		return fmt.Errorf("%w: id 0x%x is %s, not LF_BUILDINFO", ErrUnexpectedKind, uint32(sym.ID), info.Leaf())
	}

	args := make([]string, 0, len(bi.Args))
	for _, id := range bi.Args {
		if id == 0 {
			continue
		}
		arg, err := m.idRecord(id)
		if err != nil {
			return err
		}
		s, ok := arg.(*tpi.StringIDRecord)
		if !ok {
			return fmt.Errorf("%w: build info argument 0x%x is %s", ErrUnexpectedKind, uint32(id), arg.Leaf())
		}
		args = append(args, s.Value)
	}
	m.out.AssemblyInfo.BuildInfo = &BuildInfo{Arguments: args}
	return nil
}

func (m *mapper) idRecord(id tpi.TypeIndex) (tpi.TypeData, error) {
	rec, ok := m.ids.Record(id)
	if !ok {
		return nil, &typeinfo.Error{Index: id, Err: ErrUnresolvedType}
	}
	data, err := tpi.Decode(rec)
	if err != nil {
		return nil, fmt.Errorf("%w: id 0x%x: %w", ErrDecode, uint32(id), err)
	}
	return data, nil
}

// debugModule maps a module entry. Source files are listed only when
// both the checksum subsection and the string table are available.
func (m *mapper) debugModule(mod *dbi.ModuleInfo, ms *dbi.ModuleStream) DebugModule {
	out := DebugModule{Name: mod.ModuleName, ObjectFileName: mod.ObjFileName}
	if ms == nil || m.names == nil {
		return out
	}

	sums, err := ms.FileChecksums()
	if err != nil {
		m.log.Warn("unreadable file checksums", "module", mod.ModuleName, "error", err)
		return out
	}
	if sums == nil {
		return out
	}

	files := make([]FileInfo, 0, len(sums))
	for _, sum := range sums {
		name, err := m.names.Get(sum.NameOffset)
		if err != nil {
			m.log.Warn("unreadable source file name", "module", mod.ModuleName, "error", err)
			return out
		}
		files = append(files, FileInfo{Name: name, Checksum: Checksum{
			Kind:  sum.Kind.String(),
			Value: hex.EncodeToString(sum.Checksum),
		}})
	}
	out.SourceFiles = files
	return out
}
