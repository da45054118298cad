package pdbtest

// Symbol record kinds used by the builders below.
const (
	SymObjName   = 0x1101
	SymLData32   = 0x110c
	SymGData32   = 0x110d
	SymPub32     = 0x110e
	SymLProc32   = 0x110f
	SymGProc32   = 0x1110
	SymCompile2  = 0x1116
	SymGManData  = 0x111d
	SymCompile3  = 0x113c
	SymGProc32ID = 0x1147
	SymBuildInfo = 0x114c
	SymLProcDPC  = 0x1155
)

// Pub32 builds an S_PUB32 record.
func Pub32(flags, offset uint32, section uint16, name string) []byte {
	w := &Writer{}
	w.U32(flags).U32(offset).U16(section).Str(name)
	return Symbol(SymPub32, w.Bytes())
}

// Proc describes a procedure symbol.
type Proc struct {
	Kind     uint16
	Len      uint32
	DbgStart uint32
	DbgEnd   uint32
	Type     uint32
	Offset   uint32
	Section  uint16
	Name     string
}

func (p Proc) Bytes() []byte {
	w := &Writer{}
	w.U32(0).U32(0).U32(0).U32(p.Len).U32(p.DbgStart).U32(p.DbgEnd).U32(p.Type)
	w.U32(p.Offset).U16(p.Section).U8(0).Str(p.Name)
	return Symbol(p.Kind, w.Bytes())
}

// Data builds a data symbol of the given kind.
func Data(kind uint16, typ, offset uint32, section uint16, name string) []byte {
	w := &Writer{}
	w.U32(typ).U32(offset).U16(section).Str(name)
	return Symbol(kind, w.Bytes())
}

// Compile3 builds an S_COMPILE3 record with front and back end versions
// given as major, minor, build and QFE.
func Compile3(flags uint32, cpu uint16, frontend, backend [4]uint16, version string) []byte {
	w := &Writer{}
	w.U32(flags).U16(cpu)
	for _, v := range frontend {
		w.U16(v)
	}
	for _, v := range backend {
		w.U16(v)
	}
	w.Str(version)
	return Symbol(SymCompile3, w.Bytes())
}

// BuildInfoSymbol builds an S_BUILDINFO record.
func BuildInfoSymbol(id uint32) []byte {
	w := &Writer{}
	w.U32(id)
	return Symbol(SymBuildInfo, w.Bytes())
}
