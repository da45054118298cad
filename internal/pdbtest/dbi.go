package pdbtest

// Module is a DBI module info entry together with its module stream.
type Module struct {
	Name    string
	ObjName string
	// Stream is the MSF stream index of the module stream; 0xFFFF for none.
	Stream  uint16
	Symbols []byte
	C13     []byte
}

// StreamBytes returns the module stream: the C13 signature, the symbol
// records and the C13 line subsections.
func (m Module) StreamBytes() []byte {
	w := &Writer{}
	w.U32(4).Raw(m.Symbols).Raw(m.C13)
	return w.Bytes()
}

func (m Module) bytes() []byte {
	w := &Writer{}
	w.U32(0)
	// Section contribution.
	w.U16(1).U16(0).U32(0).U32(0).U32(0).U16(0).U16(0).U32(0).U32(0)
	w.U16(0).U16(m.Stream)
	w.U32(uint32(4 + len(m.Symbols))).U32(0).U32(uint32(len(m.C13)))
	w.U16(0).U16(0).U32(0).U32(0).U32(0)
	w.Str(m.Name).Str(m.ObjName).Pad(4)
	return w.Bytes()
}

// DBI builds a V70 DBI stream.
type DBI struct {
	Age        uint32
	Machine    uint16
	SymRecords uint16
	Modules    []Module
	// DbgHeader, when set, is written as the optional debug header.
	DbgHeader []uint16
}

func (d DBI) Bytes() []byte {
	mods := &Writer{}
	for _, m := range d.Modules {
		mods.Raw(m.bytes())
	}
	dbg := &Writer{}
	for _, idx := range d.DbgHeader {
		dbg.U16(idx)
	}

	w := &Writer{}
	w.U32(0xFFFFFFFF).U32(19990903).U32(d.Age)
	w.U16(0xFFFF).U16(0x8E00).U16(0xFFFF).U16(0).U16(d.SymRecords).U16(0)
	w.U32(uint32(mods.Len())).U32(0).U32(0).U32(0).U32(0).U32(0).U32(uint32(dbg.Len())).U32(0)
	w.U16(0).U16(d.Machine).U32(0)
	w.Raw(mods.Bytes()).Raw(dbg.Bytes())
	return w.Bytes()
}

// FileChecksum is one DEBUG_S_FILECHKSMS entry.
type FileChecksum struct {
	NameOffset uint32
	Kind       uint8
	Sum        []byte
}

// Subsection frames a C13 debug subsection and pads it to four bytes.
func Subsection(kind uint32, data []byte) []byte {
	w := &Writer{}
	w.U32(kind).U32(uint32(len(data))).Raw(data).Pad(4)
	return w.Bytes()
}

// FileChecksums builds a DEBUG_S_FILECHKSMS subsection.
func FileChecksums(entries ...FileChecksum) []byte {
	w := &Writer{}
	for _, e := range entries {
		w.U32(e.NameOffset).U8(uint8(len(e.Sum))).U8(e.Kind).Raw(e.Sum).Pad(4)
	}
	return Subsection(0xF4, w.Bytes())
}
