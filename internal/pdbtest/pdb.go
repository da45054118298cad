package pdbtest

// NamedStream is one entry of the PDB info stream's named stream map.
type NamedStream struct {
	Name  string
	Index uint32
}

// Info builds a VC70 PDB info stream.
func Info(signature, age uint32, guid [16]byte, named ...NamedStream) []byte {
	w := &Writer{}
	w.U32(20000404).U32(signature).U32(age).Raw(guid[:])

	names := &Writer{}
	offsets := make([]uint32, len(named))
	for i, n := range named {
		offsets[i] = uint32(names.Len())
		names.Str(n.Name)
	}
	w.U32(uint32(names.Len())).Raw(names.Bytes())

	// Every bucket present, none deleted.
	w.U32(uint32(len(named))).U32(uint32(len(named)))
	words := (len(named) + 31) / 32
	w.U32(uint32(words))
	for i := range words {
		var bits uint32
		for b := range 32 {
			if i*32+b < len(named) {
				bits |= 1 << b
			}
		}
		w.U32(bits)
	}
	w.U32(0)
	for i, n := range named {
		w.U32(offsets[i]).U32(n.Index)
	}
	w.U32(0) // no feature codes
	return w.Bytes()
}

// Names builds a /names string table and returns the offset of each
// string. Offset 0 holds the empty string.
func Names(strs ...string) ([]byte, []uint32) {
	buf := &Writer{}
	buf.U8(0)
	offsets := make([]uint32, len(strs))
	for i, s := range strs {
		offsets[i] = uint32(buf.Len())
		buf.Str(s)
	}

	w := &Writer{}
	w.U32(0xEFFEEFFE).U32(1).U32(uint32(buf.Len())).Raw(buf.Bytes())
	w.U32(1).U32(0) // one empty hash bucket
	w.U32(uint32(len(strs)))
	return w.Bytes(), offsets
}

// Section is a PE section header as stored in the section header stream.
type Section struct {
	Name           string
	VirtualSize    uint32
	VirtualAddress uint32
}

// Sections builds a section header stream.
func Sections(secs ...Section) []byte {
	w := &Writer{}
	for _, s := range secs {
		var name [8]byte
		copy(name[:], s.Name)
		w.Raw(name[:]).U32(s.VirtualSize).U32(s.VirtualAddress)
		w.U32(s.VirtualSize).U32(0).U32(0).U32(0).U16(0).U16(0).U32(0x60000020)
	}
	return w.Bytes()
}
