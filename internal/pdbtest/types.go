package pdbtest

// Leaf kinds used by the builders below.
const (
	leafModifier   = 0x1001
	leafPointer    = 0x1002
	leafProcedure  = 0x1008
	leafMFunction  = 0x1009
	leafArgList    = 0x1201
	leafFieldList  = 0x1203
	leafBitField   = 0x1205
	leafMethodList = 0x1206
	leafBClass     = 0x1400
	leafVBClass    = 0x1401
	leafIndex      = 0x1404
	leafVFuncTab   = 0x1409
	leafEnumerate  = 0x1502
	leafArray      = 0x1503
	leafClass      = 0x1504
	leafStructure  = 0x1505
	leafUnion      = 0x1506
	leafEnum       = 0x1507
	leafMember     = 0x150d
	leafStMember   = 0x150e
	leafMethod     = 0x150f
	leafNestType   = 0x1510
	leafOneMethod  = 0x1511
	leafFuncID     = 0x1601
	leafBuildInfo  = 0x1603
	leafStringID   = 0x1605
)

// Class property bits.
const (
	PropForwardRef    = 0x0080
	PropHasUniqueName = 0x0200
)

// Pointer attribute words for the common flat pointer shapes.
const (
	PtrNear32 = 0x0A | 4<<13
	PtrNear64 = 0x0C | 8<<13
)

// Modifier builds an LF_MODIFIER record.
func Modifier(underlying uint32, mods uint16) []byte {
	w := &Writer{}
	w.U32(underlying).U16(mods)
	return Record(leafModifier, w.Bytes())
}

// Pointer builds an LF_POINTER record.
func Pointer(referent, attrs uint32) []byte {
	w := &Writer{}
	w.U32(referent).U32(attrs)
	return Record(leafPointer, w.Bytes())
}

// Procedure builds an LF_PROCEDURE record.
func Procedure(ret uint32, params uint16, argList uint32) []byte {
	w := &Writer{}
	w.U32(ret).U8(0).U8(0).U16(params).U32(argList)
	return Record(leafProcedure, w.Bytes())
}

// MFunction builds an LF_MFUNCTION record.
func MFunction(ret, class, this uint32, params uint16, argList uint32) []byte {
	w := &Writer{}
	w.U32(ret).U32(class).U32(this).U8(0).U8(0).U16(params).U32(argList).U32(0)
	return Record(leafMFunction, w.Bytes())
}

// ArgList builds an LF_ARGLIST record.
func ArgList(args ...uint32) []byte {
	w := &Writer{}
	w.U32(uint32(len(args)))
	for _, a := range args {
		w.U32(a)
	}
	return Record(leafArgList, w.Bytes())
}

// Array builds an LF_ARRAY record with one numeric leaf per dimension.
func Array(elem, index uint32, dims ...uint64) []byte {
	return NamedArray(elem, index, "", dims...)
}

// NamedArray builds an LF_ARRAY record with a name. Dimensions after the
// first are written with an LF_ULONG prefix.
func NamedArray(elem, index uint32, name string, dims ...uint64) []byte {
	w := &Writer{}
	w.U32(elem).U32(index)
	for i, d := range dims {
		if i > 0 && d <= 0xFFFFFFFF {
			w.U16(0x8004).U32(uint32(d))
			continue
		}
		w.Numeric(d)
	}
	w.Str(name)
	return Record(leafArray, w.Bytes())
}

// Class describes an LF_CLASS or LF_STRUCTURE record.
type Class struct {
	Struct      bool
	Count       uint16
	Props       uint16
	FieldList   uint32
	DerivedFrom uint32
	VShape      uint32
	Size        uint64
	Name        string
	UniqueName  string
}

func (c Class) Bytes() []byte {
	props := c.Props
	if c.UniqueName != "" {
		props |= PropHasUniqueName
	}
	w := &Writer{}
	w.U16(c.Count).U16(props).U32(c.FieldList).U32(c.DerivedFrom).U32(c.VShape).Numeric(c.Size).Str(c.Name)
	if c.UniqueName != "" {
		w.Str(c.UniqueName)
	}
	kind := uint16(leafClass)
	if c.Struct {
		kind = leafStructure
	}
	return Record(kind, w.Bytes())
}

// Union builds an LF_UNION record.
func Union(count, props uint16, fieldList uint32, size uint64, name, unique string) []byte {
	if unique != "" {
		props |= PropHasUniqueName
	}
	w := &Writer{}
	w.U16(count).U16(props).U32(fieldList).Numeric(size).Str(name)
	if unique != "" {
		w.Str(unique)
	}
	return Record(leafUnion, w.Bytes())
}

// Enum builds an LF_ENUM record.
func Enum(count uint16, underlying, fieldList uint32, name string) []byte {
	w := &Writer{}
	w.U16(count).U16(0).U32(underlying).U32(fieldList).Str(name)
	return Record(leafEnum, w.Bytes())
}

// BitField builds an LF_BITFIELD record.
func BitField(typ uint32, length, position uint8) []byte {
	w := &Writer{}
	w.U32(typ).U8(length).U8(position)
	return Record(leafBitField, w.Bytes())
}

// MethodList builds an LF_METHODLIST of non-virtual public overloads.
func MethodList(types ...uint32) []byte {
	w := &Writer{}
	for _, t := range types {
		w.U16(3).U16(0).U32(t)
	}
	return Record(leafMethodList, w.Bytes())
}

// FieldList builds an LF_FIELDLIST from field sub-records, inserting
// LF_PADn bytes to keep every field four byte aligned.
func FieldList(fields ...[]byte) []byte {
	w := &Writer{}
	for _, f := range fields {
		w.Raw(f)
		for n := byte((4 - w.Len()%4) % 4); n > 0; n-- {
			w.U8(0xF0 | n)
		}
	}
	return Record(leafFieldList, w.Bytes())
}

// Member builds an LF_MEMBER field.
func Member(typ uint32, offset uint64, name string) []byte {
	return MemberAttrs(AccessPublic, typ, offset, name)
}

// Field access levels for MemberAttrs.
const (
	AccessPrivate   = 1
	AccessProtected = 2
	AccessPublic    = 3
)

// MemberAttrs builds an LF_MEMBER field with the given attribute word.
func MemberAttrs(attrs uint16, typ uint32, offset uint64, name string) []byte {
	w := &Writer{}
	w.U16(leafMember).U16(attrs).U32(typ).Numeric(offset).Str(name)
	return w.Bytes()
}

// StaticMember builds an LF_STMEMBER field.
func StaticMember(typ uint32, name string) []byte {
	w := &Writer{}
	w.U16(leafStMember).U16(3).U32(typ).Str(name)
	return w.Bytes()
}

// BaseClass builds an LF_BCLASS field.
func BaseClass(typ uint32, offset uint64) []byte {
	w := &Writer{}
	w.U16(leafBClass).U16(3).U32(typ).Numeric(offset)
	return w.Bytes()
}

// VirtualBaseClass builds an LF_VBCLASS field.
func VirtualBaseClass(base, vbptr uint32, vbpOffset, vbOffset uint64) []byte {
	w := &Writer{}
	w.U16(leafVBClass).U16(3).U32(base).U32(vbptr).Numeric(vbpOffset).Numeric(vbOffset)
	return w.Bytes()
}

// Enumerate builds an LF_ENUMERATE field with an inline value.
func Enumerate(value uint16, name string) []byte {
	w := &Writer{}
	w.U16(leafEnumerate).U16(3).U16(value).Str(name)
	return w.Bytes()
}

// OneMethod builds a non-virtual LF_ONEMETHOD field.
func OneMethod(typ uint32, name string) []byte {
	w := &Writer{}
	w.U16(leafOneMethod).U16(3).U32(typ).Str(name)
	return w.Bytes()
}

// IntroVirtualMethod builds an introducing virtual LF_ONEMETHOD field.
func IntroVirtualMethod(typ, vtableOffset uint32, name string) []byte {
	w := &Writer{}
	w.U16(leafOneMethod).U16(3 | 4<<2).U32(typ).U32(vtableOffset).Str(name)
	return w.Bytes()
}

// Method builds an LF_METHOD field.
func Method(count uint16, methodList uint32, name string) []byte {
	w := &Writer{}
	w.U16(leafMethod).U16(count).U32(methodList).Str(name)
	return w.Bytes()
}

// NestedType builds an LF_NESTTYPE field.
func NestedType(typ uint32, name string) []byte {
	w := &Writer{}
	w.U16(leafNestType).U16(0).U32(typ).Str(name)
	return w.Bytes()
}

// VFuncTab builds an LF_VFUNCTAB field.
func VFuncTab(typ uint32) []byte {
	w := &Writer{}
	w.U16(leafVFuncTab).U16(0).U32(typ)
	return w.Bytes()
}

// Continuation builds an LF_INDEX field linking to the next field list.
func Continuation(next uint32) []byte {
	w := &Writer{}
	w.U16(leafIndex).U16(0).U32(next)
	return w.Bytes()
}

// StringID builds an IPI LF_STRING_ID record.
func StringID(s string) []byte {
	w := &Writer{}
	w.U32(0).Str(s)
	return Record(leafStringID, w.Bytes())
}

// FuncID builds an IPI LF_FUNC_ID record.
func FuncID(scope, fn uint32, name string) []byte {
	w := &Writer{}
	w.U32(scope).U32(fn).Str(name)
	return Record(leafFuncID, w.Bytes())
}

// BuildInfo builds an IPI LF_BUILDINFO record.
func BuildInfo(ids ...uint32) []byte {
	w := &Writer{}
	w.U16(uint16(len(ids)))
	for _, id := range ids {
		w.U32(id)
	}
	return Record(leafBuildInfo, w.Bytes())
}

// TypeStream assembles a V80 TPI/IPI stream whose first record has index
// begin.
func TypeStream(begin uint32, records ...[]byte) []byte {
	body := &Writer{}
	for _, r := range records {
		body.Raw(r)
	}
	w := &Writer{}
	w.U32(20040203).U32(56).U32(begin).U32(begin + uint32(len(records))).U32(uint32(body.Len()))
	w.U16(0xFFFF).U16(0xFFFF).U32(4).U32(0)
	for range 6 {
		w.U32(0)
	}
	w.Raw(body.Bytes())
	return w.Bytes()
}
