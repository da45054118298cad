package typeinfo

import (
	"fmt"
	"strconv"

	"github.com/skdltmxn/pdbview/internal/stream"
	"github.com/skdltmxn/pdbview/internal/tpi"
)

// PrimitiveKind is the machine type of a Primitive node.
type PrimitiveKind uint8

const (
	PrimNoType PrimitiveKind = iota
	PrimVoid
	PrimChar
	PrimUChar
	PrimRChar
	PrimWChar
	PrimRChar16
	PrimRChar32
	PrimChar8
	PrimI8
	PrimU8
	PrimShort
	PrimUShort
	PrimI16
	PrimU16
	PrimLong
	PrimULong
	PrimI32
	PrimU32
	PrimQuad
	PrimUQuad
	PrimI64
	PrimU64
	PrimOcta
	PrimUOcta
	PrimI128
	PrimU128
	PrimF16
	PrimF32
	PrimF32PP
	PrimF48
	PrimF64
	PrimF80
	PrimF128
	PrimComplex32
	PrimComplex64
	PrimComplex80
	PrimComplex128
	PrimBool8
	PrimBool16
	PrimBool32
	PrimBool64
	PrimHRESULT
)

var primitiveNames = [...]string{
	PrimNoType: "NoType", PrimVoid: "Void",
	PrimChar: "Char", PrimUChar: "UChar", PrimRChar: "RChar", PrimWChar: "WChar",
	PrimRChar16: "RChar16", PrimRChar32: "RChar32", PrimChar8: "Char8",
	PrimI8: "I8", PrimU8: "U8", PrimShort: "Short", PrimUShort: "UShort",
	PrimI16: "I16", PrimU16: "U16", PrimLong: "Long", PrimULong: "ULong",
	PrimI32: "I32", PrimU32: "U32", PrimQuad: "Quad", PrimUQuad: "UQuad",
	PrimI64: "I64", PrimU64: "U64", PrimOcta: "Octa", PrimUOcta: "UOcta",
	PrimI128: "I128", PrimU128: "U128",
	PrimF16: "F16", PrimF32: "F32", PrimF32PP: "F32PP", PrimF48: "F48",
	PrimF64: "F64", PrimF80: "F80", PrimF128: "F128",
	PrimComplex32: "Complex32", PrimComplex64: "Complex64",
	PrimComplex80: "Complex80", PrimComplex128: "Complex128",
	PrimBool8: "Bool8", PrimBool16: "Bool16", PrimBool32: "Bool32", PrimBool64: "Bool64",
	PrimHRESULT: "HRESULT",
}

func (k PrimitiveKind) String() string {
	if int(k) < len(primitiveNames) {
		return primitiveNames[k]
	}
	return "PrimitiveKind(" + strconv.Itoa(int(k)) + ")"
}

var simpleKinds = map[tpi.SimpleTypeKind]PrimitiveKind{
	tpi.SimpleTypeNone:         PrimNoType,
	tpi.SimpleTypeVoid:         PrimVoid,
	tpi.SimpleTypeHResult:      PrimHRESULT,
	tpi.SimpleTypeSignedChar:   PrimChar,
	tpi.SimpleTypeUnsignedChar: PrimUChar,
	tpi.SimpleTypeNarrowChar:   PrimRChar,
	tpi.SimpleTypeWideChar:     PrimWChar,
	tpi.SimpleTypeChar16:       PrimRChar16,
	tpi.SimpleTypeChar32:       PrimRChar32,
	tpi.SimpleTypeChar8:        PrimChar8,
	tpi.SimpleTypeSByte:        PrimI8,
	tpi.SimpleTypeByte:         PrimU8,
	tpi.SimpleTypeInt16Short:   PrimShort,
	tpi.SimpleTypeUInt16Short:  PrimUShort,
	tpi.SimpleTypeInt16:        PrimI16,
	tpi.SimpleTypeUInt16:       PrimU16,
	tpi.SimpleTypeInt32Long:    PrimLong,
	tpi.SimpleTypeUInt32Long:   PrimULong,
	tpi.SimpleTypeInt32:        PrimI32,
	tpi.SimpleTypeUInt32:       PrimU32,
	tpi.SimpleTypeInt64Quad:    PrimQuad,
	tpi.SimpleTypeUInt64Quad:   PrimUQuad,
	tpi.SimpleTypeInt64:        PrimI64,
	tpi.SimpleTypeUInt64:       PrimU64,
	tpi.SimpleTypeInt128Oct:    PrimOcta,
	tpi.SimpleTypeUInt128Oct:   PrimUOcta,
	tpi.SimpleTypeInt128:       PrimI128,
	tpi.SimpleTypeUInt128:      PrimU128,
	tpi.SimpleTypeFloat16:      PrimF16,
	tpi.SimpleTypeFloat32:      PrimF32,
	tpi.SimpleTypeFloat32PP:    PrimF32PP,
	tpi.SimpleTypeFloat48:      PrimF48,
	tpi.SimpleTypeFloat64:      PrimF64,
	tpi.SimpleTypeFloat80:      PrimF80,
	tpi.SimpleTypeFloat128:     PrimF128,
	tpi.SimpleTypeComplex32:    PrimComplex32,
	tpi.SimpleTypeComplex64:    PrimComplex64,
	tpi.SimpleTypeComplex80:    PrimComplex80,
	tpi.SimpleTypeComplex128:   PrimComplex128,
	tpi.SimpleTypeBool8:        PrimBool8,
	tpi.SimpleTypeBool16:       PrimBool16,
	tpi.SimpleTypeBool32:       PrimBool32,
	tpi.SimpleTypeBool64:       PrimBool64,
}

// Size returns the native byte size of k.
func (k PrimitiveKind) Size() (uint64, error) {
	switch k {
	case PrimNoType, PrimVoid:
		return 0, nil
	case PrimChar, PrimUChar, PrimRChar, PrimChar8, PrimI8, PrimU8, PrimBool8:
		return 1, nil
	case PrimRChar16, PrimWChar, PrimShort, PrimUShort, PrimI16, PrimU16, PrimF16, PrimBool16:
		return 2, nil
	case PrimRChar32, PrimLong, PrimULong, PrimI32, PrimU32, PrimF32, PrimF32PP, PrimBool32, PrimHRESULT:
		return 4, nil
	case PrimQuad, PrimUQuad, PrimI64, PrimU64, PrimF64, PrimBool64:
		return 8, nil
	case PrimOcta, PrimUOcta, PrimI128, PrimU128:
		return 16, nil
	}
	return 0, fmt.Errorf("%w: primitive %s", ErrUnhandledSize, k)
}

// Indirection is the pointer mode encoded in a simple type index.
type Indirection uint8

const (
	IndirectionNear16 Indirection = iota + 1
	IndirectionFar16
	IndirectionHuge16
	IndirectionNear32
	IndirectionFar32
	IndirectionNear64
	IndirectionNear128
)

func (i Indirection) String() string {
	switch i {
	case IndirectionNear16:
		return "Near16"
	case IndirectionFar16:
		return "Far16"
	case IndirectionHuge16:
		return "Huge16"
	case IndirectionNear32:
		return "Near32"
	case IndirectionFar32:
		return "Far32"
	case IndirectionNear64:
		return "Near64"
	case IndirectionNear128:
		return "Near128"
	}
	return "Indirection(" + strconv.Itoa(int(i)) + ")"
}

// Size returns the byte size of a pointer with this indirection.
// Near128 pointers are stored in eight bytes.
func (i Indirection) Size() uint64 {
	switch i {
	case IndirectionNear16, IndirectionFar16, IndirectionHuge16:
		return 2
	case IndirectionNear32, IndirectionFar32:
		return 4
	default:
		return 8
	}
}

func newPrimitive(ti TypeIndex) (*Primitive, error) {
	kind, ok := simpleKinds[ti.SimpleKind()]
	if !ok {
		return nil, fmt.Errorf("%w: simple type kind 0x%02x", ErrUnsupported, uint8(ti.SimpleKind()))
	}
	p := &Primitive{header: header{index: ti}, Type: kind}
	if mode := ti.SimpleMode(); mode != tpi.SimpleModeDirect {
		ind := Indirection(mode)
		p.Indirection = &ind
	}
	return p, nil
}

// PointerKind is the addressing model of a Pointer node.
type PointerKind uint8

const (
	PtrNear16 PointerKind = iota
	PtrFar16
	PtrHuge16
	PtrBaseSeg
	PtrBaseVal
	PtrBaseSegVal
	PtrBaseAddr
	PtrBaseSegAddr
	PtrBaseType
	PtrBaseSelf
	PtrNear32
	PtrFar32
	Ptr64
)

var pointerKindNames = [...]string{
	"Near16", "Far16", "Huge16", "BaseSeg", "BaseVal", "BaseSegVal", "BaseAddr",
	"BaseSegAddr", "BaseType", "BaseSelf", "Near32", "Far32", "Ptr64",
}

func (k PointerKind) String() string {
	if int(k) < len(pointerKindNames) {
		return pointerKindNames[k]
	}
	return "PointerKind(" + strconv.Itoa(int(k)) + ")"
}

// Size returns the byte size of a pointer of this kind.
func (k PointerKind) Size() (uint64, error) {
	switch k {
	case PtrNear16, PtrFar16, PtrHuge16:
		return 2, nil
	case PtrNear32, PtrFar32:
		return 4, nil
	case Ptr64:
		return 8, nil
	}
	return 0, fmt.Errorf("%w: pointer kind %s", ErrUnhandledSize, k)
}

// PointerMode distinguishes plain pointers from references and pointers
// to members.
type PointerMode uint8

const (
	ModePointer PointerMode = iota
	ModeLValueReference
	ModePointerToDataMember
	ModePointerToMemberFunction
	ModeRValueReference
)

func (m PointerMode) String() string {
	switch m {
	case ModePointer:
		return "Pointer"
	case ModeLValueReference:
		return "LValueReference"
	case ModePointerToDataMember:
		return "PointerToDataMember"
	case ModePointerToMemberFunction:
		return "PointerToMemberFunction"
	case ModeRValueReference:
		return "RValueReference"
	}
	return "PointerMode(" + strconv.Itoa(int(m)) + ")"
}

// PointerAttributes are the decoded attribute bits of a Pointer node.
type PointerAttributes struct {
	Kind              PointerKind `json:"kind"`
	Mode              PointerMode `json:"mode"`
	IsVolatile        bool        `json:"is_volatile"`
	IsConst           bool        `json:"is_const"`
	IsUnaligned       bool        `json:"is_unaligned"`
	IsRestrict        bool        `json:"is_restrict"`
	IsReference       bool        `json:"is_reference"`
	IsPointerToMember bool        `json:"is_pointer_to_member"`
	Size              uint8       `json:"size"`
}

func newPointerAttributes(a tpi.PointerAttributes) PointerAttributes {
	return PointerAttributes{
		Kind:              PointerKind(a.Kind()),
		Mode:              PointerMode(a.Mode()),
		IsVolatile:        a.IsVolatile(),
		IsConst:           a.IsConst(),
		IsUnaligned:       a.IsUnaligned(),
		IsRestrict:        a.IsRestrict(),
		IsReference:       a.IsReference(),
		IsPointerToMember: a.IsPointerToMember(),
		Size:              a.Size(),
	}
}

// LiteralKind is the width and signedness of an enumerator value.
type LiteralKind uint8

const (
	LitU8 LiteralKind = iota
	LitU16
	LitU32
	LitU64
	LitI8
	LitI16
	LitI32
	LitI64
)

var literalNames = [...]string{"U8", "U16", "U32", "U64", "I8", "I16", "I32", "I64"}

func (k LiteralKind) String() string {
	if int(k) < len(literalNames) {
		return literalNames[k]
	}
	return "LiteralKind(" + strconv.Itoa(int(k)) + ")"
}

// Literal is an enumerator value. Signed kinds hold the sign-extended
// two's complement bits.
type Literal struct {
	Kind LiteralKind
	Bits uint64
}

// Signed reports whether the literal has a signed kind.
func (l Literal) Signed() bool { return l.Kind >= LitI8 }

func (l Literal) String() string {
	if l.Signed() {
		return strconv.FormatInt(int64(l.Bits), 10)
	}
	return strconv.FormatUint(l.Bits, 10)
}

func newLiteral(n stream.Numeric) Literal {
	switch n.Leaf {
	case stream.LeafChar:
		return Literal{Kind: LitI8, Bits: n.Value}
	case stream.LeafShort:
		return Literal{Kind: LitI16, Bits: n.Value}
	case stream.LeafLong:
		return Literal{Kind: LitI32, Bits: n.Value}
	case stream.LeafQuadWord:
		return Literal{Kind: LitI64, Bits: n.Value}
	case stream.LeafULong:
		return Literal{Kind: LitU32, Bits: n.Value}
	case stream.LeafUQuadWord:
		return Literal{Kind: LitU64, Bits: n.Value}
	default:
		return Literal{Kind: LitU16, Bits: n.Value}
	}
}
