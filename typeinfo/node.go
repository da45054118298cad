// Package typeinfo resolves CodeView type records into a graph of shared
// type nodes and computes their layout sizes.
package typeinfo

import "github.com/skdltmxn/pdbview/internal/tpi"

// TypeIndex is a reference to a record in the TPI stream.
type TypeIndex = tpi.TypeIndex

// Kind identifies the variant of a Node.
type Kind uint8

const (
	KindClass Kind = iota + 1
	KindUnion
	KindEnumeration
	KindEnumVariant
	KindPointer
	KindPrimitive
	KindArray
	KindFieldList
	KindArgumentList
	KindModifier
	KindBitfield
	KindMember
	KindBaseClass
	KindVirtualBaseClass
	KindProcedure
	KindMemberFunction
	KindMethodList
	KindMethodListEntry
	KindNested
	KindOverloadedMethod
	KindMethod
	KindStaticMember
	KindVTable
)

var kindNames = [...]string{
	KindClass:            "Class",
	KindUnion:            "Union",
	KindEnumeration:      "Enumeration",
	KindEnumVariant:      "EnumVariant",
	KindPointer:          "Pointer",
	KindPrimitive:        "Primitive",
	KindArray:            "Array",
	KindFieldList:        "FieldList",
	KindArgumentList:     "ArgumentList",
	KindModifier:         "Modifier",
	KindBitfield:         "Bitfield",
	KindMember:           "Member",
	KindBaseClass:        "BaseClass",
	KindVirtualBaseClass: "VirtualBaseClass",
	KindProcedure:        "Procedure",
	KindMemberFunction:   "MemberFunction",
	KindMethodList:       "MethodList",
	KindMethodListEntry:  "MethodListEntry",
	KindNested:           "Nested",
	KindOverloadedMethod: "OverloadedMethod",
	KindMethod:           "Method",
	KindStaticMember:     "StaticMember",
	KindVTable:           "VTable",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "Unknown"
}

// Node is one resolved type. The set of implementations is closed; every
// node is shared by pointer and identity is pointer equality.
type Node interface {
	Kind() Kind
	// Index returns the type index the node was resolved from, or 0 for
	// nodes decoded inline from a field list.
	Index() TypeIndex
	node()
}

// Sized is implemented by the nodes that have a standalone byte size.
type Sized interface {
	Node
	sized()
}

type header struct {
	index TypeIndex
}

func (h *header) Index() TypeIndex { return h.index }
func (*header) node()              {}

// ClassKind distinguishes the three aggregate record kinds.
type ClassKind uint8

const (
	ClassKindClass ClassKind = iota
	ClassKindStruct
	ClassKindInterface
)

func (k ClassKind) String() string {
	switch k {
	case ClassKindStruct:
		return "Struct"
	case ClassKindInterface:
		return "Interface"
	default:
		return "Class"
	}
}

// Properties are the property flags shared by classes, unions and enums.
type Properties struct {
	Packed              bool  `json:"packed"`
	Constructors        bool  `json:"constructors"`
	OverlappedOperators bool  `json:"overlapped_operators"`
	IsNestedType        bool  `json:"is_nested_type"`
	ContainsNestedTypes bool  `json:"contains_nested_types"`
	OverloadAssignment  bool  `json:"overload_assignment"`
	OverloadCasting     bool  `json:"overload_casting"`
	ForwardReference    bool  `json:"forward_reference"`
	ScopedDefinition    bool  `json:"scoped_definition"`
	HasUniqueName       bool  `json:"has_unique_name"`
	Sealed              bool  `json:"sealed"`
	HFA                 uint8 `json:"hfa"`
	IntrinsicType       bool  `json:"intrinsic_type"`
	Mocom               uint8 `json:"mocom"`
}

func newProperties(p tpi.ClassProperties) Properties {
	return Properties{
		Packed:              p.IsPacked(),
		Constructors:        p.HasCtor(),
		OverlappedOperators: p.HasOverloadedOps(),
		IsNestedType:        p.IsNested(),
		ContainsNestedTypes: p.ContainsNested(),
		OverloadAssignment:  p.HasOverloadedAssign(),
		OverloadCasting:     p.HasCastOperator(),
		ForwardReference:    p.IsForwardRef(),
		ScopedDefinition:    p.IsScoped(),
		HasUniqueName:       p.HasUniqueName(),
		Sealed:              p.IsSealed(),
		HFA:                 p.Hfa(),
		IntrinsicType:       p.IsIntrinsic(),
		Mocom:               p.Mocom(),
	}
}

// Class is an LF_CLASS, LF_STRUCTURE or LF_INTERFACE type.
type Class struct {
	header
	Name        string
	UniqueName  string
	ClassKind   ClassKind
	Properties  Properties
	Count       uint16
	Size        uint64
	DerivedFrom Node
	VTableShape TypeIndex

	fields *FieldList
}

// Fields returns the class members, shared with the field list node.
func (c *Class) Fields() []Node {
	if c.fields == nil {
		return nil
	}
	return c.fields.Fields()
}

// Union is an LF_UNION type.
type Union struct {
	header
	Name       string
	UniqueName string
	Properties Properties
	Count      uint16
	Size       uint64

	fields *FieldList
}

// Fields returns the union members. Unions declaring zero members have none.
func (u *Union) Fields() []Node {
	if u.fields == nil {
		return nil
	}
	return u.fields.Fields()
}

// Enumeration is an LF_ENUM type.
type Enumeration struct {
	header
	Name       string
	UniqueName string
	Properties Properties
	Underlying Node
	Variants   []*EnumVariant
}

// EnumVariant is one LF_ENUMERATE entry.
type EnumVariant struct {
	header
	Name  string
	Value Literal
}

// Pointer is an LF_POINTER type. Pointee is nil when the pointed-to type
// could not be resolved.
type Pointer struct {
	header
	Pointee         Node
	Attributes      PointerAttributes
	ContainingClass TypeIndex
}

// Primitive is a simple type synthesised from a type index below 0x1000.
type Primitive struct {
	header
	Type        PrimitiveKind
	Indirection *Indirection
}

// Array is an LF_ARRAY type. DimensionsBytes holds the cumulative byte
// size of each dimension as recorded; DimensionsElements is derived by
// Cache.Complete.
type Array struct {
	header
	Element            Node
	Indexing           Node
	Size               uint64
	DimensionsBytes    []uint64
	DimensionsElements []uint64
}

// FieldList is an LF_FIELDLIST, including any LF_INDEX continuations.
type FieldList struct {
	header
	own  []Node
	next *FieldList
}

// Fields returns the fields of this record followed by those of every
// continuation record.
func (f *FieldList) Fields() []Node {
	if f.next == nil {
		return f.own
	}
	var out []Node
	seen := make(map[*FieldList]bool)
	for l := f; l != nil && !seen[l]; l = l.next {
		seen[l] = true
		out = append(out, l.own...)
	}
	return out
}

// ArgumentList is an LF_ARGLIST type.
type ArgumentList struct {
	header
	Args []Node
}

// Modifier is an LF_MODIFIER type.
type Modifier struct {
	header
	Underlying Node
	Const      bool
	Volatile   bool
	Unaligned  bool
}

// Bitfield is an LF_BITFIELD type.
type Bitfield struct {
	header
	Underlying Node
	Length     uint8
	Position   uint8
}

// BitSize returns the width of the bitfield in bits.
func (b *Bitfield) BitSize() uint64 { return uint64(b.Length) }

// Member is an LF_MEMBER field. Access is "private", "protected",
// "public" or empty.
type Member struct {
	header
	Name   string
	Type   Node
	Offset uint64
	Access string
}

// BaseClass is an LF_BCLASS or LF_BINTERFACE field.
type BaseClass struct {
	header
	ClassKind ClassKind
	Base      Node
	Offset    uint64
}

// VirtualBaseClass is an LF_VBCLASS or LF_IVBCLASS field.
type VirtualBaseClass struct {
	header
	Direct            bool
	Base              Node
	BasePointer       Node
	BasePointerOffset uint64
	VirtualBaseOffset uint64
}

// Procedure is an LF_PROCEDURE type. ReturnType is nil for index 0.
type Procedure struct {
	header
	ReturnType        Node
	CallingConvention string
	ParameterCount    uint16

	args *ArgumentList
}

// Args returns the argument types, shared with the argument list node.
func (p *Procedure) Args() []Node { return argsOf(p.args) }

// MemberFunction is an LF_MFUNCTION type. ThisType is nil for static
// member functions.
type MemberFunction struct {
	header
	ReturnType        Node
	ClassType         Node
	ThisType          Node
	CallingConvention string
	ParameterCount    uint16
	ThisAdjust        int32

	args *ArgumentList
}

// Args returns the argument types, shared with the argument list node.
func (m *MemberFunction) Args() []Node { return argsOf(m.args) }

func argsOf(a *ArgumentList) []Node {
	if a == nil {
		return nil
	}
	return a.Args
}

// MethodList is an LF_METHODLIST type.
type MethodList struct {
	header
	Entries []*MethodListEntry
}

// MethodListEntry is one overload of an LF_METHODLIST.
type MethodListEntry struct {
	header
	Type         Node
	VTableOffset *uint32
}

// Nested is an LF_NESTTYPE or LF_NESTTYPEEX field.
type Nested struct {
	header
	Name string
	Type Node
}

// OverloadedMethod is an LF_METHOD field.
type OverloadedMethod struct {
	header
	Name       string
	MethodList Node
}

// Method is an LF_ONEMETHOD field.
type Method struct {
	header
	Name         string
	Type         Node
	VTableOffset *uint32
}

// StaticMember is an LF_STMEMBER field.
type StaticMember struct {
	header
	Name string
	Type Node
}

// VTable is an LF_VFUNCTAB field.
type VTable struct {
	header
	Shape Node
}

func (*Class) Kind() Kind            { return KindClass }
func (*Union) Kind() Kind            { return KindUnion }
func (*Enumeration) Kind() Kind      { return KindEnumeration }
func (*EnumVariant) Kind() Kind      { return KindEnumVariant }
func (*Pointer) Kind() Kind          { return KindPointer }
func (*Primitive) Kind() Kind        { return KindPrimitive }
func (*Array) Kind() Kind            { return KindArray }
func (*FieldList) Kind() Kind        { return KindFieldList }
func (*ArgumentList) Kind() Kind     { return KindArgumentList }
func (*Modifier) Kind() Kind         { return KindModifier }
func (*Bitfield) Kind() Kind         { return KindBitfield }
func (*Member) Kind() Kind           { return KindMember }
func (*BaseClass) Kind() Kind        { return KindBaseClass }
func (*VirtualBaseClass) Kind() Kind { return KindVirtualBaseClass }
func (*Procedure) Kind() Kind        { return KindProcedure }
func (*MemberFunction) Kind() Kind   { return KindMemberFunction }
func (*MethodList) Kind() Kind       { return KindMethodList }
func (*MethodListEntry) Kind() Kind  { return KindMethodListEntry }
func (*Nested) Kind() Kind           { return KindNested }
func (*OverloadedMethod) Kind() Kind { return KindOverloadedMethod }
func (*Method) Kind() Kind           { return KindMethod }
func (*StaticMember) Kind() Kind     { return KindStaticMember }
func (*VTable) Kind() Kind           { return KindVTable }

func (*Class) sized()       {}
func (*Union) sized()       {}
func (*Enumeration) sized() {}
func (*Pointer) sized()     {}
func (*Primitive) sized()   {}
func (*Array) sized()       {}
func (*FieldList) sized()   {}
func (*Modifier) sized()    {}
func (*Bitfield) sized()    {}
