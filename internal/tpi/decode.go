package tpi

import (
	"errors"
	"fmt"

	"github.com/skdltmxn/pdbview/internal/stream"
)

// Decode errors. ErrUnsupportedLeaf marks catalogued leaves this package
// does not decode; ErrUnknownLeaf marks kinds missing from the catalogue.
var (
	ErrUnsupportedLeaf = errors.New("tpi: unsupported leaf kind")
	ErrUnknownLeaf     = errors.New("tpi: unknown leaf kind")
)

// TypeData is a decoded type record payload.
type TypeData interface {
	Leaf() TypeRecordKind
}

// ModifierRecord represents an LF_MODIFIER type.
type ModifierRecord struct {
	ModifiedType TypeIndex
	Modifiers    ModifierOptions
}

// PointerRecord represents an LF_POINTER type.
type PointerRecord struct {
	ReferentType TypeIndex
	Attributes   PointerAttributes
	// ContainingClass is set for pointers to members only.
	ContainingClass TypeIndex
}

// ProcedureRecord represents an LF_PROCEDURE type (function signature).
type ProcedureRecord struct {
	ReturnType      TypeIndex
	CallingConv     CallingConvention
	FunctionOptions FunctionOptions
	ParameterCount  uint16
	ArgumentList    TypeIndex
}

// MFunctionRecord represents an LF_MFUNCTION type (member function).
type MFunctionRecord struct {
	ReturnType      TypeIndex
	ClassType       TypeIndex
	ThisType        TypeIndex
	CallingConv     CallingConvention
	FunctionOptions FunctionOptions
	ParameterCount  uint16
	ArgumentList    TypeIndex
	ThisAdjust      int32
}

// ArgListRecord represents an LF_ARGLIST type.
type ArgListRecord struct {
	ArgTypes []TypeIndex
}

// ArrayRecord represents an LF_ARRAY type. Dimensions holds the byte size
// of every dimension, innermost first; the last one is the array size.
type ArrayRecord struct {
	ElementType TypeIndex
	IndexType   TypeIndex
	Dimensions  []uint64
	Name        string
}

// Size returns the total byte size of the array.
func (a *ArrayRecord) Size() uint64 {
	if len(a.Dimensions) == 0 {
		return 0
	}
	return a.Dimensions[len(a.Dimensions)-1]
}

// ClassRecord represents an LF_CLASS, LF_STRUCTURE, or LF_INTERFACE type.
type ClassRecord struct {
	Kind        TypeRecordKind
	MemberCount uint16
	Properties  ClassProperties
	FieldList   TypeIndex
	DerivedFrom TypeIndex
	VShape      TypeIndex
	Size        uint64
	Name        string
	UniqueName  string // only if HasUniqueName is set
}

// UnionRecord represents an LF_UNION type.
type UnionRecord struct {
	MemberCount uint16
	Properties  ClassProperties
	FieldList   TypeIndex
	Size        uint64
	Name        string
	UniqueName  string
}

// EnumRecord represents an LF_ENUM type.
type EnumRecord struct {
	Count          uint16
	Properties     ClassProperties
	UnderlyingType TypeIndex
	FieldList      TypeIndex
	Name           string
	UniqueName     string
}

// BitFieldRecord represents an LF_BITFIELD type.
type BitFieldRecord struct {
	Type     TypeIndex
	Length   uint8
	Position uint8
}

// MethodListEntry is one overload inside an LF_METHODLIST.
type MethodListEntry struct {
	Attributes   FieldAttributes
	Type         TypeIndex
	VTableOffset *uint32
}

// MethodListRecord represents an LF_METHODLIST type.
type MethodListRecord struct {
	Methods []MethodListEntry
}

func (*ModifierRecord) Leaf() TypeRecordKind   { return LF_MODIFIER }
func (*PointerRecord) Leaf() TypeRecordKind    { return LF_POINTER }
func (*ProcedureRecord) Leaf() TypeRecordKind  { return LF_PROCEDURE }
func (*MFunctionRecord) Leaf() TypeRecordKind  { return LF_MFUNCTION }
func (*ArgListRecord) Leaf() TypeRecordKind    { return LF_ARGLIST }
func (*ArrayRecord) Leaf() TypeRecordKind      { return LF_ARRAY }
func (c *ClassRecord) Leaf() TypeRecordKind    { return c.Kind }
func (*UnionRecord) Leaf() TypeRecordKind      { return LF_UNION }
func (*EnumRecord) Leaf() TypeRecordKind       { return LF_ENUM }
func (*BitFieldRecord) Leaf() TypeRecordKind   { return LF_BITFIELD }
func (*MethodListRecord) Leaf() TypeRecordKind { return LF_METHODLIST }

// Decode turns a raw TPI record into its TypeData payload.
func Decode(rec *TypeRecord) (TypeData, error) {
	var (
		data TypeData
		err  error
	)
	switch rec.Kind {
	case LF_MODIFIER:
		data, err = ParseModifierRecord(rec.Data)
	case LF_POINTER:
		data, err = ParsePointerRecord(rec.Data)
	case LF_PROCEDURE:
		data, err = ParseProcedureRecord(rec.Data)
	case LF_MFUNCTION:
		data, err = ParseMFunctionRecord(rec.Data)
	case LF_ARGLIST:
		data, err = ParseArgListRecord(rec.Data)
	case LF_ARRAY:
		data, err = ParseArrayRecord(rec.Data)
	case LF_CLASS, LF_STRUCTURE, LF_INTERFACE:
		data, err = ParseClassRecord(rec.Kind, rec.Data)
	case LF_UNION:
		data, err = ParseUnionRecord(rec.Data)
	case LF_ENUM:
		data, err = ParseEnumRecord(rec.Data)
	case LF_BITFIELD:
		data, err = ParseBitFieldRecord(rec.Data)
	case LF_FIELDLIST:
		data, err = ParseFieldListRecord(rec.Data)
	case LF_METHODLIST:
		data, err = ParseMethodListRecord(rec.Data)
	case LF_BUILDINFO:
		data, err = ParseBuildInfoRecord(rec.Data)
	case LF_STRING_ID:
		data, err = ParseStringIDRecord(rec.Data)
	case LF_FUNC_ID, LF_MFUNC_ID:
		data, err = ParseFuncIDRecord(rec.Kind, rec.Data)
	default:
		if rec.Kind.Known() {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedLeaf, rec.Kind)
		}
		return nil, fmt.Errorf("%w: %s", ErrUnknownLeaf, rec.Kind)
	}
	if err != nil {
		if errors.Is(err, ErrUnsupportedLeaf) || errors.Is(err, ErrUnknownLeaf) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidTypeRecord, rec.Kind, err)
	}
	return data, nil
}

func readIndex(r *stream.Reader) (TypeIndex, error) {
	v, err := r.ReadU32()
	return TypeIndex(v), err
}

// ParseModifierRecord parses an LF_MODIFIER record.
func ParseModifierRecord(data []byte) (*ModifierRecord, error) {
	r := stream.NewReader(data)

	modType, err := readIndex(r)
	if err != nil {
		return nil, err
	}
	mods, err := r.ReadU16()
	if err != nil {
		return nil, err
	}

	return &ModifierRecord{ModifiedType: modType, Modifiers: ModifierOptions(mods)}, nil
}

// ParsePointerRecord parses an LF_POINTER record.
func ParsePointerRecord(data []byte) (*PointerRecord, error) {
	r := stream.NewReader(data)

	refType, err := readIndex(r)
	if err != nil {
		return nil, err
	}
	attrs, err := r.ReadU32()
	if err != nil {
		return nil, err
	}

	rec := &PointerRecord{ReferentType: refType, Attributes: PointerAttributes(attrs)}
	if rec.Attributes.IsPointerToMember() {
		if rec.ContainingClass, err = readIndex(r); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// ParseProcedureRecord parses an LF_PROCEDURE record.
func ParseProcedureRecord(data []byte) (*ProcedureRecord, error) {
	r := stream.NewReader(data)

	retType, err := readIndex(r)
	if err != nil {
		return nil, err
	}
	callConv, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	funcOpts, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	paramCount, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	argList, err := readIndex(r)
	if err != nil {
		return nil, err
	}

	return &ProcedureRecord{
		ReturnType:      retType,
		CallingConv:     CallingConvention(callConv),
		FunctionOptions: FunctionOptions(funcOpts),
		ParameterCount:  paramCount,
		ArgumentList:    argList,
	}, nil
}

// ParseMFunctionRecord parses an LF_MFUNCTION record.
func ParseMFunctionRecord(data []byte) (*MFunctionRecord, error) {
	r := stream.NewReader(data)

	var idx [3]TypeIndex
	for i := range idx {
		v, err := readIndex(r)
		if err != nil {
			return nil, err
		}
		idx[i] = v
	}
	callConv, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	funcOpts, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	paramCount, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	argList, err := readIndex(r)
	if err != nil {
		return nil, err
	}
	thisAdjust, err := r.ReadI32()
	if err != nil {
		return nil, err
	}

	return &MFunctionRecord{
		ReturnType:      idx[0],
		ClassType:       idx[1],
		ThisType:        idx[2],
		CallingConv:     CallingConvention(callConv),
		FunctionOptions: FunctionOptions(funcOpts),
		ParameterCount:  paramCount,
		ArgumentList:    argList,
		ThisAdjust:      thisAdjust,
	}, nil
}

// ParseArgListRecord parses an LF_ARGLIST record.
func ParseArgListRecord(data []byte) (*ArgListRecord, error) {
	r := stream.NewReader(data)

	count, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	if int64(count)*4 > int64(r.Remaining()) {
		return nil, stream.ErrUnexpectedEOF
	}

	args := make([]TypeIndex, count)
	for i := range args {
		if args[i], err = readIndex(r); err != nil {
			return nil, err
		}
	}
	return &ArgListRecord{ArgTypes: args}, nil
}

// ParseArrayRecord parses an LF_ARRAY record. The first dimension may be
// stored inline; any further dimension must carry a numeric leaf prefix,
// since inline values cannot be told apart from the name that follows.
func ParseArrayRecord(data []byte) (*ArrayRecord, error) {
	r := stream.NewReader(data)

	elemType, err := readIndex(r)
	if err != nil {
		return nil, err
	}
	indexType, err := readIndex(r)
	if err != nil {
		return nil, err
	}

	rec := &ArrayRecord{ElementType: elemType, IndexType: indexType}
	for {
		dim, err := r.ReadNumeric()
		if err != nil {
			return nil, err
		}
		rec.Dimensions = append(rec.Dimensions, dim)

		next, err := r.PeekU16()
		if err != nil || !isNumericLeaf(next) {
			break
		}
	}

	if r.Remaining() > 0 {
		if rec.Name, err = r.ReadCString(); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

func isNumericLeaf(leaf uint16) bool {
	switch leaf {
	case stream.LeafChar, stream.LeafShort, stream.LeafUShort, stream.LeafLong,
		stream.LeafULong, stream.LeafQuadWord, stream.LeafUQuadWord:
		return true
	}
	return false
}

// ParseClassRecord parses an LF_CLASS, LF_STRUCTURE, or LF_INTERFACE record.
func ParseClassRecord(kind TypeRecordKind, data []byte) (*ClassRecord, error) {
	r := stream.NewReader(data)

	memberCount, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	props, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	var idx [3]TypeIndex
	for i := range idx {
		if idx[i], err = readIndex(r); err != nil {
			return nil, err
		}
	}
	size, err := r.ReadNumeric()
	if err != nil {
		return nil, err
	}

	rec := &ClassRecord{
		Kind:        kind,
		MemberCount: memberCount,
		Properties:  ClassProperties(props),
		FieldList:   idx[0],
		DerivedFrom: idx[1],
		VShape:      idx[2],
		Size:        size,
	}
	rec.Name, rec.UniqueName, err = readNames(r, rec.Properties)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ParseUnionRecord parses an LF_UNION record.
func ParseUnionRecord(data []byte) (*UnionRecord, error) {
	r := stream.NewReader(data)

	memberCount, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	props, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	fieldList, err := readIndex(r)
	if err != nil {
		return nil, err
	}
	size, err := r.ReadNumeric()
	if err != nil {
		return nil, err
	}

	rec := &UnionRecord{
		MemberCount: memberCount,
		Properties:  ClassProperties(props),
		FieldList:   fieldList,
		Size:        size,
	}
	rec.Name, rec.UniqueName, err = readNames(r, rec.Properties)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ParseEnumRecord parses an LF_ENUM record.
func ParseEnumRecord(data []byte) (*EnumRecord, error) {
	r := stream.NewReader(data)

	count, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	props, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	underlying, err := readIndex(r)
	if err != nil {
		return nil, err
	}
	fieldList, err := readIndex(r)
	if err != nil {
		return nil, err
	}

	rec := &EnumRecord{
		Count:          count,
		Properties:     ClassProperties(props),
		UnderlyingType: underlying,
		FieldList:      fieldList,
	}
	rec.Name, rec.UniqueName, err = readNames(r, rec.Properties)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func readNames(r *stream.Reader, props ClassProperties) (name, unique string, err error) {
	if name, err = r.ReadCString(); err != nil {
		return "", "", err
	}
	if props.HasUniqueName() {
		if unique, err = r.ReadCString(); err != nil {
			return "", "", err
		}
	}
	return name, unique, nil
}

// ParseBitFieldRecord parses an LF_BITFIELD record.
func ParseBitFieldRecord(data []byte) (*BitFieldRecord, error) {
	r := stream.NewReader(data)

	typ, err := readIndex(r)
	if err != nil {
		return nil, err
	}
	length, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	position, err := r.ReadU8()
	if err != nil {
		return nil, err
	}

	return &BitFieldRecord{Type: typ, Length: length, Position: position}, nil
}

// ParseMethodListRecord parses an LF_METHODLIST record.
func ParseMethodListRecord(data []byte) (*MethodListRecord, error) {
	r := stream.NewReader(data)
	rec := &MethodListRecord{}

	for r.Remaining() > 0 {
		attrs, err := r.ReadU16()
		if err != nil {
			return nil, err
		}
		if err := r.Skip(2); err != nil {
			return nil, err
		}
		typ, err := readIndex(r)
		if err != nil {
			return nil, err
		}

		entry := MethodListEntry{Attributes: FieldAttributes(attrs), Type: typ}
		if entry.Attributes.IsIntroVirtual() {
			off, err := r.ReadU32()
			if err != nil {
				return nil, err
			}
			entry.VTableOffset = &off
		}
		rec.Methods = append(rec.Methods, entry)
	}
	return rec, nil
}
