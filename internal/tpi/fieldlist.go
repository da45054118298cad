package tpi

import (
	"fmt"

	"github.com/skdltmxn/pdbview/internal/stream"
)

// FieldListRecord represents an LF_FIELDLIST. Continuation is the index of
// the next LF_FIELDLIST when the list was split with LF_INDEX, or 0.
type FieldListRecord struct {
	Fields       []TypeData
	Continuation TypeIndex
}

// MemberRecord represents an LF_MEMBER field.
type MemberRecord struct {
	Attributes FieldAttributes
	Type       TypeIndex
	Offset     uint64
	Name       string
}

// StaticMemberRecord represents an LF_STMEMBER field.
type StaticMemberRecord struct {
	Attributes FieldAttributes
	Type       TypeIndex
	Name       string
}

// BaseClassRecord represents LF_BCLASS and LF_BINTERFACE fields.
type BaseClassRecord struct {
	Kind       TypeRecordKind
	Attributes FieldAttributes
	Type       TypeIndex
	Offset     uint64
}

// VirtualBaseClassRecord represents LF_VBCLASS (direct) and LF_IVBCLASS fields.
type VirtualBaseClassRecord struct {
	Kind              TypeRecordKind
	Attributes        FieldAttributes
	BaseType          TypeIndex
	BasePointer       TypeIndex
	BasePointerOffset uint64
	VirtualBaseOffset uint64
}

// EnumerateRecord represents an LF_ENUMERATE field.
type EnumerateRecord struct {
	Attributes FieldAttributes
	Value      stream.Numeric
	Name       string
}

// OneMethodRecord represents an LF_ONEMETHOD field.
type OneMethodRecord struct {
	Attributes   FieldAttributes
	Type         TypeIndex
	VTableOffset *uint32
	Name         string
}

// OverloadedMethodRecord represents an LF_METHOD field.
type OverloadedMethodRecord struct {
	Count      uint16
	MethodList TypeIndex
	Name       string
}

// NestedTypeRecord represents LF_NESTTYPE and LF_NESTTYPEEX fields.
type NestedTypeRecord struct {
	Kind       TypeRecordKind
	Attributes FieldAttributes
	Type       TypeIndex
	Name       string
}

// VFuncTabRecord represents an LF_VFUNCTAB field.
type VFuncTabRecord struct {
	Type TypeIndex
}

// FriendRecord represents LF_FRIENDCLS and LF_FRIENDFCN fields.
type FriendRecord struct {
	Kind TypeRecordKind
	Type TypeIndex
	Name string
}

func (*FieldListRecord) Leaf() TypeRecordKind        { return LF_FIELDLIST }
func (*MemberRecord) Leaf() TypeRecordKind           { return LF_MEMBER }
func (*StaticMemberRecord) Leaf() TypeRecordKind     { return LF_STMEMBER }
func (b *BaseClassRecord) Leaf() TypeRecordKind      { return b.Kind }
func (v *VirtualBaseClassRecord) Leaf() TypeRecordKind {
	return v.Kind
}
func (*EnumerateRecord) Leaf() TypeRecordKind        { return LF_ENUMERATE }
func (*OneMethodRecord) Leaf() TypeRecordKind        { return LF_ONEMETHOD }
func (*OverloadedMethodRecord) Leaf() TypeRecordKind { return LF_METHOD }
func (n *NestedTypeRecord) Leaf() TypeRecordKind     { return n.Kind }
func (*VFuncTabRecord) Leaf() TypeRecordKind         { return LF_VFUNCTAB }
func (f *FriendRecord) Leaf() TypeRecordKind         { return f.Kind }

// ParseFieldListRecord parses an LF_FIELDLIST record into its sub-records.
func ParseFieldListRecord(data []byte) (*FieldListRecord, error) {
	r := stream.NewReader(data)
	rec := &FieldListRecord{}

	for r.Remaining() > 0 {
		b, err := r.PeekU8()
		if err != nil {
			return nil, err
		}
		if TypeRecordKind(b).IsPadding() {
			// LF_PADn: the low nibble counts the bytes up to the next field.
			n := max(int(b&0x0F), 1)
			if r.Skip(n) != nil {
				break
			}
			continue
		}

		kind, err := r.ReadU16()
		if err != nil {
			return nil, err
		}
		if TypeRecordKind(kind) == LF_INDEX {
			if err := r.Skip(2); err != nil {
				return nil, err
			}
			if rec.Continuation, err = readIndex(r); err != nil {
				return nil, err
			}
			continue
		}

		field, err := parseField(TypeRecordKind(kind), r)
		if err != nil {
			return nil, err
		}
		rec.Fields = append(rec.Fields, field)
	}
	return rec, nil
}

func parseField(kind TypeRecordKind, r *stream.Reader) (TypeData, error) {
	switch kind {
	case LF_MEMBER:
		attrs, typ, err := readAttrsIndex(r)
		if err != nil {
			return nil, err
		}
		offset, err := r.ReadNumeric()
		if err != nil {
			return nil, err
		}
		name, err := r.ReadCString()
		if err != nil {
			return nil, err
		}
		return &MemberRecord{Attributes: attrs, Type: typ, Offset: offset, Name: name}, nil

	case LF_STMEMBER:
		attrs, typ, err := readAttrsIndex(r)
		if err != nil {
			return nil, err
		}
		name, err := r.ReadCString()
		if err != nil {
			return nil, err
		}
		return &StaticMemberRecord{Attributes: attrs, Type: typ, Name: name}, nil

	case LF_BCLASS, LF_BINTERFACE:
		attrs, typ, err := readAttrsIndex(r)
		if err != nil {
			return nil, err
		}
		offset, err := r.ReadNumeric()
		if err != nil {
			return nil, err
		}
		return &BaseClassRecord{Kind: kind, Attributes: attrs, Type: typ, Offset: offset}, nil

	case LF_VBCLASS, LF_IVBCLASS:
		attrs, base, err := readAttrsIndex(r)
		if err != nil {
			return nil, err
		}
		vbptr, err := readIndex(r)
		if err != nil {
			return nil, err
		}
		vbpOff, err := r.ReadNumeric()
		if err != nil {
			return nil, err
		}
		vbOff, err := r.ReadNumeric()
		if err != nil {
			return nil, err
		}
		return &VirtualBaseClassRecord{
			Kind:              kind,
			Attributes:        attrs,
			BaseType:          base,
			BasePointer:       vbptr,
			BasePointerOffset: vbpOff,
			VirtualBaseOffset: vbOff,
		}, nil

	case LF_ENUMERATE:
		attrs, err := r.ReadU16()
		if err != nil {
			return nil, err
		}
		value, err := r.ReadLeafNumeric()
		if err != nil {
			return nil, err
		}
		name, err := r.ReadCString()
		if err != nil {
			return nil, err
		}
		return &EnumerateRecord{Attributes: FieldAttributes(attrs), Value: value, Name: name}, nil

	case LF_ONEMETHOD:
		attrs, typ, err := readAttrsIndex(r)
		if err != nil {
			return nil, err
		}
		rec := &OneMethodRecord{Attributes: attrs, Type: typ}
		if attrs.IsIntroVirtual() {
			off, err := r.ReadU32()
			if err != nil {
				return nil, err
			}
			rec.VTableOffset = &off
		}
		if rec.Name, err = r.ReadCString(); err != nil {
			return nil, err
		}
		return rec, nil

	case LF_METHOD:
		count, err := r.ReadU16()
		if err != nil {
			return nil, err
		}
		list, err := readIndex(r)
		if err != nil {
			return nil, err
		}
		name, err := r.ReadCString()
		if err != nil {
			return nil, err
		}
		return &OverloadedMethodRecord{Count: count, MethodList: list, Name: name}, nil

	case LF_NESTTYPE, LF_NESTTYPEEX:
		// LF_NESTTYPE has a pad word where LF_NESTTYPEEX has attributes.
		attrs, typ, err := readAttrsIndex(r)
		if err != nil {
			return nil, err
		}
		if kind == LF_NESTTYPE {
			attrs = 0
		}
		name, err := r.ReadCString()
		if err != nil {
			return nil, err
		}
		return &NestedTypeRecord{Kind: kind, Attributes: attrs, Type: typ, Name: name}, nil

	case LF_VFUNCTAB:
		_, typ, err := readAttrsIndex(r)
		if err != nil {
			return nil, err
		}
		return &VFuncTabRecord{Type: typ}, nil

	case LF_FRIENDCLS, LF_FRIENDFCN:
		_, typ, err := readAttrsIndex(r)
		if err != nil {
			return nil, err
		}
		rec := &FriendRecord{Kind: kind, Type: typ}
		if kind == LF_FRIENDFCN {
			if rec.Name, err = r.ReadCString(); err != nil {
				return nil, err
			}
		}
		return rec, nil
	}

	if kind.Known() {
		return nil, fmt.Errorf("%w: field %s", ErrUnsupportedLeaf, kind)
	}
	return nil, fmt.Errorf("%w: field %s", ErrUnknownLeaf, kind)
}

// readAttrsIndex reads the u16 attribute (or pad) word and the u32 type
// index that open most field sub-records.
func readAttrsIndex(r *stream.Reader) (FieldAttributes, TypeIndex, error) {
	attrs, err := r.ReadU16()
	if err != nil {
		return 0, 0, err
	}
	typ, err := readIndex(r)
	if err != nil {
		return 0, 0, err
	}
	return FieldAttributes(attrs), typ, nil
}
