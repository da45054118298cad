package typeinfo

import (
	"encoding/json"

	"github.com/vmihailenco/msgpack/v5"
)

// Nodes encode as {"kind": "<Variant>", ...}. A reference to another
// indexed node is written as {"ref": <index>} so cyclic graphs stay
// finite; nodes without an index are written inline in full.
//
// The msgpack encoding uses the same field names when the encoder is set
// up with SetCustomStructTag("json").

type nodeRef struct {
	Ref TypeIndex `json:"ref"`
}

func ref(n Node) any {
	if n == nil {
		return nil
	}
	if ti := n.Index(); ti != 0 {
		return nodeRef{Ref: ti}
	}
	return view(n)
}

func refs(ns []Node) []any {
	out := make([]any, 0, len(ns))
	for _, n := range ns {
		out = append(out, ref(n))
	}
	return out
}

type literalView struct {
	Kind  string `json:"kind"`
	Value any    `json:"value"`
}

func (l Literal) view() literalView {
	if l.Signed() {
		return literalView{Kind: l.Kind.String(), Value: int64(l.Bits)}
	}
	return literalView{Kind: l.Kind.String(), Value: l.Bits}
}

type pointerAttrsView struct {
	Kind              string `json:"kind"`
	Mode              string `json:"mode"`
	IsVolatile        bool   `json:"is_volatile"`
	IsConst           bool   `json:"is_const"`
	IsUnaligned       bool   `json:"is_unaligned"`
	IsRestrict        bool   `json:"is_restrict"`
	IsReference       bool   `json:"is_reference"`
	IsPointerToMember bool   `json:"is_pointer_to_member"`
	Size              uint8  `json:"size"`
}

// view returns the encodable form of n with its dependencies as refs.
func view(n Node) any {
	out := map[string]any{"kind": n.Kind().String()}
	if ti := n.Index(); ti != 0 {
		out["index"] = ti
	}

	switch n := n.(type) {
	case *Class:
		out["name"] = n.Name
		out["unique_name"] = optString(n.UniqueName)
		out["class_kind"] = n.ClassKind.String()
		out["properties"] = n.Properties
		out["count"] = n.Count
		out["size"] = n.Size
		out["derived_from"] = ref(n.DerivedFrom)
		out["vtable_shape"] = n.VTableShape
		out["fields"] = refs(n.Fields())
	case *Union:
		out["name"] = n.Name
		out["unique_name"] = optString(n.UniqueName)
		out["properties"] = n.Properties
		out["count"] = n.Count
		out["size"] = n.Size
		out["fields"] = refs(n.Fields())
	case *Enumeration:
		out["name"] = n.Name
		out["unique_name"] = optString(n.UniqueName)
		out["properties"] = n.Properties
		out["underlying_type"] = ref(n.Underlying)
		variants := make([]any, 0, len(n.Variants))
		for _, v := range n.Variants {
			variants = append(variants, view(v))
		}
		out["variants"] = variants
	case *EnumVariant:
		out["name"] = n.Name
		out["value"] = n.Value.view()
	case *Pointer:
		a := n.Attributes
		out["underlying_type"] = ref(n.Pointee)
		out["attributes"] = pointerAttrsView{
			Kind:              a.Kind.String(),
			Mode:              a.Mode.String(),
			IsVolatile:        a.IsVolatile,
			IsConst:           a.IsConst,
			IsUnaligned:       a.IsUnaligned,
			IsRestrict:        a.IsRestrict,
			IsReference:       a.IsReference,
			IsPointerToMember: a.IsPointerToMember,
			Size:              a.Size,
		}
		if n.ContainingClass != 0 {
			out["containing_class"] = n.ContainingClass
		}
	case *Primitive:
		out["primitive_kind"] = n.Type.String()
		if n.Indirection != nil {
			out["indirection"] = n.Indirection.String()
		} else {
			out["indirection"] = nil
		}
	case *Array:
		out["element_type"] = ref(n.Element)
		out["indexing_type"] = ref(n.Indexing)
		out["size"] = n.Size
		out["dimensions_bytes"] = n.DimensionsBytes
		out["dimensions_elements"] = n.DimensionsElements
	case *FieldList:
		out["fields"] = refs(n.Fields())
	case *ArgumentList:
		out["args"] = refs(n.Args)
	case *Modifier:
		out["underlying_type"] = ref(n.Underlying)
		out["constant"] = n.Const
		out["volatile"] = n.Volatile
		out["unaligned"] = n.Unaligned
	case *Bitfield:
		out["underlying_type"] = ref(n.Underlying)
		out["len"] = n.Length
		out["position"] = n.Position
	case *Member:
		out["name"] = n.Name
		out["underlying_type"] = ref(n.Type)
		out["offset"] = n.Offset
		out["access"] = optString(n.Access)
	case *BaseClass:
		out["class_kind"] = n.ClassKind.String()
		out["base_class"] = ref(n.Base)
		out["offset"] = n.Offset
	case *VirtualBaseClass:
		out["direct"] = n.Direct
		out["base_class"] = ref(n.Base)
		out["base_pointer"] = ref(n.BasePointer)
		out["base_pointer_offset"] = n.BasePointerOffset
		out["virtual_base_offset"] = n.VirtualBaseOffset
	case *Procedure:
		out["return_type"] = ref(n.ReturnType)
		out["argument_list"] = refs(n.Args())
		out["calling_convention"] = n.CallingConvention
		out["parameter_count"] = n.ParameterCount
	case *MemberFunction:
		out["return_type"] = ref(n.ReturnType)
		out["class_type"] = ref(n.ClassType)
		out["this_pointer_type"] = ref(n.ThisType)
		out["argument_list"] = refs(n.Args())
		out["calling_convention"] = n.CallingConvention
		out["parameter_count"] = n.ParameterCount
		out["this_adjustment"] = n.ThisAdjust
	case *MethodList:
		entries := make([]any, 0, len(n.Entries))
		for _, e := range n.Entries {
			entries = append(entries, view(e))
		}
		out["method_list"] = entries
	case *MethodListEntry:
		out["method_type"] = ref(n.Type)
		out["vtable_offset"] = n.VTableOffset
	case *Nested:
		out["name"] = n.Name
		out["nested_type"] = ref(n.Type)
	case *OverloadedMethod:
		out["name"] = n.Name
		out["method_list"] = ref(n.MethodList)
	case *Method:
		out["name"] = n.Name
		out["method_type"] = ref(n.Type)
		out["vtable_offset"] = n.VTableOffset
	case *StaticMember:
		out["name"] = n.Name
		out["field_type"] = ref(n.Type)
	case *VTable:
		out["vtable_type"] = ref(n.Shape)
	}
	return out
}

func optString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func marshalJSON(n Node) ([]byte, error)                { return json.Marshal(view(n)) }
func encodeMsgpack(enc *msgpack.Encoder, n Node) error { return enc.Encode(view(n)) }

func (n *Class) MarshalJSON() ([]byte, error)            { return marshalJSON(n) }
func (n *Union) MarshalJSON() ([]byte, error)            { return marshalJSON(n) }
func (n *Enumeration) MarshalJSON() ([]byte, error)      { return marshalJSON(n) }
func (n *EnumVariant) MarshalJSON() ([]byte, error)      { return marshalJSON(n) }
func (n *Pointer) MarshalJSON() ([]byte, error)          { return marshalJSON(n) }
func (n *Primitive) MarshalJSON() ([]byte, error)        { return marshalJSON(n) }
func (n *Array) MarshalJSON() ([]byte, error)            { return marshalJSON(n) }
func (n *FieldList) MarshalJSON() ([]byte, error)        { return marshalJSON(n) }
func (n *ArgumentList) MarshalJSON() ([]byte, error)     { return marshalJSON(n) }
func (n *Modifier) MarshalJSON() ([]byte, error)         { return marshalJSON(n) }
func (n *Bitfield) MarshalJSON() ([]byte, error)         { return marshalJSON(n) }
func (n *Member) MarshalJSON() ([]byte, error)           { return marshalJSON(n) }
func (n *BaseClass) MarshalJSON() ([]byte, error)        { return marshalJSON(n) }
func (n *VirtualBaseClass) MarshalJSON() ([]byte, error) { return marshalJSON(n) }
func (n *Procedure) MarshalJSON() ([]byte, error)        { return marshalJSON(n) }
func (n *MemberFunction) MarshalJSON() ([]byte, error)   { return marshalJSON(n) }
func (n *MethodList) MarshalJSON() ([]byte, error)       { return marshalJSON(n) }
func (n *MethodListEntry) MarshalJSON() ([]byte, error)  { return marshalJSON(n) }
func (n *Nested) MarshalJSON() ([]byte, error)           { return marshalJSON(n) }
func (n *OverloadedMethod) MarshalJSON() ([]byte, error) { return marshalJSON(n) }
func (n *Method) MarshalJSON() ([]byte, error)           { return marshalJSON(n) }
func (n *StaticMember) MarshalJSON() ([]byte, error)     { return marshalJSON(n) }
func (n *VTable) MarshalJSON() ([]byte, error)           { return marshalJSON(n) }

func (n *Class) EncodeMsgpack(enc *msgpack.Encoder) error            { return encodeMsgpack(enc, n) }
func (n *Union) EncodeMsgpack(enc *msgpack.Encoder) error            { return encodeMsgpack(enc, n) }
func (n *Enumeration) EncodeMsgpack(enc *msgpack.Encoder) error      { return encodeMsgpack(enc, n) }
func (n *EnumVariant) EncodeMsgpack(enc *msgpack.Encoder) error      { return encodeMsgpack(enc, n) }
func (n *Pointer) EncodeMsgpack(enc *msgpack.Encoder) error          { return encodeMsgpack(enc, n) }
func (n *Primitive) EncodeMsgpack(enc *msgpack.Encoder) error        { return encodeMsgpack(enc, n) }
func (n *Array) EncodeMsgpack(enc *msgpack.Encoder) error            { return encodeMsgpack(enc, n) }
func (n *FieldList) EncodeMsgpack(enc *msgpack.Encoder) error        { return encodeMsgpack(enc, n) }
func (n *ArgumentList) EncodeMsgpack(enc *msgpack.Encoder) error     { return encodeMsgpack(enc, n) }
func (n *Modifier) EncodeMsgpack(enc *msgpack.Encoder) error         { return encodeMsgpack(enc, n) }
func (n *Bitfield) EncodeMsgpack(enc *msgpack.Encoder) error         { return encodeMsgpack(enc, n) }
func (n *Member) EncodeMsgpack(enc *msgpack.Encoder) error           { return encodeMsgpack(enc, n) }
func (n *BaseClass) EncodeMsgpack(enc *msgpack.Encoder) error        { return encodeMsgpack(enc, n) }
func (n *VirtualBaseClass) EncodeMsgpack(enc *msgpack.Encoder) error { return encodeMsgpack(enc, n) }
func (n *Procedure) EncodeMsgpack(enc *msgpack.Encoder) error        { return encodeMsgpack(enc, n) }
func (n *MemberFunction) EncodeMsgpack(enc *msgpack.Encoder) error   { return encodeMsgpack(enc, n) }
func (n *MethodList) EncodeMsgpack(enc *msgpack.Encoder) error       { return encodeMsgpack(enc, n) }
func (n *MethodListEntry) EncodeMsgpack(enc *msgpack.Encoder) error  { return encodeMsgpack(enc, n) }
func (n *Nested) EncodeMsgpack(enc *msgpack.Encoder) error           { return encodeMsgpack(enc, n) }
func (n *OverloadedMethod) EncodeMsgpack(enc *msgpack.Encoder) error { return encodeMsgpack(enc, n) }
func (n *Method) EncodeMsgpack(enc *msgpack.Encoder) error           { return encodeMsgpack(enc, n) }
func (n *StaticMember) EncodeMsgpack(enc *msgpack.Encoder) error     { return encodeMsgpack(enc, n) }
func (n *VTable) EncodeMsgpack(enc *msgpack.Encoder) error           { return encodeMsgpack(enc, n) }
