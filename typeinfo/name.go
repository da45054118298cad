package typeinfo

import (
	"fmt"
	"strings"
)

var primitiveTypeNames = map[PrimitiveKind]string{
	PrimVoid:   "void",
	PrimChar:   "char",
	PrimRChar:  "char",
	PrimUChar:  "unsigned char",
	PrimI8:     "int8_t",
	PrimU8:     "uint8_t",
	PrimI16:    "int16_t",
	PrimShort:  "int16_t",
	PrimU16:    "uint16_t",
	PrimUShort: "uint16_t",
	PrimI32:    "int32_t",
	PrimLong:   "int32_t",
	PrimU32:    "uint32_t",
	PrimULong:  "uint32_t",
	PrimI64:    "int64_t",
	PrimQuad:   "int64_t",
	PrimU64:    "uint64_t",
	PrimUQuad:  "uint64_t",
	PrimF32:    "float",
	PrimF64:    "double",
	PrimBool8:  "bool",
}

// TypeName renders n as a C-like type expression, for display only.
func TypeName(n Node) string {
	var b strings.Builder
	writeTypeName(&b, n, 0)
	return b.String()
}

func writeTypeName(b *strings.Builder, n Node, depth int) {
	if depth > maxDepth {
		b.WriteString("...")
		return
	}

	switch n := n.(type) {
	case nil:
		b.WriteString("<nil>")
	case *Class:
		b.WriteString(n.Name)
	case *Union:
		b.WriteString(n.Name)
	case *Enumeration:
		b.WriteString(n.Name)
	case *Array:
		writeTypeName(b, n.Element, depth+1)
		for _, d := range n.DimensionsElements {
			fmt.Fprintf(b, "[0x%X]", d)
		}
	case *Pointer:
		if n.Pointee == nil {
			b.WriteString("<UNRESOLVED_POINTER_TYPE>")
			return
		}
		writeTypeName(b, n.Pointee, depth+1)
		b.WriteByte('*')
	case *Primitive:
		if name, ok := primitiveTypeNames[n.Type]; ok {
			b.WriteString(name)
		} else {
			b.WriteString(n.Type.String())
		}
		if n.Indirection != nil {
			b.WriteByte('*')
		}
	case *Modifier:
		writeTypeName(b, n.Underlying, depth+1)
	case *Bitfield:
		writeTypeName(b, n.Underlying, depth+1)
		fmt.Fprintf(b, ":%d", n.Length)
	case *Procedure:
		writeSignature(b, n.ReturnType, n.Args(), depth)
	case *MemberFunction:
		writeSignature(b, n.ReturnType, n.Args(), depth)
	default:
		fmt.Fprintf(b, "<%s>", n.Kind())
	}
}

func writeSignature(b *strings.Builder, ret Node, args []Node, depth int) {
	if ret == nil {
		b.WriteString("void")
	} else {
		writeTypeName(b, ret, depth+1)
	}
	b.WriteString(" (*function)")
	for i, a := range args {
		if i > 0 {
			b.WriteByte(',')
		}
		writeTypeName(b, a, depth+1)
	}
}
