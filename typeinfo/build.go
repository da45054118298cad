package typeinfo

import (
	"fmt"

	"github.com/skdltmxn/pdbview/internal/tpi"
)

// build turns a decoded record into a node. Indexed nodes are inserted
// into the cache before any dependency is resolved so that records
// referring back to ti find the node under construction.
func (c *Cache) build(ti TypeIndex, d tpi.TypeData) (Node, error) {
	h := header{index: ti}

	switch r := d.(type) {
	case *tpi.ClassRecord:
		n := &Class{
			header:      h,
			Name:        r.Name,
			UniqueName:  r.UniqueName,
			ClassKind:   classKind(r.Kind),
			Properties:  newProperties(r.Properties),
			Count:       r.MemberCount,
			Size:        r.Size,
			VTableShape: r.VShape,
		}
		c.insert(ti, n)
		if r.FieldList != 0 {
			fl, err := c.fieldList(r.FieldList)
			if err != nil {
				return nil, err
			}
			n.fields = fl
		}
		if r.DerivedFrom != 0 {
			base, err := c.Resolve(r.DerivedFrom)
			if err != nil {
				return nil, err
			}
			n.DerivedFrom = base
		}
		return n, nil

	case *tpi.UnionRecord:
		n := &Union{
			header:     h,
			Name:       r.Name,
			UniqueName: r.UniqueName,
			Properties: newProperties(r.Properties),
			Count:      r.MemberCount,
			Size:       r.Size,
		}
		c.insert(ti, n)
		fields, err := c.Resolve(r.FieldList)
		if err != nil {
			return nil, err
		}
		if r.MemberCount > 0 {
			if fl, ok := fields.(*FieldList); ok {
				n.fields = fl
			} else {
				n.fields = &FieldList{own: []Node{fields}}
			}
		}
		return n, nil

	case *tpi.EnumRecord:
		n := &Enumeration{
			header:     h,
			Name:       r.Name,
			UniqueName: r.UniqueName,
			Properties: newProperties(r.Properties),
		}
		c.insert(ti, n)
		underlying, err := c.Resolve(r.UnderlyingType)
		if err != nil {
			return nil, err
		}
		n.Underlying = underlying
		if r.FieldList != 0 {
			fl, err := c.fieldList(r.FieldList)
			if err != nil {
				return nil, err
			}
			for _, f := range fl.Fields() {
				if v, ok := f.(*EnumVariant); ok {
					n.Variants = append(n.Variants, v)
				}
			}
		}
		return n, nil

	case *tpi.EnumerateRecord:
		return &EnumVariant{header: h, Name: r.Name, Value: newLiteral(r.Value)}, nil

	case *tpi.PointerRecord:
		n := &Pointer{
			header:          h,
			Attributes:      newPointerAttributes(r.Attributes),
			ContainingClass: r.ContainingClass,
		}
		c.insert(ti, n)
		pointee, err := c.Resolve(r.ReferentType)
		if err != nil {
			c.log.Debug("pointer to unresolved type",
				"pointer", fmt.Sprintf("0x%x", uint32(ti)),
				"pointee", fmt.Sprintf("0x%x", uint32(r.ReferentType)),
				"err", err)
		}
		n.Pointee = pointee
		return n, nil

	case *tpi.ModifierRecord:
		n := &Modifier{
			header:    h,
			Const:     r.Modifiers.IsConst(),
			Volatile:  r.Modifiers.IsVolatile(),
			Unaligned: r.Modifiers.IsUnaligned(),
		}
		c.insert(ti, n)
		underlying, err := c.Resolve(r.ModifiedType)
		if err != nil {
			return nil, err
		}
		n.Underlying = underlying
		return n, nil

	case *tpi.BitFieldRecord:
		n := &Bitfield{header: h, Length: r.Length, Position: r.Position}
		c.insert(ti, n)
		underlying, err := c.Resolve(r.Type)
		if err != nil {
			return nil, err
		}
		n.Underlying = underlying
		return n, nil

	case *tpi.ArrayRecord:
		n := &Array{
			header:          h,
			Size:            r.Size(),
			DimensionsBytes: r.Dimensions,
		}
		c.insert(ti, n)
		elem, err := c.Resolve(r.ElementType)
		if err != nil {
			return nil, err
		}
		indexing, err := c.Resolve(r.IndexType)
		if err != nil {
			return nil, err
		}
		n.Element, n.Indexing = elem, indexing
		return n, nil

	case *tpi.ProcedureRecord:
		n := &Procedure{
			header:            h,
			CallingConvention: r.CallingConv.String(),
			ParameterCount:    r.ParameterCount,
		}
		c.insert(ti, n)
		if r.ReturnType != 0 {
			ret, err := c.Resolve(r.ReturnType)
			if err != nil {
				return nil, err
			}
			n.ReturnType = ret
		}
		args, err := c.argumentList(r.ArgumentList)
		if err != nil {
			return nil, err
		}
		n.args = args
		return n, nil

	case *tpi.MFunctionRecord:
		n := &MemberFunction{
			header:            h,
			CallingConvention: r.CallingConv.String(),
			ParameterCount:    r.ParameterCount,
			ThisAdjust:        r.ThisAdjust,
		}
		c.insert(ti, n)
		ret, err := c.Resolve(r.ReturnType)
		if err != nil {
			return nil, err
		}
		class, err := c.Resolve(r.ClassType)
		if err != nil {
			return nil, err
		}
		n.ReturnType, n.ClassType = ret, class
		if r.ThisType != 0 {
			if n.ThisType, err = c.Resolve(r.ThisType); err != nil {
				return nil, err
			}
		}
		args, err := c.argumentList(r.ArgumentList)
		if err != nil {
			return nil, err
		}
		n.args = args
		return n, nil

	case *tpi.ArgListRecord:
		n := &ArgumentList{header: h, Args: make([]Node, 0, len(r.ArgTypes))}
		c.insert(ti, n)
		for _, arg := range r.ArgTypes {
			a, err := c.Resolve(arg)
			if err != nil {
				return nil, err
			}
			n.Args = append(n.Args, a)
		}
		return n, nil

	case *tpi.FieldListRecord:
		n := &FieldList{header: h, own: make([]Node, 0, len(r.Fields))}
		c.insert(ti, n)
		for _, field := range r.Fields {
			if _, ok := field.(*tpi.FriendRecord); ok {
				continue
			}
			f, err := c.build(0, field)
			if err != nil {
				return nil, err
			}
			n.own = append(n.own, f)
		}
		if r.Continuation != 0 {
			next, err := c.fieldList(r.Continuation)
			if err != nil {
				return nil, err
			}
			for l, hops := next, 0; l != nil; l, hops = l.next, hops+1 {
				if l == n || hops > len(c.order) {
					return nil, fmt.Errorf("%w: cyclic field list continuation at 0x%x", ErrDecode, uint32(r.Continuation))
				}
			}
			n.next = next
		}
		return n, nil

	case *tpi.MethodListRecord:
		n := &MethodList{header: h, Entries: make([]*MethodListEntry, 0, len(r.Methods))}
		c.insert(ti, n)
		for _, m := range r.Methods {
			typ, err := c.Resolve(m.Type)
			if err != nil {
				return nil, err
			}
			n.Entries = append(n.Entries, &MethodListEntry{Type: typ, VTableOffset: m.VTableOffset})
		}
		return n, nil

	case *tpi.MemberRecord:
		typ, err := c.Resolve(r.Type)
		if err != nil {
			return nil, err
		}
		return &Member{
			header: h,
			Name:   r.Name,
			Type:   typ,
			Offset: r.Offset,
			Access: r.Attributes.Access().String(),
		}, nil

	case *tpi.StaticMemberRecord:
		typ, err := c.Resolve(r.Type)
		if err != nil {
			return nil, err
		}
		return &StaticMember{header: h, Name: r.Name, Type: typ}, nil

	case *tpi.BaseClassRecord:
		base, err := c.Resolve(r.Type)
		if err != nil {
			return nil, err
		}
		kind := ClassKindClass
		if r.Kind == tpi.LF_BINTERFACE {
			kind = ClassKindInterface
		}
		return &BaseClass{header: h, ClassKind: kind, Base: base, Offset: r.Offset}, nil

	case *tpi.VirtualBaseClassRecord:
		base, err := c.Resolve(r.BaseType)
		if err != nil {
			return nil, err
		}
		vbptr, err := c.Resolve(r.BasePointer)
		if err != nil {
			return nil, err
		}
		return &VirtualBaseClass{
			header:            h,
			Direct:            r.Kind == tpi.LF_VBCLASS,
			Base:              base,
			BasePointer:       vbptr,
			BasePointerOffset: r.BasePointerOffset,
			VirtualBaseOffset: r.VirtualBaseOffset,
		}, nil

	case *tpi.OneMethodRecord:
		typ, err := c.Resolve(r.Type)
		if err != nil {
			return nil, err
		}
		return &Method{header: h, Name: r.Name, Type: typ, VTableOffset: r.VTableOffset}, nil

	case *tpi.OverloadedMethodRecord:
		list, err := c.Resolve(r.MethodList)
		if err != nil {
			return nil, err
		}
		return &OverloadedMethod{header: h, Name: r.Name, MethodList: list}, nil

	case *tpi.NestedTypeRecord:
		typ, err := c.Resolve(r.Type)
		if err != nil {
			return nil, err
		}
		return &Nested{header: h, Name: r.Name, Type: typ}, nil

	case *tpi.VFuncTabRecord:
		shape, err := c.Resolve(r.Type)
		if err != nil {
			return nil, err
		}
		return &VTable{header: h, Shape: shape}, nil

	case *tpi.FriendRecord, *tpi.StringIDRecord, *tpi.BuildInfoRecord, *tpi.FuncIDRecord:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, d.Leaf())
	}

	return nil, fmt.Errorf("%w: %s", ErrUnhandledType, d.Leaf())
}

func classKind(k tpi.TypeRecordKind) ClassKind {
	switch k {
	case tpi.LF_STRUCTURE:
		return ClassKindStruct
	case tpi.LF_INTERFACE:
		return ClassKindInterface
	default:
		return ClassKindClass
	}
}
