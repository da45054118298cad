package typeinfo

import "fmt"

// maxDepth bounds recursion through Modifier, Bitfield and Enumeration
// chains, which a well-formed stream never nests this deeply.
const maxDepth = 256

// SizeOf returns the byte size of n, or ErrUnsized if n has no standalone
// size.
func (c *Cache) SizeOf(n Node) (uint64, error) {
	s, ok := n.(Sized)
	if !ok || s == nil {
		kind := "nil"
		if n != nil {
			kind = n.Kind().String()
		}
		return 0, fmt.Errorf("%w: %s", ErrUnsized, kind)
	}
	return c.TypeSize(s)
}

// TypeSize returns the byte size of n. Forward references report the size
// of their definition when the cache holds one.
func (c *Cache) TypeSize(n Sized) (uint64, error) {
	return c.typeSize(n, 0)
}

func (c *Cache) typeSize(n Node, depth int) (uint64, error) {
	if depth > maxDepth {
		return 0, fmt.Errorf("%w: type nesting exceeds %d levels", ErrDecode, maxDepth)
	}

	switch n := n.(type) {
	case *Class:
		if n.Properties.ForwardReference {
			return c.forwardSize(n, n.Name, n.Size)
		}
		return n.Size, nil

	case *Union:
		if n.Properties.ForwardReference {
			return c.forwardSize(n, n.Name, n.Size)
		}
		return n.Size, nil

	case *Enumeration:
		return c.typeSize(n.Underlying, depth+1)

	case *Modifier:
		return c.typeSize(n.Underlying, depth+1)

	case *Bitfield:
		return c.typeSize(n.Underlying, depth+1)

	case *Pointer:
		return n.Attributes.Kind.Size()

	case *Primitive:
		if n.Indirection != nil {
			return n.Indirection.Size(), nil
		}
		return n.Type.Size()

	case *Array:
		return n.Size, nil

	case *FieldList:
		var total uint64
		for _, f := range n.Fields() {
			var (
				sz  uint64
				err error
			)
			switch f := f.(type) {
			case *Member:
				sz, err = c.typeSize(f.Type, depth+1)
			case *BaseClass:
				sz, err = c.typeSize(f.Base, depth+1)
			default:
				continue
			}
			if err != nil {
				return 0, err
			}
			total += sz
		}
		return total, nil

	case nil:
		return 0, fmt.Errorf("%w: nil", ErrUnsized)
	}

	return 0, fmt.Errorf("%w: %s", ErrUnsized, n.Kind())
}

func (c *Cache) forwardSize(n Node, name string, size uint64) (uint64, error) {
	def, ok := c.Definition(n)
	if !ok {
		c.log.Warn("forward reference without definition", "name", name,
			"index", fmt.Sprintf("0x%x", uint32(n.Index())))
		return size, nil
	}
	switch d := def.(type) {
	case *Class:
		return d.Size, nil
	case *Union:
		return d.Size, nil
	}
	return size, nil
}
