package typeinfo

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"maps"
	"slices"

	"github.com/skdltmxn/pdbview/internal/tpi"
)

// Finder looks up the raw record for a type index.
type Finder interface {
	Record(ti TypeIndex) (*tpi.TypeRecord, bool)
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger used for skipped records and unresolved
// forward references.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.log = l
		}
	}
}

type nameKey struct {
	kind Kind
	name string
}

// Cache maps type indices to resolved nodes. Every index resolves to at
// most one node for the lifetime of the cache. A Cache is not safe for
// concurrent use.
type Cache struct {
	finder Finder
	log    *slog.Logger

	nodes map[TypeIndex]Node
	order []TypeIndex // insertion order, for rollback

	// defs indexes non-forward classes and unions by unique name, falling
	// back to the plain name when the record carries none.
	defs map[nameKey]Node
}

// NewCache returns an empty cache resolving records through f.
func NewCache(f Finder, opts ...Option) *Cache {
	c := &Cache{
		finder: f,
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		nodes:  make(map[TypeIndex]Node),
		defs:   make(map[nameKey]Node),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Resolve returns the node for ti, building it and its dependencies on
// first use. If building fails, every node inserted on behalf of ti is
// removed again before the error is returned.
func (c *Cache) Resolve(ti TypeIndex) (Node, error) {
	if n, ok := c.nodes[ti]; ok {
		return n, nil
	}

	mark := len(c.order)
	n, err := c.resolve(ti)
	if err != nil {
		c.rollback(mark)
		return nil, wrap(ti, err)
	}
	return n, nil
}

func (c *Cache) resolve(ti TypeIndex) (Node, error) {
	if ti.IsSimpleType() {
		p, err := newPrimitive(ti)
		if err != nil {
			return nil, err
		}
		c.insert(ti, p)
		return p, nil
	}

	rec, ok := c.finder.Record(ti)
	if !ok {
		return nil, ErrUnresolvedType
	}
	data, err := tpi.Decode(rec)
	if err != nil {
		return nil, decodeError(err)
	}
	return c.build(ti, data)
}

// ResolveFromData builds a node from an already decoded record that has
// no index of its own, such as a field list entry. The node is not cached.
func (c *Cache) ResolveFromData(d tpi.TypeData) (Node, error) {
	mark := len(c.order)
	n, err := c.build(0, d)
	if err != nil {
		c.rollback(mark)
		return nil, err
	}
	return n, nil
}

func decodeError(err error) error {
	switch {
	case errors.Is(err, tpi.ErrUnsupportedLeaf):
		return fmt.Errorf("%w: %w", ErrUnsupported, err)
	case errors.Is(err, tpi.ErrUnknownLeaf):
		return fmt.Errorf("%w: %w", ErrUnhandledType, err)
	default:
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
}

// Load resolves every index yielded by indices. Indices that reference
// missing records or unsupported leaves are skipped; any other failure
// aborts the load.
func (c *Cache) Load(indices iter.Seq[TypeIndex]) error {
	for ti := range indices {
		if _, ok := c.nodes[ti]; ok {
			continue
		}
		if _, err := c.Resolve(ti); err != nil {
			if errors.Is(err, ErrUnresolvedType) || errors.Is(err, ErrUnsupported) {
				c.log.Debug("skipping type", "index", fmt.Sprintf("0x%x", uint32(ti)), "err", err)
				continue
			}
			return err
		}
	}
	return nil
}

// Complete derives the state that needs the whole graph, namely array
// element counts. It must run after all types are loaded.
func (c *Cache) Complete() error {
	for ti, n := range c.Types() {
		a, ok := n.(*Array)
		if !ok {
			continue
		}
		if err := c.completeArray(a); err != nil {
			return wrap(ti, err)
		}
	}
	return nil
}

func (c *Cache) completeArray(a *Array) error {
	a.DimensionsElements = a.DimensionsElements[:0]
	if a.Size == 0 {
		a.DimensionsElements = append(a.DimensionsElements, 0)
		return nil
	}

	running, err := c.SizeOf(a.Element)
	if err != nil {
		return err
	}
	for _, total := range a.DimensionsBytes {
		var elems uint64
		if running != 0 {
			elems = total / running
		}
		a.DimensionsElements = append(a.DimensionsElements, elems)
		running = elems
	}
	return nil
}

// Lookup returns the node cached for ti without resolving it.
func (c *Cache) Lookup(ti TypeIndex) (Node, bool) {
	n, ok := c.nodes[ti]
	return n, ok
}

// Len returns the number of cached nodes.
func (c *Cache) Len() int { return len(c.nodes) }

// Types yields every cached node in ascending index order.
func (c *Cache) Types() iter.Seq2[TypeIndex, Node] {
	return func(yield func(TypeIndex, Node) bool) {
		for _, ti := range slices.Sorted(maps.Keys(c.nodes)) {
			if !yield(ti, c.nodes[ti]) {
				return
			}
		}
	}
}

func (c *Cache) insert(ti TypeIndex, n Node) {
	if ti == 0 {
		return
	}
	c.nodes[ti] = n
	c.order = append(c.order, ti)
	c.registerDef(n)
}

func (c *Cache) rollback(mark int) {
	for _, ti := range c.order[mark:] {
		n := c.nodes[ti]
		delete(c.nodes, ti)
		if key, ok := defKey(n); ok && c.defs[key] == n {
			delete(c.defs, key)
		}
	}
	c.order = c.order[:mark]
}

// defKey returns the definition index key of a non-forward class or union.
func defKey(n Node) (nameKey, bool) {
	var (
		props        Properties
		name, unique string
	)
	switch n := n.(type) {
	case *Class:
		props, name, unique = n.Properties, n.Name, n.UniqueName
	case *Union:
		props, name, unique = n.Properties, n.Name, n.UniqueName
	default:
		return nameKey{}, false
	}
	if props.ForwardReference {
		return nameKey{}, false
	}
	return lookupKey(n.Kind(), name, unique)
}

func lookupKey(kind Kind, name, unique string) (nameKey, bool) {
	if unique != "" {
		name = unique
	}
	if name == "" {
		return nameKey{}, false
	}
	return nameKey{kind: kind, name: name}, true
}

func (c *Cache) registerDef(n Node) {
	key, ok := defKey(n)
	if !ok {
		return
	}
	if _, dup := c.defs[key]; !dup {
		c.defs[key] = n
	}
}

// Definition returns the non-forward class or union sharing the unique
// name of n, which is typically a forward reference.
func (c *Cache) Definition(n Node) (Node, bool) {
	var key nameKey
	var ok bool
	switch n := n.(type) {
	case *Class:
		key, ok = lookupKey(KindClass, n.Name, n.UniqueName)
	case *Union:
		key, ok = lookupKey(KindUnion, n.Name, n.UniqueName)
	}
	if !ok {
		return nil, false
	}
	def, ok := c.defs[key]
	return def, ok
}

func (c *Cache) fieldList(ti TypeIndex) (*FieldList, error) {
	n, err := c.Resolve(ti)
	if err != nil {
		return nil, err
	}
	fl, ok := n.(*FieldList)
	if !ok {
		return nil, &Error{Index: ti, Err: fmt.Errorf("%w: want FieldList, got %s", ErrUnexpectedKind, n.Kind())}
	}
	return fl, nil
}

func (c *Cache) argumentList(ti TypeIndex) (*ArgumentList, error) {
	n, err := c.Resolve(ti)
	if err != nil {
		return nil, err
	}
	al, ok := n.(*ArgumentList)
	if !ok {
		return nil, &Error{Index: ti, Err: fmt.Errorf("%w: want ArgumentList, got %s", ErrUnexpectedKind, n.Kind())}
	}
	return al, nil
}
