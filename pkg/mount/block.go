package mount

import (
	"github.com/vango-dev/terse/internal/errors"
	"github.com/vango-dev/terse/pkg/ops"
	"github.com/vango-dev/terse/pkg/reactive"
	"github.com/vango-dev/terse/pkg/spec"
	"github.com/vango-dev/terse/pkg/surface"
)

// block is a mounted node. nodes lists the surface nodes it currently
// occupies in its parent, in order; it is never empty.
type block interface {
	nodes() []surface.Node
}

type elementBlock struct {
	node surface.Node
}

func (b *elementBlock) nodes() []surface.Node {
	return []surface.Node{b.node}
}

// region is the common part of conditional, iteration and boundary
// blocks: a parent and an anchor that content is kept in front of.
type region struct {
	parent surface.Node
	anchor surface.Node
}

func flatten(blocks []block) []surface.Node {
	var out []surface.Node
	for _, b := range blocks {
		out = append(out, b.nodes()...)
	}
	return out
}

// env is the iteration context a node is mounted in.
type env struct {
	item     *reactive.Signal[any]
	index    *reactive.Signal[any]
	keyField string
}

func (e env) inItem() bool {
	return e.item != nil
}

func (e env) operands() ops.Operands {
	if !e.inItem() {
		return ops.Operands{}
	}
	return ops.Operands{
		Item: e.item.Peek,
		Index: func() int {
			n, _ := spec.Number(e.index.Peek())
			return int(n)
		},
		KeyField: e.keyField,
	}
}

// read resolves r with tracking. Paths that lead nowhere read as nil.
func (m *Mount) read(r spec.Ref, e env) (any, error) {
	var v any
	switch r.Scope {
	case spec.RefState:
		cur, err := m.store.Get(r.Key)
		if err != nil {
			return nil, err
		}
		v = cur
	case spec.RefItem, spec.RefIndex:
		if !e.inItem() {
			return nil, errors.Newf("E109", "%s is only valid inside an iteration", r)
		}
		if r.Scope == spec.RefIndex {
			return e.index.Get(), nil
		}
		v = e.item.Get()
	default:
		return nil, errors.Newf("E109", "invalid reference")
	}
	out, _ := spec.Lookup(v, r.Path)
	return out, nil
}

// value resolves a property value that may be a reference.
func (m *Mount) value(v any, e env) (any, error) {
	if r, ok := v.(spec.Ref); ok {
		return m.read(r, e)
	}
	return v, nil
}

func (m *Mount) mountNode(n spec.Node, sc *reactive.Scope, e env, parent, before surface.Node) (block, error) {
	switch x := n.(type) {
	case *spec.Element:
		return m.mountElement(x, sc, e, parent, before)
	case *spec.Cond:
		return m.mountCond(x, sc, e, parent, before)
	case *spec.Each:
		return m.mountEach(x, sc, e, parent, before)
	case *spec.Boundary:
		return m.mountBoundary(x, sc, e, parent, before)
	case *spec.Island:
		return m.mountNode(x.Child, sc, e, parent, before)
	case nil:
		return nil, errors.Newf("E109", "missing node")
	}
	return nil, errors.Newf("E109", "unsupported node type %T", n)
}

// mountNodes mounts ns in order before before. On error the blocks already
// mounted are removed again.
func (m *Mount) mountNodes(ns []spec.Node, sc *reactive.Scope, e env, parent, before surface.Node) ([]block, error) {
	blocks := make([]block, 0, len(ns))
	for _, n := range ns {
		b, err := m.mountNode(n, sc, e, parent, before)
		if err != nil {
			m.removeBlocks(parent, blocks)
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

// openRegion creates the anchor of a region.
func (m *Mount) openRegion(parent, before surface.Node) (region, error) {
	anchor, err := m.s.CreateText("")
	if err != nil {
		return region{}, surfaceError(err)
	}
	if err := m.s.Insert(parent, anchor, before); err != nil {
		return region{}, surfaceError(err)
	}
	return region{parent: parent, anchor: anchor}, nil
}

func (m *Mount) closeRegion(r region) {
	if err := m.s.Remove(r.parent, r.anchor); err != nil {
		m.logger.Warn("remove anchor", "error", err)
	}
}

func (m *Mount) removeBlocks(parent surface.Node, blocks []block) {
	for _, n := range flatten(blocks) {
		if err := m.s.Remove(parent, n); err != nil {
			m.logger.Warn("remove node", "error", err)
		}
	}
}

// moveBefore re-inserts nodes, in order, before next.
func (m *Mount) moveBefore(parent surface.Node, nodes []surface.Node, next surface.Node) error {
	for _, n := range nodes {
		if err := m.s.Insert(parent, n, next); err != nil {
			return surfaceError(err)
		}
	}
	return nil
}

func surfaceError(err error) error {
	return errors.FromError(err, "E201")
}
