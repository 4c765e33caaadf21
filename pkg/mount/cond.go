package mount

import (
	"github.com/vango-dev/terse/pkg/reactive"
	"github.com/vango-dev/terse/pkg/spec"
	"github.com/vango-dev/terse/pkg/surface"
)

const noBranch = -1

type condBlock struct {
	region
	branch int
	scope  *reactive.Scope
	blocks []block
}

func (b *condBlock) nodes() []surface.Node {
	return append(flatten(b.blocks), b.anchor)
}

func (m *Mount) mountCond(c *spec.Cond, sc *reactive.Scope, e env, parent, before surface.Node) (block, error) {
	r, err := m.openRegion(parent, before)
	if err != nil {
		return nil, err
	}
	cb := &condBlock{region: r, branch: noBranch}

	_, err = sc.Effect(func() error {
		want, err := m.predicate(c, e)
		if err != nil {
			return err
		}
		if want == cb.branch {
			return nil
		}
		m.rt.Untracked(func() {
			err = m.swapBranch(cb, c, want, sc, e)
		})
		return err
	})
	if err != nil {
		m.clearBranch(cb)
		m.closeRegion(r)
		return nil, err
	}
	return cb, nil
}

// predicate returns 0 for the then branch and 1 for the else branch.
func (m *Mount) predicate(c *spec.Cond, e env) (int, error) {
	v, err := m.read(c.Ref, e)
	if err != nil {
		return noBranch, err
	}
	if !c.HasEq {
		if spec.Truthy(v) {
			return 0, nil
		}
		return 1, nil
	}
	other, err := m.value(c.Eq, e)
	if err != nil {
		return noBranch, err
	}
	if spec.Equal(v, other) {
		return 0, nil
	}
	return 1, nil
}

// swapBranch tears down the live branch before mounting the other one, so
// both are never live at once.
func (m *Mount) swapBranch(cb *condBlock, c *spec.Cond, want int, sc *reactive.Scope, e env) error {
	m.clearBranch(cb)
	cb.branch = want

	nodes := c.Then
	if want == 1 {
		nodes = c.Else
	}
	if len(nodes) == 0 {
		return nil
	}
	cb.scope = sc.Child()
	blocks, err := m.mountNodes(nodes, cb.scope, e, cb.parent, cb.anchor)
	if err != nil {
		cb.scope.Dispose()
		cb.scope = nil
		cb.branch = noBranch
		return err
	}
	cb.blocks = blocks
	return nil
}

func (m *Mount) clearBranch(cb *condBlock) {
	if cb.scope != nil {
		cb.scope.Dispose()
		cb.scope = nil
	}
	m.removeBlocks(cb.parent, cb.blocks)
	cb.blocks = nil
	cb.branch = noBranch
}
