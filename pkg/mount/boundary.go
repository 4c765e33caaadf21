package mount

import (
	"log/slog"

	"github.com/vango-dev/terse/internal/errors"
	"github.com/vango-dev/terse/pkg/ops"
	"github.com/vango-dev/terse/pkg/reactive"
	"github.com/vango-dev/terse/pkg/spec"
	"github.com/vango-dev/terse/pkg/store"
	"github.com/vango-dev/terse/pkg/surface"
)

type boundaryBlock struct {
	region
	scope  *reactive.Scope
	blocks []block
	failed bool
}

func (b *boundaryBlock) nodes() []surface.Node {
	return append(flatten(b.blocks), b.anchor)
}

func (m *Mount) mountBoundary(x *spec.Boundary, sc *reactive.Scope, e env, parent, before surface.Node) (block, error) {
	report, err := m.errorCallback(x.OnError)
	if err != nil {
		return nil, err
	}
	r, err := m.openRegion(parent, before)
	if err != nil {
		return nil, err
	}
	bb := &boundaryBlock{region: r}

	// fail replaces the child with the fallback. It runs at most once.
	fail := func(cause error) error {
		if bb.failed {
			return nil
		}
		bb.failed = true
		bb.scope.Dispose()
		m.removeBlocks(bb.parent, bb.blocks)
		bb.blocks = nil

		info := Info(cause)
		m.logger.Debug("boundary caught", "tag", info.Tag, "error", cause)
		report(info)

		bb.scope = sc.Child()
		bb.scope.Escalate()
		blk, err := m.mountNode(x.Fallback, bb.scope, e, bb.parent, bb.anchor)
		if err != nil {
			return errors.New("E202").Wrap(err)
		}
		bb.blocks = []block{blk}
		return nil
	}

	bb.scope = sc.Child()
	child := bb.scope
	child.SetErrorHandler(func(cause error) {
		if err := fail(cause); err != nil {
			bb.scope.Fail(err)
		}
	})

	var blk block
	m.rt.Untracked(func() {
		blk, err = m.mountNode(x.Child, child, e, bb.parent, bb.anchor)
	})
	if err == nil {
		bb.blocks = []block{blk}
		return bb, nil
	}
	if errors.HasCode(err, "E202") {
		// A failed fallback below is not caught again.
		bb.scope.Dispose()
		m.closeRegion(r)
		return nil, err
	}
	if err := fail(err); err != nil {
		bb.scope.Dispose()
		m.closeRegion(r)
		return nil, err
	}
	return bb, nil
}

// errorCallback resolves a boundary's onError declaration.
func (m *Mount) errorCallback(v any) (func(ErrorInfo), error) {
	return ErrorReporter(v, m.opts.callbacks, m.store, m.logger)
}

// ErrorReporter resolves an onError declaration: nil, a func(ErrorInfo),
// a func(error) or the name of a callback. A named callback receives the
// ErrorInfo as the value of an "error" event.
func ErrorReporter(v any, callbacks map[string]ops.Callback, st *store.Store, logger *slog.Logger) (func(ErrorInfo), error) {
	switch x := v.(type) {
	case nil:
		return func(ErrorInfo) {}, nil
	case func(ErrorInfo):
		return x, nil
	case func(error):
		return func(info ErrorInfo) { x(info.Err) }, nil
	case string:
		cb, ok := callbacks[x]
		if !ok {
			return nil, errors.Newf("E105", "callback %q is not registered", x)
		}
		return func(info ErrorInfo) {
			err := cb(ops.Call{
				Event: surface.Event{Type: "error", Value: info, HasValue: true},
				Store: st,
			})
			if err != nil {
				logger.Warn("error callback failed", "callback", x, "error", err)
			}
		}, nil
	}
	return nil, errors.Newf("E105", "cannot use %T as an error callback", v)
}
