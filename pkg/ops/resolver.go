package ops

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/vango-dev/terse/internal/errors"
	"github.com/vango-dev/terse/pkg/reactive"
	"github.com/vango-dev/terse/pkg/spec"
	"github.com/vango-dev/terse/pkg/store"
	"github.com/vango-dev/terse/pkg/surface"
)

// Call is what a Callback receives.
type Call struct {
	Event surface.Event
	Store *store.Store

	// Item and Index describe the enclosing iteration item, when InItem.
	Item   any
	Index  int
	InItem bool
}

// Callback is a named handler registered with a mount.
type Callback func(Call) error

// Operands gives handlers access to the iteration item they were declared
// in. The zero value means the handler is outside any iteration.
type Operands struct {
	Item     func() any
	Index    func() int
	KeyField string
}

func (o Operands) inItem() bool {
	return o.Item != nil
}

// Resolver turns handler declarations into surface handlers bound to a
// store.
type Resolver struct {
	Store     *store.Store
	Callbacks map[string]Callback
	Logger    *slog.Logger
}

// Resolve builds the handler for v in the given item scope.
//
// Problems that can be detected before the event fires (an unknown state
// key, an unregistered callback, a malformed instruction) are returned
// here. Operator shape errors are returned by the handler.
func (r *Resolver) Resolve(v any, scope Operands) (surface.Handler, error) {
	switch x := v.(type) {
	case nil:
		return nil, errors.Newf("E104", "missing event handler")
	case surface.Handler:
		return r.wrap(x), nil
	case func(surface.Event) error:
		return r.wrap(x), nil
	case func(surface.Event):
		return r.wrap(func(ev surface.Event) error { x(ev); return nil }), nil
	case func():
		return r.wrap(func(surface.Event) error { x(); return nil }), nil
	case Callback:
		return r.callback(x, scope), nil
	case func(Call) error:
		return r.callback(x, scope), nil
	case string:
		if IsShorthand(x) {
			ins, _ := Parse(x)
			if r.Store.Has(ins.Key) {
				return r.instruction(ins, scope)
			}
		}
		cb, ok := r.Callbacks[x]
		if !ok {
			if IsShorthand(x) {
				ins, _ := Parse(x)
				return nil, errors.Newf("E101", "state key %q is not declared", ins.Key)
			}
			return nil, errors.Newf("E105", "callback %q is not registered", x)
		}
		return r.callback(cb, scope), nil
	case Instruction, []any:
		ins, err := Parse(x)
		if err != nil {
			return nil, err
		}
		return r.instruction(ins, scope)
	}
	return nil, errors.Newf("E104", "cannot use %T as an event handler", v)
}

func (r *Resolver) instruction(ins Instruction, scope Operands) (surface.Handler, error) {
	if !r.Store.Has(ins.Key) {
		return nil, errors.Newf("E101", "state key %q is not declared", ins.Key)
	}
	ref := ins.Operand.Ref
	if (ref.Scope == spec.RefItem || ref.Scope == spec.RefIndex) && !scope.inItem() {
		return nil, errors.Newf("E104", "operand %s is only valid inside an iteration", ref)
	}
	if ref.Scope == spec.RefState && !r.Store.Has(ref.Key) {
		return nil, errors.Newf("E101", "state key %q is not declared", ref.Key)
	}
	// Without a key field, items are identified by position.
	if ins.Op == OpRemove && ref.Scope == spec.RefItem && len(ref.Path) == 0 && scope.KeyField == "" {
		ins.Operand = Reference(spec.IndexRef())
	}

	return r.wrap(func(ev surface.Event) error {
		operand, has := r.operand(ins, scope, ev)
		return r.Store.Update(ins.Key, func(prev any) (any, error) {
			return Apply(prev, ins, operand, has, scope.KeyField)
		})
	}), nil
}

// operand resolves the operand of ins when its event fires.
func (r *Resolver) operand(ins Instruction, scope Operands, ev surface.Event) (any, bool) {
	op := ins.Operand
	var v any
	switch {
	case op.Ref.Scope == spec.RefItem:
		v, _ = spec.Lookup(scope.Item(), op.Ref.Path)
	case op.Ref.Scope == spec.RefIndex:
		v = float64(scope.Index())
	case op.Ref.Scope == spec.RefState:
		cur, _ := r.Store.Peek(op.Ref.Key)
		v, _ = spec.Lookup(cur, op.Ref.Path)
	case op.Present:
		v = op.Value
	case ins.Op == OpSet && ev.HasValue:
		return ev.Value, true
	default:
		return nil, false
	}

	if field, ok := v.(string); ok && ins.Op == OpField && ev.HasValue {
		return []any{field, ev.Value}, true
	}
	return v, true
}

func (r *Resolver) callback(cb Callback, scope Operands) surface.Handler {
	return r.wrap(func(ev surface.Event) error {
		call := Call{Event: ev, Store: r.Store, InItem: scope.inItem()}
		if call.InItem {
			call.Item = scope.Item()
			call.Index = scope.Index()
		}
		return cb(call)
	})
}

// wrap runs h inside a batch and returns its error together with any
// render errors the resulting flush left uncaught.
func (r *Resolver) wrap(h surface.Handler) surface.Handler {
	return func(ev surface.Event) (err error) {
		if r.Store.Disposed() {
			return nil
		}
		rt := r.Store.Runtime()
		var herr error
		caught := rt.Catch(func() {
			rt.Batch(func() {
				defer func() {
					if p := recover(); p != nil {
						herr = &reactive.PanicError{Value: p, Stack: debug.Stack()}
					}
				}()
				herr = h(ev)
			})
		})
		if herr != nil {
			r.logger().Debug("handler failed", "event", ev.Type, "error", herr)
		}
		return stderrors.Join(herr, caught)
	}
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// Check validates every event declaration in tree without mounting it:
// instructions must parse and name declared keys, item operands must sit
// inside an iteration, and named callbacks must be in names when names is
// not nil.
func Check(tree *spec.Tree, names map[string]bool) error {
	return check(tree.Root, tree.State, names, false)
}

func check(n spec.Node, state map[string]any, names map[string]bool, inItem bool) error {
	switch x := n.(type) {
	case *spec.Element:
		for _, key := range sortedEvents(x.Props) {
			if err := checkHandler(x.Props[key], state, names, inItem); err != nil {
				return errors.FromError(err, "E104").WithTag(x.Tag.String()).WithDetailf("%s: %s", key, detail(err))
			}
		}
		for _, c := range x.Nodes() {
			if err := check(c, state, names, inItem); err != nil {
				return err
			}
		}
	case *spec.Cond:
		for _, c := range append(append([]spec.Node(nil), x.Then...), x.Else...) {
			if err := check(c, state, names, inItem); err != nil {
				return err
			}
		}
	case *spec.Each:
		return check(x.Template, state, names, true)
	case *spec.Boundary:
		if name, ok := x.OnError.(string); ok && names != nil && !names[name] {
			return errors.Newf("E105", "callback %q is not registered", name)
		}
		if err := check(x.Child, state, names, inItem); err != nil {
			return err
		}
		return check(x.Fallback, state, names, inItem)
	case *spec.Island:
		return check(x.Child, state, names, inItem)
	}
	return nil
}

func checkHandler(v any, state map[string]any, names map[string]bool, inItem bool) error {
	s, isString := v.(string)
	if isString && !IsShorthand(s) {
		if names != nil && !names[s] {
			return errors.Newf("E105", "callback %q is not registered", s)
		}
		return nil
	}
	if !isString {
		if _, ok := v.([]any); !ok {
			return nil
		}
	}
	ins, err := Parse(v)
	if err != nil {
		return err
	}
	if _, ok := state[ins.Key]; !ok {
		if isString && names != nil && names[s] {
			return nil
		}
		return errors.Newf("E101", "state key %q is not declared", ins.Key)
	}
	ref := ins.Operand.Ref
	if (ref.Scope == spec.RefItem || ref.Scope == spec.RefIndex) && !inItem {
		return errors.Newf("E104", "operand %s is only valid inside an iteration", ref)
	}
	return nil
}

func sortedEvents(p spec.Props) []string {
	var out []string
	for _, key := range []string{"click", "input", "change", "submit", "keydown", "focus", "blur"} {
		if _, ok := p[key]; ok {
			out = append(out, key)
		}
	}
	return out
}

func detail(err error) string {
	var e *errors.Error
	if stderrors.As(err, &e) {
		return e.Detail
	}
	return fmt.Sprint(err)
}
