package reactive

import (
	"fmt"
	"runtime/debug"
)

// Effect represents a reactive computation that re-runs when its
// dependencies change.
//
// Effects run immediately when created to establish their dependency set,
// and re-run whenever any signal they read during the previous run changes.
type Effect struct {
	id uint64
	rt *Runtime

	// fn is the effect body.
	fn func() (Cleanup, error)

	// cleanup is the cleanup function from the last run.
	cleanup Cleanup

	// sources are the signals this effect read during its last run.
	sources []source

	// scope owns this effect and receives its re-run errors.
	scope *Scope

	disposed bool
	runs     int
}

// PanicError is the error an effect body's panic is converted into.
type PanicError struct {
	Value any
	Stack []byte
}

func (p *PanicError) Error() string {
	if err, ok := p.Value.(error); ok {
		return err.Error()
	}
	return fmt.Sprint(p.Value)
}

// Unwrap returns the panic value when it is an error.
func (p *PanicError) Unwrap() error {
	err, _ := p.Value.(error)
	return err
}

// MarkDirty re-runs the effect. Implements Listener.
// A failing re-run is reported to the owning scope.
func (e *Effect) MarkDirty() {
	if e.disposed {
		return
	}
	if err := e.run(); err != nil {
		if e.scope != nil {
			e.scope.Fail(err)
		} else {
			e.rt.fail(err)
		}
	}
}

// ID returns the unique identifier for this effect.
func (e *Effect) ID() uint64 {
	return e.id
}

// Runs returns how many times the body has executed.
func (e *Effect) Runs() int {
	return e.runs
}

// Disposed reports whether Dispose has been called.
func (e *Effect) Disposed() bool {
	return e.disposed
}

// run executes the effect body with dependency tracking.
func (e *Effect) run() (err error) {
	if e.disposed {
		return nil
	}

	if e.cleanup != nil {
		c := e.cleanup
		e.cleanup = nil
		c()
	}
	e.dropSources()

	rt := e.rt
	oldListener, oldScope := rt.listener, rt.scope
	rt.listener, rt.scope = e, e.scope
	defer func() {
		rt.listener, rt.scope = oldListener, oldScope
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()

	e.runs++
	cleanup, err := e.fn()
	e.cleanup = cleanup
	return err
}

// addSource records a signal read during the current run.
func (e *Effect) addSource(src source) {
	for _, s := range e.sources {
		if s == src {
			return
		}
	}
	e.sources = append(e.sources, src)
}

func (e *Effect) dropSources() {
	for _, src := range e.sources {
		src.unsubscribe(e)
	}
	e.sources = e.sources[:0]
}

// Dispose stops the effect: it runs the pending cleanup and unsubscribes
// from every source. Calling Dispose more than once is a no-op.
func (e *Effect) Dispose() {
	if e.disposed {
		return
	}
	e.disposed = true

	if e.cleanup != nil {
		c := e.cleanup
		e.cleanup = nil
		c()
	}
	e.dropSources()
	e.sources = nil
}

// newEffect creates an effect owned by scope and runs it once.
func newEffect(rt *Runtime, scope *Scope, fn func() (Cleanup, error)) (*Effect, error) {
	e := &Effect{
		id:    nextID(),
		rt:    rt,
		fn:    fn,
		scope: scope,
	}
	if scope != nil {
		scope.registerEffect(e)
	}
	return e, e.run()
}

// CreateEffect creates and runs a new effect owned by the current scope.
// The effect re-runs whenever a signal it read changes. The returned
// Effect's Dispose stops it.
func (rt *Runtime) CreateEffect(fn func() Cleanup) *Effect {
	e, err := newEffect(rt, rt.scope, func() (Cleanup, error) {
		return fn(), nil
	})
	if err != nil {
		if e.scope != nil {
			e.scope.Fail(err)
		} else {
			rt.fail(err)
		}
	}
	return e
}

// Effect creates a computation whose body may fail, owned by the current
// scope. The error of the first run is returned to the caller; errors of
// later runs go to the owning scope's error handler.
func (rt *Runtime) Effect(fn func() error) (*Effect, error) {
	return newEffect(rt, rt.scope, func() (Cleanup, error) {
		return nil, fn()
	})
}
