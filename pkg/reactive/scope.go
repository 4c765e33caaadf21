package reactive

// Scope represents a region of the UI that owns reactive computations.
// When a Scope is disposed, all effects, cleanups, and child scopes it
// contains are also disposed.
//
// Scopes form a hierarchy that mirrors the mounted tree: a conditional
// branch, an iteration item and an error boundary each get their own.
type Scope struct {
	id uint64
	rt *Runtime

	parent   *Scope
	children []*Scope

	effects  []*Effect
	cleanups []func()

	// onError handles errors raised by effects in this scope or below.
	onError func(error)

	// escalate sends unhandled errors straight to the runtime, skipping
	// ancestor handlers.
	escalate bool

	disposed bool
}

// NewScope creates a root scope in rt.
func (rt *Runtime) NewScope() *Scope {
	return &Scope{id: nextID(), rt: rt}
}

// Child creates a scope owned by s.
func (s *Scope) Child() *Scope {
	c := &Scope{id: nextID(), rt: s.rt, parent: s}
	if !s.disposed {
		s.children = append(s.children, c)
	}
	return c
}

// ID returns the unique identifier for this scope.
func (s *Scope) ID() uint64 {
	return s.id
}

// Runtime returns the runtime the scope belongs to.
func (s *Scope) Runtime() *Runtime {
	return s.rt
}

// Parent returns the parent scope, or nil for a root scope.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Disposed reports whether the scope has been disposed.
func (s *Scope) Disposed() bool {
	return s.disposed
}

// Run runs fn with s as the owner of newly created effects.
func (s *Scope) Run(fn func()) {
	old := s.rt.scope
	s.rt.scope = s
	defer func() { s.rt.scope = old }()
	fn()
}

// Effect creates a computation owned by s. See Runtime.Effect.
func (s *Scope) Effect(fn func() error) (*Effect, error) {
	return newEffect(s.rt, s, func() (Cleanup, error) {
		return nil, fn()
	})
}

// OnCleanup registers fn to run when the scope is disposed.
// If the scope is already disposed, fn runs immediately.
func (s *Scope) OnCleanup(fn func()) {
	if s.disposed {
		fn()
		return
	}
	s.cleanups = append(s.cleanups, fn)
}

// SetErrorHandler installs fn as the handler for errors raised by effects
// owned by s or its descendants.
func (s *Scope) SetErrorHandler(fn func(error)) {
	s.onError = fn
}

// Escalate makes unhandled errors in s and below bypass ancestor handlers
// and go straight to the runtime's fatal handler.
func (s *Scope) Escalate() {
	s.escalate = true
}

// Fail routes err to the nearest handler at or above s. Errors from
// disposed scopes are dropped.
func (s *Scope) Fail(err error) {
	if err == nil || s.disposed {
		return
	}
	for cur := s; cur != nil; cur = cur.parent {
		if cur.onError != nil {
			cur.onError(err)
			return
		}
		if cur.escalate {
			break
		}
	}
	s.rt.fail(err)
}

func (s *Scope) registerEffect(e *Effect) {
	if s.disposed {
		e.disposed = true
		return
	}
	s.effects = append(s.effects, e)
}

// Dispose releases everything the scope owns: child scopes first, then
// effects, then cleanups in reverse registration order. Calling Dispose
// more than once is a no-op.
func (s *Scope) Dispose() {
	if s.disposed {
		return
	}
	s.disposed = true

	children := s.children
	s.children = nil
	for i := len(children) - 1; i >= 0; i-- {
		children[i].Dispose()
	}

	for _, e := range s.effects {
		e.Dispose()
	}
	s.effects = nil

	for i := len(s.cleanups) - 1; i >= 0; i-- {
		s.cleanups[i]()
	}
	s.cleanups = nil

	if s.parent != nil {
		s.parent.removeChild(s)
	}
}

func (s *Scope) removeChild(child *Scope) {
	for i, c := range s.children {
		if c == child {
			s.children = append(s.children[:i], s.children[i+1:]...)
			return
		}
	}
}

// Stats reports how many live effects, cleanups and scopes s owns,
// including descendants.
func (s *Scope) Stats() (effects, cleanups, scopes int) {
	if s.disposed {
		return 0, 0, 0
	}
	effects, cleanups, scopes = len(s.effects), len(s.cleanups), 1
	for _, c := range s.children {
		e, cl, sc := c.Stats()
		effects += e
		cleanups += cl
		scopes += sc
	}
	return effects, cleanups, scopes
}
