package hydrate

import (
	"log/slog"
	"sync"

	"github.com/vango-dev/terse/internal/errors"
	"github.com/vango-dev/terse/pkg/mount"
	"github.com/vango-dev/terse/pkg/ops"
	"github.com/vango-dev/terse/pkg/reactive"
	"github.com/vango-dev/terse/pkg/serial"
	"github.com/vango-dev/terse/pkg/spec"
	"github.com/vango-dev/terse/pkg/store"
	"github.com/vango-dev/terse/pkg/surface"
)

// Scheduler defers island mounts. Each method returns a function that
// cancels the pending callback.
type Scheduler interface {
	Idle(fn func()) (cancel func())
	Visible(node surface.Node, fn func()) (cancel func())
	Media(query string, fn func(matches bool)) (cancel func())
}

// Hydrator attaches the islands of a manifest to a surface.
type Hydrator struct {
	Surface   surface.Surface
	Scheduler Scheduler
	Callbacks map[string]ops.Callback
	Logger    *slog.Logger
}

// Hydrate rebuilds the store from m's snapshot and schedules every island
// whose container lookup finds. Immediate islands are mounted before
// Hydrate returns; their errors fail the whole session.
func (h *Hydrator) Hydrate(m *Manifest, lookup func(id string) (surface.Node, bool)) (*Session, error) {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sched := h.Scheduler
	if sched == nil {
		sched = eager{}
	}

	rt := reactive.NewRuntime(reactive.WithLogger(logger))
	st, err := serial.NewStore(rt, string(m.State))
	if err != nil {
		return nil, err
	}
	s := &Session{
		h:      h,
		logger: logger,
		store:  st,
		mounts: make(map[string]*mount.Mount),
		errs:   make(map[string]error),
	}

	for _, e := range m.Islands {
		st, err := ParseStrategy(e.Strategy)
		if err != nil {
			s.Close()
			return nil, err
		}
		if st == Static {
			continue
		}
		container, ok := lookup(e.ID)
		if !ok {
			logger.Warn("island container missing", "island", e.ID)
			continue
		}
		node, err := e.Node()
		if err == nil {
			err = spec.CheckState(node, stateKeys(s.store))
		}
		if err != nil {
			s.Close()
			return nil, errors.FromError(err, "E107").WithTag(e.ID)
		}

		id := e.ID
		run := func() { s.mount(id, node, container) }
		switch st {
		case Immediate:
			if err := s.mountNow(id, node, container); err != nil {
				s.Close()
				return nil, err
			}
		case Idle:
			s.pending = append(s.pending, sched.Idle(run))
		case Visible:
			s.pending = append(s.pending, sched.Visible(container, run))
		case Media:
			// Later changes are evaluated but a mounted island stays.
			s.pending = append(s.pending, sched.Media(e.Media, func(matches bool) {
				if matches {
					run()
				}
			}))
		}
	}
	return s, nil
}

// stateKeys returns the keys of st for reference checks.
func stateKeys(st *store.Store) map[string]any {
	keys := make(map[string]any, len(st.Keys()))
	for _, k := range st.Keys() {
		keys[k] = nil
	}
	return keys
}

// Session is the hydrated state of one page.
type Session struct {
	h      *Hydrator
	logger *slog.Logger

	mu      sync.Mutex
	store   *store.Store
	mounts  map[string]*mount.Mount
	errs    map[string]error
	pending []func()
	closed  bool
}

func (s *Session) mountNow(id string, node spec.Node, container surface.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.mounts[id] != nil {
		return nil
	}
	m, err := mount.Attach(s.store, node, s.h.Surface, container,
		mount.WithCallbacks(s.h.Callbacks), mount.WithLogger(s.logger))
	if err != nil {
		s.errs[id] = err
		return errors.FromError(err, "E201").WithTag(id)
	}
	s.mounts[id] = m
	s.logger.Debug("island hydrated", "island", id)
	return nil
}

// mount is the scheduled form of mountNow. Failures are recorded and
// logged, since there is no caller to return them to.
func (s *Session) mount(id string, node spec.Node, container surface.Node) {
	if err := s.mountNow(id, node, container); err != nil {
		s.logger.Error("island hydration failed", "island", id, "error", err)
	}
}

// Mounted reports whether island id is live.
func (s *Session) Mounted(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mounts[id] != nil
}

// Err returns the error a scheduled mount of island id failed with.
func (s *Session) Err(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errs[id]
}

// Store returns the store the islands share.
func (s *Session) Store() *store.Store {
	return s.store
}

// Lock serializes access to the store with scheduled mounts. Callers
// writing state from another goroutine hold it while they do.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases Lock.
func (s *Session) Unlock() { s.mu.Unlock() }

// Close cancels pending mounts, destroys the live islands and disposes
// the store. It is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for _, cancel := range s.pending {
		if cancel != nil {
			cancel()
		}
	}
	s.pending = nil
	for id, m := range s.mounts {
		m.Destroy()
		delete(s.mounts, id)
	}
	s.store.Dispose()
}

// eager runs idle and visible callbacks at once and treats every media
// query as unmatched. It stands in when no Scheduler is given.
type eager struct{}

func (eager) Idle(fn func()) func() { fn(); return nil }

func (eager) Visible(_ surface.Node, fn func()) func() { fn(); return nil }

func (eager) Media(string, func(bool)) func() { return nil }
