package live

import (
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/vango-dev/terse/internal/errors"
	"github.com/vango-dev/terse/pkg/mount"
	"github.com/vango-dev/terse/pkg/ops"
	"github.com/vango-dev/terse/pkg/spec"
	"github.com/vango-dev/terse/pkg/surface"
)

// Session is one server-side mount mirrored to one client.
type Session struct {
	ID   string
	Page string

	mu     sync.Mutex
	rec    *surface.Recorder
	mount  *mount.Mount
	seq    uint64
	fatal  []mount.ErrorInfo
	closed bool
	logger *slog.Logger
}

// NewSession mounts tree against a fresh recorder.
func NewSession(page string, tree *spec.Tree, callbacks map[string]ops.Callback, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		ID:   ulid.Make().String(),
		Page: page,
		rec:  surface.NewRecorder(),
	}
	s.logger = logger.With("session", s.ID, "page", page)
	m, err := mount.New(tree, s.rec, s.rec.Root(),
		mount.WithCallbacks(callbacks),
		mount.WithLogger(s.logger),
		mount.WithErrorHandler(func(info mount.ErrorInfo) {
			s.fatal = append(s.fatal, info)
		}),
	)
	if err != nil {
		return nil, err
	}
	s.mount = m
	return s, nil
}

// Init returns the frame that builds the page on the client.
func (s *Session) Init() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame(FrameInit, nil)
}

// Dispatch delivers ev and returns every patch it caused. A handler error
// or an uncaught update error yields an error frame that still carries
// the patches applied so far.
func (s *Session) Dispatch(ev Event) Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return s.frame(FrameError, errors.New("E201").WithDetail("session closed"))
	}
	err := s.rec.Dispatch(ev.Node, surface.Event{
		Type:     ev.Type,
		Value:    ev.Value,
		HasValue: ev.HasValue,
		Key:      ev.Key,
	})
	if err == nil && len(s.fatal) > 0 {
		err = s.fatal[0].Err
	}
	s.fatal = nil
	if err != nil {
		s.logger.Warn("event failed", "node", ev.Node, "type", ev.Type, "code", errors.CodeOf(err), "error", err)
		return s.frame(FrameError, err)
	}
	return s.frame(FramePatches, nil)
}

func (s *Session) frame(t FrameType, err error) Frame {
	s.seq++
	f := Frame{Type: t, Session: s.ID, Seq: s.seq, Patches: s.rec.Drain()}
	if err != nil {
		f.Error = &FrameErr{Code: errors.CodeOf(err), Message: err.Error()}
	}
	return f
}

// Close destroys the mount. It is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.mount.Destroy()
}

// Closed reports whether Close has run.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
