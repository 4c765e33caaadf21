package mount

import (
	stderrors "errors"
	"log/slog"

	"github.com/vango-dev/terse/internal/errors"
	"github.com/vango-dev/terse/pkg/ops"
	"github.com/vango-dev/terse/pkg/reactive"
	"github.com/vango-dev/terse/pkg/spec"
	"github.com/vango-dev/terse/pkg/store"
	"github.com/vango-dev/terse/pkg/surface"
)

// ErrorInfo describes an error caught by a boundary or reported as fatal.
type ErrorInfo struct {
	Message string
	Tag     string
	Stack   string
	Err     error
}

// Info builds the description of err.
func Info(err error) ErrorInfo {
	info := ErrorInfo{Message: err.Error(), Err: err}
	var e *errors.Error
	if stderrors.As(err, &e) {
		info.Tag = e.Tag
	}
	var p *reactive.PanicError
	if stderrors.As(err, &p) {
		info.Stack = string(p.Stack)
	}
	return info
}

type options struct {
	callbacks map[string]ops.Callback
	onError   func(ErrorInfo)
	logger    *slog.Logger
}

// Option configures a mount.
type Option func(*options)

// WithCallbacks registers the callbacks event and error handlers may name.
func WithCallbacks(cbs map[string]ops.Callback) Option {
	return func(o *options) {
		o.callbacks = cbs
	}
}

// WithErrorHandler sets the handler for errors no boundary caught during
// updates. It applies to mounts created by New, which own their runtime.
func WithErrorHandler(fn func(ErrorInfo)) Option {
	return func(o *options) {
		o.onError = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Mount is one live instantiation of a spec tree.
type Mount struct {
	rt        *reactive.Runtime
	store     *store.Store
	ownsStore bool

	s         surface.Surface
	container surface.Node

	root     *reactive.Scope
	blocks   []block
	resolver *ops.Resolver
	opts     options
	logger   *slog.Logger

	destroyed bool
}

// New creates a runtime and a store from tree.State and mounts tree.Root
// at the end of container.
func New(tree *spec.Tree, s surface.Surface, container surface.Node, opts ...Option) (*Mount, error) {
	m := newMount(s, container, opts)
	m.rt = reactive.NewRuntime(
		reactive.WithLogger(m.logger),
		reactive.WithFatalHandler(m.fatal),
	)
	m.store = store.New(m.rt, tree.State)
	m.ownsStore = true
	if err := m.start(tree.Root); err != nil {
		return nil, err
	}
	return m, nil
}

// Attach mounts node against an existing store, as islands sharing one
// store do. Uncaught update errors go to the fatal handler of the store's
// runtime. Destroy leaves the store alive.
func Attach(st *store.Store, node spec.Node, s surface.Surface, container surface.Node, opts ...Option) (*Mount, error) {
	m := newMount(s, container, opts)
	m.rt = st.Runtime()
	m.store = st
	if err := m.start(node); err != nil {
		return nil, err
	}
	return m, nil
}

func newMount(s surface.Surface, container surface.Node, opts []Option) *Mount {
	m := &Mount{s: s, container: container}
	for _, opt := range opts {
		opt(&m.opts)
	}
	m.logger = m.opts.logger
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m
}

func (m *Mount) start(node spec.Node) error {
	if node == nil {
		return errors.Newf("E109", "nothing to mount")
	}
	m.resolver = &ops.Resolver{Store: m.store, Callbacks: m.opts.callbacks, Logger: m.logger}
	m.root = m.rt.NewScope()

	var blk block
	var err error
	m.rt.Untracked(func() {
		blk, err = m.mountNode(node, m.root, env{}, m.container, nil)
	})
	if err != nil {
		m.root.Dispose()
		if m.ownsStore {
			m.store.Dispose()
		}
		return err
	}
	m.blocks = []block{blk}
	m.logger.Debug("mounted", "kind", node.Kind().String())
	return nil
}

func (m *Mount) fatal(err error) {
	if m.opts.onError != nil {
		m.opts.onError(Info(err))
	}
}

// Store returns the mount's store.
func (m *Mount) Store() *store.Store {
	return m.store
}

// Runtime returns the runtime the mount's effects run in.
func (m *Mount) Runtime() *reactive.Runtime {
	return m.rt
}

// Nodes returns the surface nodes the mount placed in its container, in
// order.
func (m *Mount) Nodes() []surface.Node {
	if m.destroyed {
		return nil
	}
	return flatten(m.blocks)
}

// Stats reports the live effects, cleanups and scopes the mount owns.
func (m *Mount) Stats() (effects, cleanups, scopes int) {
	return m.root.Stats()
}

// Destroyed reports whether Destroy has been called.
func (m *Mount) Destroyed() bool {
	return m.destroyed
}

// Destroy releases every effect, listener and surface node the mount
// created, and the store when the mount created it. Calling Destroy more
// than once is a no-op.
func (m *Mount) Destroy() {
	if m.destroyed {
		return
	}
	m.destroyed = true
	m.root.Dispose()
	m.removeBlocks(m.container, m.blocks)
	m.blocks = nil
	if m.ownsStore {
		m.store.Dispose()
	}
	m.logger.Debug("destroyed")
}
