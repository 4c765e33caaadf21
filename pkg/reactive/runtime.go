package reactive

import (
	"errors"
	"log/slog"
	"runtime/debug"
)

// Runtime holds the reactive tracking state for one mount.
//
// It replaces a process-wide "current listener" with an explicit scope: a
// signal read registers against whatever listener the signal's own Runtime
// has active, so reads made while rendering one mount can never subscribe a
// computation belonging to another.
type Runtime struct {
	// listener is what's currently tracking dependencies.
	// nil means no tracking (reads don't create subscriptions).
	listener Listener

	// scope is the Scope that will own newly created effects.
	scope *Scope

	// batchDepth tracks nested Batch() calls.
	batchDepth int

	// queue holds listeners waiting to be notified, in notification order.
	queue  []Listener
	queued map[uint64]bool

	// flushing is true while the queue is being drained.
	flushing bool

	// caught collects fatal errors while a Catch call is active.
	caught *[]error

	onFatal func(error)
	logger  *slog.Logger
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithFatalHandler sets the function called for render errors that no
// scope handled.
func WithFatalHandler(fn func(error)) Option {
	return func(rt *Runtime) {
		rt.onFatal = fn
	}
}

// WithLogger sets the logger used for reactive diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(rt *Runtime) {
		if logger != nil {
			rt.logger = logger
		}
	}
}

// NewRuntime creates an empty tracking scope.
func NewRuntime(opts ...Option) *Runtime {
	rt := &Runtime{
		queued: make(map[uint64]bool),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Logger returns the runtime's logger.
func (rt *Runtime) Logger() *slog.Logger {
	return rt.logger
}

// Batch groups multiple signal updates into a single notification phase.
// All notifications raised inside fn are collected, deduplicated, and
// delivered once when the outermost batch completes.
func (rt *Runtime) Batch(fn func()) {
	rt.batchDepth++
	defer func() {
		rt.batchDepth--
		if rt.batchDepth == 0 {
			rt.flush()
		}
	}()
	fn()
}

// Untracked runs fn without tracking signal reads as dependencies.
func (rt *Runtime) Untracked(fn func()) {
	old := rt.listener
	rt.listener = nil
	defer func() { rt.listener = old }()
	fn()
}

// WithListener runs fn with l as the tracking listener.
func (rt *Runtime) WithListener(l Listener, fn func()) {
	old := rt.listener
	rt.listener = l
	defer func() { rt.listener = old }()
	fn()
}

// Tracking reports whether a computation is currently tracking reads.
func (rt *Runtime) Tracking() bool {
	return rt.listener != nil
}

// Catch runs fn and returns the fatal render errors raised while it ran,
// joined into one error. Errors handled by a scope are not returned.
func (rt *Runtime) Catch(fn func()) error {
	var errs []error
	prev := rt.caught
	rt.caught = &errs
	defer func() { rt.caught = prev }()
	fn()
	return errors.Join(errs...)
}

// enqueue schedules l for notification unless it is already waiting.
func (rt *Runtime) enqueue(l Listener) {
	id := l.ID()
	if rt.queued[id] {
		return
	}
	rt.queued[id] = true
	rt.queue = append(rt.queue, l)
}

// notify queues subs and delivers them unless a batch or flush is active.
func (rt *Runtime) notify(subs []Listener) {
	for _, l := range subs {
		rt.enqueue(l)
	}
	if rt.batchDepth == 0 {
		rt.flush()
	}
}

// flush drains the notification queue. Listeners queued while draining are
// delivered in the same pass; each listener runs at most once per flush.
func (rt *Runtime) flush() {
	if rt.flushing {
		return
	}
	rt.flushing = true
	defer func() {
		rt.flushing = false
		rt.queue = nil
		clear(rt.queued)
	}()

	ran := make(map[uint64]bool)
	for len(rt.queue) > 0 {
		l := rt.queue[0]
		rt.queue[0] = nil
		rt.queue = rt.queue[1:]
		id := l.ID()
		delete(rt.queued, id)

		if ran[id] {
			continue
		}
		ran[id] = true
		rt.deliver(l)
	}
}

// deliver notifies l, reporting a panic as an unhandled error so the rest
// of the queue is still delivered.
func (rt *Runtime) deliver(l Listener) {
	defer func() {
		if r := recover(); r != nil {
			rt.fail(&PanicError{Value: r, Stack: debug.Stack()})
		}
	}()
	l.MarkDirty()
}

// fail reports an error that no scope handled.
func (rt *Runtime) fail(err error) {
	rt.logger.Error("unhandled render error", "error", err)
	if rt.caught != nil {
		*rt.caught = append(*rt.caught, err)
	}
	if rt.onFatal != nil {
		rt.onFatal(err)
	}
}
