package router

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vango-dev/terse/pkg/render"
)

// StreamFunc writes a page result to w.
type StreamFunc func(ctx context.Context, page *render.Page, w io.Writer) error

// Router dispatches paths to handlers.
type Router struct {
	root       *routeNode
	middleware []Middleware
	notFound   Handler
	stream     StreamFunc
	logger     *slog.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithShell renders page results through shell.
func WithShell(shell *render.Shell) Option {
	return func(r *Router) {
		r.stream = func(ctx context.Context, page *render.Page, w io.Writer) error {
			return shell.Stream(ctx, page, render.NewWriterSink(w))
		}
	}
}

// WithStream replaces how page results are written.
func WithStream(fn StreamFunc) Option {
	return func(r *Router) { r.stream = fn }
}

// WithNotFound sets the handler for unmatched paths.
func WithNotFound(h Handler) Option {
	return func(r *Router) { r.notFound = h }
}

// WithLogger sets the logger used for result failures.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) { r.logger = logger }
}

// New creates an empty router.
func New(opts ...Option) *Router {
	r := &Router{root: &routeNode{}}
	for _, opt := range opts {
		opt(r)
	}
	if r.stream == nil {
		WithShell(render.NewShell(render.Config{Logger: r.logger}))(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Handle registers h for pattern. It panics on a malformed pattern or a
// duplicate registration.
func (r *Router) Handle(pattern string, h Handler) {
	if h == nil {
		panic("router: nil handler for " + pattern)
	}
	n, err := r.root.insert(pattern)
	if err != nil {
		panic(fmt.Sprintf("router: %s: %v", pattern, err))
	}
	if n.handler != nil {
		panic(fmt.Sprintf("router: %s already registered as %s", pattern, n.pattern))
	}
	n.handler = h
	n.pattern = pattern
}

// Use appends middleware applied to every matched handler.
func (r *Router) Use(mw ...Middleware) {
	r.middleware = append(r.middleware, mw...)
}

// Match finds the handler for path and its captured params.
func (r *Router) Match(path string) (Handler, Params, bool) {
	n, params := r.lookup(path)
	if n == nil {
		return nil, nil, false
	}
	return n.handler, params, true
}

// Pattern returns the registered pattern that path matches.
func (r *Router) Pattern(path string) (string, bool) {
	n, _ := r.lookup(path)
	if n == nil {
		return "", false
	}
	return n.pattern, true
}

func (r *Router) lookup(path string) (*routeNode, Params) {
	params := Params{}
	n := r.root.match(splitPath(path), params)
	if n == nil {
		return nil, nil
	}
	return n, params
}

// SetStream replaces how page results are written.
func (r *Router) SetStream(fn StreamFunc) {
	r.stream = fn
}
