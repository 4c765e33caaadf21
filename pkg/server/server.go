package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	terrors "github.com/vango-dev/terse/internal/errors"
	"github.com/vango-dev/terse/pkg/adapter"
	"github.com/vango-dev/terse/pkg/live"
	"github.com/vango-dev/terse/pkg/ops"
	"github.com/vango-dev/terse/pkg/render"
	"github.com/vango-dev/terse/pkg/router"
	"github.com/vango-dev/terse/pkg/spec"
)

// Config configures a Server.
type Config struct {
	Host string
	Port int

	// ShutdownTimeout bounds graceful shutdown. Default: 10 seconds.
	ShutdownTimeout time.Duration

	// LivePath is the prefix live sessions are served under.
	// Default: /_terse/live.
	LivePath string

	Render render.Config
}

// Addr returns host:port.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithRegistry registers metrics with reg and serves them from gather.
// Default: a registry private to the server.
func WithRegistry(reg prometheus.Registerer, gather prometheus.Gatherer) Option {
	return func(s *Server) {
		s.registerer = reg
		s.gatherer = gather
	}
}

// WithLive enables live sessions for the pages lookup resolves.
func WithLive(lookup func(name string) (*spec.Tree, bool), callbacks map[string]ops.Callback) Option {
	return func(s *Server) {
		s.livePages = lookup
		s.liveCallbacks = callbacks
	}
}

// WithTracerName sets the tracer name. Default: terse.
func WithTracerName(name string) Option {
	return func(s *Server) { s.tracerName = name }
}

// Server serves a router over HTTP.
type Server struct {
	cfg    Config
	router *router.Router
	shell  *render.Shell
	http   adapter.HTTP
	mux    chi.Router

	registerer prometheus.Registerer
	gatherer   prometheus.Gatherer
	metrics    *Metrics

	tracerName string
	tracer     trace.Tracer

	livePages     func(string) (*spec.Tree, bool)
	liveCallbacks map[string]ops.Callback

	base   context.Context
	cancel context.CancelFunc
	logger *slog.Logger
}

// New builds a server for r. Page results of r are streamed through the
// server's shell from then on.
func New(cfg Config, r *router.Router, opts ...Option) *Server {
	s := &Server{cfg: cfg, router: r, tracerName: "terse"}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.cfg.ShutdownTimeout == 0 {
		s.cfg.ShutdownTimeout = 10 * time.Second
	}
	if s.cfg.LivePath == "" {
		s.cfg.LivePath = "/_terse/live"
	}
	if s.registerer == nil {
		reg := prometheus.NewRegistry()
		s.registerer, s.gatherer = reg, reg
	}
	if s.cfg.Render.Logger == nil {
		s.cfg.Render.Logger = s.logger
	}
	s.base, s.cancel = context.WithCancel(context.Background())
	s.metrics = newMetrics(s.registerer)
	s.tracer = otel.Tracer(s.tracerName)
	s.shell = render.NewShell(s.cfg.Render)
	s.http = adapter.HTTP{Logger: s.logger}
	r.SetStream(s.stream)
	s.mux = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Recoverer)

	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	if s.livePages != nil {
		mux.Handle(s.cfg.LivePath+"/{page}", live.Handler(s.livePages, live.Options{
			Callbacks: s.liveCallbacks,
			Logger:    s.logger,
			Context:   s.base,
			PageName:  func(r *http.Request) string { return chi.URLParam(r, "page") },
			OnOpen:    func(*live.Session) { s.metrics.LiveSessions.Inc() },
			OnClose:   func(*live.Session) { s.metrics.LiveSessions.Dec() },
		}))
	}
	mux.NotFound(s.serve)
	mux.Handle("/*", http.HandlerFunc(s.serve))
	return mux
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	route, ok := s.router.Pattern(r.URL.Path)
	if !ok {
		route = "unmatched"
	}
	reqID := middleware.GetReqID(r.Context())
	ctx, span := s.tracer.Start(r.Context(), "terse.request",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", route),
			attribute.String("terse.request_id", reqID),
		))
	defer span.End()
	start := time.Now()

	ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
	req, err := s.http.Request(ww, r)
	var resp adapter.Response
	if err != nil {
		resp = adapter.Text(http.StatusRequestEntityTooLarge, "request body too large\n")
	} else {
		resp = router.Serve(ctx, s.router, req)
	}
	err = s.http.Write(ww, resp)

	status := ww.Status()
	if status == 0 {
		status = http.StatusOK
	}
	s.metrics.Requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	if resp.Streaming() {
		s.metrics.RenderDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
	span.SetAttributes(attribute.Int("http.status_code", status))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn("request failed", "path", r.URL.Path, "request_id", reqID, "code", terrors.CodeOf(err), "error", err)
	} else if status >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, http.StatusText(status))
	}
}

func (s *Server) stream(ctx context.Context, page *render.Page, w io.Writer) error {
	ctx, span := s.tracer.Start(ctx, "terse.stream")
	defer span.End()
	sink := countingSink{Sink: render.NewWriterSink(w), chunks: s.metrics.StreamChunks}
	err := s.shell.Stream(ctx, page, sink)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully and
// ends all live sessions.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.cancel()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	s.cancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("shutdown error", "error", err)
		return err
	}
	s.logger.Info("server shutdown complete")
	return nil
}
