package adapter

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/vango-dev/terse/internal/errors"
)

// DefaultMaxBody caps request bodies read by HTTP.
const DefaultMaxBody = 1 << 20

// HTTP converts between net/http and the normalized request/response pair.
type HTTP struct {
	MaxBody int64
	Logger  *slog.Logger
}

func (h *HTTP) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// Request reads r into a normalized Request. The body is read fully, up to
// MaxBody bytes.
func (h *HTTP) Request(w http.ResponseWriter, r *http.Request) (Request, error) {
	req := Request{
		Method:  r.Method,
		URL:     r.URL.String(),
		Path:    r.URL.Path,
		Query:   r.URL.Query(),
		Headers: r.Header.Clone(),
	}
	if req.Path == "" {
		req.Path = "/"
	}
	if r.Body == nil || r.Body == http.NoBody {
		return req, nil
	}
	limit := h.MaxBody
	if limit <= 0 {
		limit = DefaultMaxBody
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		return req, err
	}
	req.Body = body
	return req, nil
}

// Write sends resp to w. A streaming response commits its status on the
// first write; if the stream fails before writing anything a 500 is sent
// instead. Streams are flushed once they return.
func (h *HTTP) Write(w http.ResponseWriter, resp Response) error {
	for k, vs := range resp.Headers {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	if resp.Stream == nil {
		w.WriteHeader(status)
		_, err := w.Write(resp.Body)
		return err
	}
	w.Header().Del("Content-Length")
	lw := &lazyWriter{w: w, status: status}
	err := resp.Stream(lw)
	if err != nil && !lw.wrote {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if code := errors.CodeOf(err); code != "" {
			w.Header().Set("X-Terse-Error", code)
		}
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, http.StatusText(http.StatusInternalServerError)+"\n")
		return err
	}
	lw.commit()
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return err
}

type lazyWriter struct {
	w      http.ResponseWriter
	status int
	wrote  bool
}

func (l *lazyWriter) commit() {
	if !l.wrote {
		l.wrote = true
		l.w.WriteHeader(l.status)
	}
}

func (l *lazyWriter) Write(p []byte) (int, error) {
	l.commit()
	return l.w.Write(p)
}

func (l *lazyWriter) Flush() {
	if !l.wrote {
		return
	}
	if f, ok := l.w.(http.Flusher); ok {
		f.Flush()
	}
}

// Handler adapts fn into an http.Handler.
func (h *HTTP) Handler(fn func(ctx context.Context, req Request) Response) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := h.Request(w, r)
		if err != nil {
			h.logger().Warn("read request", "path", r.URL.Path, "error", err)
			_ = h.Write(w, Text(http.StatusRequestEntityTooLarge, "request body too large\n"))
			return
		}
		if err := h.Write(w, fn(r.Context(), req)); err != nil {
			h.logger().Error("write response", "path", req.Path, "code", errors.CodeOf(err), "error", err)
		}
	})
}
