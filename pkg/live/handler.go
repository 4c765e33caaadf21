package live

import (
	"context"
	"log/slog"
	"net/http"
	"path"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/terse/pkg/ops"
	"github.com/vango-dev/terse/pkg/spec"
)

// Options configures Handler.
type Options struct {
	Callbacks map[string]ops.Callback
	Logger    *slog.Logger

	// PageName extracts the page name from the request. Default: the last
	// path segment.
	PageName func(*http.Request) string

	// Context ends every session when done, in addition to the request.
	Context context.Context

	// ReadTimeout bounds the wait for a client message or pong.
	// Default: 60 seconds. Pings go out at half this interval.
	ReadTimeout time.Duration

	// WriteTimeout bounds each write. Default: 10 seconds.
	WriteTimeout time.Duration

	// MaxMessageSize caps an incoming message. Default: 64KB.
	MaxMessageSize int64

	CheckOrigin func(*http.Request) bool

	// OnOpen and OnClose observe the session lifecycle.
	OnOpen  func(*Session)
	OnClose func(*Session)
}

func (o *Options) defaults() {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.PageName == nil {
		o.PageName = func(r *http.Request) string { return path.Base(r.URL.Path) }
	}
	if o.ReadTimeout == 0 {
		o.ReadTimeout = 60 * time.Second
	}
	if o.WriteTimeout == 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.MaxMessageSize == 0 {
		o.MaxMessageSize = 64 * 1024
	}
}

// Handler upgrades requests to live sessions of the named page.
func Handler(pages func(name string) (*spec.Tree, bool), opts Options) http.Handler {
	opts.defaults()
	h := &handler{pages: pages, opts: opts}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     opts.CheckOrigin,
	}
	return h
}

type handler struct {
	pages    func(string) (*spec.Tree, bool)
	opts     Options
	upgrader websocket.Upgrader
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := h.opts.PageName(r)
	tree, ok := h.pages(name)
	if !ok {
		http.NotFound(w, r)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.opts.Logger.Warn("upgrade failed", "page", name, "error", err)
		return
	}
	defer conn.Close()

	s, err := NewSession(name, tree, h.opts.Callbacks, h.opts.Logger)
	if err != nil {
		h.opts.Logger.Error("mount failed", "page", name, "error", err)
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "mount failed"))
		return
	}
	defer s.Close()
	if h.opts.OnOpen != nil {
		h.opts.OnOpen(s)
	}
	if h.opts.OnClose != nil {
		defer h.opts.OnClose(s)
	}

	c := &wsConn{ws: conn, opts: &h.opts}
	stop := context.AfterFunc(r.Context(), c.close)
	defer stop()
	if h.opts.Context != nil {
		stopOuter := context.AfterFunc(h.opts.Context, c.close)
		defer stopOuter()
	}

	if err := c.send(s.Init()); err != nil {
		s.logger.Debug("send failed", "error", err)
		return
	}
	done := make(chan struct{})
	defer close(done)
	go c.heartbeat(done)
	c.readLoop(s)
	s.logger.Debug("session ended")
}

type wsConn struct {
	ws      *websocket.Conn
	opts    *Options
	writeMu sync.Mutex
	once    sync.Once
}

func (c *wsConn) close() {
	c.once.Do(func() { c.ws.Close() })
}

func (c *wsConn) send(f Frame) error {
	b, err := EncodeFrame(f)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
	return c.ws.WriteMessage(websocket.BinaryMessage, b)
}

func (c *wsConn) heartbeat(done <-chan struct{}) {
	t := time.NewTicker(c.opts.ReadTimeout / 2)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
			c.writeMu.Lock()
			err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.opts.WriteTimeout))
			c.writeMu.Unlock()
			if err != nil {
				c.close()
				return
			}
		}
	}
}

func (c *wsConn) readLoop(s *Session) {
	c.ws.SetReadLimit(c.opts.MaxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(c.opts.ReadTimeout))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.opts.ReadTimeout))
	})
	for {
		kind, msg, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.logger.Error("read error", "error", err)
			}
			return
		}
		c.ws.SetReadDeadline(time.Now().Add(c.opts.ReadTimeout))
		if kind != websocket.BinaryMessage {
			s.logger.Warn("ignoring text message")
			continue
		}
		ev, err := DecodeEvent(msg)
		if err != nil {
			s.logger.Error("event decode error", "error", err)
			continue
		}
		if err := c.send(s.Dispatch(ev)); err != nil {
			s.logger.Debug("send failed", "error", err)
			return
		}
	}
}
