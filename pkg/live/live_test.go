package live

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"

	"github.com/vango-dev/terse/pkg/spec"
	"github.com/vango-dev/terse/pkg/surface"
)

const counterPage = `{"s": {"n": 5, "name": ""}, "r": {"t": "row", "c": [
	"$n",
	{"t": "btn", "c": "+", "p": {"click": ["n", "+"]}},
	{"t": "inp", "p": {"input": ["name", "!"]}},
	{"t": "btn", "c": "bad", "p": {"click": ["name", "+"]}}
]}}`

func parse(t *testing.T, src string) *spec.Tree {
	t.Helper()
	tree, err := spec.Parse([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	return tree
}

// listeners returns the node IDs with a listener for event, in order.
func listeners(patches []surface.Patch, event string) []uint64 {
	var ids []uint64
	for _, p := range patches {
		if p.Op == surface.PatchListen && p.Name == event {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

func texts(patches []surface.Patch) []string {
	var out []string
	for _, p := range patches {
		if p.Op == surface.PatchSetText {
			out = append(out, p.Value)
		}
	}
	return out
}

func TestSessionDispatch(t *testing.T) {
	s, err := NewSession("counter", parse(t, counterPage), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	init := s.Init()
	if init.Type != FrameInit || init.Seq != 1 || init.Session != s.ID {
		t.Fatalf("init frame = %+v", init)
	}
	clicks := listeners(init.Patches, "click")
	if len(clicks) != 2 {
		t.Fatalf("click listeners = %v", clicks)
	}
	if !cmp.Equal([]string{"5"}, texts(init.Patches)) {
		t.Errorf("initial texts = %v", texts(init.Patches))
	}

	f := s.Dispatch(Event{Node: clicks[0], Type: "click"})
	if f.Type != FramePatches || f.Seq != 2 {
		t.Fatalf("frame = %+v", f)
	}
	if diff := cmp.Diff([]string{"6"}, texts(f.Patches)); diff != "" {
		t.Errorf("patches (-want +got):\n%s", diff)
	}

	input := listeners(init.Patches, "input")[0]
	f = s.Dispatch(Event{Node: input, Type: "input", Value: "bob", HasValue: true})
	if f.Type != FramePatches {
		t.Fatalf("input frame = %+v", f)
	}

	f = s.Dispatch(Event{Node: clicks[1], Type: "click"})
	if f.Type != FrameError || f.Error == nil || f.Error.Code != "E104" {
		t.Errorf("bad op frame = %+v", f)
	}

	f = s.Dispatch(Event{Node: 999, Type: "click"})
	if f.Type != FrameError {
		t.Errorf("unknown node frame = %+v", f)
	}
}

func TestSessionCloseReleases(t *testing.T) {
	s, err := NewSession("counter", parse(t, counterPage), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	init := s.Init()
	s.Close()
	s.Close()
	if !s.Closed() {
		t.Fatal("not closed")
	}
	if n := s.rec.Listeners(); n != 0 {
		t.Errorf("listeners after close = %d", n)
	}
	f := s.Dispatch(Event{Node: listeners(init.Patches, "click")[0], Type: "click"})
	if f.Type != FrameError {
		t.Errorf("dispatch after close = %+v", f)
	}
}

func TestSessionIDsDiffer(t *testing.T) {
	tree := parse(t, counterPage)
	a, _ := NewSession("p", tree, nil, nil)
	b, _ := NewSession("p", tree, nil, nil)
	defer a.Close()
	defer b.Close()
	if a.ID == b.ID || len(a.ID) != 26 {
		t.Errorf("ids %q %q", a.ID, b.ID)
	}
}

func TestEventCodec(t *testing.T) {
	b, err := EncodeEvent(Event{Node: 3, Type: "input", Value: map[string]any{"n": 7, "l": []any{1, "x"}}, HasValue: true})
	if err != nil {
		t.Fatal(err)
	}
	ev, err := DecodeEvent(b)
	if err != nil {
		t.Fatal(err)
	}
	want := Event{Node: 3, Type: "input", Value: map[string]any{"n": 7.0, "l": []any{1.0, "x"}}, HasValue: true}
	if diff := cmp.Diff(want, ev); diff != "" {
		t.Errorf("event (-want +got):\n%s", diff)
	}

	if _, err := DecodeEvent([]byte{0xc1}); err == nil {
		t.Error("garbage decoded")
	}
	b, _ = EncodeEvent(Event{Node: 1})
	if _, err := DecodeEvent(b); err == nil {
		t.Error("event without type decoded")
	}
}

func dial(t *testing.T, srv *httptest.Server, page string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/live/" + page
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	return ws
}

func read(t *testing.T, ws *websocket.Conn) Frame {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	kind, msg, err := ws.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if kind != websocket.BinaryMessage {
		t.Fatalf("message kind = %d", kind)
	}
	f, err := DecodeFrame(msg)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestHandlerRoundTrip(t *testing.T) {
	tree := parse(t, counterPage)
	opened := make(chan *Session, 1)
	closed := make(chan *Session, 1)
	h := Handler(func(name string) (*spec.Tree, bool) {
		return tree, name == "counter"
	}, Options{
		OnOpen:  func(s *Session) { opened <- s },
		OnClose: func(s *Session) { closed <- s },
	})
	srv := httptest.NewServer(h)
	defer srv.Close()

	ws := dial(t, srv, "counter")
	init := read(t, ws)
	if init.Type != FrameInit {
		t.Fatalf("first frame = %v", init.Type)
	}
	s := <-opened

	ev, _ := EncodeEvent(Event{Node: listeners(init.Patches, "click")[0], Type: "click"})
	if err := ws.WriteMessage(websocket.BinaryMessage, ev); err != nil {
		t.Fatal(err)
	}
	f := read(t, ws)
	if diff := cmp.Diff([]string{"6"}, texts(f.Patches)); diff != "" {
		t.Errorf("patches (-want +got):\n%s", diff)
	}

	ws.Close()
	select {
	case got := <-closed:
		if got != s || !got.Closed() {
			t.Error("session not closed")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("session did not close")
	}
}

func TestHandlerUnknownPage(t *testing.T) {
	srv := httptest.NewServer(Handler(func(string) (*spec.Tree, bool) { return nil, false }, Options{}))
	defer srv.Close()
	resp, err := http.Get(srv.URL + "/live/missing")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestHandlerContextEndsSession(t *testing.T) {
	tree := parse(t, counterPage)
	ctx, cancel := context.WithCancel(context.Background())
	closed := make(chan struct{})
	srv := httptest.NewServer(Handler(func(string) (*spec.Tree, bool) { return tree, true }, Options{
		Context: ctx,
		OnClose: func(*Session) { close(closed) },
	}))
	defer srv.Close()

	ws := dial(t, srv, "counter")
	defer ws.Close()
	read(t, ws)
	cancel()
	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("context did not end the session")
	}
}
