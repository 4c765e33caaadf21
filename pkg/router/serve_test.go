package router

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/vango-dev/terse/pkg/adapter"
	"github.com/vango-dev/terse/pkg/render"
	"github.com/vango-dev/terse/pkg/spec"
)

func get(path string) adapter.Request {
	return adapter.Request{Method: http.MethodGet, URL: path, Path: path}
}

func body(t *testing.T, resp adapter.Response) string {
	t.Helper()
	if resp.Stream == nil {
		return string(resp.Body)
	}
	var buf bytes.Buffer
	if err := resp.Stream(&buf); err != nil {
		t.Fatal(err)
	}
	return buf.String()
}

func TestServeResults(t *testing.T) {
	tree, err := spec.Parse([]byte(`{"s": {"who": "world"}, "r": {"t": "h1", "c": "$who"}}`))
	if err != nil {
		t.Fatal(err)
	}
	r := New()
	r.Handle("/page", func(c *Context) Result {
		return Page{Page: render.Page{Title: "Hi", Tree: tree}}
	})
	r.Handle("/api/users/:id", func(c *Context) Result {
		return Data{Value: map[string]string{"id": c.Params.Get("id")}}
	})
	r.Handle("/created", func(*Context) Result { return Data{Status: http.StatusCreated, Value: []int{1}} })
	r.Handle("/old", func(*Context) Result { return Redirect{URL: "/new", Code: http.StatusMovedPermanently} })
	r.Handle("/found", func(*Context) Result { return Redirect{URL: "/new"} })
	r.Handle("/bad-redirect", func(*Context) Result { return Redirect{URL: "/new", Code: http.StatusOK} })
	r.Handle("/empty-redirect", func(*Context) Result { return Redirect{} })
	r.Handle("/teapot", func(*Context) Result {
		return Error{Status: http.StatusTeapot, Err: stderrors.New("no coffee")}
	})
	r.Handle("/boom", func(*Context) Result { return Error{Err: stderrors.New("secret")} })
	r.Handle("/nil", func(*Context) Result { return nil })
	r.Handle("/unencodable", func(*Context) Result { return Data{Value: func() {}} })

	tests := []struct {
		path   string
		status int
		body   string
		header string
		value  string
		stream bool
	}{
		{path: "/page", status: 200, body: "world", header: "Content-Type", value: "text/html; charset=utf-8", stream: true},
		{path: "/api/users/5", status: 200, body: `{"id":"5"}` + "\n", header: "Content-Type", value: "application/json"},
		{path: "/created", status: 201, body: "[1]\n"},
		{path: "/old", status: 301, header: "Location", value: "/new"},
		{path: "/found", status: 302, header: "Location", value: "/new"},
		{path: "/bad-redirect", status: 500, header: "X-Terse-Error", value: "E108"},
		{path: "/empty-redirect", status: 500, header: "X-Terse-Error", value: "E108"},
		{path: "/teapot", status: 418, body: "I'm a teapot: no coffee\n"},
		{path: "/boom", status: 500, body: "Internal Server Error\n"},
		{path: "/nil", status: 500, header: "X-Terse-Error", value: "E201"},
		{path: "/unencodable", status: 500},
		{path: "/missing", status: 404, body: "404 page not found\n"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp := Serve(context.Background(), r, get(tt.path))
			if resp.Status != tt.status {
				t.Errorf("status = %d, want %d", resp.Status, tt.status)
			}
			if resp.Streaming() != tt.stream {
				t.Errorf("streaming = %v", resp.Streaming())
			}
			got := body(t, resp)
			if tt.body != "" && !strings.Contains(got, tt.body) {
				t.Errorf("body %q does not contain %q", got, tt.body)
			}
			if tt.header != "" && resp.Headers.Get(tt.header) != tt.value {
				t.Errorf("%s = %q, want %q", tt.header, resp.Headers.Get(tt.header), tt.value)
			}
		})
	}
}

func TestServeRendersOnlyPages(t *testing.T) {
	var streamed int
	r := New(WithStream(func(ctx context.Context, page *render.Page, w io.Writer) error {
		streamed++
		_, err := io.WriteString(w, page.Title)
		return err
	}))
	r.Handle("/p", func(*Context) Result { return Page{Page: render.Page{Title: "t"}} })
	r.Handle("/d", func(*Context) Result { return Data{Value: 1} })

	body(t, Serve(context.Background(), r, get("/d")))
	if streamed != 0 {
		t.Fatalf("data result rendered a page")
	}
	if got := body(t, Serve(context.Background(), r, get("/p"))); got != "t" {
		t.Errorf("page body = %q", got)
	}
	if streamed != 1 {
		t.Errorf("streamed = %d, want 1", streamed)
	}
}

func TestServeNotFoundHandler(t *testing.T) {
	r := New(WithNotFound(func(c *Context) Result {
		return Error{Status: http.StatusNotFound, Err: stderrors.New(c.Request.Path)}
	}))
	resp := Serve(context.Background(), r, get("/where"))
	if resp.Status != http.StatusNotFound || !strings.Contains(string(resp.Body), "/where") {
		t.Errorf("got %d %q", resp.Status, resp.Body)
	}
}

func TestMiddleware(t *testing.T) {
	var order []string
	trace := func(name string) Middleware {
		return func(next Handler) Handler {
			return func(c *Context) Result {
				order = append(order, name)
				return next(c)
			}
		}
	}
	deny := func(next Handler) Handler {
		return func(c *Context) Result { return Error{Status: http.StatusForbidden} }
	}

	r := New()
	r.Use(trace("outer"), Chain(trace("a"), trace("b")))
	r.Use(Only(func(c *Context) bool { return strings.HasPrefix(c.Request.Path, "/admin") }, deny))
	r.Handle("/admin/x", func(*Context) Result { return Data{Value: "admin"} })
	r.Handle("/pub", func(*Context) Result { return Data{Value: "pub"} })

	if resp := Serve(context.Background(), r, get("/pub")); resp.Status != http.StatusOK {
		t.Errorf("/pub status = %d", resp.Status)
	}
	if got := strings.Join(order, ","); got != "outer,a,b" {
		t.Errorf("order = %s", got)
	}
	if resp := Serve(context.Background(), r, get("/admin/x")); resp.Status != http.StatusForbidden {
		t.Errorf("/admin/x status = %d", resp.Status)
	}
}
