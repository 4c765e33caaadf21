package router

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func named(name string) Handler {
	return func(*Context) Result { return Data{Value: name} }
}

func nameOf(h Handler) string {
	return h(&Context{}).(Data).Value.(string)
}

func TestMatchPrecedence(t *testing.T) {
	r := New()
	r.Handle("/", named("home"))
	r.Handle("/users/new", named("new"))
	r.Handle("/users/:id", named("show"))
	r.Handle("/users/:id/edit", named("edit"))
	r.Handle("/files/*path", named("files"))
	r.Handle("/orders/:n:int", named("order"))
	r.Handle("/orders/*rest", named("orders-any"))
	r.Handle("/a/:x/c", named("axc"))
	r.Handle("/a/b/d", named("abd"))

	tests := []struct {
		path   string
		want   string
		params Params
	}{
		{"/", "home", Params{}},
		{"/users/new", "new", Params{}},
		{"/users/42", "show", Params{"id": "42"}},
		{"/users/42/", "show", Params{"id": "42"}},
		{"/users/new/edit", "edit", Params{"id": "new"}},
		{"/files/a/b/c.txt", "files", Params{"path": "a/b/c.txt"}},
		{"/files/", "files", Params{"path": ""}},
		{"/orders/12", "order", Params{"n": "12"}},
		{"/orders/twelve", "orders-any", Params{"rest": "twelve"}},
		// static "b" fails at "c", so the parameter branch is retried
		{"/a/b/c", "axc", Params{"x": "b"}},
		{"/a/b/d", "abd", Params{}},
		{"//users//7", "show", Params{"id": "7"}},
		{"/users/../users/9", "show", Params{"id": "9"}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			h, params, ok := r.Match(tt.path)
			if !ok {
				t.Fatalf("no match for %s", tt.path)
			}
			if got := nameOf(h); got != tt.want {
				t.Errorf("handler = %s, want %s", got, tt.want)
			}
			if diff := cmp.Diff(tt.params, params); diff != "" {
				t.Errorf("params (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMatchMisses(t *testing.T) {
	r := New()
	r.Handle("/users/:id", named("show"))
	r.Handle("/items/:id:uuid", named("item"))

	for _, path := range []string{"/", "/users", "/users/1/2", "/items/123", "/nope"} {
		if _, _, ok := r.Match(path); ok {
			t.Errorf("%s matched", path)
		}
	}
	if _, _, ok := r.Match("/items/123e4567-e89b-12d3-a456-426614174000"); !ok {
		t.Error("uuid did not match")
	}
}

func TestPattern(t *testing.T) {
	r := New()
	r.Handle("/users/:id", named("show"))
	got, ok := r.Pattern("/users/3")
	if !ok || got != "/users/:id" {
		t.Errorf("Pattern = %q, %v", got, ok)
	}
	if _, ok := r.Pattern("/x"); ok {
		t.Error("unexpected pattern")
	}
}

func TestHandlePanics(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
	}{
		{"duplicate", []string{"/a", "/a/"}},
		{"wildcard not last", []string{"/a/*rest/b"}},
		{"unnamed wildcard", []string{"/a/*"}},
		{"unnamed param", []string{"/a/:"}},
		{"unknown type", []string{"/a/:id:float"}},
		{"conflicting params", []string{"/a/:id", "/a/:name/x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			r := New()
			for _, p := range tt.patterns {
				r.Handle(p, named(p))
			}
		})
	}
}

func TestParamsBind(t *testing.T) {
	var target struct {
		ID    int      `param:"id"`
		Slug  string   `param:"slug"`
		Parts []string `param:"rest"`
		Flag  bool     `param:"flag"`
		Skip  string
	}
	p := Params{"id": "7", "slug": "hello", "rest": "a/b", "flag": "true"}
	if err := p.Bind(&target); err != nil {
		t.Fatal(err)
	}
	if target.ID != 7 || target.Slug != "hello" || !target.Flag {
		t.Errorf("bound %+v", target)
	}
	if diff := cmp.Diff([]string{"a", "b"}, target.Parts); diff != "" {
		t.Errorf("parts (-want +got):\n%s", diff)
	}

	if err := (Params{"id": "x"}).Bind(&target); err == nil {
		t.Error("bad integer accepted")
	}
	if err := p.Bind(target); err == nil {
		t.Error("non-pointer accepted")
	}
	if n, err := p.Int("id"); err != nil || n != 7 {
		t.Errorf("Int = %d, %v", n, err)
	}
	if _, err := p.Int("missing"); err == nil {
		t.Error("missing param accepted")
	}
}
