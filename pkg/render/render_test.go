package render

import (
	"strings"
	"testing"

	"golang.org/x/net/html"

	"github.com/vango-dev/terse/internal/errors"
	"github.com/vango-dev/terse/pkg/mount"
	"github.com/vango-dev/terse/pkg/ops"
	"github.com/vango-dev/terse/pkg/reactive"
	"github.com/vango-dev/terse/pkg/spec"
	"github.com/vango-dev/terse/pkg/store"
)

func renderJSON(t *testing.T, src string, cbs map[string]ops.Callback) (string, error) {
	t.Helper()
	tree, err := spec.Parse([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	r := &Renderer{Store: store.New(reactive.NewRuntime(), tree.State), Callbacks: cbs}
	return r.RenderString(tree.Root)
}

func TestRenderNode(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			"counter",
			`{"s": {"n": 5}, "r": {"t": "row", "c": [{"t": "txt", "c": "$n"}, {"t": "btn", "c": "+", "p": {"click": "n+"}}]}}`,
			`<div style="display:flex;flex-direction:row"><span>5</span><button type="button" data-on-click="true">+</button></div>`,
		},
		{
			"escaping",
			`{"s": {"x": "<b>&"}, "r": {"t": "p", "c": "$x", "p": {"title": "$x"}}}`,
			`<p title="&lt;b&gt;&amp;">&lt;b&gt;&amp;</p>`,
		},
		{
			"style and attrs",
			`{"s": {"w": 10}, "r": {"t": "inp", "p": {"w": "$w", "pad": 4, "dis": true, "ro": false, "v": "hi"}}}`,
			`<input type="text" style="width:10px;padding:4px" disabled value="hi">`,
		},
		{
			"options",
			`{"r": {"t": "sel", "p": {"opts": ["a", {"v": "b", "l": "Bee"}]}}}`,
			`<select><option value="a">a</option><option value="b">Bee</option></select>`,
		},
		{
			"cond",
			`{"s": {"m": "x"}, "r": {"t": "box", "c": [{"if": "$m", "eq": "x", "then": "yes", "else": "no"}, {"if": "$m.a", "then": "never"}]}}`,
			`<div><span>yes</span></div>`,
		},
		{
			"each with index",
			`{"s": {"xs": [{"id": 1, "n": "a"}, {"id": 2, "n": "b"}]}, "r": {"t": "ul", "c": [{"each": "$xs", "key": "id", "do": {"t": "li", "c": [{"t": "txt", "c": "#"}, {"t": "txt", "c": "@.n"}]}}]}}`,
			`<ul><li><span>0</span><span>a</span></li><li><span>1</span><span>b</span></li></ul>`,
		},
		{
			"literal escapes",
			`{"r": {"t": "p", "c": "$$5"}}`,
			`<p>$5</p>`,
		},
		{
			"island",
			`{"s": {"n": 1}, "r": {"island": "c", "hydrate": "media", "media": "(min-width: 1px)", "do": {"t": "txt", "c": "$n"}}}`,
			`<div data-island="c" data-hydrate="media" data-media="(min-width: 1px)"><span>1</span></div>`,
		},
		{
			"island default strategy",
			`{"r": {"island": "c", "do": "x"}}`,
			`<div data-island="c" data-hydrate="load"><span>x</span></div>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := renderJSON(t, tt.src, nil)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got  %s\nwant %s", got, tt.want)
			}
		})
	}
}

func TestRenderErrors(t *testing.T) {
	tests := []struct {
		name, src, code, tag string
	}{
		{"not a list", `{"s": {"n": 1}, "r": {"t": "ul", "c": [{"each": "$n", "do": {"t": "li"}}]}}`, "E104", "ul"},
		{"duplicate key", `{"s": {"xs": [{"id": 1}, {"id": 1}]}, "r": {"each": "$xs", "key": "id", "do": {"t": "li"}}}`, "E106", ""},
		{"unknown error callback", `{"r": {"try": "x", "catch": "y", "onError": "nope"}}`, "E105", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := renderJSON(t, tt.src, nil)
			if errors.CodeOf(err) != tt.code {
				t.Fatalf("err = %v, want %s", err, tt.code)
			}
			var e *errors.Error
			if errors.As(err, &e) && e.Tag != tt.tag {
				t.Errorf("tag = %q, want %q", e.Tag, tt.tag)
			}
		})
	}

	r := &Renderer{Store: store.New(reactive.NewRuntime(), nil)}
	_, err := r.RenderString(spec.El(spec.TagTxt, spec.Bind{Ref: spec.StateRef("gone")}, nil))
	if errors.CodeOf(err) != "E101" {
		t.Errorf("undeclared key err = %v", err)
	}
}

func TestRenderBoundary(t *testing.T) {
	var reports []mount.ErrorInfo
	cbs := map[string]ops.Callback{"report": func(c ops.Call) error {
		reports = append(reports, c.Event.Value.(mount.ErrorInfo))
		return nil
	}}
	got, err := renderJSON(t, `{"s": {"xs": 3}, "r": {"t": "box", "c": [
		{"try": {"t": "ul", "c": [{"t": "li", "c": "partial"}, {"each": "$xs", "do": "x"}]}, "catch": {"t": "p", "c": "failed"}, "onError": "report"}
	]}}`, cbs)
	if err != nil {
		t.Fatal(err)
	}
	if got != `<div><p>failed</p></div>` {
		t.Errorf("got %s", got)
	}
	if len(reports) != 1 || reports[0].Message == "" || errors.CodeOf(reports[0].Err) != "E104" {
		t.Errorf("reports = %+v", reports)
	}

	_, err = renderJSON(t, `{"s": {"xs": 3}, "r": {"try": {"each": "$xs", "do": "x"}, "catch": {"each": "$xs", "do": "y"}}}`, nil)
	if errors.CodeOf(err) != "E202" {
		t.Errorf("failing fallback err = %v", err)
	}

	_, err = renderJSON(t, `{"s": {"xs": 3}, "r": {"try": {"try": {"each": "$xs", "do": "x"}, "catch": {"each": "$xs", "do": "y"}}, "catch": "outer"}}`, nil)
	if errors.CodeOf(err) != "E202" {
		t.Errorf("nested failing fallback err = %v", err)
	}
}

func TestRenderDoesNotSubscribe(t *testing.T) {
	rt := reactive.NewRuntime()
	st := store.New(rt, map[string]any{"n": 1})
	runs := 0
	rt.CreateEffect(func() reactive.Cleanup {
		runs++
		r := &Renderer{Store: st}
		if _, err := r.RenderString(spec.El(spec.TagTxt, spec.Bind{Ref: spec.StateRef("n")}, nil)); err != nil {
			t.Error(err)
		}
		return nil
	})
	_ = st.Set("n", 2)
	if runs != 1 {
		t.Errorf("rendering subscribed to state: %d runs", runs)
	}
}

func TestPrettyOutputParses(t *testing.T) {
	tree, err := spec.Parse([]byte(`{"r": {"t": "col", "c": [{"t": "h1", "c": "T"}, {"t": "p", "c": [{"t": "code", "c": "x"}, {"t": "inp"}]}, {"t": "hr"}]}}`))
	if err != nil {
		t.Fatal(err)
	}
	r := &Renderer{Store: store.New(reactive.NewRuntime(), nil), Pretty: true}
	got, err := r.RenderString(tree.Root)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "</h1>\n") || strings.Contains(got, "</code>\n") {
		t.Errorf("pretty output:\n%s", got)
	}
	nodes, err := html.ParseFragment(strings.NewReader(got), &html.Node{Type: html.ElementNode, Data: "body"})
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) == 0 || nodes[0].Data != "div" {
		t.Errorf("parsed %d nodes", len(nodes))
	}
}
