package spec

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestStyleDecl(t *testing.T) {
	tests := []struct {
		key  string
		v    any
		want string
		ok   bool
	}{
		{"w", 120.0, "width:120px", true},
		{"w", "50%", "width:50%", true},
		{"fs", 1.5, "font-size:1.5px", true},
		{"fw", 700, "font-weight:700", true},
		{"bg", "#fff", "background:#fff", true},
		{"cols", 3.0, "grid-template-columns:repeat(3,1fr)", true},
		{"cols", "1fr 2fr", "grid-template-columns:1fr 2fr", true},
		{"w", nil, "", false},
		{"bg", false, "", false},
		{"nope", 1, "", false},
	}
	for _, tt := range tests {
		got, ok := StyleDecl(tt.key, tt.v)
		if got != tt.want || ok != tt.ok {
			t.Errorf("StyleDecl(%q, %v) = %q, %v; want %q, %v", tt.key, tt.v, got, ok, tt.want, tt.ok)
		}
	}
}

func TestComposeStyle(t *testing.T) {
	got := ComposeStyle(TagRow, map[string]string{"gap": "gap:4px", "w": "width:10px"})
	want := "display:flex;flex-direction:row;width:10px;gap:4px"
	if got != want {
		t.Errorf("ComposeStyle = %q, want %q", got, want)
	}
	if got := ComposeStyle(TagBox, nil); got != "" {
		t.Errorf("empty style = %q", got)
	}
}

func TestAttrFor(t *testing.T) {
	tests := []struct {
		key, v  any
		name    string
		value   string
		present bool
	}{
		{"cls", "big", "class", "big", true},
		{"v", 3.0, "value", "3", true},
		{"dis", true, "disabled", "", true},
		{"dis", false, "disabled", "", false},
		{"ph", nil, "placeholder", "", false},
		{"opts", []any{"a"}, "", "", false},
	}
	for _, tt := range tests {
		name, value, present := AttrFor(tt.key.(string), tt.v)
		if name != tt.name || value != tt.value || present != tt.present {
			t.Errorf("AttrFor(%v, %v) = %q, %q, %v", tt.key, tt.v, name, value, present)
		}
	}
}

func TestOptions(t *testing.T) {
	got := Options([]any{"a", map[string]any{"v": 2.0, "l": "Two"}, map[string]any{"v": "c"}})
	want := []Option{{"a", "a"}, {"2", "Two"}, {"c", "c"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Options mismatch:\n%s", diff)
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{3.0, "3"},
		{2.5, "2.5"},
		{7, "7"},
		{true, "true"},
		{math.Inf(1), "Infinity"},
		{[]any{1.0, "a"}, `[1,"a"]`},
		{map[string]any{"k": "v"}, `{"k":"v"}`},
	}
	for _, tt := range tests {
		if got := FormatValue(tt.in); got != tt.want {
			t.Errorf("FormatValue(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruthyAndEqual(t *testing.T) {
	for _, v := range []any{false, nil, 0.0, "", []any{}, map[string]any{}, math.NaN()} {
		if Truthy(v) {
			t.Errorf("Truthy(%v) = true", v)
		}
	}
	for _, v := range []any{true, 1.0, "x", []any{nil}} {
		if !Truthy(v) {
			t.Errorf("Truthy(%v) = false", v)
		}
	}

	if !Equal(1, 1.0) || !Equal(map[string]any{"a": []any{1}}, map[string]any{"a": []any{1.0}}) {
		t.Error("numeric kinds should compare by value")
	}
	if Equal("1", 1.0) || Equal([]any{1.0}, []any{1.0, 2.0}) {
		t.Error("unequal values compared equal")
	}
}

func TestTagTable(t *testing.T) {
	for _, tag := range Tags() {
		got, ok := LookupTag(tag.String())
		if !ok || got != tag {
			t.Errorf("LookupTag(%q) = %v, %v", tag, got, ok)
		}
		if tag.Element() == "" {
			t.Errorf("%s has no element", tag)
		}
	}
	if _, ok := LookupTag("div"); ok {
		t.Error("div should not be a tag")
	}
	if TagChk.Element() != "input" || TagChk.DefaultAttrs()[0] != (Attr{"type", "checkbox"}) {
		t.Error("chk should render as a checkbox input")
	}
	if !TagImg.Void() || TagBox.Void() {
		t.Error("void flags wrong")
	}
}
