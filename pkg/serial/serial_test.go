package serial

import (
	"math"
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vango-dev/terse/internal/errors"
	"github.com/vango-dev/terse/pkg/reactive"
	"github.com/vango-dev/terse/pkg/store"
)

func TestRoundTripStore(t *testing.T) {
	rt := reactive.NewRuntime()
	st := store.New(rt, map[string]any{
		"count": 5,
		"name":  "ann",
		"todos": []any{map[string]any{"id": 1, "done": false, "tags": []string{"a"}}},
		"none":  nil,
		"empty": map[string]any{},
	})

	text, err := Serialize(st)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Deserialize(text)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(st.Snapshot(), got); diff != "" {
		t.Errorf("round trip (-want +got):\n%s", diff)
	}

	revived, err := NewStore(reactive.NewRuntime(), text)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(st.Snapshot(), revived.Snapshot()); diff != "" {
		t.Errorf("NewStore (-want +got):\n%s", diff)
	}
}

func TestSerializeValue(t *testing.T) {
	type point struct {
		X int `json:"x"`
		Y int `json:"y"`
	}
	shared := []any{1.0, 2.0}

	tests := []struct {
		name string
		in   any
		want string
	}{
		{"plain", map[string]any{"b": 1, "a": "x"}, `{"a":"x","b":1}`},
		{"dollar keys", map[string]any{"$ref": "no", "$$x": 1}, `{"$$$x":1,"$$ref":"no"}`},
		{"shared", map[string]any{"a": shared, "b": shared}, `{"a":[1,2],"b":{"$ref":"/a"}}`},
		{"pointer escaping", map[string]any{"a/b": shared, "c~": shared}, `{"a/b":[1,2],"c~":{"$ref":"/a~1b"}}`},
		{"non-finite", map[string]any{"n": math.NaN(), "p": math.Inf(1), "m": math.Inf(-1)}, `{"m":{"$num":"-Inf"},"n":{"$num":"NaN"},"p":{"$num":"+Inf"}}`},
		{"unsupported", map[string]any{"f": func() {}, "c": make(chan int), "z": complex(1, 2)}, `{"c":{"$unsupported":"chan int"},"f":{"$unsupported":"func()"},"z":{"$unsupported":"complex128"}}`},
		{"struct", map[string]any{"p": point{1, 2}}, `{"p":{"x":1,"y":2}}`},
		{"typed containers", map[string]any{"xs": []int{1, 2}, "m": map[string]string{"k": "v"}}, `{"m":{"k":"v"},"xs":[1,2]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SerializeValue(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got  %s\nwant %s", got, tt.want)
			}
		})
	}
}

func TestSharedAndCyclicRevive(t *testing.T) {
	inner := map[string]any{"v": 1.0}
	list := []any{inner, inner}
	root := map[string]any{"list": list, "again": inner}
	root["self"] = root

	text, err := SerializeValue(root)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Deserialize(text)
	if err != nil {
		t.Fatal(err)
	}

	same := func(a, b any) bool { return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer() }
	revList := got["list"].([]any)
	if !same(revList[0], revList[1]) || !same(revList[0], got["again"]) {
		t.Error("shared map revived as copies")
	}
	if !same(got["self"], got) {
		t.Error("cycle not restored")
	}
	if revList[0].(map[string]any)["v"] != 1.0 {
		t.Errorf("shared content = %v", revList[0])
	}
}

func TestDeserializeMarkers(t *testing.T) {
	got, err := Deserialize(`{"$$a":1,"f":{"$unsupported":"func()"},"n":{"$num":"-Inf"},"o":{"$$num":"x"}}`)
	if err != nil {
		t.Fatal(err)
	}
	if got["$a"] != 1.0 || got["f"] != nil || !math.IsInf(got["n"].(float64), -1) {
		t.Errorf("got %v", got)
	}
	if diff := cmp.Diff(map[string]any{"$num": "x"}, got["o"]); diff != "" {
		t.Errorf("escaped marker key:\n%s", diff)
	}
}

func TestDeserializeErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"not json", `{`},
		{"not an object", `[1]`},
		{"trailing data", `{} {}`},
		{"dangling ref", `{"a":{"$ref":"/missing"}}`},
		{"bad number", `{"a":{"$num":"huge"}}`},
		{"root ref", `{"$ref":""}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Deserialize(tt.in)
			if errors.CodeOf(err) != "E401" {
				t.Errorf("err = %v, want E401", err)
			}
		})
	}
}
