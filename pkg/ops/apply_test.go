package ops

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vango-dev/terse/internal/errors"
	"github.com/vango-dev/terse/pkg/spec"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   any
		want Instruction
	}{
		{"n+", Instruction{Key: "n", Op: OpAdd}},
		{"n-", Instruction{Key: "n", Op: OpSub}},
		{[]any{"n", "+", 5.0}, Instruction{Key: "n", Op: OpAdd, Operand: Literal(5.0)}},
		{[]any{"items", "X", "@"}, Instruction{Key: "items", Op: OpRemove, Operand: Reference(spec.ItemRef())}},
		{[]any{"items", "X", "#"}, Instruction{Key: "items", Op: OpRemove, Operand: Reference(spec.IndexRef())}},
		{[]any{"name", "!", "$$x"}, Instruction{Key: "name", Op: OpSet, Operand: Literal("$x")}},
		{[]any{"f", "~"}, Instruction{Key: "f", Op: OpToggle}},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if err != nil {
			t.Errorf("Parse(%v): %v", tt.in, err)
			continue
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("Parse(%v) mismatch:\n%s", tt.in, diff)
		}
	}

	for _, bad := range []any{"n", "+", []any{"n"}, []any{"n", "?"}, []any{"n", "~", true}, []any{1.0, "+"}, 3.0} {
		if _, err := Parse(bad); errors.CodeOf(err) != "E104" {
			t.Errorf("Parse(%v) err = %v, want E104", bad, err)
		}
	}
}

func TestShortFormRoundTrip(t *testing.T) {
	for _, in := range [][]any{{"n", "+"}, {"items", "<", "$$x"}, {"items", "X", "@"}, {"o", ".", []any{"a", 1.0}}} {
		ins, err := Parse(in)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(in, ins.ShortForm()); diff != "" {
			t.Errorf("ShortForm(%v):\n%s", in, diff)
		}
	}
}

func TestApplyArithmetic(t *testing.T) {
	ins := Instruction{Key: "n", Op: OpAdd}
	if got, _ := Apply(5.0, ins, nil, false, ""); got != 6.0 {
		t.Errorf("5+1 = %v", got)
	}
	if got, _ := Apply(5, Instruction{Key: "n", Op: OpSub}, 2.0, true, ""); got != 3 {
		t.Errorf("int kind not preserved: %v (%T)", got, got)
	}
	if _, err := Apply("5", ins, nil, false, ""); errors.CodeOf(err) != "E104" {
		t.Errorf("non-numeric target err = %v", err)
	}
	if _, err := Apply(5.0, ins, "x", true, ""); errors.CodeOf(err) != "E104" {
		t.Errorf("non-numeric operand err = %v", err)
	}
}

func TestApplyAppendIsCopyOnWrite(t *testing.T) {
	orig := []any{"a"}
	got, err := Apply(orig, Instruction{Key: "items", Op: OpAppend}, "x", true, "")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]any{"a", "x"}, got); diff != "" {
		t.Errorf("append:\n%s", diff)
	}
	if len(orig) != 1 || orig[0] != "a" {
		t.Errorf("original mutated: %v", orig)
	}

	got, _ = Apply(orig, Instruction{Key: "items", Op: OpPrepend}, "z", true, "")
	if diff := cmp.Diff([]any{"z", "a"}, got); diff != "" {
		t.Errorf("prepend:\n%s", diff)
	}
	if _, err := Apply(map[string]any{}, Instruction{Key: "items", Op: OpAppend}, "x", true, ""); errors.CodeOf(err) != "E104" {
		t.Errorf("append to object err = %v", err)
	}
}

func TestApplyRemove(t *testing.T) {
	items := []any{
		map[string]any{"id": 1.0, "n": "a"},
		map[string]any{"id": 2.0, "n": "b"},
	}
	tests := []struct {
		name     string
		ins      Instruction
		operand  any
		keyField string
		want     []any
	}{
		{"by index literal", Instruction{Op: OpRemove, Operand: Literal(0.0)}, 0.0, "", items[1:]},
		{"by index ref", Instruction{Op: OpRemove, Operand: Reference(spec.IndexRef())}, 1.0, "", items[:1]},
		{"by key", Instruction{Op: OpRemove, Operand: Reference(spec.ItemRef())}, map[string]any{"id": 2.0, "n": "changed"}, "id", items[:1]},
		{"by value", Instruction{Op: OpRemove, Operand: Reference(spec.ItemRef())}, map[string]any{"id": 1.0, "n": "a"}, "", items[1:]},
		{"miss", Instruction{Op: OpRemove, Operand: Literal("zzz")}, "zzz", "", items},
		{"index out of range", Instruction{Op: OpRemove, Operand: Literal(9.0)}, 9.0, "", items},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apply(items, tt.ins, tt.operand, true, tt.keyField)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch:\n%s", diff)
			}
		})
	}

	got, _ := Apply(items, Instruction{Op: OpRemove, Operand: Literal("zzz")}, "zzz", true, "")
	if !sameSlice(got.([]any), items) {
		t.Error("a miss should return the previous list itself")
	}
}

func sameSlice(a, b []any) bool {
	return len(a) == len(b) && (len(a) == 0 || &a[0] == &b[0])
}

func TestApplyField(t *testing.T) {
	orig := map[string]any{"a": 1.0}
	ins := Instruction{Key: "o", Op: OpField}

	got, err := Apply(orig, ins, []any{"b", 2.0}, true, "")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]any{"a": 1.0, "b": 2.0}, got); diff != "" {
		t.Errorf("set field:\n%s", diff)
	}
	got, _ = Apply(orig, ins, map[string]any{"a": 3.0, "c": true}, true, "")
	if diff := cmp.Diff(map[string]any{"a": 3.0, "c": true}, got); diff != "" {
		t.Errorf("merge:\n%s", diff)
	}
	if len(orig) != 1 {
		t.Errorf("original mutated: %v", orig)
	}
	if _, err := Apply([]any{}, ins, []any{"a", 1.0}, true, ""); errors.CodeOf(err) != "E104" {
		t.Errorf("field on list err = %v", err)
	}
}

func TestApplyToggleAndSet(t *testing.T) {
	if got, _ := Apply(true, Instruction{Op: OpToggle}, nil, false, ""); got != false {
		t.Errorf("toggle = %v", got)
	}
	if _, err := Apply(1.0, Instruction{Op: OpToggle}, nil, false, ""); errors.CodeOf(err) != "E104" {
		t.Errorf("toggle number err = %v", err)
	}
	if _, err := Apply(1.0, Instruction{Op: OpSet}, nil, false, ""); errors.CodeOf(err) != "E104" {
		t.Errorf("set without operand err = %v", err)
	}
}
