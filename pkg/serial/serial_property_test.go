//go:build property
// +build property

package serial

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// genJSON generates JSON-model values up to the given depth.
func genJSON(depth int) gopter.Gen {
	leaves := []gopter.Gen{
		gen.Bool().Map(func(b bool) any { return b }),
		gen.Float64Range(-1e6, 1e6).Map(func(f float64) any { return f }),
		gen.AlphaString().Map(func(s string) any { return s }),
	}
	if depth == 0 {
		return gen.OneGenOf(leaves...)
	}
	child := genJSON(depth - 1)
	return gen.OneGenOf(append(leaves,
		gen.SliceOf(child).Map(func(xs []any) any { return xs }),
		gen.MapOf(genKey(), child).Map(func(m map[string]any) any { return m }),
	)...)
}

// genKey generates object keys, some of them starting with "$".
func genKey() gopter.Gen {
	return gen.OneGenOf(
		gen.AlphaString(),
		gen.AlphaString().Map(func(s string) string { return "$" + s }),
	)
}

func TestSnapshotProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("deserialize inverts serialize", prop.ForAll(
		func(state map[string]any) bool {
			text, err := SerializeValue(state)
			if err != nil {
				return false
			}
			got, err := Deserialize(text)
			if err != nil {
				return false
			}
			return cmp.Equal(normalizeEmpty(state), normalizeEmpty(got))
		},
		gen.MapOf(genKey(), genJSON(2)),
	))

	properties.TestingRun(t)
}

// normalizeEmpty maps nil containers to nil so empty and nil slices or
// maps written as null compare equal.
func normalizeEmpty(v any) any {
	switch x := v.(type) {
	case []any:
		if x == nil {
			return nil
		}
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = normalizeEmpty(item)
		}
		return out
	case map[string]any:
		if x == nil {
			return nil
		}
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = normalizeEmpty(item)
		}
		return out
	}
	return v
}
