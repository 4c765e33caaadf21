package store

import (
	"reflect"
)

// Normalize converts a Go value to the JSON data model used by the store:
// integer and float kinds become float64, slices and arrays become []any,
// maps with string keys become map[string]any. Values already in that
// model are returned as is, so normalizing is idempotent and preserves
// container identity. Other values (structs, pointers, funcs) pass through.
// Cyclic []any and map[string]any graphs are left as they are.
func Normalize(v any) any {
	return normalize(v, make(map[uintptr]any))
}

func normalize(v any, seen map[uintptr]any) any {
	switch x := v.(type) {
	case nil, bool, string, float64:
		return v
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case int32:
		return float64(x)
	case float32:
		return float64(x)
	case []any:
		if len(x) == 0 {
			return x
		}
		ptr := reflect.ValueOf(x).Pointer()
		if done, ok := seen[ptr]; ok {
			return done
		}
		seen[ptr] = x
		for i, item := range x {
			if n := normalize(item, seen); !shallowSame(n, item) {
				out := normalizeSlice(x, i, n, seen)
				seen[ptr] = out
				return out
			}
		}
		return x
	case map[string]any:
		if x == nil {
			return x
		}
		ptr := reflect.ValueOf(x).Pointer()
		if done, ok := seen[ptr]; ok {
			return done
		}
		seen[ptr] = x
		normalized := make(map[string]any)
		for k, item := range x {
			if n := normalize(item, seen); !shallowSame(n, item) {
				normalized[k] = n
			}
		}
		if len(normalized) == 0 {
			return x
		}
		out := make(map[string]any, len(x))
		for k, item := range x {
			if n, ok := normalized[k]; ok {
				out[k] = n
			} else {
				out[k] = item
			}
		}
		seen[ptr] = out
		return out
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Slice:
		if rv.IsNil() {
			return []any(nil)
		}
		fallthrough
	case reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = normalize(rv.Index(i).Interface(), seen)
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		if rv.IsNil() {
			return map[string]any(nil)
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = normalize(iter.Value().Interface(), seen)
		}
		return out
	}
	return v
}

// normalizeSlice copies x with first as the normalized item at index
// start, normalizing the items after it.
func normalizeSlice(x []any, start int, first any, seen map[uintptr]any) []any {
	out := make([]any, len(x))
	copy(out, x[:start])
	out[start] = first
	for i := start + 1; i < len(x); i++ {
		out[i] = normalize(x[i], seen)
	}
	return out
}

// shallowSame reports whether normalizing left a value untouched.
func shallowSame(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Type() != rb.Type() {
		return false
	}
	switch ra.Kind() {
	case reflect.Slice, reflect.Map, reflect.Func, reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return ra.Pointer() == rb.Pointer()
	}
	if !ra.Type().Comparable() {
		return true
	}
	defer func() { _ = recover() }()
	return a == b
}
