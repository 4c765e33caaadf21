package serial

import (
	"encoding/json"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/vango-dev/terse/internal/errors"
	"github.com/vango-dev/terse/pkg/store"
)

const (
	refKey         = "$ref"
	numKey         = "$num"
	unsupportedKey = "$unsupported"
)

// Serialize returns the snapshot of st's current state.
func Serialize(st *store.Store) (string, error) {
	return SerializeValue(st.Snapshot())
}

// SerializeValue returns the snapshot text of any value. Values JSON
// cannot represent are replaced by markers, so only a failure of the final
// encoding is an error.
func SerializeValue(v any) (string, error) {
	e := &encoder{seen: make(map[containerID]string)}
	out := e.value(v, "")
	data, err := json.Marshal(out)
	if err != nil {
		return "", errors.New("E401").WithDetail("snapshot encoding failed").Wrap(err)
	}
	return string(data), nil
}

// containerID identifies a map or slice by its backing storage. Slices
// sharing an array but differing in length are different containers.
type containerID struct {
	ptr uintptr
	len int
}

type encoder struct {
	seen map[containerID]string
}

// value converts v to the plain form json.Marshal writes. path is the
// JSON pointer of v in the output document.
func (e *encoder) value(v any, path string) any {
	switch x := v.(type) {
	case nil, bool, string:
		return x
	case float64:
		return number(x)
	case map[string]any:
		if x == nil {
			return nil
		}
		if ref, ok := e.track(reflect.ValueOf(x), path); ok {
			return ref
		}
		return e.object(len(x), func(yield func(string, any)) {
			for _, k := range sortedKeys(x) {
				yield(k, x[k])
			}
		}, path)
	case []any:
		if x == nil {
			return nil
		}
		if ref, ok := e.track(reflect.ValueOf(x), path); ok {
			return ref
		}
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = e.value(item, path+"/"+strconv.Itoa(i))
		}
		return out
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint()
	case reflect.Float32:
		return number(rv.Float())
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Func, reflect.Chan, reflect.Complex64, reflect.Complex128, reflect.UnsafePointer:
		return unsupported(rv.Type())
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
	case reflect.Slice:
		if rv.IsNil() {
			return nil
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			break
		}
		fallthrough
	case reflect.Array:
		if rv.Kind() == reflect.Slice {
			if ref, ok := e.track(rv, path); ok {
				return ref
			}
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = e.value(rv.Index(i).Interface(), path+"/"+strconv.Itoa(i))
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		if rv.IsNil() {
			return nil
		}
		if ref, ok := e.track(rv, path); ok {
			return ref
		}
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		return e.object(len(keys), func(yield func(string, any)) {
			for _, k := range keys {
				yield(k.String(), rv.MapIndex(k).Interface())
			}
		}, path)
	}

	// Structs and everything else go through encoding/json and are
	// re-read as plain data.
	data, err := json.Marshal(v)
	if err != nil {
		return unsupported(rv.Type())
	}
	var plain any
	if err := json.Unmarshal(data, &plain); err != nil {
		return unsupported(rv.Type())
	}
	return e.value(plain, path)
}

// object writes the entries produced by each, escaping their keys.
func (e *encoder) object(n int, each func(yield func(string, any)), path string) map[string]any {
	out := make(map[string]any, n)
	each(func(k string, v any) {
		k = escapeKey(k)
		out[k] = e.value(v, path+"/"+escapePointer(k))
	})
	return out
}

// track records the first path of a non-empty container and reports a
// reference marker when it was already written.
func (e *encoder) track(rv reflect.Value, path string) (map[string]any, bool) {
	if rv.Len() == 0 {
		return nil, false
	}
	id := containerID{ptr: rv.Pointer(), len: rv.Len()}
	if rv.Kind() == reflect.Map {
		id.len = 0
	}
	if first, ok := e.seen[id]; ok {
		return map[string]any{refKey: first}, true
	}
	e.seen[id] = path
	return nil, false
}

func number(f float64) any {
	switch {
	case math.IsNaN(f):
		return map[string]any{numKey: "NaN"}
	case math.IsInf(f, 1):
		return map[string]any{numKey: "+Inf"}
	case math.IsInf(f, -1):
		return map[string]any{numKey: "-Inf"}
	}
	return f
}

func unsupported(t reflect.Type) map[string]any {
	return map[string]any{unsupportedKey: t.String()}
}

func escapeKey(k string) string {
	if strings.HasPrefix(k, "$") {
		return "$" + k
	}
	return k
}

func unescapeKey(k string) string {
	if strings.HasPrefix(k, "$$") {
		return k[1:]
	}
	return k
}

// escapePointer escapes one JSON pointer reference token (RFC 6901).
func escapePointer(tok string) string {
	return strings.NewReplacer("~", "~0", "/", "~1").Replace(tok)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
