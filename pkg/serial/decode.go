package serial

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/vango-dev/terse/internal/errors"
	"github.com/vango-dev/terse/pkg/reactive"
	"github.com/vango-dev/terse/pkg/store"
)

// Deserialize revives a snapshot. Shared and cyclic containers come back
// as one container, escaped keys are restored and unsupported values
// revive as nil.
func Deserialize(text string) (map[string]any, error) {
	var raw any
	dec := json.NewDecoder(strings.NewReader(text))
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.New("E401").WithDetail("invalid JSON").Wrap(err)
	}
	if dec.More() {
		return nil, errors.Newf("E401", "trailing data after snapshot")
	}
	if _, ok := raw.(map[string]any); !ok {
		return nil, errors.Newf("E401", "snapshot must be an object, got %T", raw)
	}

	r := &reviver{byPath: make(map[string]any)}
	out, err := r.value(raw, "")
	if err != nil {
		return nil, err
	}
	for _, f := range r.fixups {
		target, ok := r.byPath[f.target]
		if !ok {
			return nil, errors.Newf("E401", "reference to %q does not resolve", f.target).WithPath(f.at)
		}
		f.set(target)
	}
	root, _ := out.(map[string]any)
	return root, nil
}

// NewStore rebuilds a store in rt from a snapshot.
func NewStore(rt *reactive.Runtime, text string) (*store.Store, error) {
	state, err := Deserialize(text)
	if err != nil {
		return nil, err
	}
	return store.New(rt, state), nil
}

type fixup struct {
	at     string
	target string
	set    func(any)
}

type reviver struct {
	byPath map[string]any
	fixups []fixup
}

// value revives v found at path. A reference returns nil and queues a
// fixup that stores the target once every container exists.
func (r *reviver) value(v any, path string) (any, error) {
	switch x := v.(type) {
	case map[string]any:
		if len(x) == 1 {
			if done, out, err := r.marker(x, path); done {
				return out, err
			}
		}
		out := make(map[string]any, len(x))
		r.byPath[path] = out
		for k, item := range x {
			key := unescapeKey(k)
			at := path + "/" + escapePointer(k)
			if ref, ok := refTarget(item); ok {
				r.fixups = append(r.fixups, fixup{at: at, target: ref, set: func(t any) { out[key] = t }})
				out[key] = nil
				continue
			}
			revived, err := r.value(item, at)
			if err != nil {
				return nil, err
			}
			out[key] = revived
		}
		return out, nil
	case []any:
		out := make([]any, len(x))
		r.byPath[path] = out
		for i, item := range x {
			at := path + "/" + strconv.Itoa(i)
			if ref, ok := refTarget(item); ok {
				i := i
				r.fixups = append(r.fixups, fixup{at: at, target: ref, set: func(t any) { out[i] = t }})
				continue
			}
			revived, err := r.value(item, at)
			if err != nil {
				return nil, err
			}
			out[i] = revived
		}
		return out, nil
	}
	return v, nil
}

// marker decodes a single-key marker object. done is false when m is
// ordinary data.
func (r *reviver) marker(m map[string]any, path string) (done bool, out any, err error) {
	if s, ok := m[numKey].(string); ok {
		switch s {
		case "NaN":
			return true, math.NaN(), nil
		case "+Inf":
			return true, math.Inf(1), nil
		case "-Inf":
			return true, math.Inf(-1), nil
		}
		return true, nil, errors.Newf("E401", "unknown number marker %q", s).WithPath(path)
	}
	if _, ok := m[unsupportedKey]; ok {
		return true, nil, nil
	}
	if _, ok := m[refKey]; ok {
		// Only reachable at the root; nested references are queued by
		// the enclosing container.
		return true, nil, errors.Newf("E401", "snapshot root cannot be a reference").WithPath(path)
	}
	return false, nil, nil
}

func refTarget(v any) (string, bool) {
	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		return "", false
	}
	s, ok := m[refKey].(string)
	return s, ok
}
