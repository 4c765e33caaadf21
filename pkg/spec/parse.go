package spec

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/terse/internal/errors"
)

// Hydration strategy names accepted by island nodes.
var hydrateStrategies = map[string]bool{
	"load":    true,
	"idle":    true,
	"visible": true,
	"media":   true,
	"static":  true,
}

// nodeKeys lists the keys each node kind accepts, discriminator first.
var nodeKeys = map[Kind][]string{
	KindElement:  {"t", "c", "p"},
	KindCond:     {"if", "eq", "then", "else"},
	KindEach:     {"each", "key", "do"},
	KindBoundary: {"try", "catch", "onError"},
	KindIsland:   {"island", "hydrate", "media", "do"},
}

// Parse decodes a JSON tree.
func Parse(data []byte) (*Tree, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, errors.New("E109").WithDetail("invalid JSON").Wrap(err)
	}
	return FromValue(v)
}

// ParseYAML decodes a YAML tree.
func ParseYAML(data []byte) (*Tree, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, errors.New("E109").WithDetail("invalid YAML").Wrap(err)
	}
	return FromValue(v)
}

// FromValue builds a tree from already decoded data of the form
// {"s": state, "r": node}. Every state reference must name a key of s.
func FromValue(v any) (*Tree, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, errors.Newf("E109", "tree must be an object, got %s", describe(v)).WithPath("")
	}
	for key := range m {
		if key != "s" && key != "r" {
			return nil, errors.Newf("E109", "unknown tree key %q", key).WithPath(key)
		}
	}

	tree := &Tree{State: map[string]any{}}
	if s, ok := m["s"]; ok && s != nil {
		state, ok := s.(map[string]any)
		if !ok {
			return nil, errors.Newf("E109", "state must be an object, got %s", describe(s)).WithPath("s")
		}
		tree.State = state
	}

	r, ok := m["r"]
	if !ok {
		return nil, errors.Newf("E109", "tree has no root node").WithPath("r")
	}
	root, err := parseNode(r, "r")
	if err != nil {
		return nil, err
	}
	tree.Root = root

	if err := CheckState(root, tree.State); err != nil {
		return nil, err
	}
	return tree, nil
}

// ParseNode builds a node from decoded data. A value that is already a
// Node is validated and returned as is.
func ParseNode(v any) (Node, error) {
	if n, ok := v.(Node); ok {
		return n, Validate(n)
	}
	return parseNode(v, "r")
}

// CheckState reports an E101 error for the first state reference in n
// that names a key missing from state.
func CheckState(n Node, state map[string]any) error {
	var err error
	check := func(r Ref) bool {
		if r.Scope != RefState {
			return true
		}
		if _, ok := state[r.Key]; !ok {
			err = errors.Newf("E101", "state key %q is not declared", r.Key)
			return false
		}
		return true
	}
	Walk(n, func(n Node) bool {
		if err != nil {
			return false
		}
		for _, r := range Refs(n) {
			if !check(r) {
				return false
			}
		}
		return true
	})
	return err
}

// Refs returns the references a node reads directly, not including those
// of its descendants. Event instructions are not included.
func Refs(n Node) []Ref {
	var out []Ref
	switch x := n.(type) {
	case *Element:
		if b, ok := x.Content.(Bind); ok {
			out = append(out, b.Ref)
		}
		for _, key := range sortedKeys(x.Props) {
			if r, ok := x.Props[key].(Ref); ok {
				out = append(out, r)
			}
		}
	case *Cond:
		out = append(out, x.Ref)
		if r, ok := x.Eq.(Ref); ok {
			out = append(out, r)
		}
	case *Each:
		out = append(out, x.Source)
	}
	return out
}

func parseNode(v any, path string) (Node, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, errors.Newf("E109", "node must be an object, got %s", describe(v)).WithPath(path)
	}

	kind, err := nodeKind(m, path)
	if err != nil {
		return nil, err
	}
	allowed := nodeKeys[kind]
	for key := range m {
		if !contains(allowed, key) {
			return nil, errors.Newf("E109", "unknown key %q in %s node", key, kind).WithPath(path)
		}
	}

	switch kind {
	case KindElement:
		return parseElement(m, path)
	case KindCond:
		return parseCond(m, path)
	case KindEach:
		return parseEach(m, path)
	case KindBoundary:
		return parseBoundary(m, path)
	default:
		return parseIsland(m, path)
	}
}

func nodeKind(m map[string]any, path string) (Kind, error) {
	var found []Kind
	for _, kind := range []Kind{KindElement, KindCond, KindEach, KindBoundary, KindIsland} {
		if _, ok := m[nodeKeys[kind][0]]; ok {
			found = append(found, kind)
		}
	}
	switch len(found) {
	case 0:
		return 0, errors.Newf("E109", "node has none of the keys t, if, each, try or island").WithPath(path)
	case 1:
		return found[0], nil
	}
	return 0, errors.Newf("E109", "node mixes %s and %s keys", found[0], found[1]).WithPath(path)
}

func parseElement(m map[string]any, path string) (*Element, error) {
	name, ok := m["t"].(string)
	if !ok {
		return nil, errors.Newf("E102", "tag must be a string, got %s", describe(m["t"])).WithPath(path + ".t")
	}
	tag, ok := LookupTag(name)
	if !ok {
		return nil, errors.Newf("E102", "unknown tag %q", name).WithPath(path + ".t").WithTag(name)
	}

	el := &Element{Tag: tag}
	if c, ok := m["c"]; ok && c != nil {
		content, err := parseContent(c, path+".c")
		if err != nil {
			return nil, err
		}
		el.Content = content
	}
	if p, ok := m["p"]; ok && p != nil {
		raw, ok := p.(map[string]any)
		if !ok {
			return nil, errors.Newf("E109", "props must be an object, got %s", describe(p)).WithPath(path + ".p")
		}
		props, err := parseProps(raw, path+".p")
		if err != nil {
			return nil, err
		}
		el.Props = props
	}
	if err := checkElement(el, path); err != nil {
		return nil, err
	}
	return el, nil
}

func parseContent(v any, path string) (Content, error) {
	switch x := v.(type) {
	case string:
		if ref, _, isRef := ParseRef(x); isRef {
			return Bind{Ref: ref}, nil
		}
		_, lit, _ := ParseRef(x)
		return Text{Value: lit}, nil
	case map[string]any:
		n, err := parseNode(x, path)
		if err != nil {
			return nil, err
		}
		return Children{Nodes: []Node{n}}, nil
	case []any:
		nodes := make([]Node, 0, len(x))
		for i, item := range x {
			n, err := parseChild(item, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, n)
		}
		return Children{Nodes: nodes}, nil
	}
	if isScalar(v) {
		return Text{Value: FormatValue(v)}, nil
	}
	return nil, errors.Newf("E109", "content must be text, a reference, a node or a list, got %s", describe(v)).WithPath(path)
}

// parseChild parses one entry of a node list. Bare scalars become txt
// elements.
func parseChild(v any, path string) (Node, error) {
	if _, ok := v.(map[string]any); ok {
		return parseNode(v, path)
	}
	if s, ok := v.(string); ok || isScalar(v) {
		if !ok {
			s = FormatValue(v)
			return &Element{Tag: TagTxt, Content: Text{Value: s}}, nil
		}
		c, err := parseContent(s, path)
		if err != nil {
			return nil, err
		}
		return &Element{Tag: TagTxt, Content: c}, nil
	}
	return nil, errors.Newf("E109", "list entry must be a node or text, got %s", describe(v)).WithPath(path)
}

func parseProps(raw map[string]any, path string) (Props, error) {
	props := make(Props, len(raw))
	for _, key := range sortedKeys(raw) {
		v := raw[key]
		kind, ok := KindOf(key)
		if !ok {
			return nil, errors.Newf("E103", "unknown property %q", key).WithPath(path + "." + key)
		}
		switch {
		case kind == PropEvent:
			if err := checkEvent(v); err != nil {
				return nil, errors.FromError(err, "E104").WithPath(path + "." + key)
			}
			props[key] = v
		case key == "opts":
			if s, ok := v.(string); ok {
				if ref, _, isRef := ParseRef(s); isRef {
					props[key] = ref
					continue
				}
			}
			if _, ok := v.([]any); !ok {
				return nil, errors.Newf("E109", "opts must be a list or a reference, got %s", describe(v)).WithPath(path + "." + key)
			}
			props[key] = v
		default:
			if s, ok := v.(string); ok {
				ref, lit, isRef := ParseRef(s)
				if isRef {
					props[key] = ref
				} else {
					props[key] = lit
				}
				continue
			}
			if !isScalar(v) {
				return nil, errors.Newf("E109", "property value must be a scalar or a reference, got %s", describe(v)).WithPath(path + "." + key)
			}
			props[key] = v
		}
	}
	return props, nil
}

// checkEvent validates the shape of an event value. Operators are checked
// when the handler is resolved.
func checkEvent(v any) error {
	switch x := v.(type) {
	case string:
		if x == "" {
			return errors.Newf("E104", "empty event handler")
		}
		return nil
	case []any:
		if len(x) < 2 || len(x) > 3 {
			return errors.Newf("E104", "instruction needs 2 or 3 elements, got %d", len(x))
		}
		if _, ok := x[0].(string); !ok {
			return errors.Newf("E104", "instruction key must be a string, got %s", describe(x[0]))
		}
		if _, ok := x[1].(string); !ok {
			return errors.Newf("E104", "instruction operator must be a string, got %s", describe(x[1]))
		}
		return nil
	case nil, bool, map[string]any:
		return errors.Newf("E104", "event handler cannot be %s", describe(v))
	}
	if _, ok := Number(v); ok {
		return errors.Newf("E104", "event handler cannot be a number")
	}
	return nil
}

func parseCond(m map[string]any, path string) (*Cond, error) {
	ref, err := parseRefField(m["if"], path+".if")
	if err != nil {
		return nil, err
	}
	c := &Cond{Ref: ref}
	if eq, ok := m["eq"]; ok {
		c.HasEq = true
		c.Eq = eq
		if s, ok := eq.(string); ok {
			r, lit, isRef := ParseRef(s)
			if isRef {
				c.Eq = r
			} else {
				c.Eq = lit
			}
		}
	}
	then, ok := m["then"]
	if !ok {
		return nil, errors.Newf("E109", "conditional has no then branch").WithPath(path)
	}
	if c.Then, err = parseBranch(then, path+".then"); err != nil {
		return nil, err
	}
	if els, ok := m["else"]; ok && els != nil {
		if c.Else, err = parseBranch(els, path+".else"); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func parseBranch(v any, path string) ([]Node, error) {
	if list, ok := v.([]any); ok {
		nodes := make([]Node, 0, len(list))
		for i, item := range list {
			n, err := parseChild(item, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, n)
		}
		return nodes, nil
	}
	n, err := parseChild(v, path)
	if err != nil {
		return nil, err
	}
	return []Node{n}, nil
}

func parseEach(m map[string]any, path string) (*Each, error) {
	ref, err := parseRefField(m["each"], path+".each")
	if err != nil {
		return nil, err
	}
	if ref.Scope == RefIndex {
		return nil, errors.Newf("E109", "iteration source cannot be an index").WithPath(path + ".each")
	}
	e := &Each{Source: ref}
	if k, ok := m["key"]; ok && k != nil {
		key, ok := k.(string)
		if !ok || key == "" {
			return nil, errors.Newf("E109", "iteration key must be a field name").WithPath(path + ".key")
		}
		e.Key = key
	}
	do, ok := m["do"]
	if !ok {
		return nil, errors.Newf("E109", "iteration has no template").WithPath(path)
	}
	if e.Template, err = parseNode(do, path+".do"); err != nil {
		return nil, err
	}
	return e, nil
}

func parseBoundary(m map[string]any, path string) (*Boundary, error) {
	b := &Boundary{}
	var err error
	if b.Child, err = parseNode(m["try"], path+".try"); err != nil {
		return nil, err
	}
	catch, ok := m["catch"]
	if !ok {
		return nil, errors.Newf("E109", "boundary has no fallback").WithPath(path)
	}
	if b.Fallback, err = parseNode(catch, path+".catch"); err != nil {
		return nil, err
	}
	if h, ok := m["onError"]; ok && h != nil {
		if s, ok := h.(string); ok && s == "" {
			return nil, errors.Newf("E105", "empty error callback name").WithPath(path + ".onError")
		}
		b.OnError = h
	}
	return b, nil
}

func parseIsland(m map[string]any, path string) (*Island, error) {
	id, ok := m["island"].(string)
	if !ok || id == "" {
		return nil, errors.Newf("E107", "island id must be a non-empty string").WithPath(path + ".island")
	}
	is := &Island{ID: id, Hydrate: "load"}
	if h, ok := m["hydrate"]; ok {
		s, ok := h.(string)
		if !ok {
			return nil, errors.Newf("E107", "hydrate must be a string").WithPath(path + ".hydrate")
		}
		is.Hydrate = s
	}
	if q, ok := m["media"]; ok {
		s, ok := q.(string)
		if !ok {
			return nil, errors.Newf("E107", "media must be a string").WithPath(path + ".media")
		}
		is.Media = s
	}
	do, ok := m["do"]
	if !ok {
		return nil, errors.Newf("E107", "island %q has no content", id).WithPath(path)
	}
	var err error
	if is.Child, err = parseNode(do, path+".do"); err != nil {
		return nil, err
	}
	if err := checkIsland(is, path); err != nil {
		return nil, err
	}
	return is, nil
}

func parseRefField(v any, path string) (Ref, error) {
	s, ok := v.(string)
	if !ok {
		return Ref{}, errors.Newf("E109", "expected a reference, got %s", describe(v)).WithPath(path)
	}
	ref, _, isRef := ParseRef(s)
	if !isRef {
		return Ref{}, errors.Newf("E109", "%q is not a reference", s).WithPath(path)
	}
	return ref, nil
}

func isScalar(v any) bool {
	switch v.(type) {
	case string, bool, nil:
		return true
	}
	_, ok := Number(v)
	return ok
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "a string"
	case bool:
		return "a boolean"
	case []any:
		return "a list"
	case map[string]any:
		return "an object"
	}
	if _, ok := Number(v); ok {
		return "a number"
	}
	if reflect.ValueOf(v).Kind() == reflect.Func {
		return "a function"
	}
	return fmt.Sprintf("%T", v)
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
