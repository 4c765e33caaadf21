package spec

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vango-dev/terse/internal/errors"
)

// ShortFormer is implemented by Go values used as event handlers that have
// a short-format equivalent, such as parsed instructions.
type ShortFormer interface {
	ShortForm() any
}

// Encode writes t in the short-key JSON form. It fails when the tree holds
// Go functions, which have no encoding.
func Encode(t *Tree) ([]byte, error) {
	root, dropped := EncodeNode(t.Root)
	if len(dropped) > 0 {
		return nil, errors.Newf("E109", "cannot encode Go handlers at %s", strings.Join(dropped, ", "))
	}
	out := map[string]any{"r": root}
	if len(t.State) > 0 {
		out["s"] = t.State
	}
	return json.Marshal(out)
}

// EncodeNode converts n back to its short-key form. Handlers that are Go
// functions are left out. Their paths are returned in dropped.
func EncodeNode(n Node) (v any, dropped []string) {
	e := &encoder{}
	return e.node(n, "r"), e.dropped
}

type encoder struct {
	dropped []string
}

func (e *encoder) node(n Node, path string) any {
	switch x := n.(type) {
	case *Element:
		out := map[string]any{"t": x.Tag.String()}
		if c := e.content(x.Content, path+".c"); c != nil {
			out["c"] = c
		}
		if len(x.Props) > 0 {
			props := make(map[string]any, len(x.Props))
			for _, key := range sortedKeys(x.Props) {
				if v, ok := e.prop(key, x.Props[key], path+".p."+key); ok {
					props[key] = v
				}
			}
			if len(props) > 0 {
				out["p"] = props
			}
		}
		return out
	case *Cond:
		out := map[string]any{"if": x.Ref.String(), "then": e.nodes(x.Then, path+".then")}
		if x.HasEq {
			out["eq"] = encodeValue(x.Eq)
		}
		if len(x.Else) > 0 {
			out["else"] = e.nodes(x.Else, path+".else")
		}
		return out
	case *Each:
		out := map[string]any{"each": x.Source.String(), "do": e.node(x.Template, path+".do")}
		if x.Key != "" {
			out["key"] = x.Key
		}
		return out
	case *Boundary:
		out := map[string]any{"try": e.node(x.Child, path+".try"), "catch": e.node(x.Fallback, path+".catch")}
		if x.OnError != nil {
			if s, ok := x.OnError.(string); ok {
				out["onError"] = s
			} else {
				e.dropped = append(e.dropped, path+".onError")
			}
		}
		return out
	case *Island:
		out := map[string]any{"island": x.ID, "do": e.node(x.Child, path+".do")}
		if x.Hydrate != "" && x.Hydrate != "load" {
			out["hydrate"] = x.Hydrate
		}
		if x.Media != "" {
			out["media"] = x.Media
		}
		return out
	}
	return nil
}

func (e *encoder) nodes(ns []Node, path string) []any {
	out := make([]any, len(ns))
	for i, n := range ns {
		out[i] = e.node(n, fmt.Sprintf("%s[%d]", path, i))
	}
	return out
}

func (e *encoder) content(c Content, path string) any {
	switch x := c.(type) {
	case Text:
		return EscapeLiteral(x.Value)
	case Bind:
		return x.Ref.String()
	case Children:
		return e.nodes(x.Nodes, path)
	}
	return nil
}

func (e *encoder) prop(key string, v any, path string) (any, bool) {
	if !IsEvent(key) {
		return encodeValue(v), true
	}
	switch x := v.(type) {
	case string, []any:
		return x, true
	case ShortFormer:
		return x.ShortForm(), true
	}
	e.dropped = append(e.dropped, path)
	return nil, false
}

// encodeValue converts a parsed property or operand value back to its
// short form.
func encodeValue(v any) any {
	switch x := v.(type) {
	case Ref:
		return x.String()
	case string:
		return EscapeLiteral(x)
	}
	return v
}
