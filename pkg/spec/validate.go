package spec

import (
	"fmt"

	"github.com/vango-dev/terse/internal/errors"
)

// Validate checks a tree built in Go against the same rules the parser
// enforces.
func Validate(n Node) error {
	return validate(n, "r", map[string]bool{})
}

func validate(n Node, path string, islands map[string]bool) error {
	switch x := n.(type) {
	case nil:
		return errors.Newf("E109", "missing node").WithPath(path)
	case *Element:
		if x == nil {
			return errors.Newf("E109", "nil element").WithPath(path)
		}
		if err := checkElement(x, path); err != nil {
			return err
		}
		for key, v := range x.Props {
			kind, ok := KindOf(key)
			if !ok {
				return errors.Newf("E103", "unknown property %q", key).WithPath(path + ".p." + key)
			}
			if kind == PropEvent {
				if err := checkEvent(v); err != nil {
					return errors.FromError(err, "E104").WithPath(path + ".p." + key)
				}
			}
		}
		for i, c := range x.Nodes() {
			if err := validate(c, fmt.Sprintf("%s.c[%d]", path, i), islands); err != nil {
				return err
			}
		}
	case *Cond:
		if !x.Ref.Valid() {
			return errors.Newf("E109", "conditional has no reference").WithPath(path + ".if")
		}
		if len(x.Then) == 0 {
			return errors.Newf("E109", "conditional has no then branch").WithPath(path)
		}
		for i, c := range x.Then {
			if err := validate(c, fmt.Sprintf("%s.then[%d]", path, i), islands); err != nil {
				return err
			}
		}
		for i, c := range x.Else {
			if err := validate(c, fmt.Sprintf("%s.else[%d]", path, i), islands); err != nil {
				return err
			}
		}
	case *Each:
		if !x.Source.Valid() || x.Source.Scope == RefIndex {
			return errors.Newf("E109", "iteration needs a state or item reference").WithPath(path + ".each")
		}
		return validate(x.Template, path+".do", islands)
	case *Boundary:
		if err := validate(x.Child, path+".try", islands); err != nil {
			return err
		}
		return validate(x.Fallback, path+".catch", islands)
	case *Island:
		if err := checkIsland(x, path); err != nil {
			return err
		}
		if islands[x.ID] {
			return errors.Newf("E107", "duplicate island id %q", x.ID).WithPath(path)
		}
		islands[x.ID] = true
		return validate(x.Child, path+".do", islands)
	default:
		return errors.Newf("E109", "unsupported node type %T", n).WithPath(path)
	}
	return nil
}

func checkElement(el *Element, path string) error {
	if !el.Tag.Valid() {
		return errors.Newf("E102", "invalid tag %d", el.Tag).WithPath(path)
	}
	if el.Tag.Void() && el.Content != nil {
		return errors.Newf("E109", "%s cannot have content", el.Tag).WithPath(path + ".c").WithTag(el.Tag.String())
	}
	if _, ok := el.Props["opts"]; ok && el.Tag != TagSel {
		return errors.Newf("E103", "opts is only valid on sel").WithPath(path + ".p.opts").WithTag(el.Tag.String())
	}
	return nil
}

func checkIsland(is *Island, path string) error {
	if is.ID == "" {
		return errors.Newf("E107", "island id must not be empty").WithPath(path)
	}
	if is.Hydrate != "" && !hydrateStrategies[is.Hydrate] {
		return errors.Newf("E107", "island %q has unknown hydrate strategy %q", is.ID, is.Hydrate).WithPath(path + ".hydrate")
	}
	if is.Hydrate == "media" && is.Media == "" {
		return errors.Newf("E107", "media island %q has no media query", is.ID).WithPath(path + ".media")
	}
	if is.Child == nil {
		return errors.Newf("E107", "island %q has no content", is.ID).WithPath(path)
	}
	return nil
}
