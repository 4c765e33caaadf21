package mount

import (
	"sort"

	"github.com/vango-dev/terse/internal/errors"
	"github.com/vango-dev/terse/pkg/reactive"
	"github.com/vango-dev/terse/pkg/spec"
	"github.com/vango-dev/terse/pkg/surface"
)

func (m *Mount) mountElement(el *spec.Element, sc *reactive.Scope, e env, parent, before surface.Node) (block, error) {
	node, err := m.buildElement(el, sc, e)
	if err != nil {
		var ce *errors.Error
		if errors.As(err, &ce) && ce.Tag == "" {
			ce.Tag = el.Tag.String()
		}
		return nil, err
	}
	if err := m.s.Insert(parent, node, before); err != nil {
		return nil, surfaceError(err)
	}
	return &elementBlock{node: node}, nil
}

func (m *Mount) buildElement(el *spec.Element, sc *reactive.Scope, e env) (surface.Node, error) {
	node, err := m.s.CreateElement(el.Tag.Element())
	if err != nil {
		return nil, surfaceError(err)
	}
	for _, a := range el.Tag.DefaultAttrs() {
		if err := m.s.SetAttr(node, a.Name, a.Value); err != nil {
			return nil, surfaceError(err)
		}
	}
	if err := m.bindStyle(el, sc, e, node); err != nil {
		return nil, err
	}

	for _, key := range sortedProps(el.Props) {
		v := el.Props[key]
		kind, _ := spec.KindOf(key)
		switch {
		case kind == spec.PropEvent:
			err = m.bindEvent(key, v, sc, e, node)
		case key == "opts":
			err = m.bindOptions(v, sc, e, node)
		case kind == spec.PropNative:
			err = m.bindAttr(key, v, sc, e, node)
		}
		if err != nil {
			return nil, err
		}
	}

	switch c := el.Content.(type) {
	case spec.Text:
		if err := m.appendText(node, c.Value); err != nil {
			return nil, err
		}
	case spec.Bind:
		if err := m.bindText(c.Ref, sc, e, node); err != nil {
			return nil, err
		}
	case spec.Children:
		if _, err := m.mountNodes(c.Nodes, sc, e, node, nil); err != nil {
			return nil, err
		}
	}
	return node, nil
}

func (m *Mount) appendText(parent surface.Node, text string) error {
	t, err := m.s.CreateText(text)
	if err != nil {
		return surfaceError(err)
	}
	return surfaceIf(m.s.Insert(parent, t, nil))
}

func surfaceIf(err error) error {
	if err != nil {
		return surfaceError(err)
	}
	return nil
}

// bindText creates a text node whose content follows r.
func (m *Mount) bindText(r spec.Ref, sc *reactive.Scope, e env, parent surface.Node) error {
	t, err := m.s.CreateText("")
	if err != nil {
		return surfaceError(err)
	}
	if err := m.s.Insert(parent, t, nil); err != nil {
		return surfaceError(err)
	}
	last := ""
	_, err = sc.Effect(func() error {
		v, err := m.read(r, e)
		if err != nil {
			return err
		}
		text := spec.FormatValue(v)
		if text == last {
			return nil
		}
		last = text
		return surfaceIf(m.s.SetText(t, text))
	})
	return err
}

// bindStyle composes the element's style attribute from its default style
// and style properties. Without bound properties it is set once.
func (m *Mount) bindStyle(el *spec.Element, sc *reactive.Scope, e env, node surface.Node) error {
	keys := make([]string, 0, 4)
	bound := false
	for _, key := range spec.StyleKeys() {
		if v, ok := el.Props[key]; ok {
			keys = append(keys, key)
			if _, isRef := v.(spec.Ref); isRef {
				bound = true
			}
		}
	}
	if len(keys) == 0 && el.Tag.DefaultStyle() == "" {
		return nil
	}

	compose := func() (string, error) {
		decls := make(map[string]string, len(keys))
		for _, key := range keys {
			v, err := m.value(el.Props[key], e)
			if err != nil {
				return "", err
			}
			if d, ok := spec.StyleDecl(key, v); ok {
				decls[key] = d
			}
		}
		return spec.ComposeStyle(el.Tag, decls), nil
	}

	if !bound {
		style, err := compose()
		if err != nil {
			return err
		}
		if style == "" {
			return nil
		}
		return surfaceIf(m.s.SetAttr(node, "style", style))
	}

	last, set := "", false
	_, err := sc.Effect(func() error {
		style, err := compose()
		if err != nil {
			return err
		}
		if set && style == last {
			return nil
		}
		last, set = style, true
		if style == "" {
			return surfaceIf(m.s.RemoveAttr(node, "style"))
		}
		return surfaceIf(m.s.SetAttr(node, "style", style))
	})
	return err
}

// bindAttr sets a native attribute, following v when it is a reference.
func (m *Mount) bindAttr(key string, v any, sc *reactive.Scope, e env, node surface.Node) error {
	r, isRef := v.(spec.Ref)
	if !isRef {
		name, value, present := spec.AttrFor(key, v)
		if !present {
			return nil
		}
		return surfaceIf(m.s.SetAttr(node, name, value))
	}

	var lastValue string
	lastPresent, first := false, true
	_, err := sc.Effect(func() error {
		val, err := m.read(r, e)
		if err != nil {
			return err
		}
		name, value, present := spec.AttrFor(key, val)
		if !first && present == lastPresent && value == lastValue {
			return nil
		}
		wasPresent := lastPresent
		first, lastPresent, lastValue = false, present, value
		switch {
		case present:
			return surfaceIf(m.s.SetAttr(node, name, value))
		case wasPresent:
			return surfaceIf(m.s.RemoveAttr(node, name))
		}
		return nil
	})
	return err
}

// bindOptions renders a select's option children.
func (m *Mount) bindOptions(v any, sc *reactive.Scope, e env, node surface.Node) error {
	var current []surface.Node
	var last []spec.Option
	rendered := false
	render := func(val any) error {
		opts := spec.Options(val)
		if rendered && sameOptions(opts, last) {
			return nil
		}
		rendered, last = true, opts
		for _, n := range current {
			if err := m.s.Remove(node, n); err != nil {
				return surfaceError(err)
			}
		}
		current = current[:0]
		for _, o := range opts {
			opt, err := m.s.CreateElement("option")
			if err != nil {
				return surfaceError(err)
			}
			if err := m.s.SetAttr(opt, "value", o.Value); err != nil {
				return surfaceError(err)
			}
			if err := m.appendText(opt, o.Label); err != nil {
				return err
			}
			if err := m.s.Insert(node, opt, nil); err != nil {
				return surfaceError(err)
			}
			current = append(current, opt)
		}
		return nil
	}

	r, isRef := v.(spec.Ref)
	if !isRef {
		return render(v)
	}
	_, err := sc.Effect(func() error {
		val, err := m.read(r, e)
		if err != nil {
			return err
		}
		return render(val)
	})
	return err
}

func sameOptions(a, b []spec.Option) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// bindEvent wires an event through the resolver. The listener is removed
// when sc is disposed.
func (m *Mount) bindEvent(event string, v any, sc *reactive.Scope, e env, node surface.Node) error {
	h, err := m.resolver.Resolve(v, e.operands())
	if err != nil {
		return err
	}
	off, err := m.s.Listen(node, event, h)
	if err != nil {
		return surfaceError(err)
	}
	sc.OnCleanup(off)
	return nil
}

func sortedProps(p spec.Props) []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
