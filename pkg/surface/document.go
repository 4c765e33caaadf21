package surface

import (
	"errors"
	"fmt"
	"html"
	"sort"
	"strings"
)

// Element is a node of a Document. Text nodes have an empty Tag.
type Element struct {
	Tag      string
	Text     string
	Attrs    map[string]string
	Children []*Element
	Parent   *Element

	// Serial is the creation order of the node within its document.
	Serial int

	listeners map[string][]*docListener
}

type docListener struct {
	h       Handler
	removed bool
}

// IsText reports whether e is a text node.
func (e *Element) IsText() bool {
	return e.Tag == ""
}

// Attr returns the value of the named attribute.
func (e *Element) Attr(name string) (string, bool) {
	v, ok := e.Attrs[name]
	return v, ok
}

// TextContent returns the concatenated text of e and its descendants.
func (e *Element) TextContent() string {
	if e.IsText() {
		return e.Text
	}
	var b strings.Builder
	for _, c := range e.Children {
		b.WriteString(c.TextContent())
	}
	return b.String()
}

// ElementChildren returns the children of e that are not text nodes.
func (e *Element) ElementChildren() []*Element {
	var out []*Element
	for _, c := range e.Children {
		if !c.IsText() {
			out = append(out, c)
		}
	}
	return out
}

func (e *Element) indexOf(child *Element) int {
	for i, c := range e.Children {
		if c == child {
			return i
		}
	}
	return -1
}

// Document is an in-memory Surface. It is not safe for concurrent use.
type Document struct {
	body      *Element
	serial    int
	listeners int
	mutations int
}

var errForeignNode = errors.New("surface: node does not belong to this document")

// NewDocument returns an empty document with a body element to mount into.
func NewDocument() *Document {
	d := &Document{}
	d.body = d.newElement("body")
	return d
}

// Body returns the document's root container.
func (d *Document) Body() *Element {
	return d.body
}

// Listeners returns the number of registered listeners.
func (d *Document) Listeners() int {
	return d.listeners
}

// Mutations returns the number of calls that changed the document.
func (d *Document) Mutations() int {
	return d.mutations
}

func (d *Document) newElement(tag string) *Element {
	d.serial++
	return &Element{Tag: tag, Attrs: map[string]string{}, Serial: d.serial}
}

func (d *Document) node(n Node) (*Element, error) {
	e, ok := n.(*Element)
	if !ok || e == nil {
		return nil, fmt.Errorf("%w: %T", errForeignNode, n)
	}
	return e, nil
}

// CreateElement implements Surface.
func (d *Document) CreateElement(tag string) (Node, error) {
	if tag == "" {
		return nil, errors.New("surface: empty tag")
	}
	d.mutations++
	return d.newElement(tag), nil
}

// CreateText implements Surface.
func (d *Document) CreateText(text string) (Node, error) {
	d.mutations++
	e := d.newElement("")
	e.Text = text
	return e, nil
}

// Insert implements Surface.
func (d *Document) Insert(parent, child, before Node) error {
	p, err := d.node(parent)
	if err != nil {
		return err
	}
	c, err := d.node(child)
	if err != nil {
		return err
	}
	if p.IsText() {
		return errors.New("surface: cannot insert into a text node")
	}
	if c == before {
		return nil
	}
	if c.Parent != nil {
		c.Parent.Children = removeAt(c.Parent.Children, c.Parent.indexOf(c))
	}

	idx := len(p.Children)
	if before != nil {
		b, err := d.node(before)
		if err != nil {
			return err
		}
		if idx = p.indexOf(b); idx < 0 {
			return errors.New("surface: reference node is not a child of parent")
		}
	}
	p.Children = append(p.Children, nil)
	copy(p.Children[idx+1:], p.Children[idx:])
	p.Children[idx] = c
	c.Parent = p
	d.mutations++
	return nil
}

// Remove implements Surface.
func (d *Document) Remove(parent, child Node) error {
	p, err := d.node(parent)
	if err != nil {
		return err
	}
	c, err := d.node(child)
	if err != nil {
		return err
	}
	idx := p.indexOf(c)
	if idx < 0 {
		return errors.New("surface: node is not a child of parent")
	}
	p.Children = removeAt(p.Children, idx)
	c.Parent = nil
	d.mutations++
	return nil
}

func removeAt(list []*Element, i int) []*Element {
	if i < 0 {
		return list
	}
	return append(list[:i], list[i+1:]...)
}

// SetAttr implements Surface.
func (d *Document) SetAttr(n Node, name, value string) error {
	e, err := d.node(n)
	if err != nil {
		return err
	}
	e.Attrs[name] = value
	d.mutations++
	return nil
}

// RemoveAttr implements Surface.
func (d *Document) RemoveAttr(n Node, name string) error {
	e, err := d.node(n)
	if err != nil {
		return err
	}
	delete(e.Attrs, name)
	d.mutations++
	return nil
}

// SetText implements Surface.
func (d *Document) SetText(n Node, text string) error {
	e, err := d.node(n)
	if err != nil {
		return err
	}
	if !e.IsText() {
		return errors.New("surface: SetText on an element")
	}
	e.Text = text
	d.mutations++
	return nil
}

// Listen implements Surface.
func (d *Document) Listen(n Node, event string, h Handler) (func(), error) {
	e, err := d.node(n)
	if err != nil {
		return nil, err
	}
	if e.listeners == nil {
		e.listeners = map[string][]*docListener{}
	}
	l := &docListener{h: h}
	e.listeners[event] = append(e.listeners[event], l)
	d.listeners++
	return func() {
		if l.removed {
			return
		}
		l.removed = true
		d.listeners--
		list := e.listeners[event]
		for i, x := range list {
			if x == l {
				e.listeners[event] = append(list[:i], list[i+1:]...)
				break
			}
		}
	}, nil
}

// Dispatch delivers ev to the listeners registered on n for ev.Type and
// returns their errors joined.
func (d *Document) Dispatch(n *Element, ev Event) error {
	list := append([]*docListener(nil), n.listeners[ev.Type]...)
	var errs []error
	for _, l := range list {
		if l.removed {
			continue
		}
		if err := l.h(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Find returns the first element in document order for which match
// returns true.
func (d *Document) Find(match func(*Element) bool) *Element {
	var found *Element
	walk(d.body, func(e *Element) bool {
		if found == nil && !e.IsText() && match(e) {
			found = e
		}
		return found == nil
	})
	return found
}

// FindAll returns every element for which match returns true, in document
// order.
func (d *Document) FindAll(match func(*Element) bool) []*Element {
	var out []*Element
	walk(d.body, func(e *Element) bool {
		if !e.IsText() && match(e) {
			out = append(out, e)
		}
		return true
	})
	return out
}

// ByTag matches elements with the given tag.
func ByTag(tag string) func(*Element) bool {
	return func(e *Element) bool { return e.Tag == tag }
}

// ByAttr matches elements whose attribute name has the given value.
func ByAttr(name, value string) func(*Element) bool {
	return func(e *Element) bool {
		v, ok := e.Attrs[name]
		return ok && v == value
	}
}

func walk(e *Element, fn func(*Element) bool) bool {
	if !fn(e) {
		return false
	}
	for _, c := range e.Children {
		if !walk(c, fn) {
			return false
		}
	}
	return true
}

var voidElements = map[string]bool{
	"area": true, "br": true, "col": true, "embed": true, "hr": true, "img": true,
	"input": true, "link": true, "meta": true, "source": true, "track": true, "wbr": true,
}

// HTML serializes the body's children. Attributes are written in sorted
// order and empty text nodes are skipped.
func (d *Document) HTML() string {
	var b strings.Builder
	for _, c := range d.body.Children {
		writeHTML(&b, c)
	}
	return b.String()
}

// OuterHTML serializes e.
func OuterHTML(e *Element) string {
	var b strings.Builder
	writeHTML(&b, e)
	return b.String()
}

func writeHTML(b *strings.Builder, e *Element) {
	if e.IsText() {
		b.WriteString(html.EscapeString(e.Text))
		return
	}
	b.WriteByte('<')
	b.WriteString(e.Tag)
	names := make([]string, 0, len(e.Attrs))
	for name := range e.Attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b.WriteByte(' ')
		b.WriteString(name)
		if v := e.Attrs[name]; v != "" {
			b.WriteString(`="`)
			b.WriteString(html.EscapeString(v))
			b.WriteByte('"')
		}
	}
	b.WriteByte('>')
	if voidElements[e.Tag] {
		return
	}
	for _, c := range e.Children {
		writeHTML(b, c)
	}
	b.WriteString("</")
	b.WriteString(e.Tag)
	b.WriteByte('>')
}
