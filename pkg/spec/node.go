package spec

// Kind is the node type discriminator.
type Kind uint8

const (
	KindElement  Kind = iota + 1 // {"t": ...}
	KindCond                     // {"if": ...}
	KindEach                     // {"each": ...}
	KindBoundary                 // {"try": ...}
	KindIsland                   // {"island": ...}
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindElement:
		return "Element"
	case KindCond:
		return "Cond"
	case KindEach:
		return "Each"
	case KindBoundary:
		return "Boundary"
	case KindIsland:
		return "Island"
	default:
		return "Unknown"
	}
}

// Node is one node of a spec tree. The set of implementations is closed.
type Node interface {
	Kind() Kind
	node()
}

// Tree is a root node plus the initial state of the store it mounts with.
type Tree struct {
	State map[string]any
	Root  Node
}

// Props holds the property bag of an element, keyed by short name.
type Props map[string]any

// Element renders one component tag.
type Element struct {
	Tag     Tag
	Content Content
	Props   Props
}

// Cond mounts Then while the predicate holds and Else otherwise.
// Without an equality operand the predicate is the truthiness of Ref.
type Cond struct {
	Ref   Ref
	Eq    any
	HasEq bool
	Then  []Node
	Else  []Node
}

// Each repeats Template once per item of the sequence read through Source.
// Items are matched across updates by the Key field, or by index when Key
// is empty.
type Each struct {
	Source   Ref
	Key      string
	Template Node
}

// Boundary mounts Fallback in place of Child when Child fails.
// OnError is a callback name or a Go func receiving the error description.
type Boundary struct {
	Child    Node
	Fallback Node
	OnError  any
}

// Island marks Child as a separately hydrated region.
type Island struct {
	ID      string
	Hydrate string
	Media   string
	Child   Node
}

func (*Element) Kind() Kind  { return KindElement }
func (*Cond) Kind() Kind     { return KindCond }
func (*Each) Kind() Kind     { return KindEach }
func (*Boundary) Kind() Kind { return KindBoundary }
func (*Island) Kind() Kind   { return KindIsland }

func (*Element) node()  {}
func (*Cond) node()     {}
func (*Each) node()     {}
func (*Boundary) node() {}
func (*Island) node()   {}

// Content is the content of an element: Text, Bind or Children.
type Content interface {
	content()
}

// Text is literal text content.
type Text struct {
	Value string
}

// Bind is text content read through a reference.
type Bind struct {
	Ref Ref
}

// Children is nested node content.
type Children struct {
	Nodes []Node
}

func (Text) content()     {}
func (Bind) content()     {}
func (Children) content() {}

// El builds an element node. It is a convenience for trees built in Go.
func El(tag Tag, content Content, props Props) *Element {
	return &Element{Tag: tag, Content: content, Props: props}
}

// Nodes returns the child nodes of e, or nil when its content is not a
// node list.
func (e *Element) Nodes() []Node {
	if c, ok := e.Content.(Children); ok {
		return c.Nodes
	}
	return nil
}

// Walk calls fn for n and its descendants in depth-first order. When fn
// returns false the node's descendants are skipped.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch x := n.(type) {
	case *Element:
		for _, c := range x.Nodes() {
			Walk(c, fn)
		}
	case *Cond:
		for _, c := range x.Then {
			Walk(c, fn)
		}
		for _, c := range x.Else {
			Walk(c, fn)
		}
	case *Each:
		Walk(x.Template, fn)
	case *Boundary:
		Walk(x.Child, fn)
		Walk(x.Fallback, fn)
	case *Island:
		Walk(x.Child, fn)
	}
}
