// Package surface defines the display surface a mount writes to, plus two
// implementations: Document, an in-memory element tree, and Recorder,
// which turns every call into a patch for a remote runtime to apply.
package surface

// Node is an element or text node owned by a Surface. Its concrete type
// depends on the implementation.
type Node any

// Event is a user interaction delivered to a listener.
type Event struct {
	// Type is the event name, such as "click" or "input".
	Type string

	// Value is the live value of the control that fired, for input and
	// change events. HasValue distinguishes a nil value from no value.
	Value    any
	HasValue bool

	// Key is the key name for keydown events.
	Key string
}

// Handler handles an event. An error is reported back to whoever
// dispatched the event.
type Handler func(Event) error

// Surface is the native element API a mount drives.
type Surface interface {
	CreateElement(tag string) (Node, error)
	CreateText(text string) (Node, error)

	// Insert places child in parent before the sibling before, or at the
	// end when before is nil. Inserting a node that already has a parent
	// moves it.
	Insert(parent, child, before Node) error
	Remove(parent, child Node) error

	SetAttr(n Node, name, value string) error
	RemoveAttr(n Node, name string) error
	SetText(n Node, text string) error

	// Listen registers h for event on n. The returned func removes it.
	Listen(n Node, event string, h Handler) (func(), error)
}
