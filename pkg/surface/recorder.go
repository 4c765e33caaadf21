package surface

import (
	"errors"
	"fmt"
	"sync"
)

// PatchOp is the type of patch operation.
type PatchOp uint8

// Patch operation constants.
const (
	PatchCreate     PatchOp = 0x01 // Create element
	PatchText       PatchOp = 0x02 // Create text node
	PatchInsert     PatchOp = 0x03 // Insert or move node
	PatchRemove     PatchOp = 0x04 // Remove node from parent
	PatchSetAttr    PatchOp = 0x05 // Set attribute
	PatchRemoveAttr PatchOp = 0x06 // Remove attribute
	PatchSetText    PatchOp = 0x07 // Update text content
	PatchListen     PatchOp = 0x08 // Start forwarding an event
	PatchUnlisten   PatchOp = 0x09 // Stop forwarding an event
)

// String returns the string representation of the patch operation.
func (op PatchOp) String() string {
	switch op {
	case PatchCreate:
		return "create"
	case PatchText:
		return "text"
	case PatchInsert:
		return "insert"
	case PatchRemove:
		return "remove"
	case PatchSetAttr:
		return "attr"
	case PatchRemoveAttr:
		return "rmattr"
	case PatchSetText:
		return "settext"
	case PatchListen:
		return "listen"
	case PatchUnlisten:
		return "unlisten"
	default:
		return fmt.Sprintf("Unknown(%d)", op)
	}
}

// Patch is one recorded surface call. Node IDs refer to nodes created by
// earlier patches; ID 0 is the root container.
type Patch struct {
	Op     PatchOp `msgpack:"o"`
	ID     uint64  `msgpack:"i"`
	Parent uint64  `msgpack:"p,omitempty"`
	Before uint64  `msgpack:"b,omitempty"`
	Name   string  `msgpack:"n,omitempty"`
	Value  string  `msgpack:"v,omitempty"`
}

// RecNode is a node created by a Recorder.
type RecNode struct {
	ID uint64
}

// Recorder is a Surface that records patches instead of rendering. It is
// safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	next     uint64
	patches  []Patch
	handlers map[uint64]map[string][]*recListener
	parents  map[uint64]uint64
}

type recListener struct {
	h       Handler
	removed bool
}

// RootID is the ID of the root container.
const RootID uint64 = 0

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		handlers: map[uint64]map[string][]*recListener{},
		parents:  map[uint64]uint64{},
	}
}

// Root returns the root container node.
func (r *Recorder) Root() Node {
	return &RecNode{ID: RootID}
}

func (r *Recorder) id(n Node) (uint64, error) {
	rn, ok := n.(*RecNode)
	if !ok || rn == nil {
		return 0, fmt.Errorf("surface: node %T does not belong to this recorder", n)
	}
	return rn.ID, nil
}

func (r *Recorder) record(p Patch) {
	r.patches = append(r.patches, p)
}

// CreateElement implements Surface.
func (r *Recorder) CreateElement(tag string) (Node, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.record(Patch{Op: PatchCreate, ID: r.next, Name: tag})
	return &RecNode{ID: r.next}, nil
}

// CreateText implements Surface.
func (r *Recorder) CreateText(text string) (Node, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.record(Patch{Op: PatchText, ID: r.next, Value: text})
	return &RecNode{ID: r.next}, nil
}

// Insert implements Surface.
func (r *Recorder) Insert(parent, child, before Node) error {
	pid, err := r.id(parent)
	if err != nil {
		return err
	}
	cid, err := r.id(child)
	if err != nil {
		return err
	}
	var bid uint64
	if before != nil {
		if bid, err = r.id(before); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parents[cid] = pid
	r.record(Patch{Op: PatchInsert, ID: cid, Parent: pid, Before: bid})
	return nil
}

// Remove implements Surface.
func (r *Recorder) Remove(parent, child Node) error {
	pid, err := r.id(parent)
	if err != nil {
		return err
	}
	cid, err := r.id(child)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.parents[cid] != pid {
		return errors.New("surface: node is not a child of parent")
	}
	delete(r.parents, cid)
	r.record(Patch{Op: PatchRemove, ID: cid, Parent: pid})
	return nil
}

// SetAttr implements Surface.
func (r *Recorder) SetAttr(n Node, name, value string) error {
	return r.simple(n, Patch{Op: PatchSetAttr, Name: name, Value: value})
}

// RemoveAttr implements Surface.
func (r *Recorder) RemoveAttr(n Node, name string) error {
	return r.simple(n, Patch{Op: PatchRemoveAttr, Name: name})
}

// SetText implements Surface.
func (r *Recorder) SetText(n Node, text string) error {
	return r.simple(n, Patch{Op: PatchSetText, Value: text})
}

func (r *Recorder) simple(n Node, p Patch) error {
	id, err := r.id(n)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = id
	r.record(p)
	return nil
}

// Listen implements Surface.
func (r *Recorder) Listen(n Node, event string, h Handler) (func(), error) {
	id, err := r.id(n)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	byEvent := r.handlers[id]
	if byEvent == nil {
		byEvent = map[string][]*recListener{}
		r.handlers[id] = byEvent
	}
	l := &recListener{h: h}
	byEvent[event] = append(byEvent[event], l)
	if len(byEvent[event]) == 1 {
		r.record(Patch{Op: PatchListen, ID: id, Name: event})
	}

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if l.removed {
			return
		}
		l.removed = true
		list := r.handlers[id][event]
		for i, x := range list {
			if x == l {
				list = append(list[:i], list[i+1:]...)
				break
			}
		}
		if len(list) == 0 {
			delete(r.handlers[id], event)
			if len(r.handlers[id]) == 0 {
				delete(r.handlers, id)
			}
			r.record(Patch{Op: PatchUnlisten, ID: id, Name: event})
			return
		}
		r.handlers[id][event] = list
	}, nil
}

// Listeners returns the number of nodes with at least one listener.
func (r *Recorder) Listeners() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handlers)
}

// Dispatch delivers ev to the handlers registered on node id. Handlers
// run without the recorder's lock held so they may update the surface.
func (r *Recorder) Dispatch(id uint64, ev Event) error {
	r.mu.Lock()
	list := append([]*recListener(nil), r.handlers[id][ev.Type]...)
	r.mu.Unlock()
	if len(list) == 0 {
		return fmt.Errorf("surface: no %q listener on node %d", ev.Type, id)
	}

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

// Drain returns the patches recorded since the last call and clears them.
func (r *Recorder) Drain() []Patch {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.patches
	r.patches = nil
	return out
}
