package reactive

import (
	"reflect"
	"sync"
)

// signalBase provides type-erased subscriber management.
type signalBase struct {
	id uint64
	rt *Runtime

	// subs are the listeners subscribed to this signal, in subscription order.
	subs []Listener

	// subMu protects the subs slice.
	subMu sync.RWMutex
}

// subscribe adds a listener to this signal's subscribers.
// Deduplicates by listener ID to prevent double-subscription.
func (s *signalBase) subscribe(l Listener) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	lid := l.ID()
	for _, existing := range s.subs {
		if existing.ID() == lid {
			return
		}
	}
	s.subs = append(s.subs, l)
}

// unsubscribe removes a listener from this signal's subscribers.
func (s *signalBase) unsubscribe(l Listener) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	lid := l.ID()
	for i, existing := range s.subs {
		if existing.ID() == lid {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return
		}
	}
}

// notifySubscribers notifies all subscribers that this signal changed.
// Uses copy-before-notify so listeners may resubscribe while running.
func (s *signalBase) notifySubscribers() {
	s.subMu.RLock()
	subs := make([]Listener, len(s.subs))
	copy(subs, s.subs)
	s.subMu.RUnlock()

	if len(subs) == 0 {
		return
	}
	s.rt.notify(subs)
}

// track subscribes the runtime's current listener, if any.
func (s *signalBase) track(src source) {
	l := s.rt.listener
	if l == nil {
		return
	}
	s.subscribe(l)
	if e, ok := l.(*Effect); ok {
		e.addSource(src)
	}
}

// Signal is a reactive value container.
// Reading a Signal's value while a computation runs subscribes that
// computation to future changes.
type Signal[T any] struct {
	base signalBase

	// value is the current signal value.
	value T

	// mu protects the value.
	mu sync.RWMutex

	// equal decides whether a write changes the value.
	// If nil, Identical is used.
	equal func(T, T) bool
}

// NewSignal creates a new signal in rt with the given initial value.
func NewSignal[T any](rt *Runtime, initial T) *Signal[T] {
	return &Signal[T]{
		base: signalBase{
			id: nextID(),
			rt: rt,
		},
		value: initial,
	}
}

// Get returns the current value and subscribes the current listener.
func (s *Signal[T]) Get() T {
	s.mu.RLock()
	value := s.value
	s.mu.RUnlock()

	s.base.track(s)
	return value
}

// Peek returns the current value without subscribing.
func (s *Signal[T]) Peek() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set updates the signal's value and notifies subscribers if the value changed.
func (s *Signal[T]) Set(value T) {
	if s.store(value) {
		s.base.notifySubscribers()
	}
}

// Update replaces the value with fn applied to the current value.
// fn runs without the signal's lock held.
func (s *Signal[T]) Update(fn func(T) T) {
	s.Set(fn(s.Peek()))
}

// store writes value unless it equals the current one.
func (s *Signal[T]) store(value T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.equals(s.value, value) {
		return false
	}
	s.value = value
	return true
}

// WithEquals returns the signal configured with a custom equality function.
func (s *Signal[T]) WithEquals(fn func(T, T) bool) *Signal[T] {
	s.equal = fn
	return s
}

// Subscribe registers fn to be called after every change.
// The returned function removes the subscription.
func (s *Signal[T]) Subscribe(fn func()) func() {
	l := &funcListener{id: nextID(), fn: fn}
	s.base.subscribe(l)
	return func() { s.base.unsubscribe(l) }
}

// Subscribers returns the number of current subscribers.
func (s *Signal[T]) Subscribers() int {
	s.base.subMu.RLock()
	defer s.base.subMu.RUnlock()
	return len(s.base.subs)
}

// Release drops every subscriber. Called when the owning store is torn down.
func (s *Signal[T]) Release() {
	s.base.subMu.Lock()
	s.base.subs = nil
	s.base.subMu.Unlock()
}

// ID returns the unique identifier for this signal.
func (s *Signal[T]) ID() uint64 {
	return s.base.id
}

func (s *Signal[T]) unsubscribe(l Listener) {
	s.base.unsubscribe(l)
}

func (s *Signal[T]) equals(a, b T) bool {
	if s.equal != nil {
		return s.equal(a, b)
	}
	return defaultEquals(a, b)
}

// defaultEquals provides type-appropriate equality checking.
// Uses == for the common scalar types and Identical for others. Values of
// different dynamic types are never equal.
func defaultEquals[T any](a, b T) bool {
	switch av := any(a).(type) {
	case int:
		bv, ok := any(b).(int)
		return ok && av == bv
	case int64:
		bv, ok := any(b).(int64)
		return ok && av == bv
	case float64:
		bv, ok := any(b).(float64)
		return ok && av == bv
	case string:
		bv, ok := any(b).(string)
		return ok && av == bv
	case bool:
		bv, ok := any(b).(bool)
		return ok && av == bv
	default:
		return Identical(a, b)
	}
}

// Identical reports whether a and b are the same value for change
// detection: scalars and other comparable values by ==, slices and maps by
// backing storage, functions never.
func Identical(a, b any) (same bool) {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}

	switch va.Kind() {
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	case reflect.Map:
		return va.Pointer() == vb.Pointer()
	case reflect.Func:
		return false
	}

	if !va.Type().Comparable() {
		return false
	}

	// Comparable types may still hold uncomparable dynamic values in
	// interface fields; treat those as changed.
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}
