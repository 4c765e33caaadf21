package store

import (
	"sort"

	"github.com/vango-dev/terse/internal/errors"
	"github.com/vango-dev/terse/pkg/reactive"
)

// Store is a named mapping of signals backing one mount.
type Store struct {
	rt      *reactive.Runtime
	signals map[string]*reactive.Signal[any]
	keys    []string

	// internal are bookkeeping signals created by the renderer.
	internal map[*reactive.Signal[any]]struct{}

	disposed bool
}

// New builds a store in rt with one signal per entry of initial.
func New(rt *reactive.Runtime, initial map[string]any) *Store {
	s := &Store{
		rt:       rt,
		signals:  make(map[string]*reactive.Signal[any], len(initial)),
		keys:     make([]string, 0, len(initial)),
		internal: make(map[*reactive.Signal[any]]struct{}),
	}
	for key, value := range initial {
		s.signals[key] = reactive.NewSignal[any](rt, Normalize(value))
		s.keys = append(s.keys, key)
	}
	sort.Strings(s.keys)
	return s
}

// Runtime returns the runtime the store's signals belong to.
func (s *Store) Runtime() *reactive.Runtime {
	return s.rt
}

// Keys returns the declared state keys in sorted order.
func (s *Store) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Has reports whether key was declared.
func (s *Store) Has(key string) bool {
	_, ok := s.signals[key]
	return ok
}

// Signal returns the signal for key.
func (s *Store) Signal(key string) (*reactive.Signal[any], error) {
	sig, ok := s.signals[key]
	if !ok {
		return nil, errors.Newf("E101", "state key %q is not declared", key)
	}
	return sig, nil
}

// Get reads key with dependency tracking.
func (s *Store) Get(key string) (any, error) {
	sig, err := s.Signal(key)
	if err != nil {
		return nil, err
	}
	return sig.Get(), nil
}

// Peek reads key without dependency tracking.
func (s *Store) Peek(key string) (any, error) {
	sig, err := s.Signal(key)
	if err != nil {
		return nil, err
	}
	return sig.Peek(), nil
}

// Set writes a normalized value to key.
func (s *Store) Set(key string, value any) error {
	sig, err := s.Signal(key)
	if err != nil {
		return err
	}
	sig.Set(Normalize(value))
	return nil
}

// Update replaces key's value with fn applied to the current value.
// An error from fn leaves the value unchanged.
func (s *Store) Update(key string, fn func(any) (any, error)) error {
	sig, err := s.Signal(key)
	if err != nil {
		return err
	}
	next, err := fn(sig.Peek())
	if err != nil {
		return err
	}
	sig.Set(Normalize(next))
	return nil
}

// Internal creates a bookkeeping signal that is released with the store
// but never listed in Keys or Snapshot.
func (s *Store) Internal(initial any) *reactive.Signal[any] {
	sig := reactive.NewSignal[any](s.rt, initial)
	s.internal[sig] = struct{}{}
	return sig
}

// DropInternal releases a bookkeeping signal created by Internal.
func (s *Store) DropInternal(sig *reactive.Signal[any]) {
	if _, ok := s.internal[sig]; !ok {
		return
	}
	delete(s.internal, sig)
	sig.Release()
}

// InternalCount returns the number of live bookkeeping signals.
func (s *Store) InternalCount() int {
	return len(s.internal)
}

// Snapshot returns every declared key's current value, read without
// tracking.
func (s *Store) Snapshot() map[string]any {
	out := make(map[string]any, len(s.keys))
	for _, key := range s.keys {
		out[key] = s.signals[key].Peek()
	}
	return out
}

// Dispose releases every signal's subscribers. Calling Dispose more than
// once is a no-op.
func (s *Store) Dispose() {
	if s.disposed {
		return
	}
	s.disposed = true
	for _, sig := range s.signals {
		sig.Release()
	}
	for sig := range s.internal {
		sig.Release()
	}
	clear(s.internal)
}

// Disposed reports whether Dispose has been called.
func (s *Store) Disposed() bool {
	return s.disposed
}
