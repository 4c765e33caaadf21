package reactive

import "testing"

// testListener counts notifications.
type testListener struct {
	id    uint64
	dirty int
}

func newTestListener() *testListener {
	return &testListener{id: nextID()}
}

func (l *testListener) MarkDirty() { l.dirty++ }
func (l *testListener) ID() uint64 { return l.id }

func TestSignalGetSet(t *testing.T) {
	rt := NewRuntime()
	s := NewSignal(rt, 1)

	if s.Get() != 1 {
		t.Fatalf("Get() = %d, want 1", s.Get())
	}
	s.Set(7)
	if s.Get() != 7 || s.Peek() != 7 {
		t.Errorf("after Set(7): Get=%d Peek=%d", s.Get(), s.Peek())
	}
	s.Update(func(n int) int { return n * 2 })
	if s.Peek() != 14 {
		t.Errorf("Update: got %d, want 14", s.Peek())
	}
}

func TestSignalReadOutsideTrackingHasNoSideEffect(t *testing.T) {
	rt := NewRuntime()
	s := NewSignal(rt, "a")
	_ = s.Get()
	if s.Subscribers() != 0 {
		t.Errorf("untracked read subscribed %d listeners", s.Subscribers())
	}
}

func TestSignalNoOpSetDoesNotNotify(t *testing.T) {
	rt := NewRuntime()
	s := NewSignal(rt, 5)
	l := newTestListener()
	rt.WithListener(l, func() { _ = s.Get() })

	s.Set(5)
	if l.dirty != 0 {
		t.Errorf("no-op Set notified %d times", l.dirty)
	}
	s.Set(6)
	if l.dirty != 1 {
		t.Errorf("Set notified %d times, want 1", l.dirty)
	}
}

func TestSignalSubscribeDeduplicates(t *testing.T) {
	rt := NewRuntime()
	s := NewSignal(rt, 0)
	l := newTestListener()
	rt.WithListener(l, func() {
		_ = s.Get()
		_ = s.Get()
		_ = s.Get()
	})
	if s.Subscribers() != 1 {
		t.Errorf("Subscribers() = %d, want 1", s.Subscribers())
	}
}

func TestSignalSubscribeCallback(t *testing.T) {
	rt := NewRuntime()
	s := NewSignal(rt, 0)
	calls := 0
	unsub := s.Subscribe(func() { calls++ })

	s.Set(1)
	s.Set(2)
	unsub()
	s.Set(3)
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestSignalRelease(t *testing.T) {
	rt := NewRuntime()
	s := NewSignal(rt, 0)
	calls := 0
	s.Subscribe(func() { calls++ })
	s.Release()
	s.Set(1)
	if calls != 0 || s.Subscribers() != 0 {
		t.Errorf("released signal still notifies: calls=%d subs=%d", calls, s.Subscribers())
	}
}

func TestSignalWithEquals(t *testing.T) {
	rt := NewRuntime()
	s := NewSignal(rt, []int{1}).WithEquals(func(a, b []int) bool { return len(a) == len(b) })
	calls := 0
	s.Subscribe(func() { calls++ })

	s.Set([]int{9})
	if calls != 0 {
		t.Errorf("custom equality ignored, calls = %d", calls)
	}
	s.Set([]int{1, 2})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestIdentical(t *testing.T) {
	list := []any{1, 2}
	obj := map[string]any{"a": 1}
	fn := func() {}

	type pair struct{ A, B int }
	type holder struct{ V any }

	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"nil nil", nil, nil, true},
		{"nil value", nil, 0, false},
		{"ints", 3, 3, true},
		{"int vs float", 3, 3.0, false},
		{"strings", "x", "x", true},
		{"same slice", list, list, true},
		{"copied slice", list, append([]any(nil), list...), false},
		{"resliced", list, list[:1], false},
		{"same map", obj, obj, true},
		{"copied map", obj, map[string]any{"a": 1}, false},
		{"func", fn, fn, false},
		{"struct", pair{1, 2}, pair{1, 2}, true},
		{"struct holding slice", holder{list}, holder{list}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Identical(tt.a, tt.b); got != tt.want {
				t.Errorf("Identical(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestSignalTypeChangingWrites(t *testing.T) {
	rt := NewRuntime()
	tests := []struct {
		name     string
		from, to any
	}{
		{"number to string", 5.0, "hello"},
		{"string to nil", "a", nil},
		{"bool to number", true, 1.0},
		{"int to float", 1, 1.0},
		{"nil to string", nil, "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSignal[any](rt, tt.from)
			calls := 0
			s.Subscribe(func() { calls++ })

			s.Set(tt.to)
			if s.Peek() != tt.to {
				t.Errorf("Peek() = %v, want %v", s.Peek(), tt.to)
			}
			if calls != 1 {
				t.Errorf("calls = %d, want 1", calls)
			}
			// The lock must be free again.
			s.Set(tt.from)
			if s.Peek() != tt.from {
				t.Errorf("second write: Peek() = %v, want %v", s.Peek(), tt.from)
			}
		})
	}
}

func TestSignalUpdateMayReadItself(t *testing.T) {
	rt := NewRuntime()
	s := NewSignal(rt, 2)
	s.Update(func(n int) int { return n + s.Peek() })
	if s.Peek() != 4 {
		t.Errorf("Peek() = %d, want 4", s.Peek())
	}
}

func TestSignalPanickingSubscriberDoesNotStallQueue(t *testing.T) {
	var fatal []error
	rt := NewRuntime(WithFatalHandler(func(err error) { fatal = append(fatal, err) }))
	s := NewSignal(rt, 0)
	calls := 0
	s.Subscribe(func() { panic("boom") })
	s.Subscribe(func() { calls++ })

	s.Set(1)
	if calls != 1 {
		t.Errorf("calls after first write = %d, want 1", calls)
	}
	if len(fatal) != 1 {
		t.Errorf("fatal errors = %v, want one", fatal)
	}

	s.Set(2)
	if calls != 2 {
		t.Errorf("calls after second write = %d, want 2", calls)
	}
}
