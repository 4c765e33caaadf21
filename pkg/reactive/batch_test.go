package reactive

import "testing"

func TestBatchSingleNotification(t *testing.T) {
	rt := NewRuntime()
	a := NewSignal(rt, 0)
	b := NewSignal(rt, 0)
	listener := newTestListener()

	rt.WithListener(listener, func() {
		_ = a.Get()
		_ = b.Get()
	})

	rt.Batch(func() {
		a.Set(1)
		b.Set(2)
	})

	if listener.dirty != 1 {
		t.Errorf("expected 1 notification (batched), got %d", listener.dirty)
	}
}

func TestBatchSameSignalTwiceSeesFinalValue(t *testing.T) {
	rt := NewRuntime()
	count := NewSignal(rt, 0)
	var seen []int

	rt.CreateEffect(func() Cleanup {
		seen = append(seen, count.Get())
		return nil
	})

	rt.Batch(func() {
		count.Set(1)
		count.Set(2)
	})

	if len(seen) != 2 || seen[1] != 2 {
		t.Errorf("seen = %v, want [0 2]", seen)
	}
}

func TestBatchNested(t *testing.T) {
	rt := NewRuntime()
	count := NewSignal(rt, 0)
	listener := newTestListener()
	rt.WithListener(listener, func() { _ = count.Get() })

	rt.Batch(func() {
		count.Set(1)
		rt.Batch(func() {
			count.Set(2)
		})
		if listener.dirty != 0 {
			t.Errorf("inner batch flushed early: %d", listener.dirty)
		}
		count.Set(3)
	})

	if listener.dirty != 1 {
		t.Errorf("expected 1 notification, got %d", listener.dirty)
	}
}

func TestBatchNoChangeNoNotification(t *testing.T) {
	rt := NewRuntime()
	count := NewSignal(rt, 4)
	listener := newTestListener()
	rt.WithListener(listener, func() { _ = count.Get() })

	rt.Batch(func() {
		count.Set(4)
	})
	if listener.dirty != 0 {
		t.Errorf("expected no notification, got %d", listener.dirty)
	}
}

func TestUntracked(t *testing.T) {
	rt := NewRuntime()
	s := NewSignal(rt, 0)
	runs := 0

	rt.CreateEffect(func() Cleanup {
		runs++
		rt.Untracked(func() { _ = s.Get() })
		return nil
	})
	s.Set(1)
	if runs != 1 {
		t.Errorf("untracked read created a dependency (runs = %d)", runs)
	}
}
