package reactive

// Listener is anything that can be notified when a dependency changes.
// Effects implement it; Signal.Subscribe wraps plain callbacks in one.
type Listener interface {
	// MarkDirty notifies the listener that one of its dependencies has changed.
	MarkDirty()

	// ID returns a unique identifier for this listener.
	// Used for deduplication during subscription and flushing.
	ID() uint64
}

// Cleanup is a function returned by effects to clean up resources.
// It is called before the effect re-runs and when the effect is disposed.
type Cleanup func()

// funcListener adapts a plain callback to Listener.
type funcListener struct {
	id uint64
	fn func()
}

func (f *funcListener) MarkDirty() { f.fn() }
func (f *funcListener) ID() uint64 { return f.id }

// source is a signal an effect has read, seen without its type parameter.
type source interface {
	unsubscribe(l Listener)
}
