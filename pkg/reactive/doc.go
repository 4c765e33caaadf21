// Package reactive provides the fine-grained reactive core for terse.
//
// Dependencies are tracked automatically at runtime: reading a signal while a
// computation runs subscribes that computation to the signal. Tracking state
// lives in an explicit Runtime, one per mount, instead of in process-wide
// globals, so two mounts never observe each other's reads.
//
// # Core Types
//
// Signal[T] is a reactive value container:
//
//	rt := reactive.NewRuntime()
//	count := reactive.NewSignal(rt, 0)
//	value := count.Get() // Read (subscribes the running computation)
//	count.Set(5)         // Write (notifies subscribers)
//	count.Update(func(n int) int { return n + 1 })
//
// Effect runs side effects when dependencies change:
//
//	rt.CreateEffect(func() reactive.Cleanup {
//	    fmt.Println("Count is:", count.Get())
//	    return nil
//	})
//
// Scope owns effects and cleanups and forms the ownership tree that a
// renderer tears down when part of the UI unmounts.
//
// # Batching
//
// Multiple signal updates can be batched to trigger a single notification:
//
//	rt.Batch(func() {
//	    a.Set(1)
//	    b.Set(2)
//	})
//
// # Flushing
//
// Writes outside a batch notify synchronously. A write made while
// notifications are being delivered is queued and delivered within the same
// flush; a listener that already ran in the flush is not run again, so a
// subscriber that writes to its own dependency cannot recurse forever.
//
// # Equality
//
// Set compares old and new values by identity: scalars by value, slices and
// maps by backing storage, functions never equal. State operators always
// build new containers, so identity changes exactly when content does.
//
// # Thread Safety
//
// A Runtime is driven by one logical thread of control. Value reads and
// writes are guarded so that other goroutines may Peek safely, but
// notification delivery is not reentrant across goroutines.
package reactive
