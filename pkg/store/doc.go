// Package store holds the mutable application state behind one mount: a
// fixed set of named signals built from an initial state object.
//
// Values are normalized to the JSON data model on the way in (numbers
// become float64, typed slices become []any, string-keyed maps become
// map[string]any) so that the renderer, the state operators and the
// snapshot serializer all see the same shapes.
//
//	rt := reactive.NewRuntime()
//	st := store.New(rt, map[string]any{"count": 0, "items": []string{"a"}})
//	st.Set("count", 1)
//	snap := st.Snapshot() // map[count:1 items:[a]]
//
// A store is owned by exactly one mount, or by one hydration session whose
// islands share it. Keys cannot be added after construction; the renderer
// keeps its own bookkeeping signals through Internal.
package store
