// Package spec defines the spec tree: the declarative description of a UI
// that the mount and render packages interpret.
//
// Trees are written in a short-key form to keep them small:
//
//	{"s": {"n": 0}, "r": {"t": "col", "c": [
//	    {"t": "txt", "c": "$n"},
//	    {"t": "btn", "c": "+1", "p": {"click": "n+"}}
//	]}}
//
// Parse, ParseYAML and FromValue validate that form strictly and translate
// it into the named node types of this package. No other package sees the
// short keys. Encode goes the other way and is used to ship island subtrees
// to a receiving runtime.
//
// # Node Kinds
//
//   - Element: a component tag, its content and a property bag
//   - Cond: shows one of two branches depending on a state reference
//   - Each: repeats a template once per item of a sequence
//   - Boundary: mounts a fallback when its child fails
//   - Island: marks an independently hydrated subtree
//
// # References
//
// Strings starting with "$" read state, "@" reads the current iteration
// item and "#" its index. See ParseRef.
package spec
