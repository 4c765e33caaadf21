// Package errors provides structured, coded errors for terse.
//
// Every failure the engine reports carries a stable code that maps to a
// category, a short message and a longer explanation:
//   - config: malformed spec nodes, unknown tags or properties, state
//     operations on missing or wrongly shaped state
//   - render: failures raised while mounting or re-rendering a subtree
//   - serialization: snapshots that cannot be read back
//   - stream: aborted document streams
//   - route: invalid handler results
//
// # Usage
//
//	err := errors.New("E101").
//	    WithPath("r.c[2]").
//	    WithDetailf("state key %q is not declared", key)
//
//	fmt.Println(err.Format())
//	// ERROR E101: Unknown state key
//	//
//	//   at r.c[2]
//	//
//	//   state key "count" is not declared
//
// Callers inside the module use errors.As to recover the code, or the
// CodeOf helper.
package errors
