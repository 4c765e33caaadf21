// Package ops resolves event handler declarations into handlers that
// mutate a store.
//
// A declaration is one of:
//
//	"n+"                   increment n by one ("n-" decrements)
//	["n", "+", 5]          an instruction: key, operator, optional operand
//	"save"                 the name of a registered Callback
//	func(surface.Event)    a Go func, used as is
//
// Operators:
//
//	"+" "-"  add or subtract (operand defaults to 1)
//	"!"      set to the operand, or to the event's value
//	"~"      toggle a boolean
//	"<" ">"  append or prepend to a list
//	"X"      remove one element from a list
//	"."      set a field of an object
//
// Every list and object operator builds a new container. The previous
// value is never modified, so identity comparison detects the change.
package ops
