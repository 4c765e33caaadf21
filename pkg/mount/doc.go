// Package mount interprets a spec tree against a store and keeps a
// surface in sync with it.
//
// Mounting walks the tree once, creating surface nodes and one effect per
// dynamic fragment: a bound text, a bound attribute, the style of an
// element, the branch of a conditional, the items of an iteration. When a
// store value changes, only the effects that read it re-run, and each one
// touches the surface only when its output differs from what it last
// wrote.
//
// Conditionals, iterations and boundaries are regions. A region owns an
// empty text node, its anchor, and keeps its content directly before it,
// so a region can be emptied, refilled or moved without a wrapper element.
//
// Errors raised while mounting or re-rendering are routed to the nearest
// enclosing boundary, which replaces its content with the fallback. With no
// boundary, mount errors are returned by New and update errors by the
// dispatch that caused them.
package mount
