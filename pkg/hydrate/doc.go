// Package hydrate makes server-rendered islands interactive.
//
// Collect finds the islands of a tree. GenerateScript embeds a manifest of
// them, together with the state snapshot, into the page and emits the
// bootstrap that schedules each island's client mount by strategy:
//
//	load     mount as soon as the script runs
//	idle     mount when the browser is idle
//	visible  mount when the island scrolls into view
//	media    mount once a media query matches
//	static   never mount; the server HTML is final
//
// Hydrator is the same receiving runtime in Go. It rebuilds one store from
// the manifest's snapshot and attaches every island to it, so islands on a
// page share state.
package hydrate
