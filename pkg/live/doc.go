// Package live runs page trees server-side and mirrors them to a browser
// over a WebSocket.
//
// Each connection gets a Session: the tree is mounted against a
// surface.Recorder, and every surface call becomes a patch. The first frame
// carries the patches that build the page. After that the client sends
// Event frames naming a node and an event type; the session dispatches the
// event to the recorded listener and replies with one Patches frame
// holding every resulting change.
//
// Frames are msgpack maps sent as binary messages. Dispatch on a session
// is serialized, so a mount only ever sees one logical thread.
package live
