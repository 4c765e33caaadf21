// Package render produces HTML for spec trees on the server.
//
// Renderer walks a tree read-only against a store and writes HTML using
// the same tag, attribute and style tables the live renderer uses, so the
// client can take over the markup without a visual change.
//
//	r := &render.Renderer{Store: st}
//	html, err := r.RenderString(tree.Root)
//
// Shell streams a whole document as a sequence of chunks: the head, the
// body start, the content split at island boundaries, one fill per
// deferred island as its loader finishes, the hydration script and the
// end of the document.
//
//	err := render.NewShell(render.Config{}).Stream(ctx, page, render.NewWriterSink(w))
//
// With no deferred islands the concatenated stream is byte-identical to
// RenderDocument.
//
// All text and attribute values are escaped.
package render
