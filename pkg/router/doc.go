// Package router maps request paths to handlers and turns handler results
// into normalized responses.
//
// Patterns are slash-separated segments. A segment is static ("users"), a
// parameter (":id", optionally typed as ":id:int" or ":id:uuid") or a
// trailing wildcard ("*rest"). At each level static segments win over
// parameters, which win over the wildcard; a failed branch backtracks.
//
//	r := router.New()
//	r.Handle("/users/:id:int", func(c *router.Context) router.Result {
//	    return router.Data{Value: map[string]any{"id": c.Params.Get("id")}}
//	})
//	resp := router.Serve(ctx, r, req)
//
// Only Page results reach the renderer. Data results are encoded as JSON,
// redirects must use 301, 302, 307 or 308 (else E108) and unmatched paths
// produce a 404.
package router
