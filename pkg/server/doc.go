// Package server is the HTTP front end for routed terse pages.
//
// Requests pass through chi's RequestID, RealIP and Recoverer middleware,
// are normalized by adapter.HTTP and handed to router.Serve. Page results
// stream through a render.Shell. Live sessions, when enabled, are served
// under the live path, and Prometheus metrics under /metrics.
//
// Every request gets an OpenTelemetry span named terse.request, with a
// terse.stream child span while a page streams. Spans come from the
// global tracer provider.
package server
