// Package server provides HTTP routing, middleware, and the handlers of the soundpy web service.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Middleware Stack
//
// [New] installs, outermost first:
//   - [Recover] : turns panics into 500 responses
//   - [ProxyHeaders] : trusts one reverse proxy hop for client address, scheme and host
//   - [RequestID] : assigns or propagates X-Request-ID
//   - [AccessLog] : one log line per request
//   - [CORS] : allows any origin and answers preflight requests
//   - [Admission] : caps in-flight requests, queuing the rest in arrival order
//
// # Routes
//
//	GET       /            → landing page
//	GET       /health      → {"status":"ok"}, pings the store
//	GET       /search      → {"results":[...]} video hits for query
//	GET       /getPlaylist → [...] playlist hits for query
//	GET       /playlist    → synced playlist for link
//	GET, POST /download    → audio attachment for link
//	GET       /stream      → {"url":"..."} direct audio stream for link
//
// # Errors
//
// Every workflow failure is answered with 400 and a fixed message such as
// "playlist manipulation failed". The full error chain is logged with the request id.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
