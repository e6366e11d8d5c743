package server

import (
	"net/http"
	"slices"
	"strings"
)

// BasicRouter implements [Router] on top of an [http.ServeMux].
//
// Every registered route and the not-found fallback run behind the same middleware chain.
type BasicRouter struct {
	mux   *http.ServeMux
	chain []Middleware
}

// NewBasicRouter returns an empty router.
func NewBasicRouter() *BasicRouter {
	return &BasicRouter{mux: http.NewServeMux()}
}

// Use appends middleware. Routes registered afterwards are wrapped by it; earlier ones are not.
func (r *BasicRouter) Use(middleware ...Middleware) {
	r.chain = append(r.chain, middleware...)
}

// Handle serves path with handler for the listed methods, or for any method when none are given.
//
// GET routes also answer HEAD. Other methods get 405 with an Allow header, after the
// middleware has run, so preflight and access logging still apply.
func (r *BasicRouter) Handle(path string, handler http.Handler, methods ...string) {
	allow := strings.Join(methods, ", ")
	guarded := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if !allowed(req.Method, methods) {
			w.Header().Set("Allow", allow)
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		handler.ServeHTTP(w, req)
	})
	r.mux.Handle(path, r.Apply(guarded))
}

// Handler registers h under each of its routes.
func (r *BasicRouter) Handler(h Handler) {
	wrapped := r.Apply(h)
	for _, route := range h.Routes() {
		r.mux.Handle(route, wrapped)
	}
}

// ServeHTTP dispatches to the matching route. Unmatched paths get a JSON 404.
func (r *BasicRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if _, pattern := r.mux.Handler(req); pattern == "" {
		r.Apply(http.HandlerFunc(notFound)).ServeHTTP(w, req)
		return
	}
	r.mux.ServeHTTP(w, req)
}

// Apply wraps handler with the middleware chain. The first middleware added is the outermost.
func (r *BasicRouter) Apply(handler http.Handler) http.Handler {
	for _, mw := range slices.Backward(r.chain) {
		handler = mw(handler)
	}
	return handler
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "not found")
}

func allowed(method string, methods []string) bool {
	if len(methods) == 0 {
		return true
	}
	if method == http.MethodHead {
		method = http.MethodGet
	}
	return slices.ContainsFunc(methods, func(m string) bool { return strings.EqualFold(m, method) })
}
