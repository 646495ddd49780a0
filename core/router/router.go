package router

import (
	"sync/atomic"

	"github.com/searchktools/pooled-server/core/http"
)

// HandlerFunc builds the response for a matched request
type HandlerFunc func(req *http.Request) http.Response

// Router is an exact-match route table.
//
// Routes are registered before serving starts; Route is safe for concurrent
// use once registration is done.
type Router struct {
	// Static routes: direct map lookup O(1)
	routes   map[string]map[string]HandlerFunc // path -> method -> handler
	notFound HandlerFunc

	hits   atomic.Uint64
	misses atomic.Uint64
}

// New creates an empty router that answers every request with 404
func New() *Router {
	return &Router{
		routes: make(map[string]map[string]HandlerFunc),
		notFound: func(*http.Request) http.Response {
			return http.NotFound()
		},
	}
}

// Default returns a router with the built-in routes:
// GET / and GET /health
func Default() *Router {
	r := New()
	r.Add("GET", "/", Static(http.NewResponse(200, "OK", "Hello, World!")))
	r.Add("GET", "/health", Static(http.NewResponse(200, "OK", "OK")))
	return r
}

// Static returns a handler that always answers resp
func Static(resp http.Response) HandlerFunc {
	return func(*http.Request) http.Response {
		return resp
	}
}

// Add registers handler for method and path. A later call for the same pair wins.
func (r *Router) Add(method, path string, handler HandlerFunc) {
	if path == "" || path[0] != '/' {
		panic("path must begin with '/'")
	}
	if r.routes[path] == nil {
		r.routes[path] = make(map[string]HandlerFunc)
	}
	r.routes[path][method] = handler
}

// NotFound replaces the fallback handler
func (r *Router) NotFound(handler HandlerFunc) {
	r.notFound = handler
}

// Route returns the response for req
func (r *Router) Route(req *http.Request) http.Response {
	if methods, ok := r.routes[req.Path]; ok {
		if handler, ok := methods[req.Method]; ok {
			r.hits.Add(1)
			return handler(req)
		}
	}
	r.misses.Add(1)
	return r.notFound(req)
}

// Stats returns router statistics
func (r *Router) Stats() (hits, misses uint64, hitRate float64) {
	hits, misses = r.hits.Load(), r.misses.Load()
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}
	return hits, misses, hitRate
}
