package http

import (
	"net/http"
	"strings"
)

type Handler func(req *Request, res *Response)

// Router keeps routes in registration order. Registration must be finished
// before the server starts dispatching; matching only reads the table.
type Router struct {
	Routes     []Route
	Middleware []Middleware
}

func NewRouter() Router {
	return Router{
		Routes: make([]Route, 0),
	}
}

// Use adds middleware applied to every route registered afterwards.
func (router *Router) Use(middleware ...Middleware) {
	router.Middleware = append(router.Middleware, middleware...)
}

func (router *Router) GET(path string, handler Handler, middleware ...Middleware) error {
	return router.Add(http.MethodGet, path, handler, middleware...)
}

func (router *Router) HEAD(path string, handler Handler, middleware ...Middleware) error {
	return router.Add(http.MethodHead, path, handler, middleware...)
}

func (router *Router) POST(path string, handler Handler, middleware ...Middleware) error {
	return router.Add(http.MethodPost, path, handler, middleware...)
}

func (router *Router) PUT(path string, handler Handler, middleware ...Middleware) error {
	return router.Add(http.MethodPut, path, handler, middleware...)
}

func (router *Router) PATCH(path string, handler Handler, middleware ...Middleware) error {
	return router.Add(http.MethodPatch, path, handler, middleware...)
}

func (router *Router) DELETE(path string, handler Handler, middleware ...Middleware) error {
	return router.Add(http.MethodDelete, path, handler, middleware...)
}

func (router *Router) OPTIONS(path string, handler Handler, middleware ...Middleware) error {
	return router.Add(http.MethodOptions, path, handler, middleware...)
}

// Any registers the handler for each of the given methods and stops at the
// first invalid registration.
func (router *Router) Any(methods []string, path string, handler Handler, middleware ...Middleware) error {
	for _, method := range methods {
		if err := router.Add(method, path, handler, middleware...); err != nil {
			return err
		}
	}
	return nil
}

// Add compiles pattern and appends the route. An invalid pattern is
// reported and the route is not added.
func (router *Router) Add(method, pattern string, handler Handler, middleware ...Middleware) error {
	segments, score, err := compilePattern(pattern)
	if err != nil {
		return err
	}

	for _, middleware := range middleware {
		handler = middleware(handler)
	}
	for _, middleware := range router.Middleware {
		handler = middleware(handler)
	}

	router.Routes = append(router.Routes, Route{
		Method:   method,
		Pattern:  pattern,
		Segments: segments,
		Score:    score,
		Handler:  handler,
	})

	return nil
}

// Group registers the routes added by groupFunc below path.
func (router *Router) Group(path string, groupFunc func(group *Router), middlewareList ...Middleware) error {
	group := NewRouter()

	groupFunc(&group)

	for _, route := range group.Routes {
		if err := router.Add(route.Method, strings.TrimRight(path, "/")+"/"+strings.TrimLeft(route.Pattern, "/"), route.Handler, middlewareList...); err != nil {
			return err
		}
	}

	return nil
}

// Match returns the highest scoring route for method and the normalized
// path segments. Equal scores keep the earliest registration.
func (router *Router) Match(method string, segments []string) (*Route, Params, bool) {
	var best *Route
	for i := range router.Routes {
		route := &router.Routes[i]
		if route.Method != method || !route.matches(segments) {
			continue
		}
		if best == nil || route.Score > best.Score {
			best = route
		}
	}

	if best == nil {
		return nil, nil, false
	}

	return best, best.params(segments), true
}
