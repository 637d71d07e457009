// Package nethttp is the default router: a plain http.Handler with a
// segment matcher and no third-party dependency.
package nethttp

import (
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/nimburion/taskboard/pkg/server/router"
)

// NetHTTPRouter implements router.Router using net/http and a segment matcher.
// Routes are tried in registration order; the first match wins.
type NetHTTPRouter struct {
	routes     *[]route
	middleware []router.MiddlewareFunc
	prefix     string
	mu         *sync.RWMutex
}

type route struct {
	method     string
	pattern    string
	handler    router.HandlerFunc
	middleware []router.MiddlewareFunc
}

// NewRouter creates a new NetHTTPRouter.
func NewRouter() *NetHTTPRouter {
	routes := make([]route, 0)
	return &NetHTTPRouter{
		routes: &routes,
		mu:     &sync.RWMutex{},
	}
}

func (r *NetHTTPRouter) GET(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.addRoute(http.MethodGet, path, handler, middleware)
}

func (r *NetHTTPRouter) POST(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.addRoute(http.MethodPost, path, handler, middleware)
}

func (r *NetHTTPRouter) PUT(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.addRoute(http.MethodPut, path, handler, middleware)
}

func (r *NetHTTPRouter) DELETE(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.addRoute(http.MethodDelete, path, handler, middleware)
}

func (r *NetHTTPRouter) PATCH(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.addRoute(http.MethodPatch, path, handler, middleware)
}

// Group creates a route group with common prefix and middleware.
func (r *NetHTTPRouter) Group(prefix string, middleware ...router.MiddlewareFunc) router.Router {
	r.mu.RLock()
	combined := append(append([]router.MiddlewareFunc{}, r.middleware...), middleware...)
	r.mu.RUnlock()
	return &NetHTTPRouter{
		routes:     r.routes,
		middleware: combined,
		prefix:     r.prefix + prefix,
		mu:         r.mu,
	}
}

// Use applies middleware to all routes.
func (r *NetHTTPRouter) Use(middleware ...router.MiddlewareFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middleware = append(r.middleware, middleware...)
}

// ServeHTTP implements http.Handler.
func (r *NetHTTPRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rt := range *r.routes {
		if rt.method != req.Method {
			continue
		}
		params, ok := matchRoute(rt.pattern, req.URL.Path)
		if !ok {
			continue
		}

		router.Serve(newContext(w, req, params), router.Chain(rt.handler, rt.middleware))
		return
	}

	router.WriteNotFound(w)
}

func (r *NetHTTPRouter) addRoute(method, path string, handler router.HandlerFunc, middleware []router.MiddlewareFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	allMiddleware := append([]router.MiddlewareFunc{}, r.middleware...)
	allMiddleware = append(allMiddleware, middleware...)

	*r.routes = append(*r.routes, route{
		method:     method,
		pattern:    r.prefix + path,
		handler:    handler,
		middleware: allMiddleware,
	})
}

// matchRoute checks if a pattern such as /boards/:boardId/tasks/:taskId matches
// a path and extracts its parameters. Empty parameter segments never match.
func matchRoute(pattern, path string) (map[string]string, bool) {
	patternParts := strings.Split(strings.Trim(pattern, "/"), "/")
	pathParts := strings.Split(strings.Trim(path, "/"), "/")

	if len(patternParts) != len(pathParts) {
		return nil, false
	}

	params := make(map[string]string)
	for i, part := range patternParts {
		if strings.HasPrefix(part, ":") {
			if pathParts[i] == "" {
				return nil, false
			}
			params[part[1:]] = pathParts[i]
		} else if part != pathParts[i] {
			return nil, false
		}
	}

	return params, true
}

// netHTTPContext implements router.Context.
type netHTTPContext struct {
	request  *http.Request
	response router.ResponseWriter
	params   map[string]string
	store    map[string]interface{}
	mu       sync.RWMutex
}

func newContext(w http.ResponseWriter, r *http.Request, params map[string]string) *netHTTPContext {
	return &netHTTPContext{
		request:  r,
		response: router.NewResponseWriter(w),
		params:   params,
		store:    make(map[string]interface{}),
	}
}

func (c *netHTTPContext) Request() *http.Request {
	return c.request
}

func (c *netHTTPContext) SetRequest(r *http.Request) {
	c.request = r
}

func (c *netHTTPContext) Response() router.ResponseWriter {
	return c.response
}

func (c *netHTTPContext) SetResponse(w router.ResponseWriter) {
	c.response = w
}

func (c *netHTTPContext) Param(name string) string {
	return c.params[name]
}

func (c *netHTTPContext) Query(name string) string {
	return c.request.URL.Query().Get(name)
}

func (c *netHTTPContext) Bind(v interface{}) error {
	return router.BindJSON(c.request, v)
}

func (c *netHTTPContext) JSON(code int, v interface{}) error {
	return router.WriteJSON(c.response, code, v)
}

func (c *netHTTPContext) String(code int, s string) error {
	return router.WriteText(c.response, code, s)
}

func (c *netHTTPContext) NoContent(code int) error {
	c.response.WriteHeader(code)
	return nil
}

func (c *netHTTPContext) Stream(code int, contentType string, body io.Reader) error {
	return router.WriteStream(c.response, code, contentType, body)
}

func (c *netHTTPContext) Get(key string) interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store[key]
}

func (c *netHTTPContext) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = value
}
