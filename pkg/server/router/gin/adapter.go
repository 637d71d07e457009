// Package gin serves the board API on a gin engine (router_type: gin).
package gin

import (
	"io"
	"net/http"
	"sync"

	ginpkg "github.com/gin-gonic/gin"
	"github.com/nimburion/taskboard/pkg/server/router"
)

// GinRouter maps router.Router onto a gin engine. Global middleware is
// bound into each route when the route is registered.
type GinRouter struct {
	engine     *ginpkg.Engine
	group      *ginpkg.RouterGroup
	middleware []router.MiddlewareFunc
	mu         *sync.RWMutex
}

// NewRouter creates a GinRouter in release mode. Method mismatches are
// answered like unknown paths.
func NewRouter() *GinRouter {
	ginpkg.SetMode(ginpkg.ReleaseMode)
	engine := ginpkg.New()
	engine.HandleMethodNotAllowed = false
	engine.NoRoute(func(gc *ginpkg.Context) {
		router.WriteNotFound(gc.Writer)
	})
	return &GinRouter{
		engine: engine,
		mu:     &sync.RWMutex{},
	}
}

func (r *GinRouter) GET(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.handle(http.MethodGet, path, handler, middleware)
}

func (r *GinRouter) POST(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.handle(http.MethodPost, path, handler, middleware)
}

func (r *GinRouter) PUT(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.handle(http.MethodPut, path, handler, middleware)
}

func (r *GinRouter) DELETE(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.handle(http.MethodDelete, path, handler, middleware)
}

func (r *GinRouter) PATCH(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.handle(http.MethodPatch, path, handler, middleware)
}

// Group creates a route group with common prefix and middleware.
func (r *GinRouter) Group(prefix string, middleware ...router.MiddlewareFunc) router.Router {
	r.mu.RLock()
	combined := append([]router.MiddlewareFunc{}, r.middleware...)
	r.mu.RUnlock()
	combined = append(combined, middleware...)

	var group *ginpkg.RouterGroup
	if r.group == nil {
		group = r.engine.Group(prefix)
	} else {
		group = r.group.Group(prefix)
	}

	return &GinRouter{
		engine:     r.engine,
		group:      group,
		middleware: combined,
		mu:         r.mu,
	}
}

// Use applies middleware to all routes.
func (r *GinRouter) Use(middleware ...router.MiddlewareFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middleware = append(r.middleware, middleware...)
}

// ServeHTTP implements http.Handler.
func (r *GinRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.engine.ServeHTTP(w, req)
}

func (r *GinRouter) handle(method, path string, h router.HandlerFunc, routeMiddleware []router.MiddlewareFunc) {
	r.mu.RLock()
	chain := append(append([]router.MiddlewareFunc{}, r.middleware...), routeMiddleware...)
	r.mu.RUnlock()
	handler := router.Chain(h, chain)

	ginHandler := func(gc *ginpkg.Context) {
		router.Serve(newContext(gc), handler)
	}

	if r.group != nil {
		r.group.Handle(method, path, ginHandler)
		return
	}
	r.engine.Handle(method, path, ginHandler)
}

// ginContext adapts gin.Context to router.Context.
type ginContext struct {
	ctx      *ginpkg.Context
	response router.ResponseWriter
}

func newContext(c *ginpkg.Context) *ginContext {
	return &ginContext{ctx: c, response: router.NewResponseWriter(c.Writer)}
}

func (c *ginContext) Request() *http.Request {
	return c.ctx.Request
}

func (c *ginContext) SetRequest(r *http.Request) {
	c.ctx.Request = r
}

func (c *ginContext) Response() router.ResponseWriter {
	return c.response
}

func (c *ginContext) SetResponse(w router.ResponseWriter) {
	c.response = w
}

func (c *ginContext) Param(name string) string {
	return c.ctx.Param(name)
}

func (c *ginContext) Query(name string) string {
	return c.ctx.Query(name)
}

// Bind decodes the JSON body.
func (c *ginContext) Bind(v interface{}) error {
	return router.BindJSON(c.ctx.Request, v)
}

// JSON goes through the tracked writer, not gin's renderer, so Status
// and Written stay accurate for middleware.
func (c *ginContext) JSON(code int, v interface{}) error {
	return router.WriteJSON(c.response, code, v)
}

func (c *ginContext) String(code int, s string) error {
	return router.WriteText(c.response, code, s)
}

func (c *ginContext) NoContent(code int) error {
	c.response.WriteHeader(code)
	return nil
}

func (c *ginContext) Stream(code int, contentType string, body io.Reader) error {
	return router.WriteStream(c.response, code, contentType, body)
}

// Get reads gin's per-request key store, shared with native gin middleware.
func (c *ginContext) Get(key string) interface{} {
	v, ok := c.ctx.Get(key)
	if !ok {
		return nil
	}
	return v
}

func (c *ginContext) Set(key string, value interface{}) {
	c.ctx.Set(key, value)
}
