// Package router is the routing layer the board API is written against.
// Handlers see only Router and Context, so the same routes run on net/http,
// gin or gorilla/mux depending on router_type.
package router

import (
	"io"
	"net/http"
)

// Router registers routes. Paths use :name segments (/boards/:boardId).
type Router interface {
	GET(path string, handler HandlerFunc, middleware ...MiddlewareFunc)
	POST(path string, handler HandlerFunc, middleware ...MiddlewareFunc)
	PUT(path string, handler HandlerFunc, middleware ...MiddlewareFunc)
	DELETE(path string, handler HandlerFunc, middleware ...MiddlewareFunc)
	PATCH(path string, handler HandlerFunc, middleware ...MiddlewareFunc)

	// Group shares a path prefix and middleware between routes.
	Group(prefix string, middleware ...MiddlewareFunc) Router

	// Use appends global middleware. Routes registered before the call
	// are not guaranteed to see it.
	Use(middleware ...MiddlewareFunc)

	ServeHTTP(w http.ResponseWriter, r *http.Request)
}

// HandlerFunc handles one request. A returned error with nothing written
// becomes a generic 500.
type HandlerFunc func(Context) error

// MiddlewareFunc wraps a handler.
type MiddlewareFunc func(HandlerFunc) HandlerFunc

// Context is one request/response exchange.
type Context interface {
	Request() *http.Request
	SetRequest(r *http.Request)

	Response() ResponseWriter
	SetResponse(w ResponseWriter)

	// Param returns a path parameter, "" when absent.
	Param(name string) string
	// Query returns the first value of a query parameter.
	Query(name string) string

	// Bind decodes a JSON request body into v.
	Bind(v interface{}) error

	JSON(code int, v interface{}) error
	String(code int, s string) error
	// NoContent writes only the status line, e.g. 204 after a delete.
	NoContent(code int) error
	// Stream copies body to the response with the given content type.
	Stream(code int, contentType string, body io.Reader) error

	Get(key string) interface{}
	Set(key string, value interface{})
}

// ResponseWriter remembers the status so middleware can log and count it.
type ResponseWriter interface {
	http.ResponseWriter

	// Status is the written status, 200 before anything is written.
	Status() int
	Written() bool
}
