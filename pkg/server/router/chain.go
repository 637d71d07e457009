package router

// Chain wraps h so that middleware[0] runs first.
func Chain(h HandlerFunc, middleware []MiddlewareFunc) HandlerFunc {
	for i := len(middleware) - 1; i >= 0; i-- {
		h = middleware[i](h)
	}
	return h
}

// Serve runs h on c. A handler that fails before writing anything gets the
// generic 500 body.
func Serve(c Context, h HandlerFunc) {
	if err := h(c); err != nil && !c.Response().Written() {
		WriteUnhandledError(c.Response())
	}
}
