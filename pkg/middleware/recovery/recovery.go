// Package recovery turns handler panics into 500 responses.
package recovery

import (
	"fmt"
	"runtime/debug"

	"github.com/nimburion/taskboard/pkg/controller"
	"github.com/nimburion/taskboard/pkg/observability/logger"
	"github.com/nimburion/taskboard/pkg/server/router"
)

// Recovery recovers from panics, logs the panic value with its stack and
// answers with the standard internal error body unless a response was already started.
func Recovery(log logger.Logger) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}

				req := c.Request()
				log.WithContext(req.Context()).Error("panic recovered",
					"method", req.Method,
					"path", req.URL.Path,
					"panic", r,
					"stack", string(debug.Stack()),
				)

				if c.Response().Written() {
					return
				}
				err = controller.Error(c, controller.NewInternalError("an unexpected error occurred", fmt.Errorf("panic: %v", r)))
				if err != nil {
					log.Error("failed to send error response", "error", err)
				}
			}()

			return next(c)
		}
	}
}
