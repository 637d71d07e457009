// Package requestsize caps request bodies.
package requestsize

import (
	"net/http"
	"sort"
	"strings"

	"github.com/nimburion/taskboard/pkg/controller"
	"github.com/nimburion/taskboard/pkg/server/router"
)

// PathLimit overrides the body limit for requests under Prefix.
// A non-positive MaxBytes leaves those requests to the handler.
type PathLimit struct {
	Prefix   string
	MaxBytes int64
}

// Middleware enforces a maximum request body size in bytes.
// Requests that declare a larger Content-Length are rejected with 413 before
// the handler runs; undeclared bodies are wrapped in http.MaxBytesReader so
// reading past the limit fails inside the handler. A non-positive maxBytes
// disables the check.
func Middleware(maxBytes int64) router.MiddlewareFunc {
	return WithPathLimits(maxBytes)
}

// WithPathLimits is Middleware with per-prefix overrides. The longest matching prefix wins.
func WithPathLimits(maxBytes int64, overrides ...PathLimit) router.MiddlewareFunc {
	limits := append([]PathLimit(nil), overrides...)
	sort.SliceStable(limits, func(i, j int) bool { return len(limits[i].Prefix) > len(limits[j].Prefix) })

	limitFor := func(path string) int64 {
		for _, l := range limits {
			if strings.HasPrefix(path, l.Prefix) {
				return l.MaxBytes
			}
		}
		return maxBytes
	}

	return func(next router.HandlerFunc) router.HandlerFunc {
		if maxBytes <= 0 && len(limits) == 0 {
			return next
		}
		return func(c router.Context) error {
			req := c.Request()
			if req == nil || req.Body == nil || req.Body == http.NoBody {
				return next(c)
			}
			limit := limitFor(req.URL.Path)
			if limit <= 0 {
				return next(c)
			}

			if req.ContentLength > limit {
				return controller.Error(c, controller.NewPayloadTooLargeError(limit))
			}

			req.Body = http.MaxBytesReader(c.Response(), req.Body, limit)
			c.SetRequest(req)
			return next(c)
		}
	}
}
