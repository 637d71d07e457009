// Package requestid assigns every request an identifier that is echoed in the response and carried in the request context.
package requestid

import (
	"context"

	"github.com/nimburion/taskboard/pkg/identifier"
	"github.com/nimburion/taskboard/pkg/middleware"
	"github.com/nimburion/taskboard/pkg/server/router"
)

// RequestIDHeader is the HTTP header name for request ID.
const RequestIDHeader = "X-Request-ID"

// maxInboundLength bounds client supplied ids so they cannot flood log lines.
const maxInboundLength = 128

type options struct {
	ids identifier.Generator
}

// Option customizes the RequestID middleware.
type Option func(*options)

// WithGenerator replaces the UUID generator used for new ids.
func WithGenerator(g identifier.Generator) Option {
	return func(o *options) {
		if g != nil {
			o.ids = g
		}
	}
}

// RequestID reuses a well-formed inbound X-Request-ID or generates a new one.
// The id is stored in the router context, the request context and the response header.
func RequestID(opts ...Option) router.MiddlewareFunc {
	o := options{ids: identifier.UUID{}}
	for _, opt := range opts {
		opt(&o)
	}

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			requestID := c.Request().Header.Get(RequestIDHeader)
			if !acceptable(requestID) {
				requestID = o.ids.Generate()
			}

			c.Set(string(middleware.RequestIDKey), requestID)
			c.Response().Header().Set(RequestIDHeader, requestID)

			ctx := context.WithValue(c.Request().Context(), middleware.RequestIDKey, requestID)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

func acceptable(id string) bool {
	if id == "" || len(id) > maxInboundLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}

// GetRequestID extracts the request ID from a context.
// Returns empty string if no request ID is found.
func GetRequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if requestID, ok := ctx.Value(middleware.RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}
