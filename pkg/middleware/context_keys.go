// Package middleware holds what the HTTP middleware packages share: the
// request context keys read back by the loggers.
package middleware

import "context"

// ContextKey types request context keys set by middleware.
type ContextKey string

const (
	// RequestIDKey holds the X-Request-ID of the request.
	RequestIDKey ContextKey = "request_id"
	// UserIDKey holds the id of the user the bearer token was issued to.
	UserIDKey ContextKey = "user_id"
)

// LogFields returns the request_id and user_id key/value pairs present in
// ctx, ready to pass to Logger.With.
func LogFields(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}
	var fields []any
	for _, key := range []ContextKey{RequestIDKey, UserIDKey} {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			fields = append(fields, string(key), v)
		}
	}
	return fields
}
