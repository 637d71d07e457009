// Package logger is the structured logging facade used across taskboard.
package logger

import "context"

// Logger accepts a message followed by alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	// With returns a child logger that adds the key/value pairs to every entry.
	With(args ...any) Logger

	// WithContext returns a child logger tagged with the request ID carried by ctx.
	WithContext(ctx context.Context) Logger
}
