// Package tracing starts a server span for every request.
package tracing

import (
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/nimburion/taskboard/pkg/auth"
	"github.com/nimburion/taskboard/pkg/middleware/requestid"
	"github.com/nimburion/taskboard/pkg/observability/metrics"
	"github.com/nimburion/taskboard/pkg/server/router"
)

// Config holds configuration for the tracing middleware.
type Config struct {
	// TracerName identifies the tracer. Defaults to "taskboard/http".
	TracerName string

	// SpanNameFormatter names the span. Defaults to "HTTP {method} {route}",
	// where ids in the path are replaced by placeholders.
	SpanNameFormatter func(router.Context) string

	// ExcludedPathPrefixes disables tracing for matching path prefixes.
	ExcludedPathPrefixes []string
}

// Tracing extracts the incoming trace context, starts a server span and puts
// the span context on the request for the layers below.
func Tracing(cfg Config) router.MiddlewareFunc {
	if cfg.TracerName == "" {
		cfg.TracerName = "taskboard/http"
	}
	if cfg.SpanNameFormatter == nil {
		cfg.SpanNameFormatter = defaultSpanNameFormatter
	}

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			req := c.Request()
			for _, prefix := range cfg.ExcludedPathPrefixes {
				if strings.HasPrefix(req.URL.Path, prefix) {
					return next(c)
				}
			}

			ctx := otel.GetTextMapPropagator().Extract(req.Context(), propagation.HeaderCarrier(req.Header))
			ctx, span := otel.Tracer(cfg.TracerName).Start(ctx, cfg.SpanNameFormatter(c), trace.WithSpanKind(trace.SpanKindServer))
			defer span.End()

			span.SetAttributes(
				attribute.String("http.method", req.Method),
				attribute.String("http.route", metrics.NormalizePath(req.URL.Path)),
				attribute.String("http.target", req.URL.Path),
				attribute.String("http.user_agent", req.UserAgent()),
			)
			if id := requestid.GetRequestID(req.Context()); id != "" {
				span.SetAttributes(attribute.String("request.id", id))
			}

			c.SetRequest(req.WithContext(ctx))

			err := next(c)

			// authentication runs inside this middleware, so claims are only known now
			if claims := auth.GetClaims(c.Request().Context()); claims != nil {
				span.SetAttributes(attribute.String("enduser.id", claims.UserID))
			}

			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return err
			}

			status := c.Response().Status()
			span.SetAttributes(attribute.Int("http.status_code", status))
			if status >= 500 {
				span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", status))
			} else {
				span.SetStatus(codes.Ok, "")
			}
			return nil
		}
	}
}

func defaultSpanNameFormatter(c router.Context) string {
	return fmt.Sprintf("HTTP %s %s", c.Request().Method, metrics.NormalizePath(c.Request().URL.Path))
}
