package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Operation names used for store spans.
const (
	OpFind   = "find"
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
	OpTx     = "transaction"
	OpSave   = "save"
	OpOpen   = "open"
)

// StartStoreSpan starts a client span for a document or relational store call.
// The span is named "<system> <operation> <collection>".
func StartStoreSpan(ctx context.Context, system, operation, collection string) (context.Context, trace.Span) {
	name := fmt.Sprintf("%s %s", system, operation)
	attrs := []attribute.KeyValue{
		attribute.String("db.system", system),
		attribute.String("db.operation", operation),
	}
	if collection != "" {
		name += " " + collection
		attrs = append(attrs, attribute.String("db.collection", collection))
	}

	ctx, span := otel.Tracer("taskboard/store").Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(attrs...)
	return ctx, span
}

// StartFileSpan starts a span for an upload or download against a file backend.
func StartFileSpan(ctx context.Context, backend, operation, filename string) (context.Context, trace.Span) {
	ctx, span := otel.Tracer("taskboard/files").Start(ctx, "files "+operation, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("files.backend", backend),
		attribute.String("files.name", filename),
	)
	return ctx, span
}

// End records err on span when it is non-nil, sets the status and ends the span.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
