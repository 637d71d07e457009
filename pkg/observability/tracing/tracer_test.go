package tracing

import (
	"context"
	"strings"
	"testing"
)

func TestNewTracerProvider_Disabled(t *testing.T) {
	provider, err := NewTracerProvider(context.Background(), TracerConfig{ServiceName: "taskboard"})
	if err != nil {
		t.Fatalf("expected no error for disabled tracing, got: %v", err)
	}
	if provider.Enabled() {
		t.Fatal("provider should report disabled")
	}

	_, span := provider.Tracer("test").Start(context.Background(), "noop")
	if span.SpanContext().IsSampled() {
		t.Fatal("disabled provider must not sample")
	}
	span.End()

	if err := provider.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestNewTracerProvider_ValidationErrors(t *testing.T) {
	tests := []struct {
		name        string
		config      TracerConfig
		expectedErr string
	}{
		{
			name:        "missing service name",
			config:      TracerConfig{Enabled: true, Endpoint: "localhost:4317"},
			expectedErr: "service name is required",
		},
		{
			name:        "missing endpoint",
			config:      TracerConfig{Enabled: true, ServiceName: "taskboard"},
			expectedErr: "OTLP endpoint is required",
		},
		{
			name:        "negative sample rate",
			config:      TracerConfig{Enabled: true, ServiceName: "taskboard", Endpoint: "localhost:4317", SampleRate: -0.1},
			expectedErr: "sample rate must be between 0 and 1",
		},
		{
			name:        "sample rate above one",
			config:      TracerConfig{Enabled: true, ServiceName: "taskboard", Endpoint: "localhost:4317", SampleRate: 1.5},
			expectedErr: "sample rate must be between 0 and 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTracerProvider(context.Background(), tt.config)
			if err == nil || !strings.Contains(err.Error(), tt.expectedErr) {
				t.Fatalf("expected error containing %q, got %v", tt.expectedErr, err)
			}
		})
	}
}

func TestNewTracerProvider_Enabled(t *testing.T) {
	// the gRPC exporter connects lazily, so no collector is needed
	provider, err := NewTracerProvider(context.Background(), TracerConfig{
		Enabled:     true,
		ServiceName: "taskboard",
		Endpoint:    "localhost:4317",
		SampleRate:  1,
		Insecure:    true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !provider.Enabled() {
		t.Fatal("provider should report enabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = provider.Shutdown(ctx)
}
