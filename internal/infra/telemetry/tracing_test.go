package telemetry

import (
	"context"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/DrynaaCode/vegedex-v2-tsc/internal/infra/config"
)

func TestNewTracerProviderWithoutExporter(t *testing.T) {
	tp, err := NewTracerProvider(context.Background(), config.TelemetrySettings{
		ServiceName:  "vegedex-api",
		SamplingRate: 1,
	}, "test", zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewTracerProvider returned error: %v", err)
	}

	_, span := tp.Tracer("test").Start(context.Background(), "op")
	if !span.SpanContext().IsValid() {
		t.Fatal("expected sampled span with a valid context")
	}
	span.End()

	if err := tp.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown returned error: %v", err)
	}
}
