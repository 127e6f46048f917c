package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSetup_Disabled(t *testing.T) {
	tp, shutdown, err := Setup(context.Background(), Config{ServiceName: "lmsynth-server"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tp == nil {
		t.Fatal("expected a provider even when disabled")
	}
	_, span := tp.Tracer("test").Start(context.Background(), "noop")
	if span.IsRecording() {
		t.Error("expected no-op span when tracing is disabled")
	}
	span.End()
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("unexpected shutdown error: %v", err)
	}
}

func TestResource_Attributes(t *testing.T) {
	res := Resource(Config{ServiceName: "lmsynth-server", ServiceVersion: "1.2.0", Environment: "test"})

	want := map[attribute.Key]string{
		"service.name":           "lmsynth-server",
		"service.version":        "1.2.0",
		"deployment.environment": "test",
	}
	for k, v := range want {
		got, ok := res.Set().Value(k)
		if !ok || got.AsString() != v {
			t.Errorf("expected %s=%s, got %v", k, v, got.AsString())
		}
	}
}

func TestNewProvider_RecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := NewProvider(Config{ServiceName: "lmsynth-server"}, sdktrace.WithSpanProcessor(recorder))
	defer tp.Shutdown(context.Background())

	_, span := tp.Tracer("test").Start(context.Background(), "work")
	span.End()

	if n := len(recorder.Ended()); n != 1 {
		t.Fatalf("expected 1 span, got %d", n)
	}
}

func TestSampler_Description(t *testing.T) {
	if d := Sampler(0).Description(); d == Sampler(0.25).Description() {
		t.Errorf("expected ratio sampler to differ from always-on, both %q", d)
	}
}
