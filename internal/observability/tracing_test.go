package observability

import (
	"context"
	"testing"
)

func TestTracingConfigFromEnv(t *testing.T) {
	t.Setenv("ORRERY_TRACING_ENABLED", "true")
	t.Setenv("ORRERY_TRACING_EXPORTER", "OTLP")
	t.Setenv("ORRERY_TRACING_OTLP_ENDPOINT", "collector:4317")
	t.Setenv("ORRERY_TRACING_SAMPLE_RATIO", "0.25")

	cfg := TracingConfigFromEnv()
	want := TracingConfig{Enabled: true, ServiceName: "orrery", Exporter: "otlp", Endpoint: "collector:4317", SampleRatio: 0.25}
	if cfg != want {
		t.Fatalf("TracingConfigFromEnv() = %+v, want %+v", cfg, want)
	}
}

func TestTracingConfigClampsRatio(t *testing.T) {
	t.Setenv("ORRERY_TRACING_SAMPLE_RATIO", "7")
	if got := TracingConfigFromEnv().SampleRatio; got != 1 {
		t.Fatalf("SampleRatio = %v, want 1", got)
	}
}

func TestInitTracingDisabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), TracingConfig{}, nil)
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	_, span := Tracer().Start(context.Background(), "noop")
	if span.SpanContext().IsSampled() {
		t.Fatal("disabled tracing sampled a span")
	}
	span.End()
}

func TestInitTracingRejectsUnknownExporter(t *testing.T) {
	if _, err := InitTracing(context.Background(), TracingConfig{Enabled: true, Exporter: "carrier-pigeon"}, nil); err == nil {
		t.Fatal("expected an error for an unknown exporter")
	}
}
