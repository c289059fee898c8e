package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/procinvoke/component"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("procinvoke")
	if cfg.ServiceName != "procinvoke" {
		t.Errorf("expected ServiceName 'procinvoke', got %s", cfg.ServiceName)
	}
	if cfg.Endpoint != "localhost:4318" {
		t.Errorf("expected Endpoint 'localhost:4318', got %s", cfg.Endpoint)
	}
	if cfg.Interval != 15*time.Second {
		t.Errorf("expected Interval 15s, got %v", cfg.Interval)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestConfigValidateSampleRate(t *testing.T) {
	cfg := DefaultConfig("procinvoke")
	cfg.SampleRate = 1.5
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for sample rate above 1")
	}
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumInt64(t *testing.T, data metricdata.Aggregation) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected Sum[int64], got %T", data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestInvocationMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	metrics, err := NewInvocationMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewInvocationMetrics: %v", err)
	}

	ctx := context.Background()
	metrics.InvocationStarted(ctx, "/bin/sleep")
	metrics.TerminationSent(ctx, "/bin/sleep", "sigterm")
	metrics.TerminationSent(ctx, "/bin/sleep", "kill")
	metrics.InvocationFinished(ctx, "/bin/sleep", "timed_out_graceful", false, 2*time.Second)

	data := collect(t, reader)
	if got := sumInt64(t, data["process.invocations"]); got != 1 {
		t.Errorf("expected 1 invocation, got %d", got)
	}
	if got := sumInt64(t, data["process.active"]); got != 0 {
		t.Errorf("expected 0 active, got %d", got)
	}
	if got := sumInt64(t, data["process.terminations"]); got != 2 {
		t.Errorf("expected 2 terminations, got %d", got)
	}
	hist, ok := data["process.duration"].(metricdata.Histogram[float64])
	if !ok || len(hist.DataPoints) != 1 || hist.DataPoints[0].Count != 1 {
		t.Errorf("expected one duration sample, got %+v", data["process.duration"])
	}
}

func TestInvocationMetricsNilReceiver(t *testing.T) {
	var m *InvocationMetrics
	ctx := context.Background()
	m.InvocationStarted(ctx, "x")
	m.TerminationSent(ctx, "x", "kill")
	m.InvocationFinished(ctx, "x", "completed", true, time.Millisecond)
}

func TestInvocationSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := StartInvocationSpan(context.Background(), tp.Tracer("test"), "/bin/echo", "hello")
	AddSpanEvent(ctx, "signal", attribute.String(AttrStage, "sigterm"))
	EndInvocationSpan(span, 1234, 7, "completed", errors.New("exit code 7"))

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	s := spans[0]
	if s.Name() != SpanInvoke {
		t.Errorf("expected span %q, got %q", SpanInvoke, s.Name())
	}
	if s.Status().Code != otelcodes.Error {
		t.Errorf("expected error status, got %v", s.Status())
	}
	if len(s.Events()) < 2 {
		t.Errorf("expected signal and exception events, got %d", len(s.Events()))
	}

	attrs := make(map[attribute.Key]attribute.Value)
	for _, kv := range s.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	if attrs[AttrExecutable].AsString() != "/bin/echo" {
		t.Errorf("missing executable attribute: %v", attrs)
	}
	if attrs[AttrPID].AsInt64() != 1234 || attrs[AttrExitCode].AsInt64() != 7 {
		t.Errorf("missing pid/exit code attributes: %v", attrs)
	}
}

func TestSetupDisabledIsNoop(t *testing.T) {
	tel, err := Setup(context.Background(), Config{Enabled: false})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if tel.Tracer == nil || tel.Metrics == nil {
		t.Fatal("expected no-op instruments")
	}
	_, span := StartInvocationSpan(context.Background(), tel.Tracer, "x", "")
	if span.IsRecording() {
		t.Error("no-op span should not record")
	}
	span.End()
	if err := tel.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}

func TestSamplerFor(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1.0, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
	}
	for _, tc := range tests {
		if got := samplerFor(tc.rate).Description(); got != tc.want {
			t.Errorf("samplerFor(%v) = %q, want %q", tc.rate, got, tc.want)
		}
	}
}

func TestComponentDisabledIsDegraded(t *testing.T) {
	c := NewComponent(Config{Enabled: false})
	ctx := context.Background()

	if h := c.Health(ctx); h.Status != component.StatusStopped {
		t.Fatalf("expected stopped, got %+v", h)
	}
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if c.Telemetry() == nil || c.Telemetry().Tracer == nil {
		t.Fatal("expected no-op telemetry")
	}
	if h := c.Health(ctx); h.Status != component.StatusDegraded {
		t.Fatalf("expected degraded, got %+v", h)
	}
	if err := c.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if c.Telemetry() != nil {
		t.Fatal("expected telemetry to be released")
	}
}
