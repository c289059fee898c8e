package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/procinvoke/logger"
)

// InitMeter initializes the OTLP meter provider and installs it globally.
// The returned provider must be shut down on exit.
func InitMeter(ctx context.Context, cfg Config) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.Interval))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", cfg.ServiceName,
		"endpoint", cfg.Endpoint,
		"interval", cfg.Interval.String(),
	))
	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Attribute keys shared by metrics and spans.
const (
	AttrExecutable = "process.executable.path"
	AttrPID        = "process.pid"
	AttrExitCode   = "process.exit.code"
	AttrOutcome    = "process.outcome"
	AttrSuccess    = "process.success"
	AttrStage      = "process.termination.stage"
	AttrArguments  = "process.command_args"
)

// InvocationMetrics holds the instruments recorded by the invoker.
// All methods are safe to call on a nil receiver.
type InvocationMetrics struct {
	invocations  metric.Int64Counter
	duration     metric.Float64Histogram
	active       metric.Int64UpDownCounter
	terminations metric.Int64Counter
}

// NewInvocationMetrics creates the invocation instruments on meter.
func NewInvocationMetrics(meter metric.Meter) (*InvocationMetrics, error) {
	invocations, err := meter.Int64Counter("process.invocations",
		metric.WithDescription("Completed process invocations by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating process.invocations counter: %w", err)
	}

	duration, err := meter.Float64Histogram("process.duration",
		metric.WithDescription("Wall time between process start and exit"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating process.duration histogram: %w", err)
	}

	active, err := meter.Int64UpDownCounter("process.active",
		metric.WithDescription("Number of child processes currently running"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating process.active counter: %w", err)
	}

	terminations, err := meter.Int64Counter("process.terminations",
		metric.WithDescription("Termination requests sent to child processes by stage"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating process.terminations counter: %w", err)
	}

	return &InvocationMetrics{
		invocations:  invocations,
		duration:     duration,
		active:       active,
		terminations: terminations,
	}, nil
}

// InvocationStarted increments the active process count.
func (m *InvocationMetrics) InvocationStarted(ctx context.Context, executable string) {
	if m == nil {
		return
	}
	m.active.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrExecutable, executable)))
}

// InvocationFinished decrements the active count and records the outcome.
func (m *InvocationMetrics) InvocationFinished(ctx context.Context, executable, outcome string, success bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	exe := attribute.String(AttrExecutable, executable)
	m.active.Add(ctx, -1, metric.WithAttributes(exe))
	m.invocations.Add(ctx, 1, metric.WithAttributes(
		exe,
		attribute.String(AttrOutcome, outcome),
		attribute.Bool(AttrSuccess, success),
	))
	m.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(exe, attribute.String(AttrOutcome, outcome)))
}

// TerminationSent records one termination request (sigterm, sigint, ctrl_c, kill).
func (m *InvocationMetrics) TerminationSent(ctx context.Context, executable, stage string) {
	if m == nil {
		return
	}
	m.terminations.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrExecutable, executable),
		attribute.String(AttrStage, stage),
	))
}
