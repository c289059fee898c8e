package observability

import (
	"context"
	"errors"

	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Telemetry bundles the instruments handed to the invoker.
type Telemetry struct {
	Tracer  trace.Tracer
	Metrics *InvocationMetrics

	shutdown []func(context.Context) error
}

// Setup initializes tracing and metrics from cfg. A disabled config yields
// no-op instruments.
func Setup(ctx context.Context, cfg Config) (*Telemetry, error) {
	if !cfg.Enabled {
		return Noop(), nil
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tp, err := InitTracer(ctx, cfg)
	if err != nil {
		return nil, err
	}
	mp, err := InitMeter(ctx, cfg)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}

	metrics, err := NewInvocationMetrics(mp.Meter(defaultTracerName))
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		return nil, err
	}

	return &Telemetry{
		Tracer:   tp.Tracer(defaultTracerName),
		Metrics:  metrics,
		shutdown: []func(context.Context) error{tp.Shutdown, mp.Shutdown},
	}, nil
}

// Noop returns telemetry that records nothing.
func Noop() *Telemetry {
	metrics, _ := NewInvocationMetrics(metricnoop.NewMeterProvider().Meter(defaultTracerName))
	return &Telemetry{
		Tracer:  tracenoop.NewTracerProvider().Tracer(defaultTracerName),
		Metrics: metrics,
	}
}

// Shutdown flushes and stops the providers created by Setup.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	for _, fn := range t.shutdown {
		errs = append(errs, fn(ctx))
	}
	return errors.Join(errs...)
}
