// Package observability wires OpenTelemetry tracing and metrics for process
// invocations.
//
//	tel, err := observability.Setup(ctx, cfg)
//	defer tel.Shutdown(ctx)
//
//	inv := process.NewInvoker(
//	    process.WithMetrics(tel.Metrics),
//	    process.WithTracer(tel.Tracer),
//	)
//
// When Config.Enabled is false Setup returns no-op providers, so callers
// never need to branch on whether telemetry is configured.
package observability
