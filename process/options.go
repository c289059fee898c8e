package process

import (
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/procinvoke/logger"
	"github.com/kbukum/procinvoke/observability"
	"github.com/kbukum/procinvoke/resilience"
)

// InvokerOption configures an Invoker.
type InvokerOption func(*Invoker)

// WithResolver replaces the default PathResolver.
func WithResolver(r ExecutableResolver) InvokerOption {
	return func(inv *Invoker) { inv.resolver = r }
}

// WithPipeHandler replaces the default EncodingPipeHandler.
func WithPipeHandler(h PipeHandler) InvokerOption {
	return func(inv *Invoker) { inv.pipes = h }
}

// WithLogger sets the invoker's logger.
func WithLogger(l *logger.Logger) InvokerOption {
	return func(inv *Invoker) { inv.log = l }
}

// WithMetrics records invocation metrics into m.
func WithMetrics(m *observability.InvocationMetrics) InvokerOption {
	return func(inv *Invoker) { inv.metrics = m }
}

// WithTracer wraps each invocation in a span from t.
func WithTracer(t trace.Tracer) InvokerOption {
	return func(inv *Invoker) { inv.tracer = t }
}

// WithTelemetry sets both the tracer and the metrics of t.
func WithTelemetry(t *observability.Telemetry) InvokerOption {
	return func(inv *Invoker) {
		if t == nil {
			return
		}
		inv.tracer = t.Tracer
		inv.metrics = t.Metrics
	}
}

// WithStartRetry retries transient start failures with cfg.
func WithStartRetry(cfg resilience.RetryConfig) InvokerOption {
	return func(inv *Invoker) { inv.startRetry = cfg }
}

// WithObserver registers o to be told about every finished invocation.
func WithObserver(o Observer) InvokerOption {
	return func(inv *Invoker) {
		if o != nil {
			inv.observers = append(inv.observers, o)
		}
	}
}

// WithConcurrencyLimit bounds the number of processes running at once.
func WithConcurrencyLimit(l *resilience.Limiter) InvokerOption {
	return func(inv *Invoker) { inv.limiter = l }
}

// WithSearchScope sets the directories searched for bare executable names.
func WithSearchScope(s SearchScope) InvokerOption {
	return func(inv *Invoker) { inv.scope = s }
}

// WithWaitOptions overrides the timeout escalation timings.
func WithWaitOptions(o WaitOptions) InvokerOption {
	return func(inv *Invoker) { inv.wait = o }
}

// withLenientResourcePolicy logs resource-policy failures instead of
// returning them. Only Run uses it.
func withLenientResourcePolicy() InvokerOption {
	return func(inv *Invoker) { inv.lenientResourcePolicy = true }
}
