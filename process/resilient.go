package process

import (
	"context"

	apperrors "github.com/kbukum/procinvoke/errors"
	"github.com/kbukum/procinvoke/resilience"
)

// Runner runs commands with retries and an optional concurrency limit.
// Only retryable errors are retried: transient start failures and timeouts.
// A process that ran and failed validation is never run again.
type Runner struct {
	retry   resilience.RetryConfig
	limiter *resilience.Limiter
	opts    []InvokerOption
}

// NewRunner creates a Runner. A zero RetryConfig runs each command once.
func NewRunner(retry resilience.RetryConfig, limiter *resilience.Limiter, opts ...InvokerOption) *Runner {
	if retry.MaxAttempts == 0 {
		retry = resilience.NoRetry()
	}
	return &Runner{retry: retry, limiter: limiter, opts: opts}
}

// Run executes cmd through the retry policy.
func (r *Runner) Run(ctx context.Context, cmd Command) (*BufferedResult, error) {
	if r.limiter != nil {
		if err := r.limiter.Acquire(ctx); err != nil {
			return nil, err
		}
		defer r.limiter.Release()
	}
	// The runner owns retries; each attempt starts the process once.
	opts := append([]InvokerOption{WithStartRetry(resilience.NoRetry())}, r.opts...)
	return resilience.Retry(ctx, r.retry, func() (*BufferedResult, error) {
		return runWith(ctx, cmd, opts)
	})
}

// RunWithResilience is a convenience for one-shot execution through runner.
func RunWithResilience(ctx context.Context, cmd Command, runner *Runner) (*BufferedResult, error) {
	if runner == nil {
		return Run(ctx, cmd)
	}
	return runner.Run(ctx, cmd)
}

// SubprocessProvider exposes a command-line tool as a typed request/response
// call. buildCmd maps the input to a Command and parseOut maps the captured
// output back.
type SubprocessProvider[I, O any] struct {
	name      string
	runner    *Runner
	buildCmd  func(I) Command
	parseOut  func(*BufferedResult) (O, error)
	available func(context.Context) bool
}

// NewSubprocessProvider creates a provider backed by subprocess execution.
// A nil runner runs each command once.
func NewSubprocessProvider[I, O any](
	name string,
	runner *Runner,
	buildCmd func(I) Command,
	parseOut func(*BufferedResult) (O, error),
) *SubprocessProvider[I, O] {
	return &SubprocessProvider[I, O]{
		name:     name,
		runner:   runner,
		buildCmd: buildCmd,
		parseOut: parseOut,
	}
}

// WithAvailabilityCheck sets a custom availability check for the provider.
func (p *SubprocessProvider[I, O]) WithAvailabilityCheck(fn func(context.Context) bool) *SubprocessProvider[I, O] {
	p.available = fn
	return p
}

func (p *SubprocessProvider[I, O]) Name() string { return p.name }

// IsAvailable reports whether the provider's binary can be used. Without a
// custom check it resolves the binary of the zero input's command.
func (p *SubprocessProvider[I, O]) IsAvailable(ctx context.Context) bool {
	if p.available != nil {
		return p.available(ctx)
	}
	var zero I
	_, err := PathResolver{}.LocateExecutable(ctx, p.buildCmd(zero).Binary, SearchScope{})
	return err == nil
}

func (p *SubprocessProvider[I, O]) Execute(ctx context.Context, input I) (O, error) {
	result, err := RunWithResilience(ctx, p.buildCmd(input), p.runner)
	if err != nil {
		var zero O
		if _, ok := apperrors.AsAppError(err); ok {
			return zero, err
		}
		return zero, apperrors.Internal(err).WithDetail("provider", p.name)
	}
	return p.parseOut(result)
}
