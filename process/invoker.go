package process

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/kbukum/procinvoke/errors"
	"github.com/kbukum/procinvoke/logger"
	"github.com/kbukum/procinvoke/observability"
	"github.com/kbukum/procinvoke/resilience"
)

// Mode is the result shape an invocation produces.
type Mode string

const (
	ModeExecute  Mode = "execute"
	ModeBuffered Mode = "buffered"
	ModePiped    Mode = "piped"
)

// Invocation describes one finished invocation for observers.
type Invocation struct {
	ID            string
	Mode          Mode
	Configuration *Configuration
	// Result is nil when the process never started.
	Result *Result
	Err    error
}

// Observer is notified after every invocation, successful or not.
type Observer interface {
	Observe(ctx context.Context, inv Invocation) error
}

// Invoker runs processes described by a Configuration under an
// ExitConfiguration. It is safe for concurrent use.
type Invoker struct {
	resolver   ExecutableResolver
	pipes      PipeHandler
	log        *logger.Logger
	metrics    *observability.InvocationMetrics
	tracer     trace.Tracer
	startRetry resilience.RetryConfig
	observers  []Observer
	limiter    *resilience.Limiter
	scope      SearchScope
	wait       WaitOptions

	lenientResourcePolicy bool
}

// NewInvoker creates an Invoker. Without options it resolves through PATH,
// transcodes with EncodingPipeHandler, logs nothing and retries transient
// start failures with resilience.DefaultRetryConfig.
func NewInvoker(opts ...InvokerOption) *Invoker {
	inv := &Invoker{
		resolver:   PathResolver{},
		pipes:      EncodingPipeHandler{},
		log:        logger.Nop(),
		startRetry: resilience.DefaultRetryConfig(),
		wait:       DefaultWaitOptions(),
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Execute runs the process and waits for it to exit. Redirected output
// streams are copied into the configured writers, or discarded.
//
// The returned Result is nil only when the process never started.
func (inv *Invoker) Execute(ctx context.Context, cfg *Configuration, exitCfg *ExitConfiguration, disposeConfiguration bool) (*Result, error) {
	res, _, err := inv.invoke(ctx, ModeExecute, cfg, exitCfg, disposeConfiguration)
	return res, err
}

// ExecuteBuffered runs the process and returns its complete standard output
// and error as strings.
func (inv *Invoker) ExecuteBuffered(ctx context.Context, cfg *Configuration, exitCfg *ExitConfiguration, disposeConfiguration bool) (*BufferedResult, error) {
	res, out, err := inv.invoke(ctx, ModeBuffered, cfg, exitCfg, disposeConfiguration)
	if res == nil {
		return nil, err
	}
	br := &BufferedResult{Result: *res}
	var readErr error
	br.StandardOutput, br.StandardError, readErr = out.strings()
	return br, errors.Join(err, readErr)
}

// ExecutePiped runs the process and returns its standard output and error
// as readers. The caller must Close the result.
func (inv *Invoker) ExecutePiped(ctx context.Context, cfg *Configuration, exitCfg *ExitConfiguration, disposeConfiguration bool) (*PipedResult, error) {
	res, out, err := inv.invoke(ctx, ModePiped, cfg, exitCfg, disposeConfiguration)
	if res == nil {
		return nil, err
	}
	return &PipedResult{Result: *res, StandardOutput: out.stdout, StandardError: out.stderr}, err
}

// captured holds the output of buffered and piped invocations.
type captured struct {
	stdout io.ReadCloser
	stderr io.ReadCloser
}

// strings drains both streams. Whatever was read before a failure is kept.
func (c captured) strings() (stdout, stderr string, err error) {
	read := func(stream string, rc io.ReadCloser) string {
		if rc == nil {
			return ""
		}
		defer rc.Close()
		b, rerr := io.ReadAll(rc)
		if rerr != nil {
			err = errors.Join(err, apperrors.IO(stream, rerr))
		}
		return string(b)
	}
	stdout = read("output", c.stdout)
	stderr = read("error", c.stderr)
	return stdout, stderr, err
}

func (c captured) close() {
	for _, rc := range []io.ReadCloser{c.stdout, c.stderr} {
		if rc != nil {
			_ = rc.Close()
		}
	}
}

func (inv *Invoker) invoke(ctx context.Context, mode Mode, cfg *Configuration, exitCfg *ExitConfiguration, disposeConfiguration bool) (res *Result, out captured, err error) {
	if cfg == nil {
		return nil, out, apperrors.InvalidInput("configuration", "configuration is required")
	}
	if disposeConfiguration {
		defer func() {
			if cerr := cfg.Close(); cerr != nil {
				inv.log.Warn("failed to close configuration streams", logger.ErrorFields("close configuration", cerr))
			}
		}()
	}

	id := uuid.NewString()
	log := inv.log.WithFields(logger.Fields(logger.FieldInvocationID, id, logger.FieldMode, string(mode)))
	defer func() {
		inv.notify(ctx, log, Invocation{ID: id, Mode: mode, Configuration: cfg, Result: res, Err: err})
	}()

	if mode != ModeExecute && cfg.UseShellExecution {
		return nil, out, apperrors.Conflict("shell execution cannot be combined with captured output").
			WithDetail("mode", string(mode))
	}
	if err := cfg.Validate(); err != nil {
		return nil, out, err
	}

	path, err := inv.resolver.LocateExecutable(ctx, cfg.TargetFilePath, inv.scope)
	if err != nil {
		log.Debug("executable not resolved", logger.Fields(logger.FieldExecutable, cfg.TargetFilePath))
		return nil, out, err
	}
	cfg.TargetFilePath = path
	if exitCfg == nil {
		exitCfg = DefaultExitConfiguration()
	}
	if _, err := os.Stat(path); err != nil {
		return nil, out, executableNotFound(path, err)
	}
	log = log.WithFields(logger.Fields(logger.FieldExecutable, path))

	if inv.limiter != nil {
		if err := inv.limiter.Acquire(ctx); err != nil {
			return nil, out, err
		}
		defer inv.limiter.Release()
	}

	ctx, span := observability.StartInvocationSpan(ctx, inv.tracer, path, cfg.Arguments)

	streams := StreamOptions{
		Stdin:  cfg.redirectsInput(),
		Stdout: mode != ModeExecute || cfg.RedirectStandardOutput,
		Stderr: mode != ModeExecute || cfg.RedirectStandardError,
	}
	w, err := resilience.Retry(ctx, inv.startRetry, func() (*Wrapper, error) {
		w, err := NewWrapper(cfg, streams)
		if err != nil {
			return nil, err
		}
		if err := w.Start(); err != nil {
			log.Debug("process start failed", logger.ErrorFields("start", err))
			return nil, err
		}
		return w, nil
	})
	if err != nil {
		observability.EndInvocationSpan(span, 0, 0, "", err)
		log.Error("failed to start process", logger.ErrorFields("start", err))
		return nil, out, err
	}
	defer func() {
		if derr := w.Dispose(); derr != nil {
			log.Warn("failed to dispose process", logger.ErrorFields("dispose", derr))
		}
	}()

	log.Debug("process started", logger.Fields(
		logger.FieldPID, w.ID(),
		logger.FieldArguments, cfg.Arguments,
		logger.FieldTimeout, exitCfg.TimeoutPolicy.String(),
	))
	inv.metrics.InvocationStarted(ctx, path)

	outcome, err := inv.run(ctx, mode, w, exitCfg, log, &out)
	res = &Result{
		ExecutablePath: path,
		ExitCode:       w.ExitCode(),
		ProcessID:      w.ID(),
		StartTime:      w.StartTime(),
		ExitTime:       w.ExitTime(),
		Outcome:        outcome,
	}
	if err == nil {
		err = applyCancellationBehavior(outcome, *res, exitCfg, context.Cause(ctx))
	}
	if err == nil && exitCfg.CancellationExceptionBehavior != SuppressException {
		err = ThrowIfNotSuccessful(*res, cfg, exitCfg)
	}
	if err != nil && mode == ModePiped {
		out.close()
		out = captured{}
	}

	inv.metrics.InvocationFinished(ctx, path, outcome.String(), err == nil, res.Duration())
	observability.EndInvocationSpan(span, res.ProcessID, res.ExitCode, outcome.String(), err)
	fields := logger.Fields(
		logger.FieldPID, res.ProcessID,
		logger.FieldExitCode, res.ExitCode,
		logger.FieldOutcome, outcome.String(),
		logger.FieldDuration, res.Duration().Milliseconds(),
	)
	if err != nil {
		fields[logger.FieldError] = err.Error()
		log.Warn("process invocation failed", fields)
	} else {
		log.Info("process exited", fields)
	}
	return res, out, err
}

// run applies the resource policy, then copies the streams while waiting for
// exit. Stream errors surface only after the wait has finished.
func (inv *Invoker) run(ctx context.Context, mode Mode, w *Wrapper, exitCfg *ExitConfiguration, log *logger.Logger, out *captured) (Outcome, error) {
	cfg := w.Configuration()
	if err := w.SetResourcePolicy(cfg.ResourcePolicy); err != nil {
		if !inv.lenientResourcePolicy {
			return OutcomeCompleted, err
		}
		log.Warn("ignoring resource policy failure", logger.ErrorFields("set resource policy", err))
	}

	// Streams end when the process tree exits; cancellation is handled by the wait.
	streamCtx := context.WithoutCancel(ctx)

	var streams errgroup.Group
	if w.Stdin() != nil {
		streams.Go(func() error { return inv.pipes.PipeStandardInput(streamCtx, cfg.StandardInput, w) })
	}
	switch mode {
	case ModeExecute:
		if src := w.Stdout(); src != nil {
			streams.Go(func() error {
				return copyDecoded(streamCtx, "output", writerOrDiscard(cfg.StandardOutput), src, cfg.StandardOutputEncoding)
			})
		}
		if src := w.Stderr(); src != nil {
			streams.Go(func() error {
				return copyDecoded(streamCtx, "error", writerOrDiscard(cfg.StandardError), src, cfg.StandardErrorEncoding)
			})
		}
	default:
		streams.Go(func() (err error) {
			out.stdout, err = inv.pipes.PipeStandardOutput(streamCtx, w)
			return err
		})
		streams.Go(func() (err error) {
			out.stderr, err = inv.pipes.PipeStandardError(streamCtx, w)
			return err
		})
	}

	opts := inv.waitOptions(ctx, w, log)
	outcome, err := WaitForExitOrTimeout(ctx, w, exitCfg.TimeoutPolicy, opts)
	if serr := drainStreams(w, &streams, opts.withDefaults().KillWait, log); err == nil {
		err = serr
	}
	if err != nil {
		out.close()
		*out = captured{}
		return outcome, err
	}
	if err := w.ExitErr(); err != nil {
		return outcome, apperrors.Internal(err).WithDetail("pid", w.ID())
	}
	return outcome, nil
}

// drainStreams waits for the stream copies. A descendant that outlives the
// process can hold its output open; after grace those pipes are released and
// whatever was copied so far is kept.
func drainStreams(w *Wrapper, streams *errgroup.Group, grace time.Duration, log *logger.Logger) error {
	done := make(chan error, 1)
	go func() { done <- streams.Wait() }()

	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-timer.C:
	}
	log.Warn("output still open after exit, releasing pipes", logger.Fields(logger.FieldPID, w.ID()))
	w.releaseOutput()
	return <-done
}

// waitOptions hooks termination stages into logs, metrics and the span.
func (inv *Invoker) waitOptions(ctx context.Context, w *Wrapper, log *logger.Logger) WaitOptions {
	opts := inv.wait
	user := opts.OnTerminate
	exe := w.Configuration().TargetFilePath
	opts.OnTerminate = func(stage string) {
		log.Info("terminating process", logger.Fields(logger.FieldPID, w.ID(), logger.FieldSignal, stage))
		inv.metrics.TerminationSent(ctx, exe, stage)
		observability.AddSpanEvent(ctx, "process.terminate", attribute.String(observability.AttrStage, stage))
		if user != nil {
			user(stage)
		}
	}
	return opts
}

func (inv *Invoker) notify(ctx context.Context, log *logger.Logger, invocation Invocation) {
	for _, o := range inv.observers {
		if err := o.Observe(context.WithoutCancel(ctx), invocation); err != nil {
			log.Warn("invocation observer failed", logger.ErrorFields("observe", err))
		}
	}
}

// applyCancellationBehavior turns a timeout or cancellation outcome into an
// error according to the exit configuration.
func applyCancellationBehavior(outcome Outcome, res Result, exitCfg *ExitConfiguration, cause error) error {
	behavior := exitCfg.CancellationExceptionBehavior
	switch {
	case outcome == OutcomeCompleted:
		return nil
	case outcome == OutcomeCanceled:
		if behavior == SuppressException {
			return nil
		}
		return &CanceledError{Outcome: outcome, Result: res, Cause: cause}
	}

	expected := res.StartTime.Add(exitCfg.TimeoutPolicy.Threshold())
	overrun := max(res.ExitTime.Sub(expected), 0)
	switch behavior {
	case SuppressException:
		return nil
	case AllowExceptionIfUnexpected:
		if overrun <= exitCfg.tolerance() {
			return nil
		}
	}
	return &CanceledError{Outcome: outcome, Result: res, Overrun: overrun}
}

func writerOrDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}
