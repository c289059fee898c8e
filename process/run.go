package process

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/kbukum/procinvoke/errors"
	"github.com/kbukum/procinvoke/logger"
)

// minRunTimeout keeps an already expired deadline from disabling the timeout.
const minRunTimeout = time.Millisecond

// Run executes cmd, captures its output and waits for it to complete.
//
// When ctx has a deadline the process gets a graceful timeout at that
// deadline: SIGTERM, then SIGINT after GracePeriod, then a kill. Cancelling
// ctx kills the process tree immediately. A non-zero exit is an error.
// Resource-policy failures are logged and ignored.
func Run(ctx context.Context, cmd Command) (*BufferedResult, error) {
	return runWith(ctx, cmd, nil)
}

func runWith(ctx context.Context, cmd Command, opts []InvokerOption) (*BufferedResult, error) {
	if cmd.Binary == "" {
		return nil, apperrors.InvalidInput("binary", "binary is required")
	}
	cfg, err := cmd.configuration()
	if err != nil {
		return nil, err
	}

	wait := DefaultWaitOptions()
	if cmd.GracePeriod > 0 {
		wait.InterruptGrace = cmd.GracePeriod
	}
	exitCfg := &ExitConfiguration{
		TimeoutPolicy:                 NoTimeout(),
		ResultValidation:              ValidationExitCodeZero,
		CancellationExceptionBehavior: AllowException,
	}
	if deadline, ok := ctx.Deadline(); ok {
		exitCfg.TimeoutPolicy, err = NewTimeoutPolicy(max(time.Until(deadline), minRunTimeout), CancelGraceful)
		if err != nil {
			return nil, err
		}
		var stop context.CancelFunc
		ctx, stop = detachDeadline(ctx)
		defer stop()
	}

	inv := NewInvoker(append([]InvokerOption{
		WithLogger(logger.Get("process")),
		WithWaitOptions(wait),
		withLenientResourcePolicy(),
	}, opts...)...)
	return inv.ExecuteBuffered(ctx, cfg, exitCfg, true)
}

// detachDeadline returns a context that keeps the values of ctx and follows
// its explicit cancellation, but not its deadline.
func detachDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	detached, cancel := context.WithCancelCause(context.WithoutCancel(ctx))
	stop := context.AfterFunc(ctx, func() {
		if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			cancel(context.Cause(ctx))
		}
	})
	return detached, func() {
		stop()
		cancel(nil)
	}
}
