package process

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/kbukum/procinvoke/errors"
)

// Outcome describes how an invocation ended.
type Outcome int

const (
	// OutcomeCompleted means the process exited on its own.
	OutcomeCompleted Outcome = iota
	// OutcomeTimedOutGraceful means the process exited after being asked to stop.
	OutcomeTimedOutGraceful
	// OutcomeTimedOutForceful means the process tree was killed after the timeout.
	OutcomeTimedOutForceful
	// OutcomeCanceled means the caller's context ended the invocation.
	OutcomeCanceled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeTimedOutGraceful:
		return "timed_out_graceful"
	case OutcomeTimedOutForceful:
		return "timed_out_forceful"
	case OutcomeCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// TimedOut reports whether the timeout policy fired.
func (o Outcome) TimedOut() bool {
	return o == OutcomeTimedOutGraceful || o == OutcomeTimedOutForceful
}

// Termination stages passed to WaitOptions.OnTerminate.
const (
	StageSigterm = "sigterm"
	StageSigint  = "sigint"
	StageCtrlC   = "ctrl_c"
	StageKill    = "kill"
)

// WaitOptions tunes the timeout escalation.
type WaitOptions struct {
	// InterruptGrace is how long to wait between the first and second
	// interrupt. On Windows it bounds the wait after Ctrl-C.
	InterruptGrace time.Duration
	// HardLimitExtra bounds the whole graceful phase past the threshold.
	HardLimitExtra time.Duration
	// Settle is how long to wait for exit after the interrupts.
	Settle time.Duration
	// KillWait bounds the wait for a killed tree to be reaped.
	KillWait time.Duration
	// OnTerminate is called for each termination stage that is attempted.
	OnTerminate func(stage string)
}

// DefaultWaitOptions returns the escalation timings used by the invoker.
func DefaultWaitOptions() WaitOptions {
	return WaitOptions{
		InterruptGrace: 3 * time.Second,
		HardLimitExtra: 30 * time.Second,
		Settle:         500 * time.Millisecond,
		KillWait:       10 * time.Second,
	}
}

func (o WaitOptions) withDefaults() WaitOptions {
	d := DefaultWaitOptions()
	if o.InterruptGrace <= 0 {
		o.InterruptGrace = d.InterruptGrace
	}
	if o.HardLimitExtra <= 0 {
		o.HardLimitExtra = d.HardLimitExtra
	}
	if o.Settle <= 0 {
		o.Settle = d.Settle
	}
	if o.KillWait <= 0 {
		o.KillWait = d.KillWait
	}
	return o
}

func (o WaitOptions) notify(stage string) {
	if o.OnTerminate != nil {
		o.OnTerminate(stage)
	}
}

// WaitForExitOrTimeout blocks until w exits, applying policy when it runs
// past its threshold. Cancelling ctx kills the tree immediately.
//
// The returned error is non-nil only when the process could not be
// terminated; the outcome is meaningful either way.
func WaitForExitOrTimeout(ctx context.Context, w *Wrapper, policy TimeoutPolicy, opts WaitOptions) (Outcome, error) {
	if err := w.requireStarted(); err != nil {
		return OutcomeCompleted, err
	}
	opts = opts.withDefaults()

	if !policy.Enabled() {
		select {
		case <-w.Done():
			return OutcomeCompleted, nil
		case <-ctx.Done():
			return OutcomeCanceled, forceKill(w, opts)
		}
	}

	remaining := policy.Threshold() - time.Since(w.StartTime())
	timer := time.NewTimer(max(remaining, 0))
	defer timer.Stop()

	select {
	case <-w.Done():
		return OutcomeCompleted, nil
	case <-ctx.Done():
		return OutcomeCanceled, forceKill(w, opts)
	case <-timer.C:
	}

	if policy.Mode() == CancelForceful {
		return OutcomeTimedOutForceful, forceKill(w, opts)
	}
	return escalate(ctx, w, opts)
}

// escalate asks the process to stop, then kills the tree if it has not
// exited within the hard limit and settle period.
func escalate(ctx context.Context, w *Wrapper, opts WaitOptions) (Outcome, error) {
	hardCtx, cancel := context.WithTimeout(ctx, opts.HardLimitExtra)
	defer cancel()

	interrupted := make(chan struct{})
	go func() {
		defer close(interrupted)
		_ = interruptGracefully(hardCtx, w, opts)
	}()

	select {
	case <-w.Done():
		return OutcomeTimedOutGraceful, nil
	case <-interrupted:
	case <-hardCtx.Done():
	}

	if ctx.Err() == nil {
		settle := time.NewTimer(opts.Settle)
		defer settle.Stop()
		select {
		case <-w.Done():
			return OutcomeTimedOutGraceful, nil
		case <-settle.C:
		case <-ctx.Done():
		}
	}
	if w.HasExited() {
		return OutcomeTimedOutGraceful, nil
	}
	if ctx.Err() != nil {
		return OutcomeCanceled, forceKill(w, opts)
	}
	return OutcomeTimedOutForceful, forceKill(w, opts)
}

// forceKill kills the tree and waits a bounded time for it to be reaped.
func forceKill(w *Wrapper, opts WaitOptions) error {
	if w.HasExited() {
		return nil
	}
	opts.notify(StageKill)
	if err := w.KillTree(); err != nil {
		return apperrors.Internal(err).WithDetail("pid", w.ID())
	}
	t := time.NewTimer(opts.KillWait)
	defer t.Stop()
	select {
	case <-w.Done():
		return nil
	case <-t.C:
		return apperrors.Internal(fmt.Errorf("process %d did not exit within %s of being killed", w.ID(), opts.KillWait))
	}
}

// sleepOrExit waits for d, exit or ctx, reporting whether the process exited.
func sleepOrExit(ctx context.Context, w *Wrapper, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-w.Done():
		return true
	case <-t.C:
	case <-ctx.Done():
	}
	return w.HasExited()
}
