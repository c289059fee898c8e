//go:build unix

package process_test

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/kbukum/procinvoke/errors"
	"github.com/kbukum/procinvoke/process"
)

func newSleepWrapper(t *testing.T, seconds string) *process.Wrapper {
	t.Helper()
	cfg := mustConfig(t, "/bin/sh", process.WithArgs("-c", "sleep "+seconds))
	w, err := process.NewWrapper(cfg, process.StreamOptions{})
	if err != nil {
		t.Fatalf("NewWrapper: %v", err)
	}
	return w
}

func TestWrapperLifecycle(t *testing.T) {
	w := newSleepWrapper(t, "0")
	if w.State() != process.StateCreated {
		t.Fatalf("expected created, got %s", w.State())
	}
	if w.ID() != -1 || w.ExitCode() != -1 {
		t.Fatalf("expected no pid and exit code before start, got %d/%d", w.ID(), w.ExitCode())
	}

	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := w.Start(); !apperrors.HasCode(err, apperrors.ErrCodeInvalidState) {
		t.Fatalf("expected INVALID_STATE on second start, got %v", err)
	}

	select {
	case <-w.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit")
	}
	if w.State() != process.StateExited {
		t.Fatalf("expected exited, got %s", w.State())
	}
	if w.ExitCode() != 0 {
		t.Fatalf("expected exit code 0, got %d", w.ExitCode())
	}
	if w.ExitTime().Before(w.StartTime()) {
		t.Fatal("exit time before start time")
	}

	if err := w.Dispose(); err != nil {
		t.Fatalf("Dispose: %v", err)
	}
	if w.State() != process.StateDisposed {
		t.Fatalf("expected disposed, got %s", w.State())
	}
}

func TestWrapperDisposeTwice(t *testing.T) {
	cfg := mustConfig(t, "/bin/sh", process.WithArgs("-c", "sleep 30"), process.WithRedirectedOutput())
	w, err := process.NewWrapper(cfg, process.StreamOptions{Stdin: true, Stdout: true, Stderr: true})
	if err != nil {
		t.Fatalf("NewWrapper: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := w.Dispose(); err != nil {
		t.Fatalf("first Dispose: %v", err)
	}
	if err := w.Dispose(); err != nil {
		t.Fatalf("second Dispose: %v", err)
	}
	if !w.HasExited() {
		t.Fatal("expected Dispose to kill the running process")
	}
}

func TestWrapperRequiresStart(t *testing.T) {
	w := newSleepWrapper(t, "0")

	if err := w.SetResourcePolicy(&process.ResourcePolicy{PriorityClass: process.PriorityIdle}); !errors.Is(err, process.ErrNotStarted) {
		t.Fatalf("SetResourcePolicy before start: expected ErrNotStarted, got %v", err)
	}
	if err := w.KillTree(); !errors.Is(err, process.ErrNotStarted) {
		t.Fatalf("KillTree before start: expected ErrNotStarted, got %v", err)
	}
	if _, err := process.WaitForExitOrTimeout(context.Background(), w, process.NoTimeout(), process.WaitOptions{}); !errors.Is(err, process.ErrNotStarted) {
		t.Fatalf("WaitForExitOrTimeout before start: expected ErrNotStarted, got %v", err)
	}
	if err := w.Dispose(); err != nil {
		t.Fatalf("Dispose of an unstarted wrapper: %v", err)
	}
}

func TestWrapperStartFailure(t *testing.T) {
	cfg := &process.Configuration{TargetFilePath: "/nonexistent/procinvoke-binary"}
	w, err := process.NewWrapper(cfg, process.StreamOptions{Stdout: true})
	if err != nil {
		t.Fatalf("NewWrapper: %v", err)
	}

	err = w.Start()
	if !apperrors.HasCode(err, apperrors.ErrCodeStartFailed) {
		t.Fatalf("expected START_FAILED, got %v", err)
	}
	if w.State() != process.StateDisposed {
		t.Fatalf("expected a failed start to release the wrapper, got %s", w.State())
	}
	if err := w.Dispose(); err != nil {
		t.Fatalf("Dispose after failed start: %v", err)
	}
}

func TestWaitForExitOrTimeoutForceful(t *testing.T) {
	w := newSleepWrapper(t, "30")
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Dispose()

	policy, _ := process.NewTimeoutPolicy(100*time.Millisecond, process.CancelForceful)
	start := time.Now()
	outcome, err := process.WaitForExitOrTimeout(context.Background(), w, policy, process.WaitOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != process.OutcomeTimedOutForceful {
		t.Fatalf("expected timed_out_forceful, got %s", outcome)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("kill took too long: %s", elapsed)
	}
}

func TestWaitForExitOrTimeoutGracefulFallsBackToKill(t *testing.T) {
	cfg := mustConfig(t, "/bin/sh", process.WithArgs("-c", "trap '' TERM INT; while :; do sleep 0.05; done"))
	w, err := process.NewWrapper(cfg, process.StreamOptions{})
	if err != nil {
		t.Fatalf("NewWrapper: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Dispose()

	rec := &stageRecorder{}
	policy, _ := process.NewTimeoutPolicy(50*time.Millisecond, process.CancelGraceful)
	outcome, err := process.WaitForExitOrTimeout(context.Background(), w, policy, process.WaitOptions{
		InterruptGrace: 100 * time.Millisecond,
		Settle:         100 * time.Millisecond,
		OnTerminate:    rec.record,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != process.OutcomeTimedOutForceful {
		t.Fatalf("expected timed_out_forceful, got %s", outcome)
	}
	want := []string{process.StageSigterm, process.StageSigint, process.StageKill}
	got := rec.get()
	if len(got) != len(want) {
		t.Fatalf("expected stages %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected stages %v, got %v", want, got)
		}
	}
}

func TestWrapperResourcePolicyAfterExit(t *testing.T) {
	w := newSleepWrapper(t, "0")
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	select {
	case <-w.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit")
	}

	if err := w.SetResourcePolicy(nil); err != nil {
		t.Fatalf("SetResourcePolicy(nil) after exit: %v", err)
	}
	if err := w.SetResourcePolicy(&process.ResourcePolicy{PriorityClass: process.PriorityIdle}); err != nil {
		t.Fatalf("SetResourcePolicy after exit: %v", err)
	}

	if err := w.Dispose(); err != nil {
		t.Fatalf("Dispose: %v", err)
	}
	if err := w.SetResourcePolicy(nil); !apperrors.HasCode(err, apperrors.ErrCodeInvalidState) {
		t.Fatalf("expected INVALID_STATE after dispose, got %v", err)
	}
}

func TestWaitForExitOrTimeoutHardLimitPreemptsInterrupts(t *testing.T) {
	cfg := mustConfig(t, "/bin/sh", process.WithArgs("-c", "trap '' TERM INT; while :; do sleep 0.05; done"))
	w, err := process.NewWrapper(cfg, process.StreamOptions{})
	if err != nil {
		t.Fatalf("NewWrapper: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Dispose()

	rec := &stageRecorder{}
	policy, _ := process.NewTimeoutPolicy(50*time.Millisecond, process.CancelGraceful)
	start := time.Now()
	outcome, err := process.WaitForExitOrTimeout(context.Background(), w, policy, process.WaitOptions{
		InterruptGrace: 5 * time.Second,
		HardLimitExtra: 200 * time.Millisecond,
		Settle:         100 * time.Millisecond,
		OnTerminate:    rec.record,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != process.OutcomeTimedOutForceful {
		t.Fatalf("expected timed_out_forceful, got %s", outcome)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("hard limit did not bound the wait: %s", elapsed)
	}
	want := []string{process.StageSigterm, process.StageKill}
	got := rec.get()
	if len(got) != len(want) {
		t.Fatalf("expected stages %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected stages %v, got %v", want, got)
		}
	}
}
