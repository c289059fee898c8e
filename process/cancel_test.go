package process

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	apperrors "github.com/kbukum/procinvoke/errors"
)

func TestOutcomeString(t *testing.T) {
	tests := []struct {
		outcome Outcome
		want    string
	}{
		{OutcomeCompleted, "completed"},
		{OutcomeTimedOutGraceful, "timed_out_graceful"},
		{OutcomeTimedOutForceful, "timed_out_forceful"},
		{OutcomeCanceled, "canceled"},
		{Outcome(42), "outcome(42)"},
	}
	for _, tt := range tests {
		if got := tt.outcome.String(); got != tt.want {
			t.Errorf("Outcome(%d).String() = %q, want %q", int(tt.outcome), got, tt.want)
		}
	}

	b, err := json.Marshal(Result{Outcome: OutcomeTimedOutGraceful})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["outcome"] != "timed_out_graceful" {
		t.Fatalf("expected outcome rendered as text, got %v", decoded["outcome"])
	}
}

func TestApplyCancellationBehavior(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	threshold := time.Minute
	policy, _ := NewTimeoutPolicy(threshold, CancelGraceful)

	onTime := Result{StartTime: start, ExitTime: start.Add(threshold + 2*time.Second)}
	late := Result{StartTime: start, ExitTime: start.Add(threshold + 45*time.Second)}

	tests := []struct {
		name     string
		outcome  Outcome
		res      Result
		behavior ExceptionBehavior
		wantErr  bool
	}{
		{"completed never errors", OutcomeCompleted, late, AllowException, false},
		{"allow timed out", OutcomeTimedOutGraceful, onTime, AllowException, true},
		{"suppress timed out", OutcomeTimedOutForceful, late, SuppressException, false},
		{"unexpected within tolerance", OutcomeTimedOutGraceful, onTime, AllowExceptionIfUnexpected, false},
		{"unexpected past tolerance", OutcomeTimedOutForceful, late, AllowExceptionIfUnexpected, true},
		{"canceled allow", OutcomeCanceled, onTime, AllowException, true},
		{"canceled if unexpected", OutcomeCanceled, onTime, AllowExceptionIfUnexpected, true},
		{"canceled suppress", OutcomeCanceled, onTime, SuppressException, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exitCfg := &ExitConfiguration{TimeoutPolicy: policy, CancellationExceptionBehavior: tt.behavior}
			err := applyCancellationBehavior(tt.outcome, tt.res, exitCfg, context.Canceled)
			if tt.wantErr != (err != nil) {
				t.Fatalf("wantErr=%v, got %v", tt.wantErr, err)
			}
			if err == nil {
				return
			}
			var ce *CanceledError
			if !errors.As(err, &ce) {
				t.Fatalf("expected *CanceledError, got %T", err)
			}
			if ce.Outcome != tt.outcome {
				t.Fatalf("expected outcome %s, got %s", tt.outcome, ce.Outcome)
			}
			wantCode := apperrors.ErrCodeTimeout
			if tt.outcome == OutcomeCanceled {
				wantCode = apperrors.ErrCodeCanceled
			}
			if !apperrors.HasCode(err, wantCode) {
				t.Fatalf("expected code %s, got %v", wantCode, err)
			}
		})
	}
}

func TestApplyCancellationBehaviorCustomTolerance(t *testing.T) {
	start := time.Now()
	policy, _ := NewTimeoutPolicy(time.Second, CancelForceful)
	res := Result{StartTime: start, ExitTime: start.Add(4 * time.Second)}
	exitCfg := &ExitConfiguration{
		TimeoutPolicy:                 policy,
		CancellationExceptionBehavior: AllowExceptionIfUnexpected,
		UnexpectedTolerance:           2 * time.Second,
	}

	err := applyCancellationBehavior(OutcomeTimedOutForceful, res, exitCfg, nil)
	var ce *CanceledError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *CanceledError, got %v", err)
	}
	if ce.Overrun != 3*time.Second {
		t.Fatalf("expected overrun 3s, got %s", ce.Overrun)
	}
}

func TestWaitOptionsDefaults(t *testing.T) {
	got := WaitOptions{Settle: time.Second}.withDefaults()
	if got.InterruptGrace != 3*time.Second {
		t.Errorf("InterruptGrace = %s, want 3s", got.InterruptGrace)
	}
	if got.HardLimitExtra != 30*time.Second {
		t.Errorf("HardLimitExtra = %s, want 30s", got.HardLimitExtra)
	}
	if got.Settle != time.Second {
		t.Errorf("Settle = %s, want 1s", got.Settle)
	}
	if got.KillWait != 10*time.Second {
		t.Errorf("KillWait = %s, want 10s", got.KillWait)
	}
}

func TestTimeoutPolicy(t *testing.T) {
	if _, err := NewTimeoutPolicy(-time.Second, CancelGraceful); !apperrors.HasCode(err, apperrors.ErrCodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT for a negative timeout, got %v", err)
	}
	if NoTimeout().Enabled() {
		t.Fatal("NoTimeout should be disabled")
	}
	def := DefaultTimeoutPolicy()
	if def.Threshold() != 30*time.Minute || def.Mode() != CancelGraceful || !def.Enabled() {
		t.Fatalf("unexpected default policy %s", def)
	}
	none, _ := NewTimeoutPolicy(time.Second, CancelNone)
	if none.Enabled() {
		t.Fatal("CancelNone should disable the timeout")
	}
}

func TestParseEnums(t *testing.T) {
	if m, err := ParseCancellationMode("Forceful"); err != nil || m != CancelForceful {
		t.Fatalf("ParseCancellationMode: %v %v", m, err)
	}
	if _, err := ParseCancellationMode("sometimes"); err == nil {
		t.Fatal("expected error for unknown cancellation mode")
	}
	if b, err := ParseExceptionBehavior("suppress"); err != nil || b != SuppressException {
		t.Fatalf("ParseExceptionBehavior: %v %v", b, err)
	}
	if b, _ := ParseExceptionBehavior(""); b != AllowExceptionIfUnexpected {
		t.Fatalf("expected allow_if_unexpected by default, got %s", b)
	}
	if v, err := ParseResultValidation("none"); err != nil || v != ValidationNone {
		t.Fatalf("ParseResultValidation: %v %v", v, err)
	}
	if _, err := ParseResultValidation("strict"); err == nil {
		t.Fatal("expected error for unknown validation")
	}
}
