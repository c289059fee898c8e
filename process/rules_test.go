package process

import (
	"errors"
	"testing"
	"time"

	apperrors "github.com/kbukum/procinvoke/errors"
)

func TestExitCodeRules(t *testing.T) {
	if !ExitCodeZero().Satisfied(Result{ExitCode: 0}) || ExitCodeZero().Satisfied(Result{ExitCode: 1}) {
		t.Fatal("ExitCodeZero misclassified")
	}
	in := ExitCodeIn(0, 3)
	if !in.Satisfied(Result{ExitCode: 3}) || in.Satisfied(Result{ExitCode: 2}) {
		t.Fatal("ExitCodeIn misclassified")
	}
	if in.Description() != "exit code in [0 3]" {
		t.Fatalf("unexpected description %q", in.Description())
	}
}

func TestExprRule(t *testing.T) {
	start := time.Now()
	res := Result{
		ExitCode:       2,
		ProcessID:      10,
		ExecutablePath: "/bin/tool",
		StartTime:      start,
		ExitTime:       start.Add(1500 * time.Millisecond),
		Outcome:        OutcomeTimedOutGraceful,
	}

	tests := []struct {
		expr string
		want bool
	}{
		{"ExitCode == 2", true},
		{"ExitCode in [0, 1]", false},
		{"Duration > 1 && Duration < 2", true},
		{`Outcome == "timed_out_graceful"`, true},
		{`ExecutablePath endsWith "tool"`, true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			rule, err := ExprRule(tt.expr)
			if err != nil {
				t.Fatalf("ExprRule: %v", err)
			}
			if got := rule.Satisfied(res); got != tt.want {
				t.Fatalf("Satisfied = %v, want %v", got, tt.want)
			}
		})
	}

	for _, bad := range []string{"ExitCode +", "ExitCode + 1", "Unknown == 1"} {
		if _, err := ExprRule(bad); !apperrors.HasCode(err, apperrors.ErrCodeInvalidInput) {
			t.Errorf("ExprRule(%q): expected INVALID_INPUT, got %v", bad, err)
		}
	}
}

func TestThrowIfNotSuccessful(t *testing.T) {
	cfg := &Configuration{
		TargetFilePath:        "/bin/tool",
		UseShellExecution:     true,
		RedirectStandardInput: true,
		Credential:            &Credential{Username: "alice", Password: "s3cret"},
		ResourcePolicy:        &ResourcePolicy{PriorityClass: PriorityHigh},
	}
	res := Result{ExecutablePath: "/bin/tool", ExitCode: 4}

	err := ThrowIfNotSuccessful(res, cfg, DefaultExitConfiguration().WithRules(ExitCodeIn(0, 1)))
	var nse *NotSuccessfulError
	if !errors.As(err, &nse) {
		t.Fatalf("expected *NotSuccessfulError, got %v", err)
	}
	info := nse.Info
	if len(info.FailedRules) != 2 {
		t.Fatalf("expected both rules to fail, got %v", info.FailedRules)
	}
	if !info.ShellRedirectConflict {
		t.Fatal("expected the shell/redirect conflict to be flagged")
	}
	if info.Credential == nil || info.Credential.Password != "" || info.Credential.Username != "alice" {
		t.Fatalf("expected a redacted credential, got %+v", info.Credential)
	}
	if cfg.Credential.Password != "s3cret" {
		t.Fatal("the original credential must not be modified")
	}
	if info.ResourcePolicy == nil || info.ResourcePolicy == cfg.ResourcePolicy {
		t.Fatal("expected a snapshot of the resource policy")
	}
	if !apperrors.HasCode(err, apperrors.ErrCodeNotSuccessful) {
		t.Fatalf("expected NOT_SUCCESSFUL, got %v", err)
	}

	if err := ThrowIfNotSuccessful(Result{ExitCode: 0}, cfg, nil); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if err := ThrowIfNotSuccessful(res, nil, NoValidationExitConfiguration()); err != nil {
		t.Fatalf("expected no validation, got %v", err)
	}
}
