package process

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/kbukum/procinvoke/errors"
)

// Sentinel errors. Compare with errors.Is.
var (
	// ErrNotStarted is returned by operations that need a live process.
	ErrNotStarted = apperrors.New(apperrors.ErrCodeInvalidState, "The process has not been started.")
	// ErrUnsupportedPlatform is wrapped by resource-policy errors for
	// properties the operating system does not expose.
	ErrUnsupportedPlatform = apperrors.New(apperrors.ErrCodeUnsupported, "Not supported on this platform.")
)

// ExceptionInfo is a snapshot of an invocation taken when result validation
// fails, so the error stays meaningful after the process is disposed.
type ExceptionInfo struct {
	Result         Result
	Configuration  *Configuration
	ResourcePolicy *ResourcePolicy
	// Credential has its password cleared.
	Credential *Credential
	// ShellRedirectConflict is set when shell execution and stream
	// redirection were both requested.
	ShellRedirectConflict bool
	// FailedRules lists the descriptions of rules the result did not satisfy.
	FailedRules []string
}

// NotSuccessfulError reports a process that exited but failed validation.
type NotSuccessfulError struct {
	Info ExceptionInfo
}

func (e *NotSuccessfulError) Error() string {
	msg := fmt.Sprintf("process %s exited with code %d", e.Info.Result.ExecutablePath, e.Info.Result.ExitCode)
	if len(e.Info.FailedRules) > 0 {
		msg += ": failed " + strings.Join(e.Info.FailedRules, ", ")
	}
	if e.Info.ShellRedirectConflict {
		msg += " (shell execution was combined with stream redirection)"
	}
	return msg
}

// Unwrap exposes the error as an *errors.AppError with ErrCodeNotSuccessful.
func (e *NotSuccessfulError) Unwrap() error {
	return apperrors.NotSuccessful(e.Info.Result.ExecutablePath, e.Info.Result.ExitCode).
		WithDetail("failed_rules", e.Info.FailedRules)
}

// ExitCode returns the exit code of the failed process.
func (e *NotSuccessfulError) ExitCode() int {
	return e.Info.Result.ExitCode
}

// CanceledError reports an invocation ended by its timeout policy or by the
// caller's context, when the exception behavior lets it surface.
type CanceledError struct {
	Outcome Outcome
	Result  Result
	// Overrun is how far the exit landed past the expected deadline.
	Overrun time.Duration
	Cause   error
}

func (e *CanceledError) Error() string {
	if e.Outcome == OutcomeCanceled {
		return fmt.Sprintf("process %s: invocation canceled: %v", e.Result.ExecutablePath, e.Cause)
	}
	return fmt.Sprintf("process %s: %s (exited %s past the deadline)", e.Result.ExecutablePath, e.Outcome, e.Overrun.Round(time.Millisecond))
}

// Unwrap exposes the error as an *errors.AppError with ErrCodeCanceled or
// ErrCodeTimeout.
func (e *CanceledError) Unwrap() error {
	if e.Outcome == OutcomeCanceled {
		return apperrors.Canceled(e.Result.ExecutablePath, e.Cause)
	}
	return apperrors.Timeout(e.Result.ExecutablePath).
		WithDetail("outcome", e.Outcome.String()).
		WithDetail("overrun_ms", e.Overrun.Milliseconds())
}

func executableNotFound(name string, cause error) error {
	return apperrors.NotFound("executable", name).WithCause(cause)
}

func unsupported(feature, platform string) error {
	return apperrors.Unsupported(feature, platform).WithCause(ErrUnsupportedPlatform)
}
