package process

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/kbukum/procinvoke/errors"
)

// ExceptionBehavior decides whether timeout and cancellation outcomes are
// returned as errors.
type ExceptionBehavior int

const (
	// AllowException always reports timeouts and cancellations.
	AllowException ExceptionBehavior = iota
	// AllowExceptionIfUnexpected reports them only when the process exited
	// later than its deadline plus the unexpected tolerance.
	AllowExceptionIfUnexpected
	// SuppressException never reports them and skips result validation.
	SuppressException
)

func (b ExceptionBehavior) String() string {
	switch b {
	case AllowException:
		return "allow"
	case AllowExceptionIfUnexpected:
		return "allow_if_unexpected"
	case SuppressException:
		return "suppress"
	default:
		return fmt.Sprintf("ExceptionBehavior(%d)", int(b))
	}
}

// ParseExceptionBehavior parses "allow", "allow_if_unexpected" or "suppress".
func ParseExceptionBehavior(s string) (ExceptionBehavior, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "allow":
		return AllowException, nil
	case "allow_if_unexpected", "":
		return AllowExceptionIfUnexpected, nil
	case "suppress":
		return SuppressException, nil
	}
	return AllowException, apperrors.InvalidInput("exception_behavior", fmt.Sprintf("unknown exception behavior %q", s))
}

// ResultValidation is the built-in rule applied to every result.
type ResultValidation int

const (
	// ValidationNone accepts any exit code.
	ValidationNone ResultValidation = iota
	// ValidationExitCodeZero requires exit code 0.
	ValidationExitCodeZero
)

func (v ResultValidation) String() string {
	if v == ValidationExitCodeZero {
		return "exit_code_zero"
	}
	return "none"
}

// ParseResultValidation parses "none" or "exit_code_zero".
func ParseResultValidation(s string) (ResultValidation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return ValidationNone, nil
	case "exit_code_zero", "":
		return ValidationExitCodeZero, nil
	}
	return ValidationNone, apperrors.InvalidInput("validation", fmt.Sprintf("unknown result validation %q", s))
}

// DefaultUnexpectedTolerance is how late past its deadline a timed-out
// process may exit before AllowExceptionIfUnexpected reports it.
const DefaultUnexpectedTolerance = 10 * time.Second

// ExitConfiguration controls how an invocation ends: its timeout, how the
// result is validated and which cancellation outcomes become errors.
type ExitConfiguration struct {
	TimeoutPolicy                 TimeoutPolicy
	ResultValidation              ResultValidation
	Rules                         []ResultRule
	CancellationExceptionBehavior ExceptionBehavior
	// UnexpectedTolerance defaults to DefaultUnexpectedTolerance when zero.
	UnexpectedTolerance time.Duration
}

// DefaultExitConfiguration: 30 minute graceful timeout, exit code zero,
// exceptions only when unexpected.
func DefaultExitConfiguration() *ExitConfiguration {
	return &ExitConfiguration{
		TimeoutPolicy:                 DefaultTimeoutPolicy(),
		ResultValidation:              ValidationExitCodeZero,
		CancellationExceptionBehavior: AllowExceptionIfUnexpected,
	}
}

// NoTimeoutDefaultExitConfiguration is DefaultExitConfiguration without a timeout.
func NoTimeoutDefaultExitConfiguration() *ExitConfiguration {
	return &ExitConfiguration{
		TimeoutPolicy:                 NoTimeout(),
		ResultValidation:              ValidationExitCodeZero,
		CancellationExceptionBehavior: AllowExceptionIfUnexpected,
	}
}

// NoValidationExitConfiguration keeps the default timeout but never fails.
func NoValidationExitConfiguration() *ExitConfiguration {
	return &ExitConfiguration{
		TimeoutPolicy:                 DefaultTimeoutPolicy(),
		ResultValidation:              ValidationNone,
		CancellationExceptionBehavior: SuppressException,
	}
}

// WithRules returns a copy of c with extra result rules appended.
func (c *ExitConfiguration) WithRules(rules ...ResultRule) *ExitConfiguration {
	cp := *c
	cp.Rules = append(append([]ResultRule(nil), c.Rules...), rules...)
	return &cp
}

func (c *ExitConfiguration) tolerance() time.Duration {
	if c.UnexpectedTolerance > 0 {
		return c.UnexpectedTolerance
	}
	return DefaultUnexpectedTolerance
}

func (c *ExitConfiguration) rules() []ResultRule {
	var rules []ResultRule
	if c.ResultValidation == ValidationExitCodeZero {
		rules = append(rules, ExitCodeZero())
	}
	return append(rules, c.Rules...)
}
