package process

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/kbukum/procinvoke/errors"
)

// CancellationMode selects how a process is stopped once its timeout elapses.
type CancellationMode int

const (
	// CancelNone never intervenes; the wait ends only on exit or caller cancellation.
	CancelNone CancellationMode = iota
	// CancelGraceful interrupts the process first and kills its tree only if it lingers.
	CancelGraceful
	// CancelForceful kills the process tree as soon as the timeout elapses.
	CancelForceful
)

func (m CancellationMode) String() string {
	switch m {
	case CancelNone:
		return "none"
	case CancelGraceful:
		return "graceful"
	case CancelForceful:
		return "forceful"
	default:
		return fmt.Sprintf("CancellationMode(%d)", int(m))
	}
}

// ParseCancellationMode parses "none", "graceful" or "forceful".
func ParseCancellationMode(s string) (CancellationMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return CancelNone, nil
	case "graceful", "":
		return CancelGraceful, nil
	case "forceful":
		return CancelForceful, nil
	}
	return CancelNone, apperrors.InvalidInput("cancellation_mode", fmt.Sprintf("unknown cancellation mode %q", s))
}

// TimeoutPolicy pairs a non-negative threshold with a CancellationMode.
// A zero threshold disables the timeout.
type TimeoutPolicy struct {
	threshold time.Duration
	mode      CancellationMode
}

// NewTimeoutPolicy returns a policy, rejecting negative thresholds.
func NewTimeoutPolicy(threshold time.Duration, mode CancellationMode) (TimeoutPolicy, error) {
	if threshold < 0 {
		return TimeoutPolicy{}, apperrors.InvalidInput("timeout", "timeout must not be negative")
	}
	if mode < CancelNone || mode > CancelForceful {
		return TimeoutPolicy{}, apperrors.InvalidInput("cancellation_mode", mode.String())
	}
	return TimeoutPolicy{threshold: threshold, mode: mode}, nil
}

// NoTimeout waits for the process indefinitely.
func NoTimeout() TimeoutPolicy {
	return TimeoutPolicy{mode: CancelNone}
}

// DefaultTimeoutPolicy is 30 minutes with graceful cancellation.
func DefaultTimeoutPolicy() TimeoutPolicy {
	return TimeoutPolicy{threshold: 30 * time.Minute, mode: CancelGraceful}
}

// Threshold returns the timeout duration.
func (p TimeoutPolicy) Threshold() time.Duration { return p.threshold }

// Mode returns the cancellation mode.
func (p TimeoutPolicy) Mode() CancellationMode { return p.mode }

// Enabled reports whether the policy ever intervenes.
func (p TimeoutPolicy) Enabled() bool {
	return p.mode != CancelNone && p.threshold > 0
}

func (p TimeoutPolicy) String() string {
	if !p.Enabled() {
		return "no timeout"
	}
	return fmt.Sprintf("%s after %s", p.mode, p.threshold)
}
