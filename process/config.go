package process

import (
	"fmt"
	"time"

	"github.com/kbukum/procinvoke/logger"
	"github.com/kbukum/procinvoke/resilience"
)

// Config holds invoker settings loaded from configuration files or the
// environment.
type Config struct {
	// Name identifies this invoker instance in logs.
	Name string `yaml:"name,omitempty" mapstructure:"name"`
	// GracePeriod is the wait between the first and second interrupt.
	GracePeriod time.Duration `yaml:"grace_period,omitempty" mapstructure:"grace_period"`
	// Timeout is the default timeout threshold. Zero means no timeout.
	Timeout time.Duration `yaml:"timeout,omitempty" mapstructure:"timeout"`
	// CancellationMode is none, graceful or forceful.
	CancellationMode string `yaml:"cancellation_mode,omitempty" mapstructure:"cancellation_mode"`
	// ExceptionBehavior is allow, allow_if_unexpected or suppress.
	ExceptionBehavior string `yaml:"exception_behavior,omitempty" mapstructure:"exception_behavior"`
	// Validation is none or exit_code_zero.
	Validation string `yaml:"validation,omitempty" mapstructure:"validation"`
	// UnexpectedTolerance is how late a timed-out process may exit before
	// allow_if_unexpected reports it.
	UnexpectedTolerance time.Duration `yaml:"unexpected_tolerance,omitempty" mapstructure:"unexpected_tolerance"`
	// SearchDirectories are searched recursively for bare executable names.
	SearchDirectories []string `yaml:"search_directories,omitempty" mapstructure:"search_directories"`
	// MaxConcurrent bounds running processes. Zero means unbounded.
	MaxConcurrent int `yaml:"max_concurrent,omitempty" mapstructure:"max_concurrent"`
	// StartRetry retries transient start failures.
	StartRetry resilience.RetryConfig `yaml:"start_retry,omitempty" mapstructure:"start_retry"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "process"
	}
	if c.GracePeriod == 0 {
		c.GracePeriod = DefaultWaitOptions().InterruptGrace
	}
	if c.CancellationMode == "" {
		c.CancellationMode = CancelGraceful.String()
	}
	if c.ExceptionBehavior == "" {
		c.ExceptionBehavior = AllowExceptionIfUnexpected.String()
	}
	if c.Validation == "" {
		c.Validation = ValidationExitCodeZero.String()
	}
	if c.UnexpectedTolerance == 0 {
		c.UnexpectedTolerance = DefaultUnexpectedTolerance
	}
	if c.StartRetry.MaxAttempts == 0 {
		c.StartRetry = resilience.DefaultRetryConfig()
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("process: timeout must not be negative")
	}
	if c.GracePeriod < 0 {
		return fmt.Errorf("process: grace_period must not be negative")
	}
	if c.MaxConcurrent < 0 {
		return fmt.Errorf("process: max_concurrent must not be negative")
	}
	if _, err := ParseCancellationMode(c.CancellationMode); err != nil {
		return fmt.Errorf("process: %w", err)
	}
	if _, err := ParseExceptionBehavior(c.ExceptionBehavior); err != nil {
		return fmt.Errorf("process: %w", err)
	}
	if _, err := ParseResultValidation(c.Validation); err != nil {
		return fmt.Errorf("process: %w", err)
	}
	return nil
}

// ExitConfigFromConfig builds the exit configuration c describes.
func ExitConfigFromConfig(c Config) (*ExitConfiguration, error) {
	mode, err := ParseCancellationMode(c.CancellationMode)
	if err != nil {
		return nil, err
	}
	policy, err := NewTimeoutPolicy(c.Timeout, mode)
	if err != nil {
		return nil, err
	}
	behavior, err := ParseExceptionBehavior(c.ExceptionBehavior)
	if err != nil {
		return nil, err
	}
	validation, err := ParseResultValidation(c.Validation)
	if err != nil {
		return nil, err
	}
	return &ExitConfiguration{
		TimeoutPolicy:                 policy,
		ResultValidation:              validation,
		CancellationExceptionBehavior: behavior,
		UnexpectedTolerance:           c.UnexpectedTolerance,
	}, nil
}

// NewInvokerFromConfig builds an Invoker from c. Extra options are applied
// after the ones derived from c.
func NewInvokerFromConfig(c Config, log *logger.Logger, opts ...InvokerOption) *Invoker {
	wait := DefaultWaitOptions()
	if c.GracePeriod > 0 {
		wait.InterruptGrace = c.GracePeriod
	}
	base := []InvokerOption{
		WithWaitOptions(wait),
		WithSearchScope(SearchScope{Directories: c.SearchDirectories}),
	}
	if log != nil {
		base = append(base, WithLogger(log.WithComponent(c.Name)))
	}
	if c.StartRetry.MaxAttempts > 0 {
		base = append(base, WithStartRetry(c.StartRetry))
	}
	if c.MaxConcurrent > 0 {
		base = append(base, WithConcurrencyLimit(resilience.NewLimiter(resilience.LimiterConfig{
			Name:          c.Name,
			MaxConcurrent: c.MaxConcurrent,
		})))
	}
	return NewInvoker(append(base, opts...)...)
}
