package resilience

import (
	"context"
	"time"

	apperrors "github.com/kbukum/procinvoke/errors"
)

// LimiterConfig configures a Limiter.
type LimiterConfig struct {
	// Name identifies this limiter in logs and errors.
	Name string
	// MaxConcurrent is the maximum number of concurrent calls.
	MaxConcurrent int
	// MaxWait is how long to wait for a slot. 0 waits until ctx is done.
	MaxWait time.Duration
	// OnReject is called when a call is rejected.
	OnReject func(name string)
}

// Limiter bounds the number of concurrently running operations.
type Limiter struct {
	config LimiterConfig
	sem    chan struct{}
}

// NewLimiter creates a new limiter. MaxConcurrent <= 0 defaults to 1.
func NewLimiter(config LimiterConfig) *Limiter {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 1
	}
	return &Limiter{
		config: config,
		sem:    make(chan struct{}, config.MaxConcurrent),
	}
}

// Execute runs fn once a slot is free.
func (l *Limiter) Execute(ctx context.Context, fn func() error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	return fn()
}

// Acquire blocks until a slot is available, MaxWait elapses or ctx is done.
// Every successful Acquire must be paired with Release.
func (l *Limiter) Acquire(ctx context.Context) error {
	select {
	case l.sem <- struct{}{}:
		return nil
	default:
	}

	var expired <-chan time.Time
	if l.config.MaxWait > 0 {
		timer := time.NewTimer(l.config.MaxWait)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case l.sem <- struct{}{}:
		return nil
	case <-expired:
		l.reject()
		return apperrors.Timeout(l.config.Name).WithDetail("reason", "concurrency limit")
	case <-ctx.Done():
		l.reject()
		return apperrors.Canceled(l.config.Name, ctx.Err())
	}
}

// Release frees a slot taken by Acquire.
func (l *Limiter) Release() {
	<-l.sem
}

func (l *Limiter) reject() {
	if l.config.OnReject != nil {
		l.config.OnReject(l.config.Name)
	}
}

// InUse returns the number of slots currently in use.
func (l *Limiter) InUse() int {
	return len(l.sem)
}

// MaxConcurrent returns the maximum concurrent calls allowed.
func (l *Limiter) MaxConcurrent() int {
	return l.config.MaxConcurrent
}
