package process

import (
	"context"
	"time"
)

// Adapter applies invoker-level defaults to Run.
type Adapter struct {
	config Config
	opts   []InvokerOption
}

// NewAdapter creates a new process adapter.
func NewAdapter(cfg Config, opts ...InvokerOption) *Adapter {
	return &Adapter{config: cfg, opts: opts}
}

// Run executes a command, applying the adapter's grace period and timeout.
func (a *Adapter) Run(ctx context.Context, cmd Command) (*BufferedResult, error) {
	if cmd.GracePeriod == 0 && a.config.GracePeriod > 0 {
		cmd.GracePeriod = a.config.GracePeriod
	}
	if a.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
	}
	return runWith(ctx, cmd, a.opts)
}

// Name returns the adapter name.
func (a *Adapter) Name() string {
	return a.config.Name
}

// IsAvailable always returns true for process adapters.
func (a *Adapter) IsAvailable(_ context.Context) bool {
	return true
}

// Execute runs a command; it is Run under the request/response naming.
func (a *Adapter) Execute(ctx context.Context, cmd Command) (*BufferedResult, error) {
	return a.Run(ctx, cmd)
}

// Timeout returns the adapter's default timeout; zero means none.
func (a *Adapter) Timeout() time.Duration {
	return a.config.Timeout
}
