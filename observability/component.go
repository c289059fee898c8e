package observability

import (
	"context"
	"sync"

	"github.com/kbukum/procinvoke/component"
)

// Component sets telemetry up on Start and flushes it on Stop.
type Component struct {
	cfg       Config
	mu        sync.RWMutex
	telemetry *Telemetry
}

var _ component.Component = (*Component)(nil)

// NewComponent returns a stopped telemetry component for cfg.
func NewComponent(cfg Config) *Component {
	return &Component{cfg: cfg}
}

// Name implements component.Component.
func (c *Component) Name() string { return "telemetry" }

// Start creates the tracer and meter providers.
func (c *Component) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.telemetry != nil {
		return nil
	}
	t, err := Setup(ctx, c.cfg)
	if err != nil {
		return err
	}
	c.telemetry = t
	return nil
}

// Stop flushes and shuts the providers down.
func (c *Component) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.telemetry == nil {
		return nil
	}
	err := c.telemetry.Shutdown(ctx)
	c.telemetry = nil
	return err
}

// Health reports degraded when export is disabled.
func (c *Component) Health(context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy, Message: c.cfg.Endpoint}
	switch {
	case c.Telemetry() == nil:
		h.Status = component.StatusStopped
	case !c.cfg.Enabled:
		h.Status = component.StatusDegraded
		h.Message = "export disabled"
	}
	return h
}

// Telemetry returns the running telemetry, or nil while stopped.
func (c *Component) Telemetry() *Telemetry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.telemetry
}
