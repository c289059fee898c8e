package journal

import (
	"context"
	"sync"

	"github.com/kbukum/procinvoke/component"
	"github.com/kbukum/procinvoke/logger"
)

// Component opens the journal on Start and closes it on Stop.
type Component struct {
	cfg   Config
	mu    sync.RWMutex
	store *Store
}

var _ component.Component = (*Component)(nil)

// NewComponent returns a stopped journal component for cfg.
func NewComponent(cfg Config) *Component {
	return &Component{cfg: cfg}
}

// Name implements component.Component.
func (c *Component) Name() string { return "journal" }

// Start opens the database.
func (c *Component) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store != nil {
		return nil
	}
	s, err := Open(ctx, c.cfg)
	if err != nil {
		return err
	}
	c.store = s
	logger.Get("journal").Debug("journal opened", logger.Fields("path", c.cfg.Path))
	return nil
}

// Stop closes the database.
func (c *Component) Stop(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		return nil
	}
	err := c.store.Close()
	c.store = nil
	return err
}

// Health pings the database.
func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	s := c.Store()
	if s == nil {
		h.Status = component.StatusStopped
		return h
	}
	if err := s.db.PingContext(ctx); err != nil {
		h.Status = component.StatusUnhealthy
		h.Message = err.Error()
	}
	return h
}

// Store returns the open store, or nil while stopped.
func (c *Component) Store() *Store {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store
}
