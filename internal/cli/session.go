package cli

import (
	"context"
	"time"

	"github.com/kbukum/procinvoke/component"
	"github.com/kbukum/procinvoke/journal"
	"github.com/kbukum/procinvoke/logger"
	"github.com/kbukum/procinvoke/observability"
	"github.com/kbukum/procinvoke/process"
	"github.com/kbukum/procinvoke/version"
)

const shutdownTimeout = 5 * time.Second

// session holds what a command needs once the configuration is loaded.
type session struct {
	cfg        *AppConfig
	log        *logger.Logger
	components *component.Registry
	telemetry  *observability.Component
	journal    *journal.Store
}

func openSession(ctx context.Context, g *globalOptions) (*session, error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, err
	}
	log := newLogger(cfg)
	s := &session{
		cfg:        cfg,
		log:        log,
		components: component.NewRegistry(log.WithComponent("lifecycle")),
	}

	if cfg.Observability.ServiceVersion == "" {
		cfg.Observability.ServiceVersion = version.Get().Short()
	}
	s.telemetry = observability.NewComponent(cfg.Observability)
	if err := s.components.Register(s.telemetry); err != nil {
		return nil, err
	}

	var jc *journal.Component
	if cfg.Journal.Enabled {
		jc = journal.NewComponent(cfg.Journal)
		if err := s.components.Register(jc); err != nil {
			return nil, err
		}
	}

	if err := s.components.StartAll(ctx); err != nil {
		return nil, err
	}
	if jc != nil {
		s.journal = jc.Store()
	}
	return s, nil
}

// newInvoker builds an invoker from pc that reports into the session's
// telemetry and journal.
func (s *session) newInvoker(pc process.Config) *process.Invoker {
	opts := []process.InvokerOption{process.WithTelemetry(s.telemetry.Telemetry())}
	if s.journal != nil {
		opts = append(opts, process.WithObserver(s.journal))
	}
	return process.NewInvokerFromConfig(pc, s.log, opts...)
}

func (s *session) close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.components.StopAll(ctx)
}
