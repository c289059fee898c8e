package cli

import (
	"fmt"

	"github.com/kbukum/procinvoke/config"
	"github.com/kbukum/procinvoke/journal"
	"github.com/kbukum/procinvoke/logger"
	"github.com/kbukum/procinvoke/observability"
	"github.com/kbukum/procinvoke/process"
)

const serviceName = "procinvoke"

// AppConfig is the configuration file layout of the procinvoke command.
type AppConfig struct {
	config.BaseConfig `yaml:",inline" mapstructure:",squash"`
	Process           process.Config       `yaml:"process" mapstructure:"process"`
	Observability     observability.Config `yaml:"observability" mapstructure:"observability"`
	Journal           journal.Config       `yaml:"journal" mapstructure:"journal"`
}

// ApplyDefaults fills unset fields of every section.
func (c *AppConfig) ApplyDefaults() {
	c.BaseConfig.ApplyDefaults()
	c.Process.ApplyDefaults()
	if c.Observability.ServiceName == "" {
		c.Observability.ServiceName = serviceName
	}
	if c.Observability.Environment == "" {
		c.Observability.Environment = c.Environment
	}
	c.Observability.ApplyDefaults()
	if c.Journal.Enabled {
		c.Journal.ApplyDefaults()
	}
}

// Validate checks every section.
func (c *AppConfig) Validate() error {
	if err := c.BaseConfig.Validate(); err != nil {
		return err
	}
	if err := c.Process.Validate(); err != nil {
		return err
	}
	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("observability: %w", err)
	}
	if c.Journal.Enabled {
		if err := c.Journal.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// loadConfig reads the configuration selected by the global flags.
func loadConfig(g *globalOptions) (*AppConfig, error) {
	opts := []config.LoaderOption{
		config.WithDefaults(map[string]any{
			"name":        serviceName,
			"environment": "production",
		}),
	}
	if g.configFile != "" {
		opts = append(opts, config.WithConfigFile(g.configFile))
	}
	if g.envFile != "" {
		opts = append(opts, config.WithEnvFile(g.envFile))
	}

	var cfg AppConfig
	if err := config.LoadConfig(serviceName, &cfg, opts...); err != nil {
		return nil, err
	}
	if g.logLevel != "" {
		cfg.Logger.Level = g.logLevel
	}
	if g.noJournal {
		cfg.Journal.Enabled = false
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// newLogger builds the command logger and seeds the named loggers the
// process and journal packages look up.
func newLogger(cfg *AppConfig) *logger.Logger {
	log := logger.New(&cfg.Logger, serviceName)
	logger.SetGlobalLogger(log)
	logger.RegisterDefaults("process", "journal", cfg.Process.Name)
	return log
}
