package journal

import (
	"fmt"
	"os"
	"path/filepath"
)

// Config configures the invocation journal.
type Config struct {
	// Enabled turns journaling on.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Path is the SQLite database file. ":memory:" keeps it in memory.
	Path string `yaml:"path,omitempty" mapstructure:"path"`
	// MaxOpenConns bounds the connection pool.
	MaxOpenConns int `yaml:"max_open_conns,omitempty" mapstructure:"max_open_conns"`
}

// ApplyDefaults places the database under the user's config directory.
func (c *Config) ApplyDefaults() {
	if c.Path == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			c.Path = filepath.Join(dir, "procinvoke", "journal.db")
		} else {
			c.Path = "procinvoke-journal.db"
		}
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 4
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("journal: path is required")
	}
	if c.MaxOpenConns < 0 {
		return fmt.Errorf("journal: max_open_conns must not be negative")
	}
	return nil
}
