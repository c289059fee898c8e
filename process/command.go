package process

import (
	"io"
	"time"

	"github.com/kbukum/procinvoke/util"
)

// Command is the short form of a Configuration used by Run.
type Command struct {
	// Binary is the executable path or name (resolved via PATH).
	Binary string
	// Args are the command-line arguments, quoted for the platform.
	Args []string
	// Dir is the working directory. If empty, uses the current directory.
	Dir string
	// Env is additional environment variables (key=value), applied on top
	// of the inherited environment.
	Env []string
	// Stdin provides input to the process. May be nil.
	Stdin io.Reader
	// GracePeriod is how long to wait between SIGTERM and SIGINT once the
	// context deadline is reached. Defaults to 3 seconds if zero.
	GracePeriod time.Duration
	// ResourcePolicy is applied after start on a best-effort basis.
	ResourcePolicy *ResourcePolicy
}

// configuration converts c into a validated Configuration.
func (c Command) configuration() (*Configuration, error) {
	opts := []ConfigOption{
		WithArgs(c.Args...),
		WithWorkingDirectory(c.Dir),
		WithStandardInput(c.Stdin),
		WithResourcePolicy(c.ResourcePolicy),
	}
	if len(c.Env) > 0 {
		env := make(map[string]string, len(c.Env))
		for _, kv := range c.Env {
			k, v, err := util.ParseEnvAssignment(kv)
			if err != nil {
				return nil, err
			}
			env[k] = v
		}
		opts = append(opts, WithEnvironment(env))
	}
	return NewConfiguration(c.Binary, opts...)
}
