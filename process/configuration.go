package process

import (
	"io"
	"maps"
	"os"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/encoding/htmlindex"

	apperrors "github.com/kbukum/procinvoke/errors"
	"github.com/kbukum/procinvoke/validation"
)

// Configuration describes a process to run. Build it with NewConfiguration;
// the Invoker replaces TargetFilePath with the resolved absolute path.
type Configuration struct {
	TargetFilePath        string `validate:"required"`
	Arguments             string
	WorkingDirectory      string `validate:"omitempty,dir"`
	RequiresAdministrator bool
	Environment           map[string]string
	Credential            *Credential

	StandardInput          io.Reader
	StandardOutput         io.Writer
	StandardError          io.Writer
	RedirectStandardInput  bool
	RedirectStandardOutput bool
	RedirectStandardError  bool

	// Encodings are IANA/WHATWG names; empty means UTF-8.
	StandardInputEncoding  string `validate:"omitempty,encoding"`
	StandardOutputEncoding string `validate:"omitempty,encoding"`
	StandardErrorEncoding  string `validate:"omitempty,encoding"`

	ResourcePolicy    *ResourcePolicy
	WindowCreation    bool
	UseShellExecution bool

	closeOnce sync.Once
}

// ConfigOption mutates a Configuration under construction.
type ConfigOption func(*Configuration)

// WithArguments sets the raw argument string.
func WithArguments(args string) ConfigOption {
	return func(c *Configuration) { c.Arguments = args }
}

// WithArgs quotes args for the current platform and sets them as Arguments.
func WithArgs(args ...string) ConfigOption {
	return func(c *Configuration) { c.Arguments = joinArguments(args) }
}

// WithWorkingDirectory sets the child's working directory.
func WithWorkingDirectory(dir string) ConfigOption {
	return func(c *Configuration) { c.WorkingDirectory = dir }
}

// WithEnvironment sets variables that override the inherited environment.
func WithEnvironment(env map[string]string) ConfigOption {
	return func(c *Configuration) {
		if c.Environment == nil {
			c.Environment = make(map[string]string, len(env))
		}
		maps.Copy(c.Environment, env)
	}
}

// WithEnv sets a single environment variable.
func WithEnv(key, value string) ConfigOption {
	return WithEnvironment(map[string]string{key: value})
}

// WithCredential runs the process as another account.
func WithCredential(cred *Credential) ConfigOption {
	return func(c *Configuration) { c.Credential = cred }
}

// WithAdministrator requires the caller to hold administrator privileges.
func WithAdministrator() ConfigOption {
	return func(c *Configuration) { c.RequiresAdministrator = true }
}

// WithStandardInput redirects standard input from r.
func WithStandardInput(r io.Reader) ConfigOption {
	return func(c *Configuration) {
		c.StandardInput = r
		c.RedirectStandardInput = r != nil
	}
}

// WithStandardOutput redirects standard output into w.
func WithStandardOutput(w io.Writer) ConfigOption {
	return func(c *Configuration) {
		c.StandardOutput = w
		c.RedirectStandardOutput = true
	}
}

// WithStandardError redirects standard error into w.
func WithStandardError(w io.Writer) ConfigOption {
	return func(c *Configuration) {
		c.StandardError = w
		c.RedirectStandardError = true
	}
}

// WithRedirectedOutput redirects both output streams without a destination;
// Execute drains them, ExecuteBuffered and ExecutePiped capture them.
func WithRedirectedOutput() ConfigOption {
	return func(c *Configuration) {
		c.RedirectStandardOutput = true
		c.RedirectStandardError = true
	}
}

// WithEncodings sets the stdin, stdout and stderr encodings; empty keeps UTF-8.
func WithEncodings(stdin, stdout, stderr string) ConfigOption {
	return func(c *Configuration) {
		c.StandardInputEncoding = stdin
		c.StandardOutputEncoding = stdout
		c.StandardErrorEncoding = stderr
	}
}

// WithResourcePolicy applies p right after the process starts.
func WithResourcePolicy(p *ResourcePolicy) ConfigOption {
	return func(c *Configuration) { c.ResourcePolicy = p }
}

// WithWindowCreation lets the child create a visible console window (Windows).
func WithWindowCreation() ConfigOption {
	return func(c *Configuration) { c.WindowCreation = true }
}

// WithShellExecution runs the target through the platform shell.
func WithShellExecution() ConfigOption {
	return func(c *Configuration) { c.UseShellExecution = true }
}

var registerRulesOnce sync.Once

func registerRules() {
	registerRulesOnce.Do(func() {
		_ = validation.RegisterRule("encoding", func(name string) bool {
			_, err := htmlindex.Get(name)
			return err == nil
		})
	})
}

// NewConfiguration builds and validates a configuration for target.
// Shell execution combined with any stream redirection is rejected.
func NewConfiguration(target string, opts ...ConfigOption) (*Configuration, error) {
	c := &Configuration{TargetFilePath: target}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks field values and option conflicts.
func (c *Configuration) Validate() error {
	registerRules()
	if err := validation.Validate(c); err != nil {
		return err
	}
	if c.HasShellRedirectConflict() {
		return apperrors.Conflict("shell execution cannot be combined with standard stream redirection")
	}
	return c.ResourcePolicy.Validate()
}

// HasShellRedirectConflict reports whether shell execution and stream
// redirection were both requested.
func (c *Configuration) HasShellRedirectConflict() bool {
	return c.UseShellExecution &&
		(c.RedirectStandardInput || c.RedirectStandardOutput || c.RedirectStandardError)
}

// redirectsInput reports whether there is a real input source to copy.
func (c *Configuration) redirectsInput() bool {
	return c.RedirectStandardInput && c.StandardInput != nil && c.StandardInput != io.Reader(os.Stdin)
}

// environ returns the inherited environment with Environment applied on top.
func (c *Configuration) environ() []string {
	if len(c.Environment) == 0 {
		return nil
	}
	overridden := make(map[string]bool, len(c.Environment))
	for k := range c.Environment {
		overridden[envKey(k)] = true
	}
	env := make([]string, 0, len(os.Environ())+len(c.Environment))
	for _, kv := range os.Environ() {
		k, _, _ := strings.Cut(kv, "=")
		if !overridden[envKey(k)] {
			env = append(env, kv)
		}
	}
	keys := make([]string, 0, len(c.Environment))
	for k := range c.Environment {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+c.Environment[k])
	}
	return env
}

// Clone returns a copy sharing stream bindings but not maps or policies.
func (c *Configuration) Clone() *Configuration {
	cp := &Configuration{
		TargetFilePath:         c.TargetFilePath,
		Arguments:              c.Arguments,
		WorkingDirectory:       c.WorkingDirectory,
		RequiresAdministrator:  c.RequiresAdministrator,
		Environment:            maps.Clone(c.Environment),
		StandardInput:          c.StandardInput,
		StandardOutput:         c.StandardOutput,
		StandardError:          c.StandardError,
		RedirectStandardInput:  c.RedirectStandardInput,
		RedirectStandardOutput: c.RedirectStandardOutput,
		RedirectStandardError:  c.RedirectStandardError,
		StandardInputEncoding:  c.StandardInputEncoding,
		StandardOutputEncoding: c.StandardOutputEncoding,
		StandardErrorEncoding:  c.StandardErrorEncoding,
		ResourcePolicy:         c.ResourcePolicy.clone(),
		WindowCreation:         c.WindowCreation,
		UseShellExecution:      c.UseShellExecution,
	}
	if c.Credential != nil {
		cred := *c.Credential
		cp.Credential = &cred
	}
	return cp
}

// Close closes attached streams (never the process's own standard streams)
// and clears the credential password. It is safe to call more than once.
func (c *Configuration) Close() error {
	var err error
	c.closeOnce.Do(func() {
		for _, s := range []any{c.StandardInput, c.StandardOutput, c.StandardError} {
			if s == nil || isStdStream(s) {
				continue
			}
			if closer, ok := s.(io.Closer); ok {
				if cerr := closer.Close(); cerr != nil && err == nil {
					err = cerr
				}
			}
		}
		c.Credential.clear()
	})
	return err
}

func isStdStream(s any) bool {
	f, ok := s.(*os.File)
	return ok && (f == os.Stdin || f == os.Stdout || f == os.Stderr)
}
