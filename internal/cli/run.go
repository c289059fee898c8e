package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	apperrors "github.com/kbukum/procinvoke/errors"
	"github.com/kbukum/procinvoke/process"
	"github.com/kbukum/procinvoke/util"
)

// Output modes of the run command.
const (
	outputStream   = "stream"
	outputBuffered = "buffered"
	outputPiped    = "piped"
)

type runOptions struct {
	timeout        time.Duration
	grace          time.Duration
	mode           string
	behavior       string
	validation     string
	output         string
	env            []string
	dir            string
	stdin          bool
	rules          []string
	encoding       string
	priority       string
	affinity       uint64
	minWorkingSet  string
	maxWorkingSet  string
	shell          bool
	user           string
	keyringService string
}

// bufferedOutput is the JSON document printed by buffered and piped runs.
type bufferedOutput struct {
	process.Result
	StandardOutput string               `json:"standard_output"`
	StandardError  string               `json:"standard_error"`
	Error          *apperrors.ErrorBody `json:"error,omitempty"`
}

func newRunCommand(g *globalOptions) *cobra.Command {
	o := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run [flags] [--] executable [args...]",
		Short: "Run an executable under a timeout policy",
		Long: `Run resolves the executable, starts it and waits for it to exit.

When --timeout elapses the process is terminated according to --mode:
graceful sends interrupts first and kills the process tree if it keeps
running, forceful kills the tree at once and none waits indefinitely.`,
		Example: `  procinvoke run --timeout 30s -- make test
  procinvoke run --output buffered --json -- git status --short
  procinvoke run --rule 'ExitCode in [0, 2]' -- grep -q foo file.txt`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, g, args)
		},
	}
	cmd.Flags().SetInterspersed(false)

	f := cmd.Flags()
	f.DurationVar(&o.timeout, "timeout", 0, "Timeout threshold; 0 waits indefinitely (default from process.timeout)")
	f.DurationVar(&o.grace, "grace", 0, "Wait between the first and second interrupt (default from process.grace_period)")
	f.StringVar(&o.mode, "mode", "", "Cancellation mode: none, graceful or forceful")
	f.StringVar(&o.behavior, "behavior", "", "Cancellation exception behavior: allow, allow_if_unexpected or suppress")
	f.StringVar(&o.validation, "validation", "", "Result validation: none or exit_code_zero")
	f.StringVarP(&o.output, "output", "o", outputStream, "Output mode: stream, buffered or piped")
	f.StringArrayVarP(&o.env, "env", "e", nil, "Set an environment variable KEY=VALUE (repeatable)")
	f.StringVarP(&o.dir, "dir", "C", "", "Working directory of the process")
	f.BoolVarP(&o.stdin, "stdin", "i", false, "Forward standard input to the process")
	f.StringArrayVar(&o.rules, "rule", nil, "Additional result rule expression, e.g. 'ExitCode < 2' (repeatable)")
	f.StringVar(&o.encoding, "encoding", "", "Encoding of the process output, e.g. windows-1252")
	f.StringVar(&o.priority, "priority", "", "Priority class: idle, below_normal, normal, above_normal, high or realtime")
	f.Uint64Var(&o.affinity, "affinity", 0, "Processor affinity bitmask")
	f.StringVar(&o.minWorkingSet, "min-working-set", "", "Minimum working set, e.g. 64MB (Windows)")
	f.StringVar(&o.maxWorkingSet, "max-working-set", "", "Maximum working set, e.g. 1GB (Windows)")
	f.BoolVar(&o.shell, "shell", false, "Start the process through the operating system shell")
	f.StringVar(&o.user, "user", "", "Run as this user")
	f.StringVar(&o.keyringService, "keyring-service", serviceName, "Keyring service holding the password of --user")

	return cmd
}

func (o *runOptions) run(cmd *cobra.Command, g *globalOptions, args []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx, g)
	if err != nil {
		return err
	}
	defer s.close()

	pc := o.processConfig(cmd, s.cfg)
	exitCfg, err := o.exitConfig(pc)
	if err != nil {
		return err
	}
	cfgOpts, err := o.configOptions(cmd, args[1:])
	if err != nil {
		return err
	}
	pcfg, err := process.NewConfiguration(args[0], cfgOpts...)
	if err != nil {
		return err
	}

	inv := s.newInvoker(pc)
	switch o.output {
	case outputStream:
		res, err := inv.Execute(ctx, pcfg, exitCfg, true)
		if g.json && res != nil {
			_ = writeJSON(cmd.OutOrStdout(), res)
		}
		return err
	case outputBuffered:
		res, err := inv.ExecuteBuffered(ctx, pcfg, exitCfg, true)
		if res == nil {
			return err
		}
		return o.printBuffered(cmd, g, res.Result, res.StandardOutput, res.StandardError, err)
	case outputPiped:
		res, err := inv.ExecutePiped(ctx, pcfg, exitCfg, true)
		if res == nil {
			return err
		}
		defer res.Close()
		stdout, stderr, rerr := readAll(res.StandardOutput, res.StandardError)
		if rerr != nil {
			return apperrors.IO("output", rerr)
		}
		return o.printBuffered(cmd, g, res.Result, stdout, stderr, err)
	default:
		return apperrors.InvalidInput("output", fmt.Sprintf("unknown output mode %q", o.output))
	}
}

// processConfig overlays the flags that were set onto the configured
// process section.
func (o *runOptions) processConfig(cmd *cobra.Command, cfg *AppConfig) process.Config {
	pc := cfg.Process
	if cmd.Flags().Changed("timeout") {
		pc.Timeout = o.timeout
	}
	if cmd.Flags().Changed("grace") {
		pc.GracePeriod = o.grace
	}
	if o.mode != "" {
		pc.CancellationMode = o.mode
	}
	if o.behavior != "" {
		pc.ExceptionBehavior = o.behavior
	}
	if o.validation != "" {
		pc.Validation = o.validation
	}
	return pc
}

func (o *runOptions) exitConfig(pc process.Config) (*process.ExitConfiguration, error) {
	exitCfg, err := process.ExitConfigFromConfig(pc)
	if err != nil {
		return nil, err
	}
	if len(o.rules) == 0 {
		return exitCfg, nil
	}
	rules := make([]process.ResultRule, 0, len(o.rules))
	for _, expression := range o.rules {
		rule, err := process.ExprRule(expression)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return exitCfg.WithRules(rules...), nil
}

func (o *runOptions) configOptions(cmd *cobra.Command, args []string) ([]process.ConfigOption, error) {
	opts := []process.ConfigOption{process.WithArgs(args...)}
	if o.dir != "" {
		opts = append(opts, process.WithWorkingDirectory(o.dir))
	}
	for _, assignment := range o.env {
		key, value, err := util.ParseEnvAssignment(assignment)
		if err != nil {
			return nil, apperrors.InvalidInput("env", err.Error())
		}
		opts = append(opts, process.WithEnv(key, value))
	}
	if o.stdin {
		opts = append(opts, process.WithStandardInput(cmd.InOrStdin()))
	}
	if o.output == outputStream && !o.shell {
		opts = append(opts,
			process.WithStandardOutput(cmd.OutOrStdout()),
			process.WithStandardError(cmd.ErrOrStderr()),
		)
	}
	if o.encoding != "" {
		opts = append(opts, process.WithEncodings("", o.encoding, o.encoding))
	}
	if o.shell {
		opts = append(opts, process.WithShellExecution())
	}

	policy, err := o.resourcePolicy()
	if err != nil {
		return nil, err
	}
	if policy != nil {
		opts = append(opts, process.WithResourcePolicy(policy))
	}

	if o.user != "" {
		cred, err := process.CredentialFromKeyring(o.keyringService, o.user)
		if err != nil {
			return nil, err
		}
		opts = append(opts, process.WithCredential(cred))
	}
	return opts, nil
}

func (o *runOptions) resourcePolicy() (*process.ResourcePolicy, error) {
	priority, err := process.ParsePriorityClass(o.priority)
	if err != nil {
		return nil, err
	}
	policy := &process.ResourcePolicy{PriorityClass: priority}
	if o.affinity != 0 {
		policy.ProcessorAffinity = util.Ptr(o.affinity)
	}
	for _, ws := range []struct {
		flag  string
		value string
		dst   **int64
	}{
		{"min-working-set", o.minWorkingSet, &policy.MinWorkingSet},
		{"max-working-set", o.maxWorkingSet, &policy.MaxWorkingSet},
	} {
		if ws.value == "" {
			continue
		}
		n, err := util.ParseSize(ws.value)
		if err != nil {
			return nil, apperrors.InvalidInput(ws.flag, err.Error())
		}
		*ws.dst = util.Ptr(n)
	}
	if policy.IsEmpty() {
		return nil, nil
	}
	return policy, nil
}

func (o *runOptions) printBuffered(cmd *cobra.Command, g *globalOptions, res process.Result, stdout, stderr string, runErr error) error {
	if g.json {
		doc := bufferedOutput{Result: res, StandardOutput: stdout, StandardError: stderr}
		if runErr != nil {
			body := apperrors.Wrap(runErr).ToResponse().Error
			doc.Error = &body
		}
		if err := writeJSON(cmd.OutOrStdout(), doc); err != nil {
			return err
		}
		return runErr
	}
	fmt.Fprint(cmd.OutOrStdout(), stdout)
	fmt.Fprint(cmd.ErrOrStderr(), stderr)
	return runErr
}

// readAll drains both streams. Failed piped invocations carry no streams.
func readAll(stdout, stderr io.Reader) (string, string, error) {
	var out [2]string
	for i, r := range []io.Reader{stdout, stderr} {
		if r == nil {
			continue
		}
		b, err := io.ReadAll(r)
		if err != nil {
			return "", "", err
		}
		out[i] = string(b)
	}
	return out[0], out[1], nil
}
