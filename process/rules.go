package process

import (
	"fmt"
	"slices"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	apperrors "github.com/kbukum/procinvoke/errors"
)

// ResultRule decides whether a result counts as successful.
type ResultRule interface {
	Description() string
	Satisfied(Result) bool
}

// RuleFunc adapts a predicate to ResultRule.
type RuleFunc struct {
	Name string
	Fn   func(Result) bool
}

func (r RuleFunc) Description() string       { return r.Name }
func (r RuleFunc) Satisfied(res Result) bool { return r.Fn(res) }

// ExitCodeZero requires exit code 0.
func ExitCodeZero() ResultRule {
	return RuleFunc{Name: "exit code is zero", Fn: func(r Result) bool { return r.ExitCode == 0 }}
}

// ExitCodeIn accepts any of codes.
func ExitCodeIn(codes ...int) ResultRule {
	return RuleFunc{
		Name: fmt.Sprintf("exit code in %v", codes),
		Fn:   func(r Result) bool { return slices.Contains(codes, r.ExitCode) },
	}
}

// ruleEnv is the variable set visible to expression rules.
type ruleEnv struct {
	ExitCode       int
	ProcessID      int
	ExecutablePath string
	Outcome        string
	Duration       float64 // seconds
}

func newRuleEnv(r Result) ruleEnv {
	return ruleEnv{
		ExitCode:       r.ExitCode,
		ProcessID:      r.ProcessID,
		ExecutablePath: r.ExecutablePath,
		Outcome:        r.Outcome.String(),
		Duration:       r.Duration().Seconds(),
	}
}

type exprRule struct {
	source  string
	program *vm.Program
}

// ExprRule compiles a boolean expression over ExitCode, ProcessID,
// ExecutablePath, Outcome and Duration (seconds), e.g.
// `ExitCode in [0, 3] && Duration < 60`.
func ExprRule(expression string) (ResultRule, error) {
	program, err := expr.Compile(expression,
		expr.Env(ruleEnv{}),
		expr.AsBool(),
	)
	if err != nil {
		return nil, apperrors.InvalidInput("rule", fmt.Sprintf("invalid expression %q", expression)).WithCause(err)
	}
	return &exprRule{source: expression, program: program}, nil
}

func (r *exprRule) Description() string { return r.source }

// Satisfied treats evaluation errors as failures.
func (r *exprRule) Satisfied(res Result) bool {
	out, err := expr.Run(r.program, newRuleEnv(res))
	if err != nil {
		return false
	}
	ok, _ := out.(bool)
	return ok
}

// ThrowIfNotSuccessful checks result against the rules of exitCfg and
// returns a *NotSuccessfulError describing every rule it failed.
func ThrowIfNotSuccessful(result Result, cfg *Configuration, exitCfg *ExitConfiguration) error {
	if exitCfg == nil {
		exitCfg = DefaultExitConfiguration()
	}

	var failed []string
	for _, rule := range exitCfg.rules() {
		if !rule.Satisfied(result) {
			failed = append(failed, rule.Description())
		}
	}
	if len(failed) == 0 {
		return nil
	}

	info := ExceptionInfo{Result: result, FailedRules: failed}
	if cfg != nil {
		snapshot := cfg.Clone()
		info.Configuration = snapshot
		info.ResourcePolicy = snapshot.ResourcePolicy
		info.Credential = snapshot.Credential.redacted()
		info.ShellRedirectConflict = cfg.HasShellRedirectConflict()
	}
	return &NotSuccessfulError{Info: info}
}
