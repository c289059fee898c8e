// Package cli implements the procinvoke command.
package cli

import (
	"github.com/spf13/cobra"
)

// globalOptions holds the persistent flags shared by every subcommand.
type globalOptions struct {
	configFile string
	envFile    string
	logLevel   string
	json       bool
	noJournal  bool
}

// NewRootCommand creates the root command with all subcommands attached.
func NewRootCommand() *cobra.Command {
	g := &globalOptions{}
	cmd := &cobra.Command{
		Use:   "procinvoke",
		Short: "Run executables under timeout and cancellation policies",
		Long: `procinvoke starts an executable, waits for it under a timeout policy
and escalates from interrupt signals to killing the whole process tree
when the timeout elapses. Results can be journaled for later inspection.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&g.configFile, "config", "", "Path to config file (default: ./procinvoke.yml or ~/.config/procinvoke/config.yml)")
	pf.StringVar(&g.envFile, "env-file", "", "Path to a .env file loaded before the configuration")
	pf.StringVar(&g.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error, disabled)")
	pf.BoolVar(&g.json, "json", false, "Output in JSON format")
	pf.BoolVar(&g.noJournal, "no-journal", false, "Do not record invocations in the journal")

	cmd.AddCommand(
		newRunCommand(g),
		newHistoryCommand(g),
		newHealthCommand(g),
		newVersionCommand(g),
	)
	return cmd
}

// JSONRequested reports whether --json was set on root.
func JSONRequested(root *cobra.Command) bool {
	v, err := root.PersistentFlags().GetBool("json")
	return err == nil && v
}
