package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	apperrors "github.com/kbukum/procinvoke/errors"
	"github.com/kbukum/procinvoke/journal"
)

func newHistoryCommand(g *globalOptions) *cobra.Command {
	var (
		filter journal.Filter
		since  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List journaled invocations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withJournal(cmd, g, func(s *session) error {
				if since > 0 {
					filter.Since = time.Now().Add(-since)
				}
				entries, err := s.journal.List(cmd.Context(), filter)
				if err != nil {
					return err
				}
				if g.json {
					if entries == nil {
						entries = []journal.Entry{}
					}
					return writeJSON(cmd.OutOrStdout(), entries)
				}
				return printEntries(cmd, entries)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&filter.Executable, "executable", "", "Only show invocations of this resolved executable path")
	f.BoolVar(&filter.FailedOnly, "failed", false, "Only show unsuccessful invocations")
	f.DurationVar(&since, "since", 0, "Only show invocations recorded within this duration")
	f.IntVarP(&filter.Limit, "limit", "n", 20, "Maximum number of entries; 0 shows all")

	cmd.AddCommand(newHistoryShowCommand(g), newHistoryPruneCommand(g))
	return cmd
}

func newHistoryShowCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one journaled invocation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withJournal(cmd, g, func(s *session) error {
				e, err := s.journal.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if g.json {
					return writeJSON(cmd.OutOrStdout(), e)
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintf(w, "ID:\t%s\n", e.ID)
				fmt.Fprintf(w, "Mode:\t%s\n", e.Mode)
				fmt.Fprintf(w, "Executable:\t%s\n", e.ExecutablePath)
				fmt.Fprintf(w, "Arguments:\t%s\n", e.Arguments)
				if e.WorkingDirectory != "" {
					fmt.Fprintf(w, "Directory:\t%s\n", e.WorkingDirectory)
				}
				if e.Started {
					fmt.Fprintf(w, "PID:\t%d\n", e.ProcessID)
					fmt.Fprintf(w, "Exit code:\t%d\n", e.ExitCode)
					fmt.Fprintf(w, "Outcome:\t%s\n", e.Outcome)
					fmt.Fprintf(w, "Duration:\t%s\n", e.Duration().Round(time.Millisecond))
				}
				fmt.Fprintf(w, "Succeeded:\t%t\n", e.Succeeded)
				if e.ErrorMessage != "" {
					fmt.Fprintf(w, "Error:\t%s %s\n", e.ErrorCode, e.ErrorMessage)
				}
				fmt.Fprintf(w, "Recorded:\t%s\n", e.RecordedAt.Format(time.RFC3339))
				return w.Flush()
			})
		},
	}
}

func newHistoryPruneCommand(g *globalOptions) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete old journal entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if olderThan < 0 {
				return apperrors.InvalidInput("older-than", "must not be negative")
			}
			return withJournal(cmd, g, func(s *session) error {
				n, err := s.journal.Prune(cmd.Context(), time.Now().Add(-olderThan))
				if err != nil {
					return err
				}
				if g.json {
					return writeJSON(cmd.OutOrStdout(), map[string]int64{"pruned": n})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d entries\n", n)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Delete entries recorded before now minus this duration")
	return cmd
}

func withJournal(cmd *cobra.Command, g *globalOptions, fn func(*session) error) error {
	s, err := openSession(cmd.Context(), g)
	if err != nil {
		return err
	}
	defer s.close()
	if s.journal == nil {
		return apperrors.InvalidInput("journal", "the journal is disabled; set journal.enabled to true")
	}
	return fn(s)
}

func printEntries(cmd *cobra.Command, entries []journal.Entry) error {
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No invocations recorded.")
		return nil
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tRECORDED\tEXECUTABLE\tEXIT\tOUTCOME\tDURATION\tSTATUS")
	for _, e := range entries {
		exit, outcome, duration := "-", "-", "-"
		if e.Started {
			exit = fmt.Sprint(e.ExitCode)
			outcome = e.Outcome
			duration = e.Duration().Round(time.Millisecond).String()
		}
		status := "ok"
		if !e.Succeeded {
			status = "failed"
			if e.ErrorCode != "" {
				status = e.ErrorCode
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.RecordedAt.Format(time.DateTime), e.ExecutablePath, exit, outcome, duration, status)
	}
	return w.Flush()
}
