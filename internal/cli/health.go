package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kbukum/procinvoke/component"
	apperrors "github.com/kbukum/procinvoke/errors"
)

func newHealthCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the configured journal and telemetry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer s.close()

			results := s.components.HealthAll(cmd.Context())
			if g.json {
				if err := writeJSON(cmd.OutOrStdout(), results); err != nil {
					return err
				}
			} else {
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "COMPONENT\tSTATUS\tMESSAGE")
				for _, h := range results {
					fmt.Fprintf(w, "%s\t%s\t%s\n", h.Name, h.Status, h.Message)
				}
				if err := w.Flush(); err != nil {
					return err
				}
			}
			for _, h := range results {
				if h.Status == component.StatusUnhealthy {
					return apperrors.New(apperrors.ErrCodeInternal, fmt.Sprintf("%s is unhealthy: %s", h.Name, h.Message))
				}
			}
			return nil
		},
	}
}
