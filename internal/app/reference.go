package app

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newSlaCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "sla",
		Short: "Print the ANS (SLA) matrix",
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := rt.loadCorpus().Current().SlaMatrix()
			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "No ANS matrix loaded.")
				return nil
			}
			fmt.Fprintf(out, "%-10s %-18s %-18s %s\n", "IMPACTO", "PRIMER RESPUESTA", "ASISTENCIA", "SOLUCIÓN")
			for _, row := range rows {
				fmt.Fprintf(out, "%-10s %-18s %-18s %s\n",
					row.Impact, row.FirstResponseTime, row.AssistanceTime, row.ResolutionTargetTime)
			}
			return nil
		},
	}
}

func newClientsCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "clients",
		Short: "List strategic clients",
		RunE: func(cmd *cobra.Command, args []string) error {
			clients := rt.loadCorpus().Current().Clients()
			out := cmd.OutOrStdout()
			if len(clients) == 0 {
				fmt.Fprintln(out, "No strategic clients loaded.")
				return nil
			}
			for _, c := range clients {
				fmt.Fprintf(out, "%s\t%.0f\t%s\n", strings.TrimSpace(c.Name), c.MRR, c.ServiceState)
			}
			return nil
		},
	}
}
