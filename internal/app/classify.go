package app

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"supporttriage/internal/domain"
	"supporttriage/internal/intake"
	"supporttriage/internal/storage/sqlite"
)

type classifyOutput struct {
	TicketID string `json:"ticketId"`
	domain.ClassificationResult
}

func newClassifyCmd(rt *runtime) *cobra.Command {
	var ticket domain.Ticket
	var record bool
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify one ticket and print the result as JSON",
		Example: `  supporttriage classify --title "Checkout caído" --description "Error 500 al pagar" --client "Acme Corp"
  supporttriage classify -t "Reporte lento" -d "Las consultas tardan minutos" --record`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if ticket.Channel == "" {
				ticket.Channel = "cli"
			}
			service, err := rt.newTriageService(rt.loadCorpus())
			if err != nil {
				return err
			}

			var db *sql.DB
			if record {
				db, err = sqlite.InitDB(rt.cfg.DBPath)
				if err != nil {
					return fmt.Errorf("init database: %w", err)
				}
				defer db.Close()
			}

			ticketID, result, err := intake.New(service, db, nil).Submit(cmd.Context(), ticket)
			if err != nil {
				return fmt.Errorf("classify ticket: %w", err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			return enc.Encode(classifyOutput{TicketID: ticketID, ClassificationResult: result})
		},
	}
	cmd.Flags().StringVarP(&ticket.Title, "title", "t", "", "ticket title (required)")
	cmd.Flags().StringVarP(&ticket.Description, "description", "d", "", "ticket description (required)")
	cmd.Flags().StringVarP(&ticket.Client, "client", "c", "", "client name")
	cmd.Flags().StringVar(&ticket.Channel, "channel", "", "intake channel (default \"cli\")")
	cmd.Flags().BoolVar(&record, "record", false, "store the classification in the history database")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("description")
	return cmd
}
