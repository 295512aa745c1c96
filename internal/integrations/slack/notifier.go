package slackbot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/slack-go/slack"

	"supporttriage/internal/domain"
)

// Notifier posts P1 classifications to an alert channel.
type Notifier struct {
	api       *slack.Client
	channelID string
}

// NewNotifier returns nil when no alert channel is configured.
func NewNotifier(api *slack.Client, channelID string) *Notifier {
	if api == nil || channelID == "" {
		return nil
	}
	return &Notifier{api: api, channelID: channelID}
}

func (n *Notifier) NotifyCritical(ctx context.Context, ticketID string, ticket domain.Ticket, result domain.ClassificationResult) error {
	_, _, err := n.api.PostMessageContext(ctx, n.channelID, slack.MsgOptionText(alertText(ticketID, ticket, result), false))
	if err != nil {
		return fmt.Errorf("posting P1 alert: %w", err)
	}
	slog.Info("slack P1 alert posted", "ticket_id", ticketID, "channel", n.channelID)
	return nil
}

func alertText(ticketID string, ticket domain.Ticket, r domain.ClassificationResult) string {
	client := ticket.Client
	if r.ClientContext != nil {
		client = r.ClientContext.Name
	}
	if client == "" {
		client = "sin cliente"
	}
	return fmt.Sprintf(":rotating_light: *%s* %s — %s\nCliente: %s | Impacto: %s | 1ª respuesta: %s\n>%s",
		r.Priority, ticketID, ticket.Title, client, r.Impact, r.SLA.FirstResponseTime, r.Justification)
}
