package slackbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"

	"supporttriage/internal/corpus"
	"supporttriage/internal/domain"
	"supporttriage/internal/triage"
)

// Submitter is satisfied by *intake.Intake.
type Submitter interface {
	Submit(ctx context.Context, ticket domain.Ticket) (string, domain.ClassificationResult, error)
}

// Bot answers slash commands over Socket Mode.
type Bot struct {
	api    *slack.Client
	intake Submitter
	corpus *corpus.Holder
}

func NewBot(api *slack.Client, intake Submitter, holder *corpus.Holder) *Bot {
	return &Bot{api: api, intake: intake, corpus: holder}
}

// NewClient builds the Slack API client used by both the bot and the notifier.
func NewClient(botToken, appToken string) *slack.Client {
	return slack.New(botToken, slack.OptionAppLevelToken(appToken))
}

// Run connects via Socket Mode and blocks until ctx is cancelled or the
// connection fails.
func (b *Bot) Run(ctx context.Context) error {
	client := socketmode.New(b.api)

	go func() {
		for evt := range client.Events {
			switch evt.Type {
			case socketmode.EventTypeSlashCommand:
				client.Ack(*evt.Request)
				cmd, ok := evt.Data.(slack.SlashCommand)
				if !ok {
					continue
				}
				slog.Info("slack slash command received", "command", cmd.Command, "user", cmd.UserID, "channel", cmd.ChannelID)
				go func(cmd slack.SlashCommand) {
					b.postEphemeral(cmd, b.handleSlashCommand(ctx, cmd))
				}(cmd)
			case socketmode.EventTypeConnected:
				slog.Info("slack bot connected via Socket Mode")
			}
		}
	}()

	return client.RunContext(ctx)
}

func (b *Bot) handleSlashCommand(ctx context.Context, cmd slack.SlashCommand) string {
	switch cmd.Command {
	case "/triage":
		return b.handleTriage(ctx, cmd)
	case "/sla":
		return formatSlaMatrix(b.corpus.Current().SlaMatrix())
	case "/clients":
		return formatClients(b.corpus.Current().Clients())
	case "/help":
		return helpText()
	default:
		return fmt.Sprintf("Comando desconocido: %s\n\n%s", cmd.Command, helpText())
	}
}

func (b *Bot) handleTriage(ctx context.Context, cmd slack.SlashCommand) string {
	ticket, err := parseTriageArgs(cmd.Text)
	if err != nil {
		return err.Error()
	}
	ticketID, result, err := b.intake.Submit(ctx, ticket)
	if err != nil {
		if errors.Is(err, triage.ErrInvalidTicket) {
			return usageTriage
		}
		slog.Error("slack triage failed", "user", cmd.UserID, "error", err)
		return fmt.Sprintf("Error al clasificar el ticket: %v", err)
	}
	return formatResult(ticketID, result)
}

func (b *Bot) postEphemeral(cmd slack.SlashCommand, text string) {
	_, err := b.api.PostEphemeral(cmd.ChannelID, cmd.UserID, slack.MsgOptionText(text, false))
	if err != nil {
		slog.Error("slack post ephemeral failed", "channel", cmd.ChannelID, "error", err)
	}
}

const usageTriage = "Uso: `/triage título | descripción | cliente (opcional)`"

// parseTriageArgs splits "title | description | client" into a ticket.
// The channel is always "slack".
func parseTriageArgs(text string) (domain.Ticket, error) {
	parts := strings.Split(text, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return domain.Ticket{}, errors.New(usageTriage)
	}
	ticket := domain.Ticket{Title: parts[0], Description: parts[1], Channel: "slack"}
	if len(parts) > 2 {
		ticket.Client = strings.Join(parts[2:], "|")
	}
	return ticket, nil
}

func formatResult(ticketID string, r domain.ClassificationResult) string {
	lines := []string{
		fmt.Sprintf("*Ticket %s* — %s / %s / impacto %s", ticketID, r.Priority, r.Urgency, r.Impact),
		fmt.Sprintf("SLA: 1ª respuesta %s, asistencia %s, solución %s",
			r.SLA.FirstResponseTime, r.SLA.AssistanceTime, r.SLA.ResolutionTargetTime),
		fmt.Sprintf("Confianza: %.2f (modelo: %s)", r.Confidence, r.ModelUsed),
		fmt.Sprintf(">%s", r.Justification),
	}
	if r.ClientContext != nil {
		lines = append(lines, fmt.Sprintf("Cliente estratégico: %s (MRR %.0f, %s)",
			r.ClientContext.Name, r.ClientContext.MRR, r.ClientContext.ServiceState))
	}
	for _, rec := range r.Recommendations {
		lines = append(lines, "• "+rec)
	}
	if len(r.Matches) > 0 {
		ids := make([]string, len(r.Matches))
		for i, m := range r.Matches {
			ids[i] = fmt.Sprintf("%s (%.2f)", m.ID, m.Rating)
		}
		lines = append(lines, "Similares: "+strings.Join(ids, ", "))
	}
	return strings.Join(lines, "\n")
}

func formatSlaMatrix(rows []domain.SlaRow) string {
	if len(rows) == 0 {
		return "La tabla ANS no está disponible."
	}
	lines := []string{"*Tabla ANS*"}
	for _, row := range rows {
		lines = append(lines, fmt.Sprintf("• *%s*: 1ª respuesta %s, asistencia %s, solución %s",
			row.Impact, row.FirstResponseTime, row.AssistanceTime, row.ResolutionTargetTime))
	}
	return strings.Join(lines, "\n")
}

func formatClients(clients []domain.ClientRecord) string {
	if len(clients) == 0 {
		return "No hay clientes estratégicos cargados."
	}
	lines := []string{fmt.Sprintf("*Clientes estratégicos* (%d)", len(clients))}
	for _, c := range clients {
		lines = append(lines, fmt.Sprintf("• %s — MRR %.0f — %s", strings.TrimSpace(c.Name), c.MRR, c.ServiceState))
	}
	return strings.Join(lines, "\n")
}

func helpText() string {
	return strings.Join([]string{
		"*Support Triage Commands*",
		"",
		"`/triage título | descripción | cliente` — Clasifica un ticket (cliente opcional).",
		">*Ejemplo:* `/triage Checkout caído | Error 500 al pagar | Acme Corp`",
		"`/sla` — Muestra la tabla ANS.",
		"`/clients` — Lista los clientes estratégicos.",
		"`/help` — Muestra esta ayuda.",
	}, "\n")
}
