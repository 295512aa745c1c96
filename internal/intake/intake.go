package intake

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"supporttriage/internal/domain"
	"supporttriage/internal/storage/sqlite"
)

// Classifier is satisfied by *triage.Service.
type Classifier interface {
	ClassifyTicket(ctx context.Context, ticket domain.Ticket) (domain.ClassificationResult, error)
}

// Notifier is told about every ticket that was classified P1.
type Notifier interface {
	NotifyCritical(ctx context.Context, ticketID string, ticket domain.Ticket, result domain.ClassificationResult) error
}

// Intake assigns ticket IDs, classifies, records history and raises P1
// alerts. The HTTP API, Slack commands and CLI all submit through it.
type Intake struct {
	classifier Classifier
	db         *sql.DB
	notifier   Notifier
	now        func() time.Time
}

// New builds an Intake. db and notifier may be nil, which disables history
// and alerts respectively.
func New(classifier Classifier, db *sql.DB, notifier Notifier) *Intake {
	return &Intake{classifier: classifier, db: db, notifier: notifier, now: time.Now}
}

// Submit classifies ticket under a fresh ticket ID. History and alert
// failures are logged and do not fail the submission.
func (in *Intake) Submit(ctx context.Context, ticket domain.Ticket) (string, domain.ClassificationResult, error) {
	ticketID := uuid.NewString()
	result, err := in.classifier.ClassifyTicket(ctx, ticket)
	if err != nil {
		slog.Error("intake classification failed", "ticket_id", ticketID, "error", err)
		return ticketID, result, err
	}

	if in.db != nil {
		_, dbErr := sqlite.InsertClassification(in.db, domain.ClassificationRecord{
			TicketID:     ticketID,
			Title:        ticket.Title,
			Client:       ticket.Client,
			Channel:      ticket.Channel,
			Priority:     result.Priority,
			Urgency:      result.Urgency,
			Impact:       result.Impact,
			Confidence:   result.Confidence,
			ModelUsed:    result.ModelUsed,
			ClassifiedAt: in.now().UTC(),
		})
		if dbErr != nil {
			slog.Error("intake history insert failed", "ticket_id", ticketID, "error", dbErr)
		}
	}

	if in.notifier != nil && result.Priority == domain.PriorityP1 {
		if nErr := in.notifier.NotifyCritical(ctx, ticketID, ticket, result); nErr != nil {
			slog.Error("intake P1 alert failed", "ticket_id", ticketID, "error", nErr)
		}
	}
	return ticketID, result, nil
}
