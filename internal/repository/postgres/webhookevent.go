package postgres

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/menumate/menumate/internal/domain/webhookevent"
	ierr "github.com/menumate/menumate/internal/errors"
	"github.com/menumate/menumate/internal/logger"
	"github.com/menumate/menumate/internal/postgres"
)

type webhookEventRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewWebhookEventRepository(db *postgres.DB, logger *logger.Logger) webhookevent.Repository {
	return &webhookEventRepository{db: db, logger: logger}
}

// MarkProcessed inserts the dedup record. The primary key on event_id makes
// this the serialization point for concurrent deliveries of the same event.
func (r *webhookEventRepository) MarkProcessed(ctx context.Context, event *webhookevent.ProcessedEvent) error {
	query := `
		INSERT INTO processed_webhook_events (
			event_id, event_type, tenant_id, received_at, processed_at
		)
		VALUES (
			:event_id, :event_type, :tenant_id, :received_at, :processed_at
		)
	`

	_, err := r.db.NamedExecContext(ctx, query, event)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == pqUniqueViolation {
			return ierr.WithError(err).
				WithHint("Webhook event already processed").
				WithReportableDetails(map[string]any{"event_id": event.EventID}).
				Mark(ierr.ErrAlreadyExists)
		}
		r.logger.Errorw("failed to mark webhook event processed",
			"error", err, "event_id", event.EventID)
		return ierr.WithError(err).
			WithHint("Failed to record webhook event").
			Mark(ierr.ErrDatabase)
	}

	return nil
}

func (r *webhookEventRepository) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM processed_webhook_events WHERE event_id = $1
		)
	`

	var exists bool
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &exists, query, eventID); err != nil {
		r.logger.Errorw("failed to check webhook event", "error", err, "event_id", eventID)
		return false, ierr.WithError(err).
			WithHint("Failed to check webhook event").
			Mark(ierr.ErrDatabase)
	}

	return exists, nil
}

func (r *webhookEventRepository) Get(ctx context.Context, eventID string) (*webhookevent.ProcessedEvent, error) {
	query := `
		SELECT * FROM processed_webhook_events WHERE event_id = $1
	`

	var event webhookevent.ProcessedEvent
	err := r.db.GetQuerier(ctx).GetContext(ctx, &event, query, eventID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("webhook event not found").
				WithHintf("Webhook event %s was not recorded", eventID).
				WithReportableDetails(map[string]any{"event_id": eventID}).
				Mark(ierr.ErrNotFound)
		}
		r.logger.Errorw("failed to get webhook event", "error", err, "event_id", eventID)
		return nil, ierr.WithError(err).
			WithHint("Failed to get webhook event").
			Mark(ierr.ErrDatabase)
	}

	return &event, nil
}
