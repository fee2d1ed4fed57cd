package webhookevent

import (
	"context"
)

// Repository defines the interface for the webhook dedup store.
//
// MarkProcessed is a conditional insert keyed on event id: it fails with
// ierr.ErrAlreadyExists when a record for the id exists, which makes the
// store the serialization point for concurrent deliveries of one event.
type Repository interface {
	MarkProcessed(ctx context.Context, event *ProcessedEvent) error
	IsProcessed(ctx context.Context, eventID string) (bool, error)
	Get(ctx context.Context, eventID string) (*ProcessedEvent, error)
}
