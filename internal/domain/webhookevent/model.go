package webhookevent

import (
	"time"
)

// ProcessedEvent is the dedup record for an externally delivered webhook
// event. Once a record exists for an event id, re-deliveries of that id are
// no-ops. The store is append-only; records are never updated or removed.
type ProcessedEvent struct {
	// EventID is the sender-assigned event identifier
	EventID string `db:"event_id" json:"event_id"`

	// EventType is the sender's event type string
	EventType string `db:"event_type" json:"event_type"`

	// TenantID scopes the record
	TenantID string `db:"tenant_id" json:"tenant_id"`

	// ReceivedAt is when the event was first seen
	ReceivedAt time.Time `db:"received_at" json:"received_at"`

	// ProcessedAt is when the handler completed successfully
	ProcessedAt time.Time `db:"processed_at" json:"processed_at"`
}

// NewProcessedEvent builds a dedup record for an event that has just been
// handled successfully.
func NewProcessedEvent(eventID, eventType, tenantID string, receivedAt time.Time) *ProcessedEvent {
	return &ProcessedEvent{
		EventID:     eventID,
		EventType:   eventType,
		TenantID:    tenantID,
		ReceivedAt:  receivedAt,
		ProcessedAt: time.Now().UTC(),
	}
}
