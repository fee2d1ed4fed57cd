package types

import (
	"encoding/json"
	"time"

	ierr "github.com/menumate/menumate/internal/errors"
)

// CRMEventType represents the type of an inbound CRM webhook event
type CRMEventType string

const (
	CRMEventTypeDealCreated      CRMEventType = "deal.created"
	CRMEventTypeDealUpdated      CRMEventType = "deal.updated"
	CRMEventTypeDealStageChanged CRMEventType = "deal.stage_changed"
)

// IsRelevant reports whether the reconciler has a handler for this type.
// Irrelevant types are accepted and ignored so the sender's retry logic
// does not interpret them as delivery failures.
func (t CRMEventType) IsRelevant() bool {
	switch t {
	case CRMEventTypeDealCreated, CRMEventTypeDealUpdated, CRMEventTypeDealStageChanged:
		return true
	}
	return false
}

// String returns the string representation of the CRM event type
func (t CRMEventType) String() string {
	return string(t)
}

// Lifecycle event names broadcast through the notification fan-out
const (
	EventCheckoutLinkCreated      = "checkoutlink.created"
	EventCheckoutLinkUsed         = "checkoutlink.used"
	EventCheckoutLinkExpired      = "checkoutlink.expired"
	EventSubscriptionCanceled     = "subscription.canceled"
	EventSubscriptionCancelUndone = "subscription.cancel_undone"
	EventSubscriptionTrialExtend  = "subscription.trial_extended"
)

// NotificationEvent is the envelope broadcast to notification sinks
type NotificationEvent struct {
	ID        string          `json:"id"`
	EventName string          `json:"event_name"`
	TenantID  string          `json:"tenant_id"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// NewNotificationEvent builds an event envelope with a marshaled payload.
func NewNotificationEvent(eventName, tenantID string, payload any) (*NotificationEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to encode notification payload").
			Mark(ierr.ErrSystem)
	}
	return &NotificationEvent{
		ID:        GenerateUUIDWithPrefix(UUID_PREFIX_NOTIFICATION),
		EventName: eventName,
		TenantID:  tenantID,
		Timestamp: time.Now().UTC(),
		Payload:   raw,
	}, nil
}

// PubSubType selects the transport carrying notification events
type PubSubType string

const (
	MemoryPubSub PubSubType = "memory"
)
