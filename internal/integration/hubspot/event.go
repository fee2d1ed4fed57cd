package hubspot

import (
	"encoding/json"
	"strconv"
	"time"

	ierr "github.com/menumate/menumate/internal/errors"
	"github.com/menumate/menumate/internal/types"
)

// DealEvent is a single entry from a HubSpot webhook delivery batch.
// HubSpot posts an array of these per request.
type DealEvent struct {
	EventID          int64  `json:"eventId"`
	SubscriptionID   int64  `json:"subscriptionId"`
	SubscriptionType string `json:"subscriptionType"`
	PortalID         int64  `json:"portalId"`
	ObjectID         int64  `json:"objectId"`
	PropertyName     string `json:"propertyName,omitempty"`
	PropertyValue    string `json:"propertyValue,omitempty"`
	ChangeSource     string `json:"changeSource,omitempty"`
	OccurredAt       int64  `json:"occurredAt"`
	AttemptNumber    int    `json:"attemptNumber,omitempty"`
}

// EventKey returns the dedup identifier for this delivery.
// HubSpot reuses eventId across redelivery attempts, which is exactly
// what the dedup store needs.
func (e DealEvent) EventKey() string {
	return strconv.FormatInt(e.EventID, 10)
}

// DealID returns the CRM object id as a string
func (e DealEvent) DealID() string {
	return strconv.FormatInt(e.ObjectID, 10)
}

// EventType maps the HubSpot subscription type onto our CRM event types.
// Unknown types pass through unchanged and fall out as irrelevant downstream.
func (e DealEvent) EventType() types.CRMEventType {
	switch e.SubscriptionType {
	case "deal.creation":
		return types.CRMEventTypeDealCreated
	case "deal.propertyChange":
		if e.PropertyName == "dealstage" {
			return types.CRMEventTypeDealStageChanged
		}
		return types.CRMEventTypeDealUpdated
	default:
		return types.CRMEventType(e.SubscriptionType)
	}
}

// OccurredTime converts the millisecond timestamp to UTC
func (e DealEvent) OccurredTime() time.Time {
	return time.UnixMilli(e.OccurredAt).UTC()
}

// ParseDealEvents decodes a webhook delivery body into deal events
func ParseDealEvents(body []byte) ([]DealEvent, error) {
	var events []DealEvent
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Webhook payload is not a valid event batch").
			Mark(ierr.ErrValidation)
	}
	return events, nil
}
