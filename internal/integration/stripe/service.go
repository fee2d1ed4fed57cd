package stripe

import (
	"time"

	"github.com/menumate/menumate/internal/logger"
	"github.com/stripe/stripe-go/v82"
)

// gatewayService implements Gateway on top of the Stripe API
type gatewayService struct {
	client *Client
	logger *logger.Logger
}

// NewGateway creates the Stripe-backed provider gateway
func NewGateway(client *Client, logger *logger.Logger) Gateway {
	return &gatewayService{
		client: client,
		logger: logger,
	}
}

// unixToTime converts a Stripe unix timestamp to a UTC time pointer.
// Stripe uses 0 for unset timestamps.
func unixToTime(v int64) *time.Time {
	if v == 0 {
		return nil
	}
	t := time.Unix(v, 0).UTC()
	return &t
}

// toSubscriptionResponse maps a Stripe subscription to the gateway view
func toSubscriptionResponse(sub *stripe.Subscription) *SubscriptionResponse {
	resp := &SubscriptionResponse{
		ProviderSubscriptionID: sub.ID,
		Status:                 string(sub.Status),
		TrialEnd:               unixToTime(sub.TrialEnd),
		CancelAt:               unixToTime(sub.CancelAt),
		CanceledAt:             unixToTime(sub.CanceledAt),
		CancelAtPeriodEnd:      sub.CancelAtPeriodEnd,
	}
	if sub.Customer != nil {
		resp.ProviderCustomerID = sub.Customer.ID
	}
	// Billing period data lives on the subscription items
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		resp.CurrentPeriodStart = unixToTime(item.CurrentPeriodStart)
		resp.CurrentPeriodEnd = unixToTime(item.CurrentPeriodEnd)
	}
	return resp
}
