package stripe

import (
	"context"
	"time"

	ierr "github.com/menumate/menumate/internal/errors"
	"github.com/stripe/stripe-go/v82"
)

// CreateCheckoutSession opens a hosted subscription checkout for the given price.
// The session expiry mirrors the checkout link expiry so a swept link can never
// resolve to a live session.
func (s *gatewayService) CreateCheckoutSession(ctx context.Context, req *CreateCheckoutSessionRequest) (*CheckoutSessionResponse, error) {
	stripeClient, err := s.client.GetStripeClient(ctx)
	if err != nil {
		return nil, err
	}

	successURL := s.client.cfg.SuccessURL
	if successURL == "" {
		successURL = "https://app.menumate.io/checkout/success"
	}
	cancelURL := s.client.cfg.CancelURL
	if cancelURL == "" {
		cancelURL = "https://app.menumate.io/checkout/cancel"
	}

	params := &stripe.CheckoutSessionCreateParams{
		Customer: stripe.String(req.ProviderCustomerID),
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				Price:    stripe.String(req.ProviderPriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:          stripe.String(successURL),
		CancelURL:           stripe.String(cancelURL),
		Metadata:            req.Metadata,
		AllowPromotionCodes: stripe.Bool(true),
	}

	if req.TrialDays > 0 {
		params.SubscriptionData = &stripe.CheckoutSessionCreateSubscriptionDataParams{
			TrialPeriodDays: stripe.Int64(int64(req.TrialDays)),
			Metadata:        req.Metadata,
		}
	}

	// Stripe caps session expiry between 30 minutes and 24 hours
	if !req.ExpiresAt.IsZero() {
		expiresAt := req.ExpiresAt
		if max := time.Now().UTC().Add(24 * time.Hour); expiresAt.After(max) {
			expiresAt = max
		}
		params.ExpiresAt = stripe.Int64(expiresAt.Unix())
	}

	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	session, err := stripeClient.V1CheckoutSessions.Create(ctx, params)
	if err != nil {
		s.logger.Errorw("failed to create Stripe checkout session",
			"error", err,
			"provider_customer_id", req.ProviderCustomerID,
			"provider_price_id", req.ProviderPriceID)
		return nil, ierr.NewError("failed to create checkout session").
			WithHint("Unable to create Stripe checkout session").
			WithReportableDetails(map[string]interface{}{
				"provider_customer_id": req.ProviderCustomerID,
				"provider_price_id":    req.ProviderPriceID,
			}).
			Mark(ierr.ErrIntegration)
	}

	s.logger.Infow("created Stripe checkout session",
		"session_id", session.ID,
		"provider_customer_id", req.ProviderCustomerID)

	return &CheckoutSessionResponse{
		SessionID: session.ID,
		URL:       session.URL,
		ExpiresAt: time.Unix(session.ExpiresAt, 0).UTC(),
	}, nil
}
