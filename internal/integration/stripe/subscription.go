package stripe

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	ierr "github.com/menumate/menumate/internal/errors"
	"github.com/stripe/stripe-go/v82"
)

// GetSubscription retrieves the provider subscription. Reads are idempotent so
// transient failures are retried with exponential backoff before giving up.
func (s *gatewayService) GetSubscription(ctx context.Context, providerSubscriptionID string) (*SubscriptionResponse, error) {
	stripeClient, err := s.client.GetStripeClient(ctx)
	if err != nil {
		return nil, err
	}

	var sub *stripe.Subscription
	operation := func() error {
		var retrieveErr error
		sub, retrieveErr = stripeClient.V1Subscriptions.Retrieve(ctx, providerSubscriptionID, nil)
		if retrieveErr != nil {
			if stripeErr, ok := retrieveErr.(*stripe.Error); ok && stripeErr.HTTPStatusCode < 500 {
				// Client errors will not resolve themselves, fail fast
				return backoff.Permanent(retrieveErr)
			}
			return retrieveErr
		}
		return nil
	}

	retryPolicy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3),
		ctx,
	)

	if err := backoff.Retry(operation, retryPolicy); err != nil {
		if stripeErr, ok := err.(*stripe.Error); ok && stripeErr.HTTPStatusCode == 404 {
			return nil, ierr.NewError("subscription not found at provider").
				WithHint("The subscription does not exist in Stripe").
				WithReportableDetails(map[string]interface{}{
					"provider_subscription_id": providerSubscriptionID,
				}).
				Mark(ierr.ErrNotFound)
		}
		s.logger.Errorw("failed to retrieve Stripe subscription",
			"error", err,
			"provider_subscription_id", providerSubscriptionID)
		return nil, ierr.NewError("failed to retrieve subscription from provider").
			WithHint("Unable to reach Stripe").
			WithReportableDetails(map[string]interface{}{
				"provider_subscription_id": providerSubscriptionID,
			}).
			Mark(ierr.ErrIntegration)
	}

	return toSubscriptionResponse(sub), nil
}

// CancelSubscription applies a cancellation at the provider. Period-end cancels
// keep the subscription live until the paid period lapses, immediate cancels
// terminate it right away.
func (s *gatewayService) CancelSubscription(ctx context.Context, req *CancelSubscriptionRequest) (*SubscriptionResponse, error) {
	stripeClient, err := s.client.GetStripeClient(ctx)
	if err != nil {
		return nil, err
	}

	var sub *stripe.Subscription
	if req.CancelAtPeriodEnd {
		params := &stripe.SubscriptionUpdateParams{
			CancelAtPeriodEnd: stripe.Bool(true),
		}
		if req.IdempotencyKey != "" {
			params.SetIdempotencyKey(req.IdempotencyKey)
		}
		sub, err = stripeClient.V1Subscriptions.Update(ctx, req.ProviderSubscriptionID, params)
	} else {
		params := &stripe.SubscriptionCancelParams{}
		if req.IdempotencyKey != "" {
			params.SetIdempotencyKey(req.IdempotencyKey)
		}
		sub, err = stripeClient.V1Subscriptions.Cancel(ctx, req.ProviderSubscriptionID, params)
	}

	if err != nil {
		s.logger.Errorw("failed to cancel Stripe subscription",
			"error", err,
			"provider_subscription_id", req.ProviderSubscriptionID,
			"cancel_at_period_end", req.CancelAtPeriodEnd)
		return nil, ierr.NewError("failed to cancel subscription at provider").
			WithHint("Unable to cancel the Stripe subscription").
			WithReportableDetails(map[string]interface{}{
				"provider_subscription_id": req.ProviderSubscriptionID,
			}).
			Mark(ierr.ErrIntegration)
	}

	s.logger.Infow("canceled Stripe subscription",
		"provider_subscription_id", req.ProviderSubscriptionID,
		"cancel_at_period_end", req.CancelAtPeriodEnd)

	return toSubscriptionResponse(sub), nil
}

// ReactivateSubscription clears a pending period-end cancellation. Only valid
// while the subscription is still live, Stripe rejects it otherwise.
func (s *gatewayService) ReactivateSubscription(ctx context.Context, providerSubscriptionID string) (*SubscriptionResponse, error) {
	stripeClient, err := s.client.GetStripeClient(ctx)
	if err != nil {
		return nil, err
	}

	params := &stripe.SubscriptionUpdateParams{
		CancelAtPeriodEnd: stripe.Bool(false),
	}

	sub, err := stripeClient.V1Subscriptions.Update(ctx, providerSubscriptionID, params)
	if err != nil {
		s.logger.Errorw("failed to reactivate Stripe subscription",
			"error", err,
			"provider_subscription_id", providerSubscriptionID)
		return nil, ierr.NewError("failed to reactivate subscription at provider").
			WithHint("Unable to clear the pending cancellation in Stripe").
			WithReportableDetails(map[string]interface{}{
				"provider_subscription_id": providerSubscriptionID,
			}).
			Mark(ierr.ErrIntegration)
	}

	s.logger.Infow("reactivated Stripe subscription",
		"provider_subscription_id", providerSubscriptionID)

	return toSubscriptionResponse(sub), nil
}

// UpdateTrialEnd moves the trial end to the given time
func (s *gatewayService) UpdateTrialEnd(ctx context.Context, providerSubscriptionID string, trialEnd time.Time) (*SubscriptionResponse, error) {
	stripeClient, err := s.client.GetStripeClient(ctx)
	if err != nil {
		return nil, err
	}

	params := &stripe.SubscriptionUpdateParams{
		TrialEnd: stripe.Int64(trialEnd.Unix()),
		// Extending a trial must not generate prorations
		ProrationBehavior: stripe.String("none"),
	}

	sub, err := stripeClient.V1Subscriptions.Update(ctx, providerSubscriptionID, params)
	if err != nil {
		s.logger.Errorw("failed to update Stripe trial end",
			"error", err,
			"provider_subscription_id", providerSubscriptionID,
			"trial_end", trialEnd)
		return nil, ierr.NewError("failed to extend trial at provider").
			WithHint("Unable to update the Stripe subscription trial end").
			WithReportableDetails(map[string]interface{}{
				"provider_subscription_id": providerSubscriptionID,
				"trial_end":                trialEnd,
			}).
			Mark(ierr.ErrIntegration)
	}

	s.logger.Infow("updated Stripe trial end",
		"provider_subscription_id", providerSubscriptionID,
		"trial_end", trialEnd)

	return toSubscriptionResponse(sub), nil
}
