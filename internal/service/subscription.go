package service

import (
	"context"
	"time"

	"github.com/menumate/menumate/internal/api/dto"
	"github.com/menumate/menumate/internal/domain/subscription"
	ierr "github.com/menumate/menumate/internal/errors"
	"github.com/menumate/menumate/internal/idempotency"
	"github.com/menumate/menumate/internal/integration/stripe"
	"github.com/menumate/menumate/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// cardValidationAmount is the default authorization amount for funds checks
var cardValidationAmount = decimal.NewFromInt(1)

// SubscriptionService drives the subscription lifecycle against the payment
// provider: cancellation, undo-cancel and trial extensions. Every mutation is
// provider-first, local state only moves after the provider confirmed.
type SubscriptionService interface {
	GetSubscription(ctx context.Context, id string) (*dto.SubscriptionResponse, error)
	ListByRestaurant(ctx context.Context, restaurantID string) (*dto.ListSubscriptionsResponse, error)
	Cancel(ctx context.Context, id string, req *dto.CancelSubscriptionRequest) (*dto.SubscriptionResponse, error)
	UndoCancel(ctx context.Context, id string) (*dto.SubscriptionResponse, error)
	ExtendTrial(ctx context.Context, id string, req *dto.ExtendTrialRequest) (*dto.SubscriptionResponse, error)
	ValidateCardFunds(ctx context.Context, id string, req *dto.ValidateCardRequest) (*dto.ValidateCardResponse, error)
}

type subscriptionService struct {
	ServiceParams
}

// NewSubscriptionService creates a subscription lifecycle service
func NewSubscriptionService(params ServiceParams) SubscriptionService {
	return &subscriptionService{ServiceParams: params}
}

func (s *subscriptionService) GetSubscription(ctx context.Context, id string) (*dto.SubscriptionResponse, error) {
	sub, err := s.SubRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewSubscriptionResponse(sub), nil
}

func (s *subscriptionService) ListByRestaurant(ctx context.Context, restaurantID string) (*dto.ListSubscriptionsResponse, error) {
	if restaurantID == "" {
		return nil, ierr.NewError("restaurant_id is required").
			WithHint("Provide a restaurant id").
			Mark(ierr.ErrValidation)
	}

	subs, err := s.SubRepo.ListByRestaurant(ctx, restaurantID)
	if err != nil {
		return nil, err
	}

	items := lo.Map(subs, func(sub *subscription.Subscription, _ int) *dto.SubscriptionResponse {
		return dto.NewSubscriptionResponse(sub)
	})
	return &dto.ListSubscriptionsResponse{
		Items: items,
		Total: len(items),
	}, nil
}

// Cancel schedules or executes a cancellation. The provider confirms before
// any local write, so a failed gateway call leaves local state untouched and
// the whole operation safely retryable.
func (s *subscriptionService) Cancel(ctx context.Context, id string, req *dto.CancelSubscriptionRequest) (*dto.SubscriptionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sub, err := s.SubRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if sub.IsCanceled() {
		return nil, ierr.NewError("subscription is already canceled").
			WithHint("A canceled subscription cannot be canceled again").
			WithReportableDetails(map[string]interface{}{
				"subscription_id": sub.ID,
			}).
			Mark(ierr.ErrInvalidOperation)
	}
	if req.AtPeriodEnd && sub.HasPendingCancel() {
		return nil, ierr.NewError("cancellation is already scheduled").
			WithHintf("Subscription is set to cancel at %s", sub.CancelAt.Format(time.RFC3339)).
			Mark(ierr.ErrInvalidOperation)
	}

	cancelKey := s.IdempotencyGen.GenerateKey(idempotency.ScopeCancellation, map[string]interface{}{
		"subscription_id": sub.ID,
		"at_period_end":   req.AtPeriodEnd,
	})

	providerSub, err := s.Gateway.CancelSubscription(ctx, &stripe.CancelSubscriptionRequest{
		ProviderSubscriptionID: sub.ProviderSubscriptionID,
		CancelAtPeriodEnd:      req.AtPeriodEnd,
		IdempotencyKey:         cancelKey,
	})
	if err != nil {
		return nil, err
	}

	update := subscription.CancellationUpdate{
		CancelAtPeriodEnd: req.AtPeriodEnd,
	}
	if req.AtPeriodEnd {
		cancelAt := sub.CurrentPeriodEnd
		if providerSub.CancelAt != nil {
			cancelAt = *providerSub.CancelAt
		}
		update.CancelAt = &cancelAt
		update.IsActive = true
		update.Status = string(sub.SubscriptionStatus)
	} else {
		canceledAt := time.Now().UTC()
		if providerSub.CanceledAt != nil {
			canceledAt = *providerSub.CanceledAt
		}
		update.CanceledAt = &canceledAt
		update.IsActive = false
		update.Status = string(types.SubscriptionStatusCanceled)
	}

	if err := s.SubRepo.UpdateCancellation(ctx, sub.ID, update); err != nil {
		return nil, err
	}

	sub.CancelAt = update.CancelAt
	sub.CanceledAt = update.CanceledAt
	sub.CancelAtPeriodEnd = update.CancelAtPeriodEnd
	sub.IsActive = update.IsActive
	sub.SubscriptionStatus = types.SubscriptionStatus(update.Status)

	s.Logger.Infow("subscription canceled",
		"subscription_id", sub.ID,
		"at_period_end", req.AtPeriodEnd,
		"reason", req.Reason)

	s.publishSubEvent(ctx, types.EventSubscriptionCanceled, sub)

	return dto.NewSubscriptionResponse(sub), nil
}

// UndoCancel clears a pending deferred cancellation. Immediate cancellations
// are final and cannot be undone.
func (s *subscriptionService) UndoCancel(ctx context.Context, id string) (*dto.SubscriptionResponse, error) {
	sub, err := s.SubRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if sub.CanceledAt != nil {
		return nil, ierr.NewError("cancellation is final").
			WithHint("An immediate cancellation cannot be undone").
			WithReportableDetails(map[string]interface{}{
				"subscription_id": sub.ID,
			}).
			Mark(ierr.ErrInvalidOperation)
	}
	if !sub.HasPendingCancel() {
		return nil, ierr.NewError("no pending cancellation to undo").
			WithHint("The subscription has no scheduled cancellation").
			WithReportableDetails(map[string]interface{}{
				"subscription_id": sub.ID,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	if _, err := s.Gateway.ReactivateSubscription(ctx, sub.ProviderSubscriptionID); err != nil {
		return nil, err
	}

	update := subscription.CancellationUpdate{
		CancelAt:          nil,
		CanceledAt:        nil,
		CancelAtPeriodEnd: false,
		IsActive:          true,
		Status:            string(sub.SubscriptionStatus),
	}
	if err := s.SubRepo.UpdateCancellation(ctx, sub.ID, update); err != nil {
		return nil, err
	}

	sub.CancelAt = nil
	sub.CancelAtPeriodEnd = false
	sub.IsActive = true

	s.Logger.Infow("subscription cancellation undone",
		"subscription_id", sub.ID)

	s.publishSubEvent(ctx, types.EventSubscriptionCancelUndone, sub)

	return dto.NewSubscriptionResponse(sub), nil
}

// ExtendTrial pushes the trial end out by the requested days. The cumulative
// extension across all grants is capped so support cannot extend a trial
// indefinitely.
func (s *subscriptionService) ExtendTrial(ctx context.Context, id string, req *dto.ExtendTrialRequest) (*dto.SubscriptionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sub, err := s.SubRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if sub.IsCanceled() {
		return nil, ierr.NewError("subscription is canceled").
			WithHint("A canceled subscription's trial cannot be extended").
			Mark(ierr.ErrInvalidOperation)
	}
	if sub.TrialEnd == nil {
		return nil, ierr.NewError("subscription has no trial").
			WithHint("Only trialing subscriptions can have their trial extended").
			Mark(ierr.ErrInvalidOperation)
	}

	maxDays := s.Config.Subscription.MaxCumulativeExtensionDays()
	if sub.TrialExtendedDays+req.Days > maxDays {
		return nil, ierr.NewError("trial extension limit exceeded").
			WithHintf("At most %d cumulative extension days are allowed, %d already granted",
				maxDays, sub.TrialExtendedDays).
			WithReportableDetails(map[string]interface{}{
				"subscription_id":      sub.ID,
				"requested_days":       req.Days,
				"already_granted_days": sub.TrialExtendedDays,
				"max_days":             maxDays,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	newTrialEnd := sub.TrialEnd.AddDate(0, 0, req.Days)

	if _, err := s.Gateway.UpdateTrialEnd(ctx, sub.ProviderSubscriptionID, newTrialEnd); err != nil {
		return nil, err
	}

	originalTrialEnd := sub.TrialEnd
	if sub.OriginalTrialEnd != nil {
		originalTrialEnd = sub.OriginalTrialEnd
	}

	update := subscription.TrialExtensionUpdate{
		TrialEnd:           newTrialEnd,
		OriginalTrialEnd:   *originalTrialEnd,
		TrialExtendedCount: sub.TrialExtendedCount + 1,
		TrialExtendedDays:  sub.TrialExtendedDays + req.Days,
	}
	if err := s.SubRepo.UpdateTrialExtension(ctx, sub.ID, update); err != nil {
		return nil, err
	}

	sub.OriginalTrialEnd = originalTrialEnd
	sub.TrialEnd = &newTrialEnd
	sub.TrialExtendedCount = update.TrialExtendedCount
	sub.TrialExtendedDays = update.TrialExtendedDays

	s.Logger.Infow("trial extended",
		"subscription_id", sub.ID,
		"days", req.Days,
		"trial_end", newTrialEnd,
		"total_extended_days", update.TrialExtendedDays)

	s.publishSubEvent(ctx, types.EventSubscriptionTrialExtend, sub)

	return dto.NewSubscriptionResponse(sub), nil
}

// ValidateCardFunds checks that the subscription's payment method can cover
// a charge. Insufficient funds surfaces as its own error class so callers can
// prompt for another card instead of treating it as a provider outage.
func (s *subscriptionService) ValidateCardFunds(ctx context.Context, id string, req *dto.ValidateCardRequest) (*dto.ValidateCardResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sub, err := s.SubRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	amount := req.Amount
	if amount.IsZero() {
		amount = cardValidationAmount
	}
	currency := req.Currency
	if currency == "" {
		currency = "usd"
	}

	result, err := s.Gateway.ValidatePaymentMethod(ctx, &stripe.ValidatePaymentMethodRequest{
		ProviderCustomerID: sub.ProviderCustomerID,
		PaymentMethodID:    req.PaymentMethodID,
		Amount:             amount,
		Currency:           currency,
	})
	if err != nil {
		return nil, err
	}

	return &dto.ValidateCardResponse{
		Valid:           result.Valid,
		PaymentIntentID: result.PaymentIntentID,
	}, nil
}

// publishSubEvent emits a lifecycle event, best effort
func (s *subscriptionService) publishSubEvent(ctx context.Context, eventName string, sub *subscription.Subscription) {
	event, err := types.NewNotificationEvent(eventName, sub.TenantID, dto.NewSubscriptionResponse(sub))
	if err != nil {
		s.Logger.Errorw("failed to build lifecycle event",
			"error", err,
			"event_name", eventName,
			"subscription_id", sub.ID)
		return
	}
	s.Fanout.Publish(ctx, event)
}
