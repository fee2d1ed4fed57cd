package service

import (
	"context"
	"time"

	"github.com/menumate/menumate/internal/domain/subscription"
	"github.com/menumate/menumate/internal/domain/webhookevent"
	ierr "github.com/menumate/menumate/internal/errors"
	"github.com/menumate/menumate/internal/integration/hubspot"
	"github.com/menumate/menumate/internal/types"
)

// WebhookReconciler folds inbound CRM events into subscription state.
// Processing is idempotent per event id: the dedup store is consulted before
// any side effect and written only after the handler succeeded, which gives
// at-least-once handlers and at-most-once applied side effects.
type WebhookReconciler interface {
	Handle(ctx context.Context, event *hubspot.DealEvent) error
}

type webhookReconciler struct {
	ServiceParams
}

// NewWebhookReconciler creates a CRM webhook reconciler
func NewWebhookReconciler(params ServiceParams) WebhookReconciler {
	return &webhookReconciler{ServiceParams: params}
}

// Handle processes one CRM event. Replays and irrelevant event types return
// success without side effects. A handler failure leaves the event unmarked
// so the sender's redelivery retries it.
func (r *webhookReconciler) Handle(ctx context.Context, event *hubspot.DealEvent) error {
	eventID := event.EventKey()

	processed, err := r.WebhookEventRepo.IsProcessed(ctx, eventID)
	if err != nil {
		return err
	}
	if processed {
		r.Logger.Debugw("skipping already processed CRM event",
			"event_id", eventID,
			"deal_id", event.DealID())
		return nil
	}

	eventType := event.EventType()
	if eventType.IsRelevant() {
		if err := r.applyDealEvent(ctx, event, eventType); err != nil {
			r.Logger.Errorw("failed to apply CRM event, leaving unprocessed",
				"error", err,
				"event_id", eventID,
				"event_type", eventType,
				"deal_id", event.DealID())
			return err
		}
	} else {
		r.Logger.Debugw("ignoring irrelevant CRM event type",
			"event_id", eventID,
			"event_type", event.SubscriptionType)
	}

	record := webhookevent.NewProcessedEvent(eventID, eventType.String(), types.GetTenantID(ctx), time.Now().UTC())
	if err := r.WebhookEventRepo.MarkProcessed(ctx, record); err != nil {
		if ierr.IsAlreadyExists(err) {
			// A concurrent delivery of the same event won the marker race
			return nil
		}
		return err
	}

	return nil
}

// applyDealEvent updates the CRM-linked metadata on the matching subscription
func (r *webhookReconciler) applyDealEvent(ctx context.Context, event *hubspot.DealEvent, eventType types.CRMEventType) error {
	sub, err := r.SubRepo.GetByCRMDealID(ctx, event.DealID())
	if err != nil {
		if ierr.IsNotFound(err) {
			// No linked subscription, nothing to reconcile
			r.Logger.Debugw("no subscription linked to CRM deal",
				"deal_id", event.DealID(),
				"event_type", eventType)
			return nil
		}
		return err
	}

	occurredAt := event.OccurredTime()
	if sub.CRMSyncedAt != nil && occurredAt.Before(*sub.CRMSyncedAt) {
		// A newer event already applied, dropping the stale one keeps
		// out-of-order redeliveries from rolling fields backwards
		r.Logger.Infow("skipping stale CRM event",
			"event_id", event.EventKey(),
			"deal_id", event.DealID(),
			"occurred_at", occurredAt,
			"synced_at", sub.CRMSyncedAt)
		return nil
	}

	r.applyFields(sub, event, eventType, occurredAt)

	if err := r.SubRepo.Update(ctx, sub); err != nil {
		return err
	}

	r.Logger.Infow("applied CRM event",
		"event_id", event.EventKey(),
		"event_type", eventType,
		"deal_id", event.DealID(),
		"subscription_id", sub.ID)

	return nil
}

// applyFields mutates the subscription in place, last write wins per field
func (r *webhookReconciler) applyFields(sub *subscription.Subscription, event *hubspot.DealEvent, eventType types.CRMEventType, occurredAt time.Time) {
	switch eventType {
	case types.CRMEventTypeDealCreated:
		sub.CRMDealID = event.DealID()
	case types.CRMEventTypeDealStageChanged:
		sub.CRMDealStage = event.PropertyValue
	case types.CRMEventTypeDealUpdated:
		// Only the properties this service mirrors are applied, everything
		// else stays CRM-side
		if event.PropertyName == "dealstage" {
			sub.CRMDealStage = event.PropertyValue
		}
	}
	sub.CRMSyncedAt = &occurredAt
}
