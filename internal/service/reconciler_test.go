package service

import (
	"context"
	"testing"
	"time"

	"github.com/menumate/menumate/internal/domain/subscription"
	"github.com/menumate/menumate/internal/domain/webhookevent"
	ierr "github.com/menumate/menumate/internal/errors"
	"github.com/menumate/menumate/internal/idempotency"
	"github.com/menumate/menumate/internal/integration/hubspot"
	"github.com/menumate/menumate/internal/testutil"
	"github.com/menumate/menumate/internal/types"
	"github.com/stretchr/testify/suite"
)

type WebhookReconcilerSuite struct {
	testutil.BaseServiceTestSuite
	reconciler WebhookReconciler
}

func TestWebhookReconciler(t *testing.T) {
	suite.Run(t, new(WebhookReconcilerSuite))
}

func (s *WebhookReconcilerSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.reconciler = NewWebhookReconciler(s.params(s.GetStores().SubRepo))
}

func (s *WebhookReconcilerSuite) params(subRepo subscription.Repository) ServiceParams {
	stores := s.GetStores()
	return ServiceParams{
		Logger:           s.GetLogger(),
		Config:           s.GetConfig(),
		PlanRepo:         stores.PlanRepo,
		CheckoutLinkRepo: stores.CheckoutLinkRepo,
		SubRepo:          subRepo,
		WebhookEventRepo: stores.WebhookEventRepo,
		Gateway:          s.GetGateway(),
		Fanout:           s.GetFanout(),
		Cache:            s.GetCache(),
		IdempotencyGen:   idempotency.NewGenerator(),
	}
}

func (s *WebhookReconcilerSuite) seedSubscription(dealID string) *subscription.Subscription {
	now := time.Now().UTC()
	sub := &subscription.Subscription{
		ID:                     "subs_1",
		ProfileID:              "profile_1",
		RestaurantID:           "rest_1",
		PlanID:                 "plan_basic",
		ProviderSubscriptionID: "sub_prov_1",
		SubscriptionStatus:     types.SubscriptionStatusActive,
		IsActive:               true,
		CurrentPeriodStart:     now.AddDate(0, 0, -15),
		CurrentPeriodEnd:       now.AddDate(0, 0, 15),
		CRMDealID:              dealID,
		CRMDealStage:           "appointmentscheduled",
		BaseModel:              types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().SubRepo.Create(s.GetContext(), sub))
	return sub
}

func (s *WebhookReconcilerSuite) stageChangeEvent(eventID int64, occurredAt time.Time, stage string) *hubspot.DealEvent {
	return &hubspot.DealEvent{
		EventID:          eventID,
		SubscriptionID:   42,
		SubscriptionType: "deal.propertyChange",
		PortalID:         7,
		ObjectID:         9001,
		PropertyName:     "dealstage",
		PropertyValue:    stage,
		OccurredAt:       occurredAt.UnixMilli(),
	}
}

func (s *WebhookReconcilerSuite) isProcessed(event *hubspot.DealEvent) bool {
	processed, err := s.GetStores().WebhookEventRepo.IsProcessed(s.GetContext(), event.EventKey())
	s.NoError(err)
	return processed
}

func (s *WebhookReconcilerSuite) TestHandleStageChange() {
	sub := s.seedSubscription("9001")
	event := s.stageChangeEvent(100, time.Now().UTC(), "contractsent")

	s.NoError(s.reconciler.Handle(s.GetContext(), event))

	stored, err := s.GetStores().SubRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Equal("contractsent", stored.CRMDealStage)
	s.NotNil(stored.CRMSyncedAt)
	s.Equal(event.OccurredTime(), *stored.CRMSyncedAt)
	s.True(s.isProcessed(event))
}

func (s *WebhookReconcilerSuite) TestHandleDealCreation() {
	sub := s.seedSubscription("9001")
	event := &hubspot.DealEvent{
		EventID:          101,
		SubscriptionType: "deal.creation",
		ObjectID:         9001,
		OccurredAt:       time.Now().UTC().UnixMilli(),
	}

	s.NoError(s.reconciler.Handle(s.GetContext(), event))

	stored, err := s.GetStores().SubRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Equal("9001", stored.CRMDealID)
	s.True(s.isProcessed(event))
}

func (s *WebhookReconcilerSuite) TestHandleReplayIsNoOp() {
	sub := s.seedSubscription("9001")
	event := s.stageChangeEvent(102, time.Now().UTC(), "contractsent")

	s.NoError(s.reconciler.Handle(s.GetContext(), event))

	// Mutate the stage out of band, a replay of the same delivery must not
	// touch the subscription again
	stored, err := s.GetStores().SubRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	stored.CRMDealStage = "closedwon"
	s.NoError(s.GetStores().SubRepo.Update(s.GetContext(), stored))

	s.NoError(s.reconciler.Handle(s.GetContext(), event))

	after, err := s.GetStores().SubRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Equal("closedwon", after.CRMDealStage)
}

func (s *WebhookReconcilerSuite) TestHandleIrrelevantTypeAcceptedAndMarked() {
	sub := s.seedSubscription("9001")
	event := &hubspot.DealEvent{
		EventID:          103,
		SubscriptionType: "contact.creation",
		ObjectID:         9001,
		OccurredAt:       time.Now().UTC().UnixMilli(),
	}

	s.NoError(s.reconciler.Handle(s.GetContext(), event))
	s.True(s.isProcessed(event))

	stored, err := s.GetStores().SubRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Equal("appointmentscheduled", stored.CRMDealStage)
	s.Nil(stored.CRMSyncedAt)
}

func (s *WebhookReconcilerSuite) TestHandleNoLinkedSubscription() {
	event := s.stageChangeEvent(104, time.Now().UTC(), "contractsent")

	s.NoError(s.reconciler.Handle(s.GetContext(), event))
	s.True(s.isProcessed(event))
}

func (s *WebhookReconcilerSuite) TestHandleStaleEventSkipped() {
	sub := s.seedSubscription("9001")
	now := time.Now().UTC()

	fresh := s.stageChangeEvent(105, now, "contractsent")
	s.NoError(s.reconciler.Handle(s.GetContext(), fresh))

	// An older delivery arriving late must not roll the stage back
	stale := s.stageChangeEvent(106, now.Add(-time.Hour), "appointmentscheduled")
	s.NoError(s.reconciler.Handle(s.GetContext(), stale))

	stored, err := s.GetStores().SubRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Equal("contractsent", stored.CRMDealStage)
	s.Equal(fresh.OccurredTime(), *stored.CRMSyncedAt)
	// Stale deliveries still count as processed so they are not redelivered
	s.True(s.isProcessed(stale))
}

func (s *WebhookReconcilerSuite) TestHandleFailureLeavesEventUnmarked() {
	s.seedSubscription("9001")
	reconciler := NewWebhookReconciler(s.params(&failingUpdateStore{
		Repository: s.GetStores().SubRepo,
	}))

	event := s.stageChangeEvent(107, time.Now().UTC(), "contractsent")
	err := reconciler.Handle(s.GetContext(), event)
	s.Error(err)
	s.False(s.isProcessed(event))

	// Redelivery succeeds once the store recovers
	s.NoError(s.reconciler.Handle(s.GetContext(), event))
	s.True(s.isProcessed(event))
}

func (s *WebhookReconcilerSuite) TestHandleConcurrentMarkerRace() {
	s.seedSubscription("9001")
	event := s.stageChangeEvent(108, time.Now().UTC(), "contractsent")

	// A concurrent delivery writes the marker after our dedup check passed
	repo := &racingEventStore{
		Repository: s.GetStores().WebhookEventRepo,
		writeMarker: func(ctx context.Context) {
			record := webhookevent.NewProcessedEvent(
				event.EventKey(), event.EventType().String(), types.GetTenantID(ctx), time.Now().UTC())
			s.NoError(s.GetStores().WebhookEventRepo.MarkProcessed(ctx, record))
		},
	}

	reconciler := NewWebhookReconciler(s.params(s.GetStores().SubRepo))
	reconciler.(*webhookReconciler).WebhookEventRepo = repo

	// Losing the marker race is not an error
	s.NoError(reconciler.Handle(s.GetContext(), event))
	s.True(s.isProcessed(event))
}

// racingEventStore injects a competing marker write between the dedup check
// and our own MarkProcessed
type racingEventStore struct {
	webhookevent.Repository
	writeMarker func(ctx context.Context)
	raced       bool
}

func (s *racingEventStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	if !s.raced {
		s.raced = true
		defer s.writeMarker(ctx)
		return false, nil
	}
	return s.Repository.IsProcessed(ctx, eventID)
}

// failingUpdateStore fails every Update to simulate a store outage mid-apply
type failingUpdateStore struct {
	subscription.Repository
}

func (s *failingUpdateStore) Update(ctx context.Context, sub *subscription.Subscription) error {
	return ierr.NewError("store unavailable").
		WithHint("Subscription could not be updated").
		Mark(ierr.ErrDatabase)
}
