package service

import (
	"context"
	"testing"
	"time"

	"github.com/menumate/menumate/internal/api/dto"
	"github.com/menumate/menumate/internal/domain/subscription"
	ierr "github.com/menumate/menumate/internal/errors"
	"github.com/menumate/menumate/internal/idempotency"
	"github.com/menumate/menumate/internal/integration/stripe"
	"github.com/menumate/menumate/internal/testutil"
	"github.com/menumate/menumate/internal/types"
	"github.com/stretchr/testify/suite"
)

type SubscriptionServiceSuite struct {
	testutil.BaseServiceTestSuite
	service SubscriptionService
}

func TestSubscriptionService(t *testing.T) {
	suite.Run(t, new(SubscriptionServiceSuite))
}

func (s *SubscriptionServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	stores := s.GetStores()
	s.service = NewSubscriptionService(ServiceParams{
		Logger:           s.GetLogger(),
		Config:           s.GetConfig(),
		PlanRepo:         stores.PlanRepo,
		CheckoutLinkRepo: stores.CheckoutLinkRepo,
		SubRepo:          stores.SubRepo,
		WebhookEventRepo: stores.WebhookEventRepo,
		Gateway:          s.GetGateway(),
		Fanout:           s.GetFanout(),
		Cache:            s.GetCache(),
		IdempotencyGen:   idempotency.NewGenerator(),
	})
}

// seedSubscription stores an active subscription midway through its first
// billing period, trialing until a week from now.
func (s *SubscriptionServiceSuite) seedSubscription() *subscription.Subscription {
	now := time.Now().UTC()
	trialEnd := now.AddDate(0, 0, 7)
	sub := &subscription.Subscription{
		ID:                     "subs_1",
		ProfileID:              "profile_1",
		RestaurantID:           "rest_1",
		PlanID:                 "plan_basic",
		ProviderSubscriptionID: "sub_prov_1",
		ProviderCustomerID:     "cus_1",
		SubscriptionStatus:     types.SubscriptionStatusActive,
		IsActive:               true,
		CurrentPeriodStart:     now.AddDate(0, 0, -15),
		CurrentPeriodEnd:       now.AddDate(0, 0, 15),
		TrialActivated:         true,
		TrialEnd:               &trialEnd,
		BaseModel:              types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().SubRepo.Create(s.GetContext(), sub))
	return sub
}

func (s *SubscriptionServiceSuite) getStored(id string) *subscription.Subscription {
	stored, err := s.GetStores().SubRepo.Get(s.GetContext(), id)
	s.NoError(err)
	return stored
}

func (s *SubscriptionServiceSuite) TestCancelAtPeriodEnd() {
	sub := s.seedSubscription()

	resp, err := s.service.Cancel(s.GetContext(), sub.ID, &dto.CancelSubscriptionRequest{
		AtPeriodEnd: true,
		Reason:      "closing for winter",
	})
	s.NoError(err)
	s.NotNil(resp.CancelAt)
	s.Nil(resp.CanceledAt)
	s.True(resp.CancelAtPeriodEnd)
	s.True(resp.IsActive)
	s.Equal(types.SubscriptionStatusActive, resp.SubscriptionStatus)

	stored := s.getStored(sub.ID)
	s.NotNil(stored.CancelAt)
	s.True(stored.HasPendingCancel())
	s.Equal([]string{types.EventSubscriptionCanceled}, s.GetSink().EventNames())
}

func (s *SubscriptionServiceSuite) TestCancelImmediate() {
	sub := s.seedSubscription()

	resp, err := s.service.Cancel(s.GetContext(), sub.ID, &dto.CancelSubscriptionRequest{})
	s.NoError(err)
	s.NotNil(resp.CanceledAt)
	s.False(resp.IsActive)
	s.Equal(types.SubscriptionStatusCanceled, resp.SubscriptionStatus)

	stored := s.getStored(sub.ID)
	s.True(stored.IsCanceled())
	s.False(stored.HasPendingCancel())
}

func (s *SubscriptionServiceSuite) TestCancelAlreadyCanceled() {
	sub := s.seedSubscription()
	_, err := s.service.Cancel(s.GetContext(), sub.ID, &dto.CancelSubscriptionRequest{})
	s.NoError(err)

	_, err = s.service.Cancel(s.GetContext(), sub.ID, &dto.CancelSubscriptionRequest{})
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
	s.Equal(1, s.GetGateway().CallCount("CancelSubscription"))
}

func (s *SubscriptionServiceSuite) TestCancelAlreadyScheduled() {
	sub := s.seedSubscription()
	_, err := s.service.Cancel(s.GetContext(), sub.ID, &dto.CancelSubscriptionRequest{AtPeriodEnd: true})
	s.NoError(err)

	_, err = s.service.Cancel(s.GetContext(), sub.ID, &dto.CancelSubscriptionRequest{AtPeriodEnd: true})
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *SubscriptionServiceSuite) TestCancelProviderFailureLeavesStateUntouched() {
	sub := s.seedSubscription()
	s.GetGateway().CancelSubscriptionFn = func(ctx context.Context, req *stripe.CancelSubscriptionRequest) (*stripe.SubscriptionResponse, error) {
		return nil, ierr.NewError("provider unavailable").
			WithHint("Cancellation could not be confirmed").
			Mark(ierr.ErrIntegration)
	}

	_, err := s.service.Cancel(s.GetContext(), sub.ID, &dto.CancelSubscriptionRequest{AtPeriodEnd: true})
	s.Error(err)
	s.True(ierr.IsIntegration(err))

	stored := s.getStored(sub.ID)
	s.Nil(stored.CancelAt)
	s.Nil(stored.CanceledAt)
	s.True(stored.IsActive)
	s.Empty(s.GetSink().EventNames())
}

func (s *SubscriptionServiceSuite) TestUndoCancel() {
	sub := s.seedSubscription()
	_, err := s.service.Cancel(s.GetContext(), sub.ID, &dto.CancelSubscriptionRequest{AtPeriodEnd: true})
	s.NoError(err)

	resp, err := s.service.UndoCancel(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Nil(resp.CancelAt)
	s.False(resp.CancelAtPeriodEnd)
	s.True(resp.IsActive)

	stored := s.getStored(sub.ID)
	s.False(stored.HasPendingCancel())
	s.Equal(1, s.GetGateway().CallCount("ReactivateSubscription"))
	s.Equal([]string{types.EventSubscriptionCanceled, types.EventSubscriptionCancelUndone}, s.GetSink().EventNames())
}

func (s *SubscriptionServiceSuite) TestUndoCancelNothingPending() {
	sub := s.seedSubscription()

	_, err := s.service.UndoCancel(s.GetContext(), sub.ID)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
	s.Equal(0, s.GetGateway().CallCount("ReactivateSubscription"))
}

func (s *SubscriptionServiceSuite) TestUndoCancelAfterImmediateCancelIsFinal() {
	sub := s.seedSubscription()
	_, err := s.service.Cancel(s.GetContext(), sub.ID, &dto.CancelSubscriptionRequest{})
	s.NoError(err)

	_, err = s.service.UndoCancel(s.GetContext(), sub.ID)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))

	stored := s.getStored(sub.ID)
	s.True(stored.IsCanceled())
}

func (s *SubscriptionServiceSuite) TestUndoCancelProviderFailureLeavesStateUntouched() {
	sub := s.seedSubscription()
	_, err := s.service.Cancel(s.GetContext(), sub.ID, &dto.CancelSubscriptionRequest{AtPeriodEnd: true})
	s.NoError(err)

	s.GetGateway().ReactivateSubscriptionFn = func(ctx context.Context, providerSubscriptionID string) (*stripe.SubscriptionResponse, error) {
		return nil, ierr.NewError("provider unavailable").
			WithHint("Reactivation could not be confirmed").
			Mark(ierr.ErrIntegration)
	}

	_, err = s.service.UndoCancel(s.GetContext(), sub.ID)
	s.Error(err)

	stored := s.getStored(sub.ID)
	s.True(stored.HasPendingCancel())
}

func (s *SubscriptionServiceSuite) TestExtendTrial() {
	sub := s.seedSubscription()
	baseline := *sub.TrialEnd

	resp, err := s.service.ExtendTrial(s.GetContext(), sub.ID, &dto.ExtendTrialRequest{Days: 7})
	s.NoError(err)
	s.NotNil(resp.TrialEnd)
	s.Equal(baseline.AddDate(0, 0, 7), *resp.TrialEnd)
	s.Equal(1, resp.TrialExtendedCount)
	s.Equal(7, resp.TrialExtendedDays)

	stored := s.getStored(sub.ID)
	s.NotNil(stored.OriginalTrialEnd)
	s.Equal(baseline, *stored.OriginalTrialEnd)
	s.Equal(1, s.GetGateway().CallCount("UpdateTrialEnd"))
	s.Equal([]string{types.EventSubscriptionTrialExtend}, s.GetSink().EventNames())
}

func (s *SubscriptionServiceSuite) TestExtendTrialKeepsOriginalBaseline() {
	sub := s.seedSubscription()
	baseline := *sub.TrialEnd

	_, err := s.service.ExtendTrial(s.GetContext(), sub.ID, &dto.ExtendTrialRequest{Days: 5})
	s.NoError(err)
	_, err = s.service.ExtendTrial(s.GetContext(), sub.ID, &dto.ExtendTrialRequest{Days: 5})
	s.NoError(err)

	stored := s.getStored(sub.ID)
	s.Equal(baseline, *stored.OriginalTrialEnd)
	s.Equal(baseline.AddDate(0, 0, 10), *stored.TrialEnd)
	s.Equal(2, stored.TrialExtendedCount)
	s.Equal(10, stored.TrialExtendedDays)
}

func (s *SubscriptionServiceSuite) TestExtendTrialCumulativeCeiling() {
	sub := s.seedSubscription()
	maxDays := s.GetConfig().Subscription.MaxCumulativeExtensionDays()

	// Exactly the ceiling is fine
	_, err := s.service.ExtendTrial(s.GetContext(), sub.ID, &dto.ExtendTrialRequest{Days: maxDays})
	s.NoError(err)

	// One more day over it is not
	_, err = s.service.ExtendTrial(s.GetContext(), sub.ID, &dto.ExtendTrialRequest{Days: 1})
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
	s.Equal(1, s.GetGateway().CallCount("UpdateTrialEnd"))

	stored := s.getStored(sub.ID)
	s.Equal(maxDays, stored.TrialExtendedDays)
}

func (s *SubscriptionServiceSuite) TestExtendTrialRequiresTrial() {
	sub := s.seedSubscription()
	sub.TrialEnd = nil
	sub.TrialActivated = false
	s.NoError(s.GetStores().SubRepo.Update(s.GetContext(), sub))

	_, err := s.service.ExtendTrial(s.GetContext(), sub.ID, &dto.ExtendTrialRequest{Days: 3})
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *SubscriptionServiceSuite) TestExtendTrialCanceledSubscription() {
	sub := s.seedSubscription()
	_, err := s.service.Cancel(s.GetContext(), sub.ID, &dto.CancelSubscriptionRequest{})
	s.NoError(err)

	_, err = s.service.ExtendTrial(s.GetContext(), sub.ID, &dto.ExtendTrialRequest{Days: 3})
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *SubscriptionServiceSuite) TestExtendTrialValidation() {
	sub := s.seedSubscription()

	_, err := s.service.ExtendTrial(s.GetContext(), sub.ID, &dto.ExtendTrialRequest{Days: 0})
	s.Error(err)
	s.True(ierr.IsValidation(err))

	_, err = s.service.ExtendTrial(s.GetContext(), sub.ID, &dto.ExtendTrialRequest{Days: 400})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *SubscriptionServiceSuite) TestExtendTrialProviderFailureLeavesStateUntouched() {
	sub := s.seedSubscription()
	baseline := *sub.TrialEnd

	s.GetGateway().UpdateTrialEndFn = func(ctx context.Context, providerSubscriptionID string, trialEnd time.Time) (*stripe.SubscriptionResponse, error) {
		return nil, ierr.NewError("provider unavailable").
			WithHint("Trial update could not be confirmed").
			Mark(ierr.ErrIntegration)
	}

	_, err := s.service.ExtendTrial(s.GetContext(), sub.ID, &dto.ExtendTrialRequest{Days: 3})
	s.Error(err)

	stored := s.getStored(sub.ID)
	s.Equal(baseline, *stored.TrialEnd)
	s.Equal(0, stored.TrialExtendedCount)
	s.Nil(stored.OriginalTrialEnd)
}

func (s *SubscriptionServiceSuite) TestValidateCardFunds() {
	sub := s.seedSubscription()

	resp, err := s.service.ValidateCardFunds(s.GetContext(), sub.ID, &dto.ValidateCardRequest{
		PaymentMethodID: "pm_1",
	})
	s.NoError(err)
	s.True(resp.Valid)
	s.NotEmpty(resp.PaymentIntentID)
}

func (s *SubscriptionServiceSuite) TestValidateCardFundsInsufficient() {
	sub := s.seedSubscription()

	s.GetGateway().ValidatePaymentMethodFn = func(ctx context.Context, req *stripe.ValidatePaymentMethodRequest) (*stripe.PaymentValidationResponse, error) {
		return nil, ierr.NewError("card declined").
			WithHint("The card has insufficient funds").
			Mark(ierr.ErrInsufficientFunds)
	}

	_, err := s.service.ValidateCardFunds(s.GetContext(), sub.ID, &dto.ValidateCardRequest{
		PaymentMethodID: "pm_1",
	})
	s.Error(err)
	s.True(ierr.IsInsufficientFunds(err))
}

func (s *SubscriptionServiceSuite) TestGetSubscriptionNotFound() {
	_, err := s.service.GetSubscription(s.GetContext(), "subs_missing")
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *SubscriptionServiceSuite) TestListByRestaurant() {
	s.seedSubscription()

	resp, err := s.service.ListByRestaurant(s.GetContext(), "rest_1")
	s.NoError(err)
	s.Equal(1, resp.Total)

	resp, err = s.service.ListByRestaurant(s.GetContext(), "rest_other")
	s.NoError(err)
	s.Equal(0, resp.Total)

	_, err = s.service.ListByRestaurant(s.GetContext(), "")
	s.Error(err)
	s.True(ierr.IsValidation(err))
}
