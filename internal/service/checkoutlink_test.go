package service

import (
	"context"
	"testing"
	"time"

	"github.com/menumate/menumate/internal/api/dto"
	"github.com/menumate/menumate/internal/domain/checkoutlink"
	"github.com/menumate/menumate/internal/domain/plan"
	ierr "github.com/menumate/menumate/internal/errors"
	"github.com/menumate/menumate/internal/idempotency"
	"github.com/menumate/menumate/internal/integration/stripe"
	"github.com/menumate/menumate/internal/testutil"
	"github.com/menumate/menumate/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type CheckoutLinkServiceSuite struct {
	testutil.BaseServiceTestSuite
	service  CheckoutLinkService
	testData struct {
		plan *plan.Plan
	}
}

func TestCheckoutLinkService(t *testing.T) {
	suite.Run(t, new(CheckoutLinkServiceSuite))
}

func (s *CheckoutLinkServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.setupService()
	s.setupTestData()
}

func (s *CheckoutLinkServiceSuite) setupService() {
	stores := s.GetStores()
	params := ServiceParams{
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
	}
	s.service = NewCheckoutLinkService(params, NewPlanService(params))
}

func (s *CheckoutLinkServiceSuite) setupTestData() {
	s.testData.plan = &plan.Plan{
		ID:              "plan_basic",
		Name:            "Basic",
		LookupKey:       "basic_monthly",
		Tier:            types.PlanTierBasic,
		Price:           decimal.NewFromInt(29),
		Currency:        "usd",
		ProviderPriceID: "price_basic",
		TrialDays:       7,
		Active:          true,
		BaseModel:       types.GetDefaultBaseModel(s.GetContext()),
	}
	s.GetStores().PlanRepo.(*testutil.InMemoryPlanStore).AddPlan(s.testData.plan)
}

func (s *CheckoutLinkServiceSuite) issueRequest() *dto.CreateCheckoutLinkRequest {
	return &dto.CreateCheckoutLinkRequest{
		UserID:       "user_1",
		Email:        "owner@bistro.test",
		Name:         "Bistro Owner",
		RestaurantID: "rest_1",
		PlanID:       s.testData.plan.ID,
	}
}

func (s *CheckoutLinkServiceSuite) TestIssueCheckoutLink() {
	resp, err := s.service.IssueCheckoutLink(s.GetContext(), s.issueRequest())
	s.NoError(err)
	s.NotNil(resp)
	s.False(resp.Reused)
	s.Equal(types.LinkStatusActive, resp.LinkStatus)
	s.Equal("user_1", resp.UserID)
	s.Equal(s.testData.plan.ID, resp.PlanID)
	s.Equal(7, resp.TrialDays)
	s.True(resp.TrialEnabled)
	s.NotEmpty(resp.URL)
	s.NotEmpty(resp.ProviderSessionID)
	s.WithinDuration(time.Now().UTC().Add(s.GetConfig().CheckoutLink.TTL), resp.ExpiresAt, 5*time.Second)

	s.Equal(1, s.GetGateway().CallCount("EnsureCustomer"))
	s.Equal(1, s.GetGateway().CallCount("CreateCheckoutSession"))
	s.Equal([]string{types.EventCheckoutLinkCreated}, s.GetSink().EventNames())

	stored, err := s.GetStores().CheckoutLinkRepo.Get(s.GetContext(), resp.ID)
	s.NoError(err)
	s.Equal(types.LinkStatusActive, stored.LinkStatus)
}

func (s *CheckoutLinkServiceSuite) TestIssueCheckoutLinkReturnsExistingActive() {
	first, err := s.service.IssueCheckoutLink(s.GetContext(), s.issueRequest())
	s.NoError(err)

	second, err := s.service.IssueCheckoutLink(s.GetContext(), s.issueRequest())
	s.NoError(err)
	s.True(second.Reused)
	s.Equal(first.ID, second.ID)
	s.Equal(first.URL, second.URL)

	// The provider session is minted exactly once
	s.Equal(1, s.GetGateway().CallCount("CreateCheckoutSession"))
	s.Equal([]string{types.EventCheckoutLinkCreated}, s.GetSink().EventNames())
}

func (s *CheckoutLinkServiceSuite) TestIssueCheckoutLinkTrialDefaults() {
	// A plan without its own trial falls back to the configured default
	noTrialPlan := &plan.Plan{
		ID:              "plan_plus",
		Name:            "Plus",
		Tier:            types.PlanTierPlus,
		Price:           decimal.NewFromInt(59),
		Currency:        "usd",
		ProviderPriceID: "price_plus",
		Active:          true,
		BaseModel:       types.GetDefaultBaseModel(s.GetContext()),
	}
	s.GetStores().PlanRepo.(*testutil.InMemoryPlanStore).AddPlan(noTrialPlan)

	req := s.issueRequest()
	req.PlanID = noTrialPlan.ID
	resp, err := s.service.IssueCheckoutLink(s.GetContext(), req)
	s.NoError(err)
	s.Equal(s.GetConfig().Subscription.TrialDays, resp.TrialDays)
	s.True(resp.TrialEnabled)
}

func (s *CheckoutLinkServiceSuite) TestIssueCheckoutLinkTrialOverride() {
	zero := 0
	req := s.issueRequest()
	req.TrialDays = &zero

	resp, err := s.service.IssueCheckoutLink(s.GetContext(), req)
	s.NoError(err)
	s.Equal(0, resp.TrialDays)
	s.False(resp.TrialEnabled)
}

func (s *CheckoutLinkServiceSuite) TestIssueCheckoutLinkByTier() {
	req := s.issueRequest()
	req.PlanID = ""
	req.Tier = string(types.PlanTierBasic)

	resp, err := s.service.IssueCheckoutLink(s.GetContext(), req)
	s.NoError(err)
	s.Equal(s.testData.plan.ID, resp.PlanID)
}

func (s *CheckoutLinkServiceSuite) TestIssueCheckoutLinkValidation() {
	testCases := []struct {
		name   string
		mutate func(req *dto.CreateCheckoutLinkRequest)
	}{
		{"missing user", func(req *dto.CreateCheckoutLinkRequest) { req.UserID = "" }},
		{"invalid email", func(req *dto.CreateCheckoutLinkRequest) { req.Email = "not-an-email" }},
		{"missing restaurant", func(req *dto.CreateCheckoutLinkRequest) { req.RestaurantID = "" }},
		{"no plan or tier", func(req *dto.CreateCheckoutLinkRequest) { req.PlanID = ""; req.Tier = "" }},
		{"unknown tier", func(req *dto.CreateCheckoutLinkRequest) { req.PlanID = ""; req.Tier = "diamond" }},
		{"negative trial days", func(req *dto.CreateCheckoutLinkRequest) {
			days := -1
			req.TrialDays = &days
		}},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			req := s.issueRequest()
			tc.mutate(req)
			resp, err := s.service.IssueCheckoutLink(s.GetContext(), req)
			s.Error(err)
			s.True(ierr.IsValidation(err))
			s.Nil(resp)
		})
	}
}

func (s *CheckoutLinkServiceSuite) TestIssueCheckoutLinkUnavailablePlan() {
	retired := &plan.Plan{
		ID:              "plan_retired",
		Name:            "Retired",
		Tier:            types.PlanTierPremium,
		Price:           decimal.NewFromInt(99),
		Currency:        "usd",
		ProviderPriceID: "price_retired",
		Active:          false,
		BaseModel:       types.GetDefaultBaseModel(s.GetContext()),
	}
	s.GetStores().PlanRepo.(*testutil.InMemoryPlanStore).AddPlan(retired)

	req := s.issueRequest()
	req.PlanID = retired.ID
	_, err := s.service.IssueCheckoutLink(s.GetContext(), req)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
	s.Equal(0, s.GetGateway().CallCount("CreateCheckoutSession"))
}

func (s *CheckoutLinkServiceSuite) TestIssueCheckoutLinkProviderFailureLeavesNothingBehind() {
	s.GetGateway().CreateCheckoutSessionFn = func(ctx context.Context, req *stripe.CreateCheckoutSessionRequest) (*stripe.CheckoutSessionResponse, error) {
		return nil, ierr.NewError("provider unavailable").
			WithHint("Checkout session could not be created").
			Mark(ierr.ErrIntegration)
	}

	resp, err := s.service.IssueCheckoutLink(s.GetContext(), s.issueRequest())
	s.Error(err)
	s.Nil(resp)

	_, err = s.GetStores().CheckoutLinkRepo.GetActiveByUserAndPlan(s.GetContext(), "user_1", s.testData.plan.ID)
	s.True(ierr.IsNotFound(err))
	s.Empty(s.GetSink().EventNames())
}

func (s *CheckoutLinkServiceSuite) TestIssueCheckoutLinkLostRaceAdoptsWinner() {
	// A concurrent issuance lands between the active-link check and the
	// insert. Simulated by having the provider call persist the winner.
	winner := &checkoutlink.CheckoutLink{
		ID:                "link_winner",
		UserID:            "user_1",
		RestaurantID:      "rest_1",
		PlanID:            s.testData.plan.ID,
		ProviderSessionID: "cs_winner",
		URL:               "https://checkout.stripe.com/c/pay/cs_winner",
		ExpiresAt:         time.Now().UTC().Add(time.Hour),
		LinkStatus:        types.LinkStatusActive,
		BaseModel:         types.GetDefaultBaseModel(s.GetContext()),
	}
	s.GetGateway().CreateCheckoutSessionFn = func(ctx context.Context, req *stripe.CreateCheckoutSessionRequest) (*stripe.CheckoutSessionResponse, error) {
		s.NoError(s.GetStores().CheckoutLinkRepo.Create(ctx, winner))
		return &stripe.CheckoutSessionResponse{
			SessionID: "cs_loser",
			URL:       "https://checkout.stripe.com/c/pay/cs_loser",
			ExpiresAt: req.ExpiresAt,
		}, nil
	}

	resp, err := s.service.IssueCheckoutLink(s.GetContext(), s.issueRequest())
	s.NoError(err)
	s.True(resp.Reused)
	s.Equal(winner.ID, resp.ID)
	s.Equal(winner.URL, resp.URL)
	s.Empty(s.GetSink().EventNames())
}

func (s *CheckoutLinkServiceSuite) TestIssueCheckoutLinkRetiresStaleActiveLink() {
	stale := &checkoutlink.CheckoutLink{
		ID:                "link_stale",
		UserID:            "user_1",
		RestaurantID:      "rest_1",
		PlanID:            s.testData.plan.ID,
		ProviderSessionID: "cs_stale",
		URL:               "https://checkout.stripe.com/c/pay/cs_stale",
		ExpiresAt:         time.Now().UTC().Add(-time.Hour),
		LinkStatus:        types.LinkStatusActive,
		BaseModel:         types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().CheckoutLinkRepo.Create(s.GetContext(), stale))

	resp, err := s.service.IssueCheckoutLink(s.GetContext(), s.issueRequest())
	s.NoError(err)
	s.False(resp.Reused)
	s.NotEqual(stale.ID, resp.ID)

	retired, err := s.GetStores().CheckoutLinkRepo.Get(s.GetContext(), stale.ID)
	s.NoError(err)
	s.Equal(types.LinkStatusExpired, retired.LinkStatus)
	s.Equal([]string{types.EventCheckoutLinkExpired, types.EventCheckoutLinkCreated}, s.GetSink().EventNames())
}

func (s *CheckoutLinkServiceSuite) TestMarkUsed() {
	issued, err := s.service.IssueCheckoutLink(s.GetContext(), s.issueRequest())
	s.NoError(err)

	resp, err := s.service.MarkUsed(s.GetContext(), issued.ID, &dto.MarkCheckoutLinkUsedRequest{
		ProviderSessionID: issued.ProviderSessionID,
	})
	s.NoError(err)
	s.Equal(types.LinkStatusUsed, resp.LinkStatus)

	stored, err := s.GetStores().CheckoutLinkRepo.Get(s.GetContext(), issued.ID)
	s.NoError(err)
	s.Equal(types.LinkStatusUsed, stored.LinkStatus)
	s.Equal([]string{types.EventCheckoutLinkCreated, types.EventCheckoutLinkUsed}, s.GetSink().EventNames())
}

func (s *CheckoutLinkServiceSuite) TestMarkUsedSessionMismatch() {
	issued, err := s.service.IssueCheckoutLink(s.GetContext(), s.issueRequest())
	s.NoError(err)

	_, err = s.service.MarkUsed(s.GetContext(), issued.ID, &dto.MarkCheckoutLinkUsedRequest{
		ProviderSessionID: "cs_someone_elses",
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))

	stored, err := s.GetStores().CheckoutLinkRepo.Get(s.GetContext(), issued.ID)
	s.NoError(err)
	s.Equal(types.LinkStatusActive, stored.LinkStatus)
}

func (s *CheckoutLinkServiceSuite) TestMarkUsedTwice() {
	issued, err := s.service.IssueCheckoutLink(s.GetContext(), s.issueRequest())
	s.NoError(err)

	req := &dto.MarkCheckoutLinkUsedRequest{ProviderSessionID: issued.ProviderSessionID}
	_, err = s.service.MarkUsed(s.GetContext(), issued.ID, req)
	s.NoError(err)

	_, err = s.service.MarkUsed(s.GetContext(), issued.ID, req)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *CheckoutLinkServiceSuite) TestMarkUsedExpiredLinkRetiresLazily() {
	expired := &checkoutlink.CheckoutLink{
		ID:                "link_overdue",
		UserID:            "user_2",
		RestaurantID:      "rest_1",
		PlanID:            s.testData.plan.ID,
		ProviderSessionID: "cs_overdue",
		URL:               "https://checkout.stripe.com/c/pay/cs_overdue",
		ExpiresAt:         time.Now().UTC().Add(-time.Minute),
		LinkStatus:        types.LinkStatusActive,
		BaseModel:         types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().CheckoutLinkRepo.Create(s.GetContext(), expired))

	_, err := s.service.MarkUsed(s.GetContext(), expired.ID, &dto.MarkCheckoutLinkUsedRequest{
		ProviderSessionID: expired.ProviderSessionID,
	})
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))

	// The sweep has not run, redemption retires the link itself
	stored, err := s.GetStores().CheckoutLinkRepo.Get(s.GetContext(), expired.ID)
	s.NoError(err)
	s.Equal(types.LinkStatusExpired, stored.LinkStatus)
	s.Equal([]string{types.EventCheckoutLinkExpired}, s.GetSink().EventNames())
}

func (s *CheckoutLinkServiceSuite) TestSweepExpired() {
	now := time.Now().UTC()
	seed := func(id, userID string, expiresAt time.Time, status types.LinkStatus) {
		link := &checkoutlink.CheckoutLink{
			ID:                id,
			UserID:            userID,
			RestaurantID:      "rest_1",
			PlanID:            s.testData.plan.ID,
			ProviderSessionID: "cs_" + id,
			URL:               "https://checkout.stripe.com/c/pay/cs_" + id,
			ExpiresAt:         expiresAt,
			LinkStatus:        status,
			BaseModel:         types.GetDefaultBaseModel(s.GetContext()),
		}
		s.NoError(s.GetStores().CheckoutLinkRepo.Create(s.GetContext(), link))
	}
	seed("link_a", "user_a", now.Add(-2*time.Hour), types.LinkStatusActive)
	seed("link_b", "user_b", now.Add(-time.Minute), types.LinkStatusActive)
	seed("link_c", "user_c", now.Add(time.Hour), types.LinkStatusActive)
	seed("link_d", "user_d", now.Add(-time.Hour), types.LinkStatusUsed)

	resp, err := s.service.SweepExpired(s.GetContext())
	s.NoError(err)
	s.Equal(2, resp.Scanned)
	s.Equal(2, resp.Expired)
	s.Equal(0, resp.Failed)

	for id, want := range map[string]types.LinkStatus{
		"link_a": types.LinkStatusExpired,
		"link_b": types.LinkStatusExpired,
		"link_c": types.LinkStatusActive,
		"link_d": types.LinkStatusUsed,
	} {
		stored, err := s.GetStores().CheckoutLinkRepo.Get(s.GetContext(), id)
		s.NoError(err)
		s.Equal(want, stored.LinkStatus, "link %s", id)
	}
	s.Equal([]string{types.EventCheckoutLinkExpired, types.EventCheckoutLinkExpired}, s.GetSink().EventNames())
}

func (s *CheckoutLinkServiceSuite) TestSweepExpiredRunsWithoutTenantContext() {
	// The ticker sweeper runs on a background context that carries no
	// tenant. It must still retire overdue links from every tenant.
	link := &checkoutlink.CheckoutLink{
		ID:                "link_foreign",
		UserID:            "user_f",
		RestaurantID:      "rest_f",
		PlanID:            s.testData.plan.ID,
		ProviderSessionID: "cs_foreign",
		URL:               "https://checkout.stripe.com/c/pay/cs_foreign",
		ExpiresAt:         time.Now().UTC().Add(-time.Hour),
		LinkStatus:        types.LinkStatusActive,
		BaseModel: types.BaseModel{
			TenantID: "tenant_other",
			Status:   types.StatusPublished,
		},
	}
	s.NoError(s.GetStores().CheckoutLinkRepo.Create(s.GetContext(), link))

	resp, err := s.service.SweepExpired(context.Background())
	s.NoError(err)
	s.Equal(1, resp.Scanned)
	s.Equal(1, resp.Expired)
	s.Equal(0, resp.Failed)

	otherCtx := context.WithValue(context.Background(), types.CtxTenantID, "tenant_other")
	stored, err := s.GetStores().CheckoutLinkRepo.Get(otherCtx, link.ID)
	s.NoError(err)
	s.Equal(types.LinkStatusExpired, stored.LinkStatus)
}

func (s *CheckoutLinkServiceSuite) TestSweepExpiredNothingToDo() {
	resp, err := s.service.SweepExpired(s.GetContext())
	s.NoError(err)
	s.Equal(0, resp.Scanned)
	s.Equal(0, resp.Expired)
	s.Equal(0, resp.Failed)
}
