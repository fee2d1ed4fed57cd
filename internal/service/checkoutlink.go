package service

import (
	"context"
	"time"

	"github.com/menumate/menumate/internal/api/dto"
	"github.com/menumate/menumate/internal/domain/checkoutlink"
	ierr "github.com/menumate/menumate/internal/errors"
	"github.com/menumate/menumate/internal/idempotency"
	"github.com/menumate/menumate/internal/integration/stripe"
	"github.com/menumate/menumate/internal/types"
	"github.com/samber/lo"
)

// CheckoutLinkService manages the checkout link lifecycle: issuance with
// single-active enforcement, redemption, and expiry sweeps.
type CheckoutLinkService interface {
	IssueCheckoutLink(ctx context.Context, req *dto.CreateCheckoutLinkRequest) (*dto.CheckoutLinkResponse, error)
	GetCheckoutLink(ctx context.Context, id string) (*dto.CheckoutLinkResponse, error)
	MarkUsed(ctx context.Context, id string, req *dto.MarkCheckoutLinkUsedRequest) (*dto.CheckoutLinkResponse, error)
	ListByRestaurant(ctx context.Context, restaurantID string) (*dto.ListCheckoutLinksResponse, error)
	SweepExpired(ctx context.Context) (*dto.SweepExpiredResponse, error)
}

type checkoutLinkService struct {
	ServiceParams
	planService PlanService
}

// NewCheckoutLinkService creates a checkout link service
func NewCheckoutLinkService(params ServiceParams, planService PlanService) CheckoutLinkService {
	return &checkoutLinkService{
		ServiceParams: params,
		planService:   planService,
	}
}

// IssueCheckoutLink mints a provider checkout session and persists the link.
// At most one active link exists per (user, plan): an existing active and
// unexpired link is returned as-is instead of issuing a second one, and a
// concurrent issuance losing the insert race adopts the winner's link.
func (s *checkoutLinkService) IssueCheckoutLink(ctx context.Context, req *dto.CreateCheckoutLinkRequest) (*dto.CheckoutLinkResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	plan, err := s.planService.ResolvePlan(ctx, req.PlanID, req.Tier)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	if existing, err := s.CheckoutLinkRepo.GetActiveByUserAndPlan(ctx, req.UserID, plan.ID); err == nil {
		if existing.Redeemable(now) {
			s.Logger.Infow("returning existing active checkout link",
				"link_id", existing.ID,
				"user_id", req.UserID,
				"plan_id", plan.ID)
			resp := dto.NewCheckoutLinkResponse(existing)
			resp.Reused = true
			return resp, nil
		}
		// Expired but not yet swept, retire it and issue fresh
		if err := s.expireLink(ctx, existing); err != nil && !ierr.IsVersionConflict(err) {
			return nil, err
		}
	} else if !ierr.IsNotFound(err) {
		return nil, err
	}

	customer, err := s.Gateway.EnsureCustomer(ctx, &stripe.EnsureCustomerRequest{
		UserID: req.UserID,
		Email:  req.Email,
		Name:   req.Name,
	})
	if err != nil {
		return nil, err
	}

	trialDays := plan.TrialDays
	if trialDays == 0 {
		trialDays = s.Config.Subscription.TrialDays
	}
	if req.TrialDays != nil {
		trialDays = *req.TrialDays
	}

	expiresAt := now.Add(s.Config.CheckoutLink.TTL)
	linkID := types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CHECKOUT_LINK)

	// The provider call is keyed on the link id so a crash between session
	// creation and persistence cannot mint a second session on retry of the
	// same link
	sessionKey := s.IdempotencyGen.GenerateKey(idempotency.ScopeProviderSession, map[string]interface{}{
		"user_id": req.UserID,
		"plan_id": plan.ID,
		"link_id": linkID,
	})

	session, err := s.Gateway.CreateCheckoutSession(ctx, &stripe.CreateCheckoutSessionRequest{
		ProviderCustomerID: customer.ProviderCustomerID,
		ProviderPriceID:    plan.ProviderPriceID,
		TrialDays:          trialDays,
		ExpiresAt:          expiresAt,
		IdempotencyKey:     sessionKey,
		Metadata: map[string]string{
			"link_id":       linkID,
			"user_id":       req.UserID,
			"restaurant_id": req.RestaurantID,
			"plan_id":       plan.ID,
		},
	})
	if err != nil {
		return nil, err
	}

	link := &checkoutlink.CheckoutLink{
		ID:                 linkID,
		UserID:             req.UserID,
		RestaurantID:       req.RestaurantID,
		PlanID:             plan.ID,
		ProviderCustomerID: customer.ProviderCustomerID,
		ProviderSessionID:  session.SessionID,
		URL:                session.URL,
		ExpiresAt:          expiresAt,
		TrialDays:          trialDays,
		TrialEnabled:       trialDays > 0,
		LinkStatus:         types.LinkStatusActive,
		BaseModel:          types.GetDefaultBaseModel(ctx),
	}

	if err := s.CheckoutLinkRepo.Create(ctx, link); err != nil {
		if ierr.IsAlreadyExists(err) {
			// Lost the issuance race, adopt the winner's link
			winner, getErr := s.CheckoutLinkRepo.GetActiveByUserAndPlan(ctx, req.UserID, plan.ID)
			if getErr != nil {
				return nil, err
			}
			s.Logger.Infow("lost checkout link issuance race, returning winner",
				"link_id", winner.ID,
				"user_id", req.UserID,
				"plan_id", plan.ID)
			resp := dto.NewCheckoutLinkResponse(winner)
			resp.Reused = true
			return resp, nil
		}
		return nil, err
	}

	s.publishLinkEvent(ctx, types.EventCheckoutLinkCreated, link)

	return dto.NewCheckoutLinkResponse(link), nil
}

func (s *checkoutLinkService) GetCheckoutLink(ctx context.Context, id string) (*dto.CheckoutLinkResponse, error) {
	link, err := s.CheckoutLinkRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewCheckoutLinkResponse(link), nil
}

// MarkUsed redeems a link. The status move is a compare-and-set from active,
// so exactly one of any number of concurrent redemptions wins.
func (s *checkoutLinkService) MarkUsed(ctx context.Context, id string, req *dto.MarkCheckoutLinkUsedRequest) (*dto.CheckoutLinkResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	link, err := s.CheckoutLinkRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if link.ProviderSessionID != req.ProviderSessionID {
		return nil, ierr.NewError("provider session mismatch").
			WithHint("The session does not belong to this checkout link").
			WithReportableDetails(map[string]interface{}{
				"link_id": link.ID,
			}).
			Mark(ierr.ErrValidation)
	}

	now := time.Now().UTC()
	if link.LinkStatus != types.LinkStatusActive {
		return nil, ierr.NewError("checkout link is not redeemable").
			WithHintf("Link is already %s", link.LinkStatus).
			WithReportableDetails(map[string]interface{}{
				"link_id":     link.ID,
				"link_status": link.LinkStatus,
			}).
			Mark(ierr.ErrInvalidOperation)
	}
	if link.IsExpired(now) {
		// Retire lazily, the sweep has not caught it yet
		if err := s.expireLink(ctx, link); err != nil && !ierr.IsVersionConflict(err) {
			return nil, err
		}
		return nil, ierr.NewError("checkout link has expired").
			WithHintf("Link expired at %s", link.ExpiresAt.Format(time.RFC3339)).
			Mark(ierr.ErrInvalidOperation)
	}

	if err := s.CheckoutLinkRepo.UpdateStatus(ctx, link.ID, types.LinkStatusActive, types.LinkStatusUsed); err != nil {
		return nil, err
	}
	link.LinkStatus = types.LinkStatusUsed

	s.publishLinkEvent(ctx, types.EventCheckoutLinkUsed, link)

	return dto.NewCheckoutLinkResponse(link), nil
}

func (s *checkoutLinkService) ListByRestaurant(ctx context.Context, restaurantID string) (*dto.ListCheckoutLinksResponse, error) {
	if restaurantID == "" {
		return nil, ierr.NewError("restaurant_id is required").
			WithHint("Provide a restaurant id").
			Mark(ierr.ErrValidation)
	}

	links, err := s.CheckoutLinkRepo.ListByRestaurant(ctx, restaurantID)
	if err != nil {
		return nil, err
	}

	items := lo.Map(links, func(link *checkoutlink.CheckoutLink, _ int) *dto.CheckoutLinkResponse {
		return dto.NewCheckoutLinkResponse(link)
	})
	return &dto.ListCheckoutLinksResponse{
		Items: items,
		Total: len(items),
	}, nil
}

// SweepExpired transitions overdue active links to expired. One link failing
// never aborts the batch, losing the CAS to a concurrent redemption just
// means the link no longer needs sweeping.
func (s *checkoutLinkService) SweepExpired(ctx context.Context) (*dto.SweepExpiredResponse, error) {
	now := time.Now().UTC()

	links, err := s.CheckoutLinkRepo.ListExpired(ctx, now, s.Config.CheckoutLink.SweepBatchSize)
	if err != nil {
		return nil, err
	}

	resp := &dto.SweepExpiredResponse{Scanned: len(links)}
	for _, link := range links {
		if err := s.expireLink(ctx, link); err != nil {
			if ierr.IsVersionConflict(err) {
				continue
			}
			resp.Failed++
			s.Logger.Errorw("failed to expire checkout link",
				"error", err,
				"link_id", link.ID)
			continue
		}
		resp.Expired++
	}

	s.Logger.Infow("checkout link sweep complete",
		"scanned", resp.Scanned,
		"expired", resp.Expired,
		"failed", resp.Failed)

	return resp, nil
}

// expireLink moves a link from active to expired and emits the event
func (s *checkoutLinkService) expireLink(ctx context.Context, link *checkoutlink.CheckoutLink) error {
	if err := s.CheckoutLinkRepo.UpdateStatus(ctx, link.ID, types.LinkStatusActive, types.LinkStatusExpired); err != nil {
		return err
	}
	link.LinkStatus = types.LinkStatusExpired
	s.publishLinkEvent(ctx, types.EventCheckoutLinkExpired, link)
	return nil
}

// publishLinkEvent emits a lifecycle event, best effort
func (s *checkoutLinkService) publishLinkEvent(ctx context.Context, eventName string, link *checkoutlink.CheckoutLink) {
	event, err := types.NewNotificationEvent(eventName, link.TenantID, dto.NewCheckoutLinkResponse(link))
	if err != nil {
		s.Logger.Errorw("failed to build lifecycle event",
			"error", err,
			"event_name", eventName,
			"link_id", link.ID)
		return
	}
	s.Fanout.Publish(ctx, event)
}
