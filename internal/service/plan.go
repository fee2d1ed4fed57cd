package service

import (
	"context"
	"time"

	"github.com/menumate/menumate/internal/api/dto"
	"github.com/menumate/menumate/internal/cache"
	"github.com/menumate/menumate/internal/domain/plan"
	ierr "github.com/menumate/menumate/internal/errors"
	"github.com/menumate/menumate/internal/types"
	"github.com/samber/lo"
)

// planCacheTTL bounds how stale catalog reads may get
const planCacheTTL = 5 * time.Minute

// PlanService exposes read access to the plan catalog
type PlanService interface {
	GetPlan(ctx context.Context, id string) (*dto.PlanResponse, error)
	GetPlanByTier(ctx context.Context, tier types.PlanTier) (*dto.PlanResponse, error)
	ListPlans(ctx context.Context) (*dto.ListPlansResponse, error)

	// ResolvePlan resolves a plan by id or tier and checks availability
	ResolvePlan(ctx context.Context, planID string, tier string) (*plan.Plan, error)
}

type planService struct {
	ServiceParams
}

// NewPlanService creates a plan catalog service
func NewPlanService(params ServiceParams) PlanService {
	return &planService{ServiceParams: params}
}

func (s *planService) GetPlan(ctx context.Context, id string) (*dto.PlanResponse, error) {
	p, err := s.getCached(ctx, cache.GenerateKey(cache.PrefixPlan, id), func(ctx context.Context) (*plan.Plan, error) {
		return s.PlanRepo.Get(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return dto.NewPlanResponse(p), nil
}

func (s *planService) GetPlanByTier(ctx context.Context, tier types.PlanTier) (*dto.PlanResponse, error) {
	if err := tier.Validate(); err != nil {
		return nil, err
	}
	p, err := s.getCached(ctx, cache.GenerateKey(cache.PrefixPlan, "tier", tier), func(ctx context.Context) (*plan.Plan, error) {
		return s.PlanRepo.GetByTier(ctx, tier)
	})
	if err != nil {
		return nil, err
	}
	return dto.NewPlanResponse(p), nil
}

func (s *planService) ListPlans(ctx context.Context) (*dto.ListPlansResponse, error) {
	plans, err := s.PlanRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	items := lo.Map(plans, func(p *plan.Plan, _ int) *dto.PlanResponse {
		return dto.NewPlanResponse(p)
	})
	return &dto.ListPlansResponse{
		Items: items,
		Total: len(items),
	}, nil
}

func (s *planService) ResolvePlan(ctx context.Context, planID string, tier string) (*plan.Plan, error) {
	var (
		p   *plan.Plan
		err error
	)
	switch {
	case planID != "":
		p, err = s.getCached(ctx, cache.GenerateKey(cache.PrefixPlan, planID), func(ctx context.Context) (*plan.Plan, error) {
			return s.PlanRepo.Get(ctx, planID)
		})
	case tier != "":
		planTier := types.PlanTier(tier)
		if err := planTier.Validate(); err != nil {
			return nil, err
		}
		p, err = s.getCached(ctx, cache.GenerateKey(cache.PrefixPlan, "tier", planTier), func(ctx context.Context) (*plan.Plan, error) {
			return s.PlanRepo.GetByTier(ctx, planTier)
		})
	default:
		return nil, ierr.NewError("plan_id or tier is required").
			WithHint("Provide either a plan id or a plan tier").
			Mark(ierr.ErrValidation)
	}
	if err != nil {
		return nil, err
	}

	if !p.Available() {
		return nil, ierr.NewError("plan is not available").
			WithHintf("Plan %s is not open for new subscriptions", p.ID).
			Mark(ierr.ErrInvalidOperation)
	}
	return p, nil
}

// getCached reads through the catalog cache
func (s *planService) getCached(ctx context.Context, key string, load func(ctx context.Context) (*plan.Plan, error)) (*plan.Plan, error) {
	if cached, found := s.Cache.Get(ctx, key); found {
		if p, ok := cached.(*plan.Plan); ok {
			return p, nil
		}
	}

	p, err := load(ctx)
	if err != nil {
		return nil, err
	}

	s.Cache.Set(ctx, key, p, planCacheTTL)
	return p, nil
}
