package testutil

import (
	"context"
	"sync"

	"github.com/menumate/menumate/internal/domain/plan"
	ierr "github.com/menumate/menumate/internal/errors"
	"github.com/menumate/menumate/internal/types"
)

// InMemoryPlanStore implements plan.Repository
type InMemoryPlanStore struct {
	mu    sync.RWMutex
	plans map[string]*plan.Plan
}

// NewInMemoryPlanStore creates a new in-memory plan store
func NewInMemoryPlanStore() *InMemoryPlanStore {
	return &InMemoryPlanStore{
		plans: make(map[string]*plan.Plan),
	}
}

// AddPlan seeds a plan for tests
func (s *InMemoryPlanStore) AddPlan(p *plan.Plan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[p.ID] = p
}

func (s *InMemoryPlanStore) Get(ctx context.Context, id string) (*plan.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.plans[id]
	if !ok {
		return nil, ierr.NewError("plan not found").
			WithHintf("Plan %s does not exist", id).
			Mark(ierr.ErrNotFound)
	}
	return p, nil
}

func (s *InMemoryPlanStore) GetByTier(ctx context.Context, tier types.PlanTier) (*plan.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.plans {
		if p.Tier == tier && p.Status == types.StatusPublished {
			return p, nil
		}
	}
	return nil, ierr.NewError("no plan for tier").
		WithHintf("No published plan exists for tier %s", tier).
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryPlanStore) List(ctx context.Context) ([]*plan.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*plan.Plan, 0, len(s.plans))
	for _, p := range s.plans {
		if p.Status == types.StatusPublished {
			out = append(out, p)
		}
	}
	return out, nil
}

// Clear removes all plans
func (s *InMemoryPlanStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans = make(map[string]*plan.Plan)
}
