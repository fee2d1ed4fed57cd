package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/menumate/menumate/internal/domain/subscription"
	ierr "github.com/menumate/menumate/internal/errors"
	"github.com/menumate/menumate/internal/types"
)

// InMemorySubscriptionStore implements subscription.Repository
type InMemorySubscriptionStore struct {
	mu   sync.Mutex
	subs map[string]*subscription.Subscription
}

// NewInMemorySubscriptionStore creates a new in-memory subscription store
func NewInMemorySubscriptionStore() *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{
		subs: make(map[string]*subscription.Subscription),
	}
}

func (s *InMemorySubscriptionStore) Create(ctx context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subs[sub.ID]; exists {
		return ierr.NewError("subscription already exists").
			WithHintf("Subscription %s already exists", sub.ID).
			Mark(ierr.ErrAlreadyExists)
	}
	cp := *sub
	s.subs[sub.ID] = &cp
	return nil
}

func (s *InMemorySubscriptionStore) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(id)
}

func (s *InMemorySubscriptionStore) getLocked(id string) (*subscription.Subscription, error) {
	sub, ok := s.subs[id]
	if !ok {
		return nil, ierr.NewError("subscription not found").
			WithHintf("Subscription %s does not exist", id).
			Mark(ierr.ErrNotFound)
	}
	cp := *sub
	return &cp, nil
}

func (s *InMemorySubscriptionStore) GetByProviderID(ctx context.Context, providerSubscriptionID string) (*subscription.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sub := range s.subs {
		if sub.ProviderSubscriptionID == providerSubscriptionID {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, ierr.NewError("subscription not found").
		WithHint("No subscription with this provider id").
		Mark(ierr.ErrNotFound)
}

func (s *InMemorySubscriptionStore) GetByCRMDealID(ctx context.Context, dealID string) (*subscription.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sub := range s.subs {
		if sub.CRMDealID == dealID {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, ierr.NewError("subscription not found").
		WithHintf("No subscription linked to CRM deal %s", dealID).
		Mark(ierr.ErrNotFound)
}

func (s *InMemorySubscriptionStore) GetActiveByProfileAndPlan(ctx context.Context, profileID, planID string) (*subscription.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sub := range s.subs {
		if sub.ProfileID == profileID && sub.PlanID == planID && sub.IsActive {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, ierr.NewError("subscription not found").
		WithHint("No active subscription for this profile and plan").
		Mark(ierr.ErrNotFound)
}

func (s *InMemorySubscriptionStore) Update(ctx context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subs[sub.ID]; !ok {
		return ierr.NewError("subscription not found").
			WithHintf("Subscription %s does not exist", sub.ID).
			Mark(ierr.ErrNotFound)
	}
	cp := *sub
	cp.UpdatedAt = time.Now().UTC()
	s.subs[sub.ID] = &cp
	return nil
}

func (s *InMemorySubscriptionStore) UpdateCancellation(ctx context.Context, id string, update subscription.CancellationUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[id]
	if !ok {
		return ierr.NewError("subscription not found").
			WithHintf("Subscription %s does not exist", id).
			Mark(ierr.ErrNotFound)
	}

	sub.CancelAt = update.CancelAt
	sub.CanceledAt = update.CanceledAt
	sub.CancelAtPeriodEnd = update.CancelAtPeriodEnd
	sub.IsActive = update.IsActive
	sub.SubscriptionStatus = types.SubscriptionStatus(update.Status)
	sub.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemorySubscriptionStore) UpdateTrialExtension(ctx context.Context, id string, update subscription.TrialExtensionUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[id]
	if !ok {
		return ierr.NewError("subscription not found").
			WithHintf("Subscription %s does not exist", id).
			Mark(ierr.ErrNotFound)
	}

	trialEnd := update.TrialEnd
	originalTrialEnd := update.OriginalTrialEnd
	sub.TrialEnd = &trialEnd
	sub.OriginalTrialEnd = &originalTrialEnd
	sub.TrialExtendedCount = update.TrialExtendedCount
	sub.TrialExtendedDays = update.TrialExtendedDays
	sub.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemorySubscriptionStore) ListByRestaurant(ctx context.Context, restaurantID string) ([]*subscription.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*subscription.Subscription, 0)
	for _, sub := range s.subs {
		if sub.RestaurantID == restaurantID {
			cp := *sub
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Clear removes all subscriptions
func (s *InMemorySubscriptionStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = make(map[string]*subscription.Subscription)
}
