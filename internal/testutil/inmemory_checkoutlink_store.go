package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/menumate/menumate/internal/domain/checkoutlink"
	ierr "github.com/menumate/menumate/internal/errors"
	"github.com/menumate/menumate/internal/types"
)

// InMemoryCheckoutLinkStore implements checkoutlink.Repository with the same
// semantics as the postgres implementation: one active link per (user, plan),
// compare-and-set status transitions keyed on id alone, tenant-scoped reads,
// and a tenant-agnostic expired listing for the sweep.
type InMemoryCheckoutLinkStore struct {
	mu    sync.Mutex
	links map[string]*checkoutlink.CheckoutLink
}

// NewInMemoryCheckoutLinkStore creates a new in-memory checkout link store
func NewInMemoryCheckoutLinkStore() *InMemoryCheckoutLinkStore {
	return &InMemoryCheckoutLinkStore{
		links: make(map[string]*checkoutlink.CheckoutLink),
	}
}

func (s *InMemoryCheckoutLinkStore) Create(ctx context.Context, link *checkoutlink.CheckoutLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if link.LinkStatus == types.LinkStatusActive {
		for _, existing := range s.links {
			if existing.UserID == link.UserID &&
				existing.PlanID == link.PlanID &&
				existing.LinkStatus == types.LinkStatusActive {
				return ierr.NewError("active checkout link already exists").
					WithHint("An active link exists for this user and plan").
					Mark(ierr.ErrAlreadyExists)
			}
		}
	}

	cp := *link
	s.links[link.ID] = &cp
	return nil
}

func (s *InMemoryCheckoutLinkStore) Get(ctx context.Context, id string) (*checkoutlink.CheckoutLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.links[id]
	if !ok || link.TenantID != types.GetTenantID(ctx) {
		return nil, ierr.NewError("checkout link not found").
			WithHintf("Checkout link %s does not exist", id).
			Mark(ierr.ErrNotFound)
	}
	cp := *link
	return &cp, nil
}

func (s *InMemoryCheckoutLinkStore) GetActiveByUserAndPlan(ctx context.Context, userID, planID string) (*checkoutlink.CheckoutLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, link := range s.links {
		if link.UserID == userID && link.PlanID == planID &&
			link.LinkStatus == types.LinkStatusActive &&
			link.TenantID == types.GetTenantID(ctx) {
			cp := *link
			return &cp, nil
		}
	}
	return nil, ierr.NewError("no active checkout link").
		WithHint("No active link exists for this user and plan").
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryCheckoutLinkStore) UpdateStatus(ctx context.Context, id string, from, to types.LinkStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.links[id]
	if !ok {
		return ierr.NewError("checkout link not found").
			WithHintf("Checkout link %s does not exist", id).
			Mark(ierr.ErrNotFound)
	}
	if link.LinkStatus != from {
		return ierr.NewError("checkout link status moved").
			WithHintf("Expected status %s but found %s", from, link.LinkStatus).
			Mark(ierr.ErrVersionConflict)
	}

	link.LinkStatus = to
	link.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemoryCheckoutLinkStore) ListByRestaurant(ctx context.Context, restaurantID string) ([]*checkoutlink.CheckoutLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*checkoutlink.CheckoutLink, 0)
	for _, link := range s.links {
		if link.RestaurantID == restaurantID && link.TenantID == types.GetTenantID(ctx) {
			cp := *link
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *InMemoryCheckoutLinkStore) ListExpired(ctx context.Context, asOf time.Time, limit int) ([]*checkoutlink.CheckoutLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*checkoutlink.CheckoutLink, 0)
	for _, link := range s.links {
		if link.LinkStatus == types.LinkStatusActive && link.ExpiresAt.Before(asOf) {
			cp := *link
			out = append(out, &cp)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

// Clear removes all links
func (s *InMemoryCheckoutLinkStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links = make(map[string]*checkoutlink.CheckoutLink)
}
