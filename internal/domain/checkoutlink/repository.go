package checkoutlink

import (
	"context"
	"time"

	"github.com/menumate/menumate/internal/types"
)

// Repository defines the interface for checkout link persistence.
//
// The store is the arbiter of the "one active link per (user, plan)"
// invariant: Create must fail with ierr.ErrAlreadyExists when an active
// link for the same pair exists, and UpdateStatus must be a compare-and-set
// on the expected prior status, failing with ierr.ErrVersionConflict when
// the row has already moved.
type Repository interface {
	Create(ctx context.Context, link *CheckoutLink) error
	Get(ctx context.Context, id string) (*CheckoutLink, error)
	GetActiveByUserAndPlan(ctx context.Context, userID, planID string) (*CheckoutLink, error)
	UpdateStatus(ctx context.Context, id string, from, to types.LinkStatus) error
	ListByRestaurant(ctx context.Context, restaurantID string) ([]*CheckoutLink, error)
	ListExpired(ctx context.Context, asOf time.Time, limit int) ([]*CheckoutLink, error)
}
