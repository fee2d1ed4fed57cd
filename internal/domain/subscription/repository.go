package subscription

import (
	"context"
	"time"
)

// CancellationUpdate carries the fields that must change together when
// cancellation state moves. CancelAt and IsActive are never written
// independently during cancel/undo-cancel.
type CancellationUpdate struct {
	CancelAt          *time.Time
	CanceledAt        *time.Time
	CancelAtPeriodEnd bool
	IsActive          bool
	Status            string
}

// TrialExtensionUpdate carries the fields updated atomically by a trial
// extension.
type TrialExtensionUpdate struct {
	TrialEnd           time.Time
	OriginalTrialEnd   time.Time
	TrialExtendedCount int
	TrialExtendedDays  int
}

// Repository defines the interface for subscription persistence
type Repository interface {
	Create(ctx context.Context, sub *Subscription) error
	Get(ctx context.Context, id string) (*Subscription, error)
	GetByProviderID(ctx context.Context, providerSubscriptionID string) (*Subscription, error)
	GetByCRMDealID(ctx context.Context, dealID string) (*Subscription, error)
	GetActiveByProfileAndPlan(ctx context.Context, profileID, planID string) (*Subscription, error)
	Update(ctx context.Context, sub *Subscription) error
	UpdateCancellation(ctx context.Context, id string, update CancellationUpdate) error
	UpdateTrialExtension(ctx context.Context, id string, update TrialExtensionUpdate) error
	ListByRestaurant(ctx context.Context, restaurantID string) ([]*Subscription, error)
}
