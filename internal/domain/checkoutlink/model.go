package checkoutlink

import (
	"time"

	"github.com/menumate/menumate/internal/types"
)

// CheckoutLink represents one issued, time-boxed invitation to complete
// checkout for a plan. Links are never deleted; only LinkStatus moves.
type CheckoutLink struct {
	// ID is the unique identifier for the checkout link
	ID string `db:"id" json:"id"`

	// UserID is the identifier of the user the link was issued to
	UserID string `db:"user_id" json:"user_id"`

	// RestaurantID is the restaurant the plan will be attached to
	RestaurantID string `db:"restaurant_id" json:"restaurant_id"`

	// PlanID is the catalog plan the link checks out
	PlanID string `db:"plan_id" json:"plan_id"`

	// ProviderCustomerID is the customer id at the payment provider
	ProviderCustomerID string `db:"provider_customer_id" json:"provider_customer_id"`

	// ProviderSessionID is the checkout session id at the payment provider
	ProviderSessionID string `db:"provider_session_id" json:"provider_session_id"`

	// URL is the original checkout URL minted by the provider
	URL string `db:"url" json:"url"`

	// ExpiresAt is when the link stops being redeemable
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`

	// TrialDays is the trial period captured at issuance time
	TrialDays int `db:"trial_days" json:"trial_days"`

	// TrialEnabled is whether the link grants a trial at all
	TrialEnabled bool `db:"trial_enabled" json:"trial_enabled"`

	// LinkStatus is the lifecycle status: active, used or expired
	LinkStatus types.LinkStatus `db:"link_status" json:"link_status"`

	types.BaseModel
}

// IsExpired reports whether the link has passed its expiry instant,
// independent of whether the sweep has already transitioned it.
func (l *CheckoutLink) IsExpired(now time.Time) bool {
	return now.After(l.ExpiresAt)
}

// Redeemable reports whether the link can still be completed.
func (l *CheckoutLink) Redeemable(now time.Time) bool {
	return l.LinkStatus == types.LinkStatusActive && !l.IsExpired(now)
}
