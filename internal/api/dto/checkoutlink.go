package dto

import (
	"time"

	"github.com/menumate/menumate/internal/domain/checkoutlink"
	ierr "github.com/menumate/menumate/internal/errors"
	"github.com/menumate/menumate/internal/types"
	"github.com/menumate/menumate/internal/validator"
)

// CreateCheckoutLinkRequest asks for a checkout link for a user, restaurant
// and plan tier
type CreateCheckoutLinkRequest struct {
	UserID       string `json:"user_id" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	Name         string `json:"name,omitempty"`
	RestaurantID string `json:"restaurant_id" validate:"required"`
	PlanID       string `json:"plan_id,omitempty"`
	Tier         string `json:"tier,omitempty"`
	// TrialDays overrides the plan's trial length when set. Zero disables
	// the trial for this link.
	TrialDays *int `json:"trial_days,omitempty"`
}

func (r *CreateCheckoutLinkRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if r.PlanID == "" && r.Tier == "" {
		return ierr.NewError("plan_id or tier is required").
			WithHint("Provide either a plan id or a plan tier").
			Mark(ierr.ErrValidation)
	}
	if r.Tier != "" {
		if err := types.PlanTier(r.Tier).Validate(); err != nil {
			return err
		}
	}
	if r.TrialDays != nil && *r.TrialDays < 0 {
		return ierr.NewError("trial_days must not be negative").
			WithHint("Provide zero to disable the trial or a positive day count").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// MarkCheckoutLinkUsedRequest redeems a link with its provider session
type MarkCheckoutLinkUsedRequest struct {
	ProviderSessionID string `json:"provider_session_id" validate:"required"`
}

func (r *MarkCheckoutLinkUsedRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// CheckoutLinkResponse is the API view of a checkout link
type CheckoutLinkResponse struct {
	ID                string           `json:"id"`
	UserID            string           `json:"user_id"`
	RestaurantID      string           `json:"restaurant_id"`
	PlanID            string           `json:"plan_id"`
	URL               string           `json:"url"`
	LinkStatus        types.LinkStatus `json:"link_status"`
	ExpiresAt         time.Time        `json:"expires_at"`
	TrialEnabled      bool             `json:"trial_enabled"`
	TrialDays         int              `json:"trial_days"`
	ProviderSessionID string           `json:"provider_session_id,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	// Reused reports that an existing active link was returned instead of
	// a newly issued one
	Reused bool `json:"reused,omitempty"`
}

// NewCheckoutLinkResponse maps a domain checkout link to its API view
func NewCheckoutLinkResponse(link *checkoutlink.CheckoutLink) *CheckoutLinkResponse {
	return &CheckoutLinkResponse{
		ID:                link.ID,
		UserID:            link.UserID,
		RestaurantID:      link.RestaurantID,
		PlanID:            link.PlanID,
		URL:               link.URL,
		LinkStatus:        link.LinkStatus,
		ExpiresAt:         link.ExpiresAt,
		TrialEnabled:      link.TrialEnabled,
		TrialDays:         link.TrialDays,
		ProviderSessionID: link.ProviderSessionID,
		CreatedAt:         link.CreatedAt,
	}
}

// ListCheckoutLinksResponse is a collection of checkout links
type ListCheckoutLinksResponse struct {
	Items []*CheckoutLinkResponse `json:"items"`
	Total int                     `json:"total"`
}

// SweepExpiredResponse reports the outcome of an expiry sweep
type SweepExpiredResponse struct {
	Scanned int `json:"scanned"`
	Expired int `json:"expired"`
	Failed  int `json:"failed"`
}
