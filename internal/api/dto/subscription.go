package dto

import (
	"time"

	"github.com/menumate/menumate/internal/domain/subscription"
	ierr "github.com/menumate/menumate/internal/errors"
	"github.com/menumate/menumate/internal/types"
	"github.com/menumate/menumate/internal/validator"
	"github.com/shopspring/decimal"
)

// CancelSubscriptionRequest schedules a cancellation
type CancelSubscriptionRequest struct {
	// AtPeriodEnd defers the cancellation to the end of the paid period,
	// which keeps it undoable until then
	AtPeriodEnd bool   `json:"at_period_end"`
	Reason      string `json:"reason,omitempty"`
}

func (r *CancelSubscriptionRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// ExtendTrialRequest extends a trial by a number of days
type ExtendTrialRequest struct {
	Days int `json:"days" validate:"required,gt=0"`
}

func (r *ExtendTrialRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if r.Days > 365 {
		return ierr.NewError("extension too large").
			WithHint("Trial extensions are limited to 365 days per request").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ValidateCardRequest asks for a funds check on a saved payment method
type ValidateCardRequest struct {
	PaymentMethodID string          `json:"payment_method_id" validate:"required"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency,omitempty" validate:"omitempty,len=3"`
}

func (r *ValidateCardRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if r.Amount.IsNegative() {
		return ierr.NewError("amount must not be negative").
			WithHint("Provide a zero or positive validation amount").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// SubscriptionResponse is the API view of a subscription
type SubscriptionResponse struct {
	ID                     string                   `json:"id"`
	ProfileID              string                   `json:"profile_id"`
	RestaurantID           string                   `json:"restaurant_id"`
	PlanID                 string                   `json:"plan_id"`
	ProviderSubscriptionID string                   `json:"provider_subscription_id,omitempty"`
	SubscriptionStatus     types.SubscriptionStatus `json:"subscription_status"`
	IsActive               bool                     `json:"is_active"`
	CurrentPeriodStart     time.Time                `json:"current_period_start"`
	CurrentPeriodEnd       time.Time                `json:"current_period_end"`
	TrialEnd               *time.Time               `json:"trial_end,omitempty"`
	TrialExtendedCount     int                      `json:"trial_extended_count"`
	TrialExtendedDays      int                      `json:"trial_extended_days"`
	CancelAt               *time.Time               `json:"cancel_at,omitempty"`
	CanceledAt             *time.Time               `json:"canceled_at,omitempty"`
	CancelAtPeriodEnd      bool                     `json:"cancel_at_period_end"`
	CouponCode             string                   `json:"coupon_code,omitempty"`
	CRMDealID              string                   `json:"crm_deal_id,omitempty"`
	CRMDealStage           string                   `json:"crm_deal_stage,omitempty"`
	CreatedAt              time.Time                `json:"created_at"`
	UpdatedAt              time.Time                `json:"updated_at"`
}

// NewSubscriptionResponse maps a domain subscription to its API view
func NewSubscriptionResponse(sub *subscription.Subscription) *SubscriptionResponse {
	return &SubscriptionResponse{
		ID:                     sub.ID,
		ProfileID:              sub.ProfileID,
		RestaurantID:           sub.RestaurantID,
		PlanID:                 sub.PlanID,
		ProviderSubscriptionID: sub.ProviderSubscriptionID,
		SubscriptionStatus:     sub.SubscriptionStatus,
		IsActive:               sub.IsActive,
		CurrentPeriodStart:     sub.CurrentPeriodStart,
		CurrentPeriodEnd:       sub.CurrentPeriodEnd,
		TrialEnd:               sub.TrialEnd,
		TrialExtendedCount:     sub.TrialExtendedCount,
		TrialExtendedDays:      sub.TrialExtendedDays,
		CancelAt:               sub.CancelAt,
		CanceledAt:             sub.CanceledAt,
		CancelAtPeriodEnd:      sub.CancelAtPeriodEnd,
		CouponCode:             sub.CouponCode,
		CRMDealID:              sub.CRMDealID,
		CRMDealStage:           sub.CRMDealStage,
		CreatedAt:              sub.CreatedAt,
		UpdatedAt:              sub.UpdatedAt,
	}
}

// ListSubscriptionsResponse is a collection of subscriptions
type ListSubscriptionsResponse struct {
	Items []*SubscriptionResponse `json:"items"`
	Total int                     `json:"total"`
}

// ValidateCardResponse reports the outcome of a funds check
type ValidateCardResponse struct {
	Valid           bool   `json:"valid"`
	PaymentIntentID string `json:"payment_intent_id,omitempty"`
}
