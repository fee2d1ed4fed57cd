package stripe

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Gateway is the narrow provider capability surface the services depend on.
// Keeping it small makes the provider swappable and trivially mockable in tests.
type Gateway interface {
	// EnsureCustomer finds or creates a provider customer for the given profile
	EnsureCustomer(ctx context.Context, req *EnsureCustomerRequest) (*CustomerResponse, error)

	// CreateCheckoutSession creates a hosted checkout session for a plan purchase
	CreateCheckoutSession(ctx context.Context, req *CreateCheckoutSessionRequest) (*CheckoutSessionResponse, error)

	// GetSubscription retrieves the authoritative subscription state from the provider
	GetSubscription(ctx context.Context, providerSubscriptionID string) (*SubscriptionResponse, error)

	// CancelSubscription schedules or executes a cancellation at the provider
	CancelSubscription(ctx context.Context, req *CancelSubscriptionRequest) (*SubscriptionResponse, error)

	// ReactivateSubscription clears a pending cancellation at the provider
	ReactivateSubscription(ctx context.Context, providerSubscriptionID string) (*SubscriptionResponse, error)

	// UpdateTrialEnd moves the trial end of a subscription to the given time
	UpdateTrialEnd(ctx context.Context, providerSubscriptionID string, trialEnd time.Time) (*SubscriptionResponse, error)

	// ValidatePaymentMethod runs a small authorization charge to verify the card has funds
	ValidatePaymentMethod(ctx context.Context, req *ValidatePaymentMethodRequest) (*PaymentValidationResponse, error)

	// ValidateCoupon checks that a coupon code exists and is redeemable
	ValidateCoupon(ctx context.Context, code string) (*CouponResponse, error)
}

// EnsureCustomerRequest identifies the profile a provider customer should map to
type EnsureCustomerRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Email  string `json:"email" validate:"required,email"`
	Name   string `json:"name,omitempty"`
}

// CustomerResponse represents a provider customer
type CustomerResponse struct {
	ProviderCustomerID string `json:"provider_customer_id"`
	Email              string `json:"email"`
	Created            bool   `json:"created"`
}

// CreateCheckoutSessionRequest carries everything needed to open a hosted checkout
type CreateCheckoutSessionRequest struct {
	ProviderCustomerID string            `json:"provider_customer_id" validate:"required"`
	ProviderPriceID    string            `json:"provider_price_id" validate:"required"`
	TrialDays          int               `json:"trial_days,omitempty"`
	ExpiresAt          time.Time         `json:"expires_at"`
	IdempotencyKey     string            `json:"idempotency_key,omitempty"`
	Metadata           map[string]string `json:"metadata,omitempty"`
}

// CheckoutSessionResponse represents a hosted checkout session
type CheckoutSessionResponse struct {
	SessionID string    `json:"session_id"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CancelSubscriptionRequest controls how a cancellation is applied
type CancelSubscriptionRequest struct {
	ProviderSubscriptionID string `json:"provider_subscription_id" validate:"required"`
	CancelAtPeriodEnd      bool   `json:"cancel_at_period_end"`
	IdempotencyKey         string `json:"idempotency_key,omitempty"`
}

// SubscriptionResponse is the provider-side view of a subscription
type SubscriptionResponse struct {
	ProviderSubscriptionID string     `json:"provider_subscription_id"`
	ProviderCustomerID     string     `json:"provider_customer_id"`
	Status                 string     `json:"status"`
	CurrentPeriodStart     *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd       *time.Time `json:"current_period_end,omitempty"`
	TrialEnd               *time.Time `json:"trial_end,omitempty"`
	CancelAt               *time.Time `json:"cancel_at,omitempty"`
	CanceledAt             *time.Time `json:"canceled_at,omitempty"`
	CancelAtPeriodEnd      bool       `json:"cancel_at_period_end"`
}

// ValidatePaymentMethodRequest asks for a funds check on a saved card
type ValidatePaymentMethodRequest struct {
	ProviderCustomerID string          `json:"provider_customer_id" validate:"required"`
	PaymentMethodID    string          `json:"payment_method_id" validate:"required"`
	Amount             decimal.Decimal `json:"amount" validate:"required"`
	Currency           string          `json:"currency" validate:"required,len=3"`
}

// PaymentValidationResponse reports the outcome of a funds check
type PaymentValidationResponse struct {
	PaymentIntentID string `json:"payment_intent_id"`
	Status          string `json:"status"`
	Valid           bool   `json:"valid"`
}

// CouponResponse represents a redeemable coupon
type CouponResponse struct {
	Code            string           `json:"code"`
	Valid           bool             `json:"valid"`
	PercentOff      *decimal.Decimal `json:"percent_off,omitempty"`
	AmountOff       *decimal.Decimal `json:"amount_off,omitempty"`
	Currency        string           `json:"currency,omitempty"`
	DurationInCycle int              `json:"duration_in_cycle,omitempty"`
}
