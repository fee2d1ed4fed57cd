package subscription

import (
	"time"

	"github.com/menumate/menumate/internal/types"
)

// Subscription represents the billing relationship for one (profile,
// restaurant) pair, mirrored from the payment provider. The provider is
// authoritative for SubscriptionStatus; local fields track what this
// service layered on top (trial extensions, cancellation intent, CRM links).
type Subscription struct {
	// ID is the unique identifier for the subscription
	ID string `db:"id" json:"id"`

	// ProfileID is the identifier of the owning user profile
	ProfileID string `db:"profile_id" json:"profile_id"`

	// RestaurantID is the restaurant this subscription pays for
	RestaurantID string `db:"restaurant_id" json:"restaurant_id"`

	// PlanID is the catalog plan backing the subscription
	PlanID string `db:"plan_id" json:"plan_id"`

	// ProviderSubscriptionID is the subscription id at the payment provider
	ProviderSubscriptionID string `db:"provider_subscription_id" json:"provider_subscription_id"`

	// ProviderCustomerID is the customer id at the payment provider
	ProviderCustomerID string `db:"provider_customer_id" json:"provider_customer_id"`

	// SubscriptionStatus mirrors the provider-defined status
	SubscriptionStatus types.SubscriptionStatus `db:"subscription_status" json:"subscription_status"`

	// IsActive is whether the subscription currently grants access
	IsActive bool `db:"is_active" json:"is_active"`

	// CurrentPeriodStart is the start of the invoiced period
	CurrentPeriodStart time.Time `db:"current_period_start" json:"current_period_start"`

	// CurrentPeriodEnd is the end of the invoiced period
	CurrentPeriodEnd time.Time `db:"current_period_end" json:"current_period_end"`

	// TrialActivated is whether a trial was granted at checkout
	TrialActivated bool `db:"trial_activated" json:"trial_activated"`

	// TrialStart is the start of the trial period
	TrialStart *time.Time `db:"trial_start" json:"trial_start"`

	// TrialEnd is the current end of the trial period, extensions included
	TrialEnd *time.Time `db:"trial_end" json:"trial_end"`

	// OriginalTrialEnd is the pre-extension trial end baseline
	OriginalTrialEnd *time.Time `db:"original_trial_end" json:"original_trial_end"`

	// TrialExtendedCount is how many extensions have been granted
	TrialExtendedCount int `db:"trial_extended_count" json:"trial_extended_count"`

	// TrialExtendedDays is the cumulative number of extension days granted
	TrialExtendedDays int `db:"trial_extended_days" json:"trial_extended_days"`

	// CancelAt is the scheduled future cancellation instant, if any
	CancelAt *time.Time `db:"cancel_at" json:"cancel_at"`

	// CanceledAt is when the subscription was canceled for good
	CanceledAt *time.Time `db:"canceled_at" json:"canceled_at"`

	// CancelAtPeriodEnd is whether the pending cancellation is deferred
	CancelAtPeriodEnd bool `db:"cancel_at_period_end" json:"cancel_at_period_end"`

	// PaymentMethodID is the default payment method at the provider
	PaymentMethodID string `db:"payment_method_id" json:"payment_method_id"`

	// CouponCode is the promotional code applied at checkout, if any
	CouponCode string `db:"coupon_code" json:"coupon_code"`

	// SendInvoices is whether invoices are emailed to the customer
	SendInvoices bool `db:"send_invoices" json:"send_invoices"`

	// ChargeCount is the number of successful charges observed
	ChargeCount int `db:"charge_count" json:"charge_count"`

	// CRMDealID links the subscription to a CRM deal
	CRMDealID string `db:"crm_deal_id" json:"crm_deal_id"`

	// CRMDealStage is the last synced CRM deal stage
	CRMDealStage string `db:"crm_deal_stage" json:"crm_deal_stage"`

	// CRMSyncedAt is the occurred-at watermark of the last applied CRM event
	CRMSyncedAt *time.Time `db:"crm_synced_at" json:"crm_synced_at"`

	types.BaseModel
}

// HasPendingCancel reports whether a deferred cancellation is scheduled
// and still undoable.
func (s *Subscription) HasPendingCancel() bool {
	return s.CancelAt != nil && s.CanceledAt == nil
}

// IsCanceled reports whether the subscription reached its terminal state.
func (s *Subscription) IsCanceled() bool {
	return s.CanceledAt != nil || s.SubscriptionStatus.IsTerminal()
}

// EffectiveTrialBaseline returns the trial end before any extension.
func (s *Subscription) EffectiveTrialBaseline() *time.Time {
	if s.OriginalTrialEnd != nil {
		return s.OriginalTrialEnd
	}
	return s.TrialEnd
}
