package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/menumate/menumate/internal/integration/stripe"
	"github.com/menumate/menumate/internal/types"
)

// MockGateway implements stripe.Gateway with scriptable responses. Each
// operation has an override hook, the zero value answers with a plausible
// happy path and counts calls.
type MockGateway struct {
	mu sync.Mutex

	EnsureCustomerFn          func(ctx context.Context, req *stripe.EnsureCustomerRequest) (*stripe.CustomerResponse, error)
	CreateCheckoutSessionFn   func(ctx context.Context, req *stripe.CreateCheckoutSessionRequest) (*stripe.CheckoutSessionResponse, error)
	GetSubscriptionFn         func(ctx context.Context, providerSubscriptionID string) (*stripe.SubscriptionResponse, error)
	CancelSubscriptionFn      func(ctx context.Context, req *stripe.CancelSubscriptionRequest) (*stripe.SubscriptionResponse, error)
	ReactivateSubscriptionFn  func(ctx context.Context, providerSubscriptionID string) (*stripe.SubscriptionResponse, error)
	UpdateTrialEndFn          func(ctx context.Context, providerSubscriptionID string, trialEnd time.Time) (*stripe.SubscriptionResponse, error)
	ValidatePaymentMethodFn   func(ctx context.Context, req *stripe.ValidatePaymentMethodRequest) (*stripe.PaymentValidationResponse, error)
	ValidateCouponFn          func(ctx context.Context, code string) (*stripe.CouponResponse, error)

	Calls map[string]int
}

// NewMockGateway creates a mock provider gateway
func NewMockGateway() *MockGateway {
	return &MockGateway{
		Calls: make(map[string]int),
	}
}

func (m *MockGateway) record(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls[op]++
	return m.Calls[op]
}

// CallCount returns how many times an operation was invoked
func (m *MockGateway) CallCount(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls[op]
}

func (m *MockGateway) EnsureCustomer(ctx context.Context, req *stripe.EnsureCustomerRequest) (*stripe.CustomerResponse, error) {
	m.record("EnsureCustomer")
	if m.EnsureCustomerFn != nil {
		return m.EnsureCustomerFn(ctx, req)
	}
	return &stripe.CustomerResponse{
		ProviderCustomerID: "cus_" + req.UserID,
		Email:              req.Email,
		Created:            true,
	}, nil
}

func (m *MockGateway) CreateCheckoutSession(ctx context.Context, req *stripe.CreateCheckoutSessionRequest) (*stripe.CheckoutSessionResponse, error) {
	n := m.record("CreateCheckoutSession")
	if m.CreateCheckoutSessionFn != nil {
		return m.CreateCheckoutSessionFn(ctx, req)
	}
	sessionID := fmt.Sprintf("cs_test_%s_%d", types.GenerateUUID(), n)
	return &stripe.CheckoutSessionResponse{
		SessionID: sessionID,
		URL:       "https://checkout.stripe.com/c/pay/" + sessionID,
		ExpiresAt: req.ExpiresAt,
	}, nil
}

func (m *MockGateway) GetSubscription(ctx context.Context, providerSubscriptionID string) (*stripe.SubscriptionResponse, error) {
	m.record("GetSubscription")
	if m.GetSubscriptionFn != nil {
		return m.GetSubscriptionFn(ctx, providerSubscriptionID)
	}
	return &stripe.SubscriptionResponse{
		ProviderSubscriptionID: providerSubscriptionID,
		Status:                 string(types.SubscriptionStatusActive),
	}, nil
}

func (m *MockGateway) CancelSubscription(ctx context.Context, req *stripe.CancelSubscriptionRequest) (*stripe.SubscriptionResponse, error) {
	m.record("CancelSubscription")
	if m.CancelSubscriptionFn != nil {
		return m.CancelSubscriptionFn(ctx, req)
	}

	resp := &stripe.SubscriptionResponse{
		ProviderSubscriptionID: req.ProviderSubscriptionID,
		CancelAtPeriodEnd:      req.CancelAtPeriodEnd,
	}
	now := time.Now().UTC()
	if req.CancelAtPeriodEnd {
		cancelAt := now.AddDate(0, 1, 0)
		resp.Status = string(types.SubscriptionStatusActive)
		resp.CancelAt = &cancelAt
	} else {
		resp.Status = string(types.SubscriptionStatusCanceled)
		resp.CanceledAt = &now
	}
	return resp, nil
}

func (m *MockGateway) ReactivateSubscription(ctx context.Context, providerSubscriptionID string) (*stripe.SubscriptionResponse, error) {
	m.record("ReactivateSubscription")
	if m.ReactivateSubscriptionFn != nil {
		return m.ReactivateSubscriptionFn(ctx, providerSubscriptionID)
	}
	return &stripe.SubscriptionResponse{
		ProviderSubscriptionID: providerSubscriptionID,
		Status:                 string(types.SubscriptionStatusActive),
	}, nil
}

func (m *MockGateway) UpdateTrialEnd(ctx context.Context, providerSubscriptionID string, trialEnd time.Time) (*stripe.SubscriptionResponse, error) {
	m.record("UpdateTrialEnd")
	if m.UpdateTrialEndFn != nil {
		return m.UpdateTrialEndFn(ctx, providerSubscriptionID, trialEnd)
	}
	return &stripe.SubscriptionResponse{
		ProviderSubscriptionID: providerSubscriptionID,
		Status:                 string(types.SubscriptionStatusTrialing),
		TrialEnd:               &trialEnd,
	}, nil
}

func (m *MockGateway) ValidatePaymentMethod(ctx context.Context, req *stripe.ValidatePaymentMethodRequest) (*stripe.PaymentValidationResponse, error) {
	m.record("ValidatePaymentMethod")
	if m.ValidatePaymentMethodFn != nil {
		return m.ValidatePaymentMethodFn(ctx, req)
	}
	return &stripe.PaymentValidationResponse{
		PaymentIntentID: "pi_" + types.GenerateUUID(),
		Status:          "canceled",
		Valid:           true,
	}, nil
}

func (m *MockGateway) ValidateCoupon(ctx context.Context, code string) (*stripe.CouponResponse, error) {
	m.record("ValidateCoupon")
	if m.ValidateCouponFn != nil {
		return m.ValidateCouponFn(ctx, code)
	}
	return &stripe.CouponResponse{
		Code:  code,
		Valid: true,
	}, nil
}
