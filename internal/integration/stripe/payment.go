package stripe

import (
	"context"

	ierr "github.com/menumate/menumate/internal/errors"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
)

var decimal100 = decimal.NewFromInt(100)

// ValidatePaymentMethod verifies a saved card can cover the given amount by
// placing a manual-capture authorization and releasing it immediately. No money
// moves, the hold disappears once the intent is canceled.
func (s *gatewayService) ValidatePaymentMethod(ctx context.Context, req *ValidatePaymentMethodRequest) (*PaymentValidationResponse, error) {
	stripeClient, err := s.client.GetStripeClient(ctx)
	if err != nil {
		return nil, err
	}

	// Stripe amounts are in the smallest currency unit
	amountInCents := req.Amount.Mul(decimal100).IntPart()

	params := &stripe.PaymentIntentCreateParams{
		Amount:        stripe.Int64(amountInCents),
		Currency:      stripe.String(req.Currency),
		Customer:      stripe.String(req.ProviderCustomerID),
		PaymentMethod: stripe.String(req.PaymentMethodID),
		Confirm:       stripe.Bool(true),
		OffSession:    stripe.Bool(true),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
	}

	paymentIntent, err := stripeClient.V1PaymentIntents.Create(ctx, params)
	if err != nil {
		if stripeErr, ok := err.(*stripe.Error); ok {
			if stripeErr.Code == stripe.ErrorCodeCardDeclined {
				if stripeErr.DeclineCode == stripe.DeclineCodeInsufficientFunds {
					return nil, ierr.NewError("payment method has insufficient funds").
						WithHint("The card was declined for insufficient funds").
						WithReportableDetails(map[string]interface{}{
							"provider_customer_id": req.ProviderCustomerID,
							"payment_method_id":    req.PaymentMethodID,
							"decline_code":         stripeErr.DeclineCode,
						}).
						Mark(ierr.ErrInsufficientFunds)
				}
				return nil, ierr.NewError("payment method declined").
					WithHint("The card was declined").
					WithReportableDetails(map[string]interface{}{
						"provider_customer_id": req.ProviderCustomerID,
						"payment_method_id":    req.PaymentMethodID,
						"stripe_error_code":    stripeErr.Code,
					}).
					Mark(ierr.ErrInvalidOperation)
			}
		}
		s.logger.Errorw("failed to validate payment method",
			"error", err,
			"provider_customer_id", req.ProviderCustomerID,
			"payment_method_id", req.PaymentMethodID)
		return nil, ierr.NewError("failed to validate payment method").
			WithHint("Unable to authorize the card with Stripe").
			WithReportableDetails(map[string]interface{}{
				"provider_customer_id": req.ProviderCustomerID,
				"payment_method_id":    req.PaymentMethodID,
			}).
			Mark(ierr.ErrIntegration)
	}

	// Release the hold, the authorization already proved the funds exist
	if _, cancelErr := stripeClient.V1PaymentIntents.Cancel(ctx, paymentIntent.ID, nil); cancelErr != nil {
		s.logger.Warnw("failed to release validation hold",
			"error", cancelErr,
			"payment_intent_id", paymentIntent.ID)
	}

	return &PaymentValidationResponse{
		PaymentIntentID: paymentIntent.ID,
		Status:          string(paymentIntent.Status),
		Valid:           true,
	}, nil
}
