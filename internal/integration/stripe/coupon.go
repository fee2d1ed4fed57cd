package stripe

import (
	"context"

	ierr "github.com/menumate/menumate/internal/errors"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
)

// ValidateCoupon checks that the coupon exists at the provider and is still
// redeemable. Invalid codes come back as a validation error so callers can
// surface them to the end user directly.
func (s *gatewayService) ValidateCoupon(ctx context.Context, code string) (*CouponResponse, error) {
	stripeClient, err := s.client.GetStripeClient(ctx)
	if err != nil {
		return nil, err
	}

	coupon, err := stripeClient.V1Coupons.Retrieve(ctx, code, nil)
	if err != nil {
		if stripeErr, ok := err.(*stripe.Error); ok && stripeErr.HTTPStatusCode == 404 {
			return nil, ierr.NewError("coupon not found").
				WithHintf("Coupon code %s does not exist", code).
				Mark(ierr.ErrNotFound)
		}
		s.logger.Errorw("failed to retrieve Stripe coupon",
			"error", err,
			"coupon_code", code)
		return nil, ierr.NewError("failed to validate coupon").
			WithHint("Unable to look up the coupon with Stripe").
			WithReportableDetails(map[string]interface{}{
				"coupon_code": code,
			}).
			Mark(ierr.ErrIntegration)
	}

	if !coupon.Valid {
		return nil, ierr.NewError("coupon is no longer redeemable").
			WithHintf("Coupon code %s has expired or reached its redemption limit", code).
			Mark(ierr.ErrValidation)
	}

	resp := &CouponResponse{
		Code:            coupon.ID,
		Valid:           coupon.Valid,
		Currency:        string(coupon.Currency),
		DurationInCycle: int(coupon.DurationInMonths),
	}
	if coupon.PercentOff > 0 {
		percentOff := decimal.NewFromFloat(coupon.PercentOff)
		resp.PercentOff = &percentOff
	}
	if coupon.AmountOff > 0 {
		amountOff := decimal.NewFromInt(coupon.AmountOff).Div(decimal100)
		resp.AmountOff = &amountOff
	}
	return resp, nil
}
