package dto

import (
	"github.com/menumate/menumate/internal/validator"
	"github.com/shopspring/decimal"
)

// ValidateCouponRequest checks a coupon code against the payment provider
type ValidateCouponRequest struct {
	Code string `json:"code" validate:"required"`
}

func (r *ValidateCouponRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// ValidateCouponResponse reports whether a coupon code is redeemable
type ValidateCouponResponse struct {
	Code       string           `json:"code"`
	Valid      bool             `json:"valid"`
	PercentOff *decimal.Decimal `json:"percent_off,omitempty"`
	AmountOff  *decimal.Decimal `json:"amount_off,omitempty"`
	Currency   string           `json:"currency,omitempty"`
}
