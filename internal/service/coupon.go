package service

import (
	"context"

	"github.com/menumate/menumate/internal/api/dto"
)

// CouponService validates promotional codes against the payment provider
type CouponService interface {
	ValidateCoupon(ctx context.Context, req *dto.ValidateCouponRequest) (*dto.ValidateCouponResponse, error)
}

type couponService struct {
	ServiceParams
}

// NewCouponService creates a coupon validation service
func NewCouponService(params ServiceParams) CouponService {
	return &couponService{ServiceParams: params}
}

func (s *couponService) ValidateCoupon(ctx context.Context, req *dto.ValidateCouponRequest) (*dto.ValidateCouponResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	coupon, err := s.Gateway.ValidateCoupon(ctx, req.Code)
	if err != nil {
		return nil, err
	}

	return &dto.ValidateCouponResponse{
		Code:       coupon.Code,
		Valid:      coupon.Valid,
		PercentOff: coupon.PercentOff,
		AmountOff:  coupon.AmountOff,
		Currency:   coupon.Currency,
	}, nil
}
