package stripe

import (
	"context"
	"fmt"

	ierr "github.com/menumate/menumate/internal/errors"
	"github.com/stripe/stripe-go/v82"
)

// EnsureCustomer finds an existing Stripe customer for the profile or creates one.
// Lookup goes through customer search on our user id metadata so retries of the
// same profile never produce duplicate provider customers.
func (s *gatewayService) EnsureCustomer(ctx context.Context, req *EnsureCustomerRequest) (*CustomerResponse, error) {
	stripeClient, err := s.client.GetStripeClient(ctx)
	if err != nil {
		return nil, err
	}

	searchParams := &stripe.CustomerSearchParams{
		SearchParams: stripe.SearchParams{
			Query: fmt.Sprintf("metadata['user_id']:'%s'", req.UserID),
			Limit: stripe.Int64(1),
		},
	}

	for customer, err := range stripeClient.V1Customers.Search(ctx, searchParams) {
		if err != nil {
			s.logger.Errorw("failed to search Stripe customers",
				"error", err,
				"user_id", req.UserID)
			return nil, ierr.NewError("failed to look up provider customer").
				WithHint("Unable to search Stripe customers").
				WithReportableDetails(map[string]interface{}{
					"user_id": req.UserID,
				}).
				Mark(ierr.ErrIntegration)
		}
		return &CustomerResponse{
			ProviderCustomerID: customer.ID,
			Email:              customer.Email,
			Created:            false,
		}, nil
	}

	createParams := &stripe.CustomerCreateParams{
		Email: stripe.String(req.Email),
		Metadata: map[string]string{
			"user_id": req.UserID,
		},
	}
	if req.Name != "" {
		createParams.Name = stripe.String(req.Name)
	}

	customer, err := stripeClient.V1Customers.Create(ctx, createParams)
	if err != nil {
		s.logger.Errorw("failed to create Stripe customer",
			"error", err,
			"user_id", req.UserID)
		return nil, ierr.NewError("failed to create provider customer").
			WithHint("Unable to create Stripe customer").
			WithReportableDetails(map[string]interface{}{
				"user_id": req.UserID,
			}).
			Mark(ierr.ErrIntegration)
	}

	s.logger.Infow("created Stripe customer",
		"user_id", req.UserID,
		"stripe_customer_id", customer.ID)

	return &CustomerResponse{
		ProviderCustomerID: customer.ID,
		Email:              customer.Email,
		Created:            true,
	}, nil
}
