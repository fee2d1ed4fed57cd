package stripe

import (
	"context"

	"github.com/menumate/menumate/internal/config"
	ierr "github.com/menumate/menumate/internal/errors"
	"github.com/menumate/menumate/internal/logger"
	"github.com/stripe/stripe-go/v82"
)

// Client handles Stripe API client setup and configuration
type Client struct {
	cfg    *config.StripeConfig
	logger *logger.Logger
}

// NewClient creates a new Stripe client wrapper
func NewClient(cfg *config.Configuration, logger *logger.Logger) *Client {
	return &Client{
		cfg:    &cfg.Stripe,
		logger: logger,
	}
}

// Configured reports whether the provider credentials are present.
// When they are not, every provider-backed operation fails with a clear
// config error instead of crashing.
func (c *Client) Configured() bool {
	return c.cfg.Configured()
}

// GetStripeClient returns a configured Stripe client
func (c *Client) GetStripeClient(ctx context.Context) (*stripe.Client, error) {
	if !c.cfg.Configured() {
		return nil, ierr.NewError("payment provider not configured").
			WithHint("Stripe secret key is not set").
			Mark(ierr.ErrConfigMissing)
	}

	return stripe.NewClient(c.cfg.SecretKey, nil), nil
}

// WebhookSecret returns the provider webhook signing secret
func (c *Client) WebhookSecret() string {
	return c.cfg.WebhookSecret
}
