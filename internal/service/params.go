package service

import (
	"github.com/menumate/menumate/internal/cache"
	"github.com/menumate/menumate/internal/config"
	"github.com/menumate/menumate/internal/domain/checkoutlink"
	"github.com/menumate/menumate/internal/domain/plan"
	"github.com/menumate/menumate/internal/domain/subscription"
	"github.com/menumate/menumate/internal/domain/webhookevent"
	"github.com/menumate/menumate/internal/idempotency"
	"github.com/menumate/menumate/internal/integration/stripe"
	"github.com/menumate/menumate/internal/logger"
	"github.com/menumate/menumate/internal/notification"
	"github.com/menumate/menumate/internal/postgres"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     *postgres.DB

	// Repositories
	PlanRepo         plan.Repository
	CheckoutLinkRepo checkoutlink.Repository
	SubRepo          subscription.Repository
	WebhookEventRepo webhookevent.Repository

	// Integrations
	Gateway stripe.Gateway

	// Notification fan-out
	Fanout *notification.Fanout

	// Shared infrastructure
	Cache          cache.Cache
	IdempotencyGen *idempotency.Generator
}

// NewServiceParams bundles the common service dependencies
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	db *postgres.DB,
	planRepo plan.Repository,
	checkoutLinkRepo checkoutlink.Repository,
	subRepo subscription.Repository,
	webhookEventRepo webhookevent.Repository,
	gateway stripe.Gateway,
	fanout *notification.Fanout,
	cacheStore cache.Cache,
) ServiceParams {
	return ServiceParams{
		Logger:           logger,
		Config:           config,
		DB:               db,
		PlanRepo:         planRepo,
		CheckoutLinkRepo: checkoutLinkRepo,
		SubRepo:          subRepo,
		WebhookEventRepo: webhookEventRepo,
		Gateway:          gateway,
		Fanout:           fanout,
		Cache:            cacheStore,
		IdempotencyGen:   idempotency.NewGenerator(),
	}
}
