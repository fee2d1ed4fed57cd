package repository

import (
	"github.com/menumate/menumate/internal/domain/checkoutlink"
	"github.com/menumate/menumate/internal/domain/plan"
	"github.com/menumate/menumate/internal/domain/subscription"
	"github.com/menumate/menumate/internal/domain/webhookevent"
	"github.com/menumate/menumate/internal/logger"
	"github.com/menumate/menumate/internal/postgres"
	postgresRepo "github.com/menumate/menumate/internal/repository/postgres"
)

func NewPlanRepository(db *postgres.DB, logger *logger.Logger) plan.Repository {
	return postgresRepo.NewPlanRepository(db, logger)
}

func NewCheckoutLinkRepository(db *postgres.DB, logger *logger.Logger) checkoutlink.Repository {
	return postgresRepo.NewCheckoutLinkRepository(db, logger)
}

func NewSubscriptionRepository(db *postgres.DB, logger *logger.Logger) subscription.Repository {
	return postgresRepo.NewSubscriptionRepository(db, logger)
}

func NewWebhookEventRepository(db *postgres.DB, logger *logger.Logger) webhookevent.Repository {
	return postgresRepo.NewWebhookEventRepository(db, logger)
}
