package postgres

import (
	"context"
	"database/sql"

	"github.com/menumate/menumate/internal/domain/plan"
	ierr "github.com/menumate/menumate/internal/errors"
	"github.com/menumate/menumate/internal/logger"
	"github.com/menumate/menumate/internal/postgres"
	"github.com/menumate/menumate/internal/types"
)

type planRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewPlanRepository(db *postgres.DB, logger *logger.Logger) plan.Repository {
	return &planRepository{db: db, logger: logger}
}

func (r *planRepository) Get(ctx context.Context, id string) (*plan.Plan, error) {
	query := `
		SELECT * FROM plans
		WHERE id = $1
		AND tenant_id = $2
		AND status != $3
	`

	var p plan.Plan
	err := r.db.GetQuerier(ctx).GetContext(ctx, &p, query, id, types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("plan not found").
				WithHintf("Plan with ID %s was not found", id).
				WithReportableDetails(map[string]any{"plan_id": id}).
				Mark(ierr.ErrNotFound)
		}
		r.logger.Errorw("failed to get plan", "error", err, "plan_id", id)
		return nil, ierr.WithError(err).
			WithHint("Failed to get plan").
			Mark(ierr.ErrDatabase)
	}

	return &p, nil
}

func (r *planRepository) GetByTier(ctx context.Context, tier types.PlanTier) (*plan.Plan, error) {
	query := `
		SELECT * FROM plans
		WHERE tier = $1
		AND tenant_id = $2
		AND active = true
		AND status = $3
		ORDER BY created_at DESC
		LIMIT 1
	`

	var p plan.Plan
	err := r.db.GetQuerier(ctx).GetContext(ctx, &p, query, tier, types.GetTenantID(ctx), types.StatusPublished)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("plan not found").
				WithHintf("No active plan for tier %s", tier).
				WithReportableDetails(map[string]any{"tier": tier}).
				Mark(ierr.ErrNotFound)
		}
		r.logger.Errorw("failed to get plan by tier", "error", err, "tier", tier)
		return nil, ierr.WithError(err).
			WithHint("Failed to get plan").
			Mark(ierr.ErrDatabase)
	}

	return &p, nil
}

func (r *planRepository) List(ctx context.Context) ([]*plan.Plan, error) {
	query := `
		SELECT * FROM plans
		WHERE tenant_id = $1
		AND status = $2
		ORDER BY created_at DESC
	`

	plans := make([]*plan.Plan, 0)
	err := r.db.GetQuerier(ctx).SelectContext(ctx, &plans, query, types.GetTenantID(ctx), types.StatusPublished)
	if err != nil {
		r.logger.Errorw("failed to list plans", "error", err)
		return nil, ierr.WithError(err).
			WithHint("Failed to list plans").
			Mark(ierr.ErrDatabase)
	}

	return plans, nil
}
