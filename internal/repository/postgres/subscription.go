package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/menumate/menumate/internal/domain/subscription"
	ierr "github.com/menumate/menumate/internal/errors"
	"github.com/menumate/menumate/internal/logger"
	"github.com/menumate/menumate/internal/postgres"
	"github.com/menumate/menumate/internal/types"
)

type subscriptionRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewSubscriptionRepository(db *postgres.DB, logger *logger.Logger) subscription.Repository {
	return &subscriptionRepository{db: db, logger: logger}
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *subscription.Subscription) error {
	query := `
		INSERT INTO subscriptions (
			id, tenant_id, profile_id, restaurant_id, plan_id,
			provider_subscription_id, provider_customer_id,
			subscription_status, is_active,
			current_period_start, current_period_end,
			trial_activated, trial_start, trial_end, original_trial_end,
			trial_extended_count, trial_extended_days,
			cancel_at, canceled_at, cancel_at_period_end,
			payment_method_id, coupon_code, send_invoices, charge_count,
			crm_deal_id, crm_deal_stage, crm_synced_at,
			status, created_at, updated_at, created_by, updated_by
		)
		VALUES (
			:id, :tenant_id, :profile_id, :restaurant_id, :plan_id,
			:provider_subscription_id, :provider_customer_id,
			:subscription_status, :is_active,
			:current_period_start, :current_period_end,
			:trial_activated, :trial_start, :trial_end, :original_trial_end,
			:trial_extended_count, :trial_extended_days,
			:cancel_at, :canceled_at, :cancel_at_period_end,
			:payment_method_id, :coupon_code, :send_invoices, :charge_count,
			:crm_deal_id, :crm_deal_stage, :crm_synced_at,
			:status, :created_at, :updated_at, :created_by, :updated_by
		)
	`

	r.logger.Debugw("creating subscription",
		"subscription_id", sub.ID,
		"profile_id", sub.ProfileID,
		"plan_id", sub.PlanID,
	)

	_, err := r.db.NamedExecContext(ctx, query, sub)
	if err != nil {
		r.logger.Errorw("failed to create subscription", "error", err, "subscription_id", sub.ID)
		return ierr.WithError(err).
			WithHint("Failed to create subscription").
			Mark(ierr.ErrDatabase)
	}

	return nil
}

func (r *subscriptionRepository) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	query := `
		SELECT * FROM subscriptions
		WHERE id = $1
		AND tenant_id = $2
	`
	return r.getOne(ctx, query, id, types.GetTenantID(ctx))
}

func (r *subscriptionRepository) GetByProviderID(ctx context.Context, providerSubscriptionID string) (*subscription.Subscription, error) {
	query := `
		SELECT * FROM subscriptions
		WHERE provider_subscription_id = $1
		AND tenant_id = $2
	`
	return r.getOne(ctx, query, providerSubscriptionID, types.GetTenantID(ctx))
}

func (r *subscriptionRepository) GetByCRMDealID(ctx context.Context, dealID string) (*subscription.Subscription, error) {
	query := `
		SELECT * FROM subscriptions
		WHERE crm_deal_id = $1
		LIMIT 1
	`
	var sub subscription.Subscription
	err := r.db.GetQuerier(ctx).GetContext(ctx, &sub, query, dealID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("subscription not found").
				WithHintf("No subscription linked to deal %s", dealID).
				WithReportableDetails(map[string]any{"deal_id": dealID}).
				Mark(ierr.ErrNotFound)
		}
		r.logger.Errorw("failed to get subscription by deal id", "error", err, "deal_id", dealID)
		return nil, ierr.WithError(err).
			WithHint("Failed to get subscription").
			Mark(ierr.ErrDatabase)
	}
	return &sub, nil
}

func (r *subscriptionRepository) GetActiveByProfileAndPlan(ctx context.Context, profileID, planID string) (*subscription.Subscription, error) {
	query := `
		SELECT * FROM subscriptions
		WHERE profile_id = $1
		AND plan_id = $2
		AND is_active = true
		AND tenant_id = $3
		LIMIT 1
	`
	return r.getOne(ctx, query, profileID, planID, types.GetTenantID(ctx))
}

func (r *subscriptionRepository) getOne(ctx context.Context, query string, args ...interface{}) (*subscription.Subscription, error) {
	var sub subscription.Subscription
	err := r.db.GetQuerier(ctx).GetContext(ctx, &sub, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("subscription not found").
				WithHint("Subscription was not found").
				Mark(ierr.ErrNotFound)
		}
		r.logger.Errorw("failed to get subscription", "error", err)
		return nil, ierr.WithError(err).
			WithHint("Failed to get subscription").
			Mark(ierr.ErrDatabase)
	}
	return &sub, nil
}

func (r *subscriptionRepository) Update(ctx context.Context, sub *subscription.Subscription) error {
	sub.UpdatedAt = time.Now().UTC()
	sub.UpdatedBy = types.GetUserID(ctx)

	query := `
		UPDATE subscriptions SET
			subscription_status = :subscription_status,
			is_active = :is_active,
			current_period_start = :current_period_start,
			current_period_end = :current_period_end,
			trial_activated = :trial_activated,
			trial_start = :trial_start,
			trial_end = :trial_end,
			original_trial_end = :original_trial_end,
			trial_extended_count = :trial_extended_count,
			trial_extended_days = :trial_extended_days,
			cancel_at = :cancel_at,
			canceled_at = :canceled_at,
			cancel_at_period_end = :cancel_at_period_end,
			payment_method_id = :payment_method_id,
			coupon_code = :coupon_code,
			send_invoices = :send_invoices,
			charge_count = :charge_count,
			crm_deal_id = :crm_deal_id,
			crm_deal_stage = :crm_deal_stage,
			crm_synced_at = :crm_synced_at,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id
		AND tenant_id = :tenant_id
	`

	_, err := r.db.NamedExecContext(ctx, query, sub)
	if err != nil {
		r.logger.Errorw("failed to update subscription", "error", err, "subscription_id", sub.ID)
		return ierr.WithError(err).
			WithHint("Failed to update subscription").
			Mark(ierr.ErrDatabase)
	}

	return nil
}

// UpdateCancellation writes cancel_at, canceled_at and is_active in one
// statement. The pair (cancel_at, is_active) must never diverge, so callers
// go through this rather than Update.
func (r *subscriptionRepository) UpdateCancellation(ctx context.Context, id string, update subscription.CancellationUpdate) error {
	query := `
		UPDATE subscriptions SET
			cancel_at = $1,
			canceled_at = $2,
			cancel_at_period_end = $3,
			is_active = $4,
			subscription_status = $5,
			updated_at = $6,
			updated_by = $7
		WHERE id = $8
		AND tenant_id = $9
	`

	result, err := r.db.GetQuerier(ctx).ExecContext(ctx, query,
		update.CancelAt,
		update.CanceledAt,
		update.CancelAtPeriodEnd,
		update.IsActive,
		update.Status,
		time.Now().UTC(),
		types.GetUserID(ctx),
		id,
		types.GetTenantID(ctx),
	)
	if err != nil {
		r.logger.Errorw("failed to update subscription cancellation", "error", err, "subscription_id", id)
		return ierr.WithError(err).
			WithHint("Failed to update subscription").
			Mark(ierr.ErrDatabase)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update subscription").
			Mark(ierr.ErrDatabase)
	}
	if rows == 0 {
		return ierr.NewError("subscription not found").
			WithHintf("Subscription with ID %s was not found", id).
			WithReportableDetails(map[string]any{"subscription_id": id}).
			Mark(ierr.ErrNotFound)
	}

	return nil
}

// UpdateTrialExtension writes the trial fields touched by an extension in
// one statement.
func (r *subscriptionRepository) UpdateTrialExtension(ctx context.Context, id string, update subscription.TrialExtensionUpdate) error {
	query := `
		UPDATE subscriptions SET
			trial_end = $1,
			original_trial_end = $2,
			trial_extended_count = $3,
			trial_extended_days = $4,
			updated_at = $5,
			updated_by = $6
		WHERE id = $7
		AND tenant_id = $8
	`

	result, err := r.db.GetQuerier(ctx).ExecContext(ctx, query,
		update.TrialEnd,
		update.OriginalTrialEnd,
		update.TrialExtendedCount,
		update.TrialExtendedDays,
		time.Now().UTC(),
		types.GetUserID(ctx),
		id,
		types.GetTenantID(ctx),
	)
	if err != nil {
		r.logger.Errorw("failed to update trial extension", "error", err, "subscription_id", id)
		return ierr.WithError(err).
			WithHint("Failed to update subscription").
			Mark(ierr.ErrDatabase)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update subscription").
			Mark(ierr.ErrDatabase)
	}
	if rows == 0 {
		return ierr.NewError("subscription not found").
			WithHintf("Subscription with ID %s was not found", id).
			WithReportableDetails(map[string]any{"subscription_id": id}).
			Mark(ierr.ErrNotFound)
	}

	return nil
}

func (r *subscriptionRepository) ListByRestaurant(ctx context.Context, restaurantID string) ([]*subscription.Subscription, error) {
	query := `
		SELECT * FROM subscriptions
		WHERE restaurant_id = $1
		AND tenant_id = $2
		ORDER BY created_at DESC
	`

	subs := make([]*subscription.Subscription, 0)
	err := r.db.GetQuerier(ctx).SelectContext(ctx, &subs, query, restaurantID, types.GetTenantID(ctx))
	if err != nil {
		r.logger.Errorw("failed to list subscriptions", "error", err, "restaurant_id", restaurantID)
		return nil, ierr.WithError(err).
			WithHint("Failed to list subscriptions").
			Mark(ierr.ErrDatabase)
	}

	return subs, nil
}
