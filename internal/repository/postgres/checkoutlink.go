package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/menumate/menumate/internal/domain/checkoutlink"
	ierr "github.com/menumate/menumate/internal/errors"
	"github.com/menumate/menumate/internal/logger"
	"github.com/menumate/menumate/internal/postgres"
	"github.com/menumate/menumate/internal/types"
)

// pqUniqueViolation is the Postgres error code for unique constraint hits.
// The partial unique index on (user_id, plan_id) WHERE link_status='active'
// is what arbitrates the one-active-link-per-pair invariant.
const pqUniqueViolation = "23505"

type checkoutLinkRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewCheckoutLinkRepository(db *postgres.DB, logger *logger.Logger) checkoutlink.Repository {
	return &checkoutLinkRepository{db: db, logger: logger}
}

func (r *checkoutLinkRepository) Create(ctx context.Context, link *checkoutlink.CheckoutLink) error {
	query := `
		INSERT INTO checkout_links (
			id,
			tenant_id,
			user_id,
			restaurant_id,
			plan_id,
			provider_customer_id,
			provider_session_id,
			url,
			expires_at,
			trial_days,
			trial_enabled,
			link_status,
			status,
			created_at,
			updated_at,
			created_by,
			updated_by
		)
		VALUES (
			:id,
			:tenant_id,
			:user_id,
			:restaurant_id,
			:plan_id,
			:provider_customer_id,
			:provider_session_id,
			:url,
			:expires_at,
			:trial_days,
			:trial_enabled,
			:link_status,
			:status,
			:created_at,
			:updated_at,
			:created_by,
			:updated_by
		)
	`

	r.logger.Debugw("creating checkout link",
		"checkout_link_id", link.ID,
		"user_id", link.UserID,
		"plan_id", link.PlanID,
	)

	_, err := r.db.NamedExecContext(ctx, query, link)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == pqUniqueViolation {
			return ierr.WithError(err).
				WithHint("An active checkout link already exists for this user and plan").
				WithReportableDetails(map[string]any{
					"user_id": link.UserID,
					"plan_id": link.PlanID,
				}).
				Mark(ierr.ErrAlreadyExists)
		}
		r.logger.Errorw("failed to create checkout link", "error", err, "checkout_link_id", link.ID)
		return ierr.WithError(err).
			WithHint("Failed to create checkout link").
			Mark(ierr.ErrDatabase)
	}

	return nil
}

func (r *checkoutLinkRepository) Get(ctx context.Context, id string) (*checkoutlink.CheckoutLink, error) {
	query := `
		SELECT * FROM checkout_links
		WHERE id = $1
		AND tenant_id = $2
	`

	var link checkoutlink.CheckoutLink
	err := r.db.GetQuerier(ctx).GetContext(ctx, &link, query, id, types.GetTenantID(ctx))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("checkout link not found").
				WithHintf("Checkout link with ID %s was not found", id).
				WithReportableDetails(map[string]any{"checkout_link_id": id}).
				Mark(ierr.ErrNotFound)
		}
		r.logger.Errorw("failed to get checkout link", "error", err, "checkout_link_id", id)
		return nil, ierr.WithError(err).
			WithHint("Failed to get checkout link").
			Mark(ierr.ErrDatabase)
	}

	return &link, nil
}

func (r *checkoutLinkRepository) GetActiveByUserAndPlan(ctx context.Context, userID, planID string) (*checkoutlink.CheckoutLink, error) {
	query := `
		SELECT * FROM checkout_links
		WHERE user_id = $1
		AND plan_id = $2
		AND link_status = $3
		AND tenant_id = $4
		LIMIT 1
	`

	var link checkoutlink.CheckoutLink
	err := r.db.GetQuerier(ctx).GetContext(ctx, &link, query, userID, planID, types.LinkStatusActive, types.GetTenantID(ctx))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("active checkout link not found").
				WithHint("No active checkout link for this user and plan").
				WithReportableDetails(map[string]any{
					"user_id": userID,
					"plan_id": planID,
				}).
				Mark(ierr.ErrNotFound)
		}
		r.logger.Errorw("failed to get active checkout link",
			"error", err, "user_id", userID, "plan_id", planID)
		return nil, ierr.WithError(err).
			WithHint("Failed to get checkout link").
			Mark(ierr.ErrDatabase)
	}

	return &link, nil
}

// UpdateStatus performs a compare-and-set on link_status. The WHERE clause on
// the expected prior status is the sole serialization point between the sweep,
// markUsed and concurrent issuance racing on the same row. Ids are globally
// unique, and the sweep runs without a tenant in context, so the CAS is keyed
// on id alone.
func (r *checkoutLinkRepository) UpdateStatus(ctx context.Context, id string, from, to types.LinkStatus) error {
	query := `
		UPDATE checkout_links
		SET link_status = $1,
			updated_at = $2,
			updated_by = $3
		WHERE id = $4
		AND link_status = $5
	`

	result, err := r.db.GetQuerier(ctx).ExecContext(ctx, query,
		to, time.Now().UTC(), types.GetUserID(ctx), id, from)
	if err != nil {
		r.logger.Errorw("failed to update checkout link status",
			"error", err, "checkout_link_id", id, "from", from, "to", to)
		return ierr.WithError(err).
			WithHint("Failed to update checkout link").
			Mark(ierr.ErrDatabase)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update checkout link").
			Mark(ierr.ErrDatabase)
	}

	if rows == 0 {
		return ierr.NewError("checkout link status changed concurrently").
			WithHintf("Checkout link is no longer %s", from).
			WithReportableDetails(map[string]any{
				"checkout_link_id": id,
				"expected_status":  from,
				"target_status":    to,
			}).
			Mark(ierr.ErrVersionConflict)
	}

	return nil
}

func (r *checkoutLinkRepository) ListByRestaurant(ctx context.Context, restaurantID string) ([]*checkoutlink.CheckoutLink, error) {
	query := `
		SELECT * FROM checkout_links
		WHERE restaurant_id = $1
		AND tenant_id = $2
		ORDER BY created_at DESC
	`

	links := make([]*checkoutlink.CheckoutLink, 0)
	err := r.db.GetQuerier(ctx).SelectContext(ctx, &links, query, restaurantID, types.GetTenantID(ctx))
	if err != nil {
		r.logger.Errorw("failed to list checkout links", "error", err, "restaurant_id", restaurantID)
		return nil, ierr.WithError(err).
			WithHint("Failed to list checkout links").
			Mark(ierr.ErrDatabase)
	}

	return links, nil
}

// ListExpired returns active links whose expiry has passed. The sweep is the
// only caller; it is tenant-agnostic on purpose so one pass covers everyone.
func (r *checkoutLinkRepository) ListExpired(ctx context.Context, asOf time.Time, limit int) ([]*checkoutlink.CheckoutLink, error) {
	query := `
		SELECT * FROM checkout_links
		WHERE link_status = $1
		AND expires_at < $2
		ORDER BY expires_at ASC
		LIMIT $3
	`

	links := make([]*checkoutlink.CheckoutLink, 0)
	err := r.db.GetQuerier(ctx).SelectContext(ctx, &links, query, types.LinkStatusActive, asOf, limit)
	if err != nil {
		r.logger.Errorw("failed to list expired checkout links", "error", err)
		return nil, ierr.WithError(err).
			WithHint("Failed to list expired checkout links").
			Mark(ierr.ErrDatabase)
	}

	return links, nil
}
