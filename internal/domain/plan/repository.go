package plan

import (
	"context"

	"github.com/menumate/menumate/internal/types"
)

// Repository defines the read-only interface for plan catalog lookups
type Repository interface {
	Get(ctx context.Context, id string) (*Plan, error)
	GetByTier(ctx context.Context, tier types.PlanTier) (*Plan, error)
	List(ctx context.Context) ([]*Plan, error)
}
