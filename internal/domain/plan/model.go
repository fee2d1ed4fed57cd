package plan

import (
	"github.com/menumate/menumate/internal/types"
	"github.com/shopspring/decimal"
)

// Plan is an immutable catalog entry. The catalog is owned outside this
// service; nothing here ever writes a plan.
type Plan struct {
	ID              string          `db:"id" json:"id"`
	Name            string          `db:"name" json:"name"`
	LookupKey       string          `db:"lookup_key" json:"lookup_key"`
	Tier            types.PlanTier  `db:"tier" json:"tier"`
	Price           decimal.Decimal `db:"price" json:"price"`
	Currency        string          `db:"currency" json:"currency"`
	ProviderPriceID string          `db:"provider_price_id" json:"provider_price_id"`
	TrialDays       int             `db:"trial_days" json:"trial_days"`
	Active          bool            `db:"active" json:"active"`
	types.BaseModel
}

// Available reports whether the plan can back a new checkout link.
func (p *Plan) Available() bool {
	return p.Active && p.Status == types.StatusPublished
}
