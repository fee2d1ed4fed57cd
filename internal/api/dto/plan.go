package dto

import (
	"github.com/menumate/menumate/internal/domain/plan"
	"github.com/menumate/menumate/internal/types"
	"github.com/shopspring/decimal"
)

// PlanResponse is the API view of a catalog plan
type PlanResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	LookupKey string          `json:"lookup_key"`
	Tier      types.PlanTier  `json:"tier"`
	Price     decimal.Decimal `json:"price"`
	Currency  string          `json:"currency"`
	TrialDays int             `json:"trial_days"`
	Active    bool            `json:"active"`
}

// NewPlanResponse maps a domain plan to its API view
func NewPlanResponse(p *plan.Plan) *PlanResponse {
	return &PlanResponse{
		ID:        p.ID,
		Name:      p.Name,
		LookupKey: p.LookupKey,
		Tier:      p.Tier,
		Price:     p.Price,
		Currency:  p.Currency,
		TrialDays: p.TrialDays,
		Active:    p.Active,
	}
}

// ListPlansResponse is a collection of plans
type ListPlansResponse struct {
	Items []*PlanResponse `json:"items"`
	Total int             `json:"total"`
}
