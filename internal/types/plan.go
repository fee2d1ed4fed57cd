package types

import (
	ierr "github.com/menumate/menumate/internal/errors"
)

// PlanTier is the commercial tier of a catalog plan
type PlanTier string

const (
	PlanTierBasic   PlanTier = "basic"
	PlanTierPlus    PlanTier = "plus"
	PlanTierPremium PlanTier = "premium"
)

// Validate validates the plan tier
func (t PlanTier) Validate() error {
	switch t {
	case PlanTierBasic, PlanTierPlus, PlanTierPremium:
		return nil
	default:
		return ierr.NewError("invalid plan tier").
			WithHint("Please provide a valid plan tier").
			WithReportableDetails(map[string]any{
				"allowed": []PlanTier{
					PlanTierBasic,
					PlanTierPlus,
					PlanTierPremium,
				},
			}).
			Mark(ierr.ErrValidation)
	}
}

// String returns the string representation of the plan tier
func (t PlanTier) String() string {
	return string(t)
}
