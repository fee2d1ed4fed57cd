package types

import (
	ierr "github.com/menumate/menumate/internal/errors"
)

// LinkStatus represents the lifecycle status of a checkout link.
// A link starts as active and moves exactly once to either used or expired.
type LinkStatus string

const (
	LinkStatusActive  LinkStatus = "active"
	LinkStatusUsed    LinkStatus = "used"
	LinkStatusExpired LinkStatus = "expired"
)

// Validate validates the link status
func (s LinkStatus) Validate() error {
	switch s {
	case LinkStatusActive, LinkStatusUsed, LinkStatusExpired:
		return nil
	default:
		return ierr.NewError("invalid checkout link status").
			WithHint("Please provide a valid checkout link status").
			WithReportableDetails(map[string]any{
				"allowed": []LinkStatus{
					LinkStatusActive,
					LinkStatusUsed,
					LinkStatusExpired,
				},
			}).
			Mark(ierr.ErrValidation)
	}
}

// IsTerminal returns true once the link can no longer transition.
func (s LinkStatus) IsTerminal() bool {
	return s == LinkStatusUsed || s == LinkStatusExpired
}

// CanTransitionTo reports whether a transition from s to target is legal.
// Active is the only non-terminal state and never a transition target.
func (s LinkStatus) CanTransitionTo(target LinkStatus) bool {
	if s != LinkStatusActive {
		return false
	}
	return target == LinkStatusUsed || target == LinkStatusExpired
}

// String returns the string representation of the link status
func (s LinkStatus) String() string {
	return string(s)
}
