package types

// Status is a type for the lifecycle status of a persisted row in the database.
// It is orthogonal to domain statuses like LinkStatus or SubscriptionStatus.
type Status string

const (
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
	StatusDeleted   Status = "deleted"
)
