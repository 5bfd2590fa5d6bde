package subscriptions

import "time"

// Plan is the account's service tier.
type Plan string

const (
	PlanFree    Plan = "free"
	PlanPremium Plan = "premium"
)

// Subscription is the account's current tier. Premium carries an expiry;
// the worker downgrades overdue accounts back to free.
type Subscription struct {
	AccountID int64      `json:"accountId"`
	Plan      Plan       `json:"plan"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Active reports whether the subscription still grants premium features.
func (s Subscription) Active(now time.Time) bool {
	if s.Plan != PlanPremium {
		return false
	}
	return s.ExpiresAt == nil || s.ExpiresAt.After(now)
}
