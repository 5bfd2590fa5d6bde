package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSubscriptionsExpire sweeps overdue premium subscriptions.
	TaskSubscriptionsExpire = "subscriptions:expire"
	// TaskBillingCacheWarm refills the per-account billing caches.
	TaskBillingCacheWarm = "billing:cache_warm"
)

// CacheWarmPayload limits the warm sweep to recently active accounts.
type CacheWarmPayload struct {
	ActiveWithinDays int `json:"activeWithinDays"`
}

// NewSubscriptionsExpireTask constructs the nightly downgrade task.
func NewSubscriptionsExpireTask() *asynq.Task {
	return asynq.NewTask(TaskSubscriptionsExpire, nil)
}

// NewBillingCacheWarmTask constructs a cache warm task.
func NewBillingCacheWarmTask(payload CacheWarmPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBillingCacheWarm, data), nil
}
