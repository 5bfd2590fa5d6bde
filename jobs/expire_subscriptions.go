package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/shopbook/shopbook/internal/subscriptions"
)

// SubscriptionsExpireJob downgrades premium accounts past their expiry.
type SubscriptionsExpireJob struct {
	service *subscriptions.Service
	logger  *slog.Logger
}

// NewSubscriptionsExpireJob constructs the job.
func NewSubscriptionsExpireJob(service *subscriptions.Service, logger *slog.Logger) *SubscriptionsExpireJob {
	return &SubscriptionsExpireJob{service: service, logger: logger}
}

// Handle processes TaskSubscriptionsExpire tasks.
func (j *SubscriptionsExpireJob) Handle(ctx context.Context, t *asynq.Task) error {
	n, err := j.service.ExpireOverdue(ctx)
	if err != nil {
		j.logger.Error("subscription expiry sweep", slog.Any("error", err))
		return err
	}
	if n > 0 {
		j.logger.Info("subscriptions downgraded", slog.Int64("count", n))
	}
	return nil
}
