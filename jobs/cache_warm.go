package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopbook/shopbook/internal/billing"
	"github.com/shopbook/shopbook/internal/shared"
)

// BillingCacheWarmJob refills the recent-estimates and ledger caches for
// accounts with recent billing activity, so the morning dashboard loads do
// not all miss at once.
type BillingCacheWarmJob struct {
	pool    *pgxpool.Pool
	billing *billing.Service
	logger  *slog.Logger
}

// NewBillingCacheWarmJob constructs the job.
func NewBillingCacheWarmJob(pool *pgxpool.Pool, billingService *billing.Service, logger *slog.Logger) *BillingCacheWarmJob {
	return &BillingCacheWarmJob{pool: pool, billing: billingService, logger: logger}
}

// Handle processes TaskBillingCacheWarm tasks.
func (j *BillingCacheWarmJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload CacheWarmPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	days := payload.ActiveWithinDays
	if days <= 0 {
		days = 7
	}

	rows, err := j.pool.Query(ctx,
		`SELECT DISTINCT owner_account_id FROM estimates WHERE updated_at > $1`,
		time.Now().UTC().AddDate(0, 0, -days))
	if err != nil {
		return err
	}
	defer rows.Close()

	var accountIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return err
		}
		accountIDs = append(accountIDs, id)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range accountIDs {
		ac := shared.AccountContext{AccountID: id}
		if _, _, err := j.billing.List(ctx, ac, billing.ListEstimatesRequest{}); err != nil {
			j.logger.Warn("warm estimates list", slog.Int64("account", id), slog.Any("error", err))
		}
		if _, err := j.billing.CustomerLedger(ctx, ac); err != nil {
			j.logger.Warn("warm customer ledger", slog.Int64("account", id), slog.Any("error", err))
		}
	}
	j.logger.Info("billing caches warmed", slog.Int("accounts", len(accountIDs)))
	return nil
}
