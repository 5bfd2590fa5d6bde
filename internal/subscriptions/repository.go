package subscriptions

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists per-account subscriptions.
type Repository interface {
	Get(ctx context.Context, accountID int64) (Subscription, error)
	Upsert(ctx context.Context, s Subscription) (Subscription, error)
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// Get returns the stored subscription; accounts with no row are on the free
// plan.
func (r *repository) Get(ctx context.Context, accountID int64) (Subscription, error) {
	var s Subscription
	err := r.pool.QueryRow(ctx,
		`SELECT account_id, plan, expires_at, updated_at FROM subscriptions WHERE account_id = $1`,
		accountID).Scan(&s.AccountID, &s.Plan, &s.ExpiresAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Subscription{AccountID: accountID, Plan: PlanFree}, nil
		}
		return Subscription{}, err
	}
	return s, nil
}

func (r *repository) Upsert(ctx context.Context, s Subscription) (Subscription, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO subscriptions (account_id, plan, expires_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (account_id) DO UPDATE
		 SET plan = EXCLUDED.plan, expires_at = EXCLUDED.expires_at, updated_at = NOW()
		 RETURNING account_id, plan, expires_at, updated_at`,
		s.AccountID, string(s.Plan), s.ExpiresAt,
	).Scan(&s.AccountID, &s.Plan, &s.ExpiresAt, &s.UpdatedAt)
	if err != nil {
		return Subscription{}, err
	}
	return s, nil
}

// ExpireOverdue downgrades premium subscriptions past their expiry and
// returns how many were touched.
func (r *repository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE subscriptions SET plan = 'free', expires_at = NULL, updated_at = NOW()
		 WHERE plan = 'premium' AND expires_at IS NOT NULL AND expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
