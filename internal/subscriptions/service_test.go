package subscriptions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shopbook/shopbook/internal/shared"
)

type memoryRepo struct {
	subs map[int64]Subscription
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{subs: make(map[int64]Subscription)}
}

func (r *memoryRepo) Get(ctx context.Context, accountID int64) (Subscription, error) {
	if sub, ok := r.subs[accountID]; ok {
		return sub, nil
	}
	return Subscription{AccountID: accountID, Plan: PlanFree}, nil
}

func (r *memoryRepo) Upsert(ctx context.Context, s Subscription) (Subscription, error) {
	s.UpdatedAt = time.Now().UTC()
	r.subs[s.AccountID] = s
	return s, nil
}

func (r *memoryRepo) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	for id, sub := range r.subs {
		if sub.Plan == PlanPremium && sub.ExpiresAt != nil && !sub.ExpiresAt.After(now) {
			sub.Plan = PlanFree
			sub.ExpiresAt = nil
			r.subs[id] = sub
			n++
		}
	}
	return n, nil
}

func acct(id int64) shared.AccountContext {
	return shared.AccountContext{AccountID: id}
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestSubscribeExtendsFromExpiry(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	svc.now = fixedNow(now)
	ctx := context.Background()

	sub, err := svc.Subscribe(ctx, acct(1), SubscribeRequest{Months: 1})
	require.NoError(t, err)
	require.Equal(t, PlanPremium, sub.Plan)
	require.Equal(t, now.AddDate(0, 1, 0), *sub.ExpiresAt)

	// second month stacks on the first
	sub, err = svc.Subscribe(ctx, acct(1), SubscribeRequest{Months: 1})
	require.NoError(t, err)
	require.Equal(t, now.AddDate(0, 2, 0), *sub.ExpiresAt)
}

func TestCurrentDowngradesLazily(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	svc.now = fixedNow(now)
	ctx := context.Background()

	_, err := svc.Subscribe(ctx, acct(1), SubscribeRequest{Months: 1})
	require.NoError(t, err)

	svc.now = fixedNow(now.AddDate(0, 2, 0))
	sub, err := svc.Current(ctx, acct(1))
	require.NoError(t, err)
	require.Equal(t, PlanFree, sub.Plan)
	require.Nil(t, sub.ExpiresAt)
}

func TestExpireOverdueSweep(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	svc.now = fixedNow(now)
	ctx := context.Background()

	_, err := svc.Subscribe(ctx, acct(1), SubscribeRequest{Months: 1})
	require.NoError(t, err)
	_, err = svc.Subscribe(ctx, acct(2), SubscribeRequest{Months: 12})
	require.NoError(t, err)

	svc.now = fixedNow(now.AddDate(0, 2, 0))
	n, err := svc.ExpireOverdue(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	sub, err := svc.Current(ctx, acct(2))
	require.NoError(t, err)
	require.Equal(t, PlanPremium, sub.Plan)
}
