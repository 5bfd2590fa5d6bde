package subscriptions

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shopbook/shopbook/internal/platform/httpx"
	"github.com/shopbook/shopbook/internal/shared"
)

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates plan upgrades and expiry.
type Service struct {
	repo  Repository
	audit AuditPort
	now   func() time.Time
}

// NewService builds Service.
func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// Subscribe upgrades the account to premium. Subscribing while already
// premium extends from the current expiry, not from today.
func (s *Service) Subscribe(ctx context.Context, ac shared.AccountContext, req SubscribeRequest) (Subscription, error) {
	if err := validate.Struct(req); err != nil {
		return Subscription{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}

	current, err := s.repo.Get(ctx, ac.AccountID)
	if err != nil {
		return Subscription{}, err
	}

	now := s.now().UTC()
	base := now
	if current.Active(now) && current.ExpiresAt != nil {
		base = *current.ExpiresAt
	}
	expires := base.AddDate(0, req.Months, 0)

	sub, err := s.repo.Upsert(ctx, Subscription{
		AccountID: ac.AccountID,
		Plan:      PlanPremium,
		ExpiresAt: &expires,
	})
	if err != nil {
		return Subscription{}, err
	}
	s.recordAudit(ctx, ac, "subscriptions.subscribe")
	return sub, nil
}

// Current reports the account's plan, downgrading lazily when expired.
func (s *Service) Current(ctx context.Context, ac shared.AccountContext) (Subscription, error) {
	sub, err := s.repo.Get(ctx, ac.AccountID)
	if err != nil {
		return Subscription{}, err
	}
	if sub.Plan == PlanPremium && !sub.Active(s.now().UTC()) {
		sub.Plan = PlanFree
		sub.ExpiresAt = nil
	}
	return sub, nil
}

// ExpireOverdue is the worker entry point for the nightly downgrade sweep.
func (s *Service) ExpireOverdue(ctx context.Context) (int64, error) {
	return s.repo.ExpireOverdue(ctx, s.now().UTC())
}

func (s *Service) recordAudit(ctx context.Context, ac shared.AccountContext, action string) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		AccountID: ac.AccountID,
		SubuserID: ac.SubuserID,
		Action:    action,
		Entity:    "subscription",
		EntityID:  strconv.FormatInt(ac.AccountID, 10),
	})
}
