package inventory

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/shopbook/shopbook/internal/platform/httpx"
	"github.com/shopbook/shopbook/internal/shared"
)

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates stock register operations.
type Service struct {
	repo  Repository
	audit AuditPort
}

// NewService builds Service.
func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// Create adds an item to the account's register.
func (s *Service) Create(ctx context.Context, ac shared.AccountContext, req CreateItemRequest) (Item, error) {
	if err := validate.Struct(req); err != nil {
		return Item{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return Item{}, fmt.Errorf("%w: name is required", httpx.ErrValidation)
	}

	item, err := s.repo.Create(ctx, Item{
		OwnerAccountID: ac.AccountID,
		Name:           name,
		Quantity:       decimal.NewFromFloat(req.Quantity),
		PurchaseValue:  decimal.NewFromFloat(req.PurchaseValue),
		SalesValue:     decimal.NewFromFloat(req.SalesValue),
	})
	if err != nil {
		return Item{}, err
	}
	s.recordAudit(ctx, ac, "inventory.create", item.ID)
	return item, nil
}

// Update applies a field-by-field patch.
func (s *Service) Update(ctx context.Context, ac shared.AccountContext, itemID int64, req UpdateItemRequest) (Item, error) {
	if err := validate.Struct(req); err != nil {
		return Item{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}

	item, err := s.repo.Get(ctx, ac.AccountID, itemID)
	if err != nil {
		return Item{}, err
	}

	if req.Name != nil {
		item.Name = strings.TrimSpace(*req.Name)
	}
	if req.Quantity != nil {
		item.Quantity = decimal.NewFromFloat(*req.Quantity)
	}
	if req.PurchaseValue != nil {
		item.PurchaseValue = decimal.NewFromFloat(*req.PurchaseValue)
	}
	if req.SalesValue != nil {
		item.SalesValue = decimal.NewFromFloat(*req.SalesValue)
	}
	if item.Quantity.Sign() < 0 {
		return Item{}, ErrInvalidQuantity
	}

	updated, err := s.repo.Update(ctx, item)
	if err != nil {
		return Item{}, err
	}
	s.recordAudit(ctx, ac, "inventory.update", itemID)
	return updated, nil
}

// Delete removes an item from the register.
func (s *Service) Delete(ctx context.Context, ac shared.AccountContext, itemID int64) error {
	if err := s.repo.Delete(ctx, ac.AccountID, itemID); err != nil {
		return err
	}
	s.recordAudit(ctx, ac, "inventory.delete", itemID)
	return nil
}

// Get fetches one item.
func (s *Service) Get(ctx context.Context, ac shared.AccountContext, itemID int64) (Item, error) {
	return s.repo.Get(ctx, ac.AccountID, itemID)
}

// List pages through the register.
func (s *Service) List(ctx context.Context, ac shared.AccountContext, page, perPage int) ([]Item, shared.Pagination, error) {
	if perPage <= 0 {
		perPage = 50
	}
	if page <= 0 {
		page = 1
	}
	items, total, err := s.repo.List(ctx, ac.AccountID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(page, perPage, total), nil
}

func (s *Service) recordAudit(ctx context.Context, ac shared.AccountContext, action string, itemID int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		AccountID: ac.AccountID,
		SubuserID: ac.SubuserID,
		Action:    action,
		Entity:    "inventory_item",
		EntityID:  strconv.FormatInt(itemID, 10),
	})
}
