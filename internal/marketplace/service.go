package marketplace

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/shopbook/shopbook/internal/inventory"
	"github.com/shopbook/shopbook/internal/platform/httpx"
	"github.com/shopbook/shopbook/internal/shared"
)

// InventoryPort looks up the seller's own stock register when publishing.
type InventoryPort interface {
	Get(ctx context.Context, accountID, itemID int64) (inventory.Item, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates cross-tenant listings.
type Service struct {
	repo  Repository
	stock InventoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo Repository, stock InventoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, stock: stock, audit: audit}
}

// Publish lists one of the seller's inventory items. The title is taken from
// the item so the listing and the register never drift apart.
func (s *Service) Publish(ctx context.Context, ac shared.AccountContext, req PublishRequest) (Listing, error) {
	if err := validate.Struct(req); err != nil {
		return Listing{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}

	item, err := s.stock.Get(ctx, ac.AccountID, req.InventoryItemID)
	if err != nil {
		return Listing{}, err
	}

	price := item.SalesValue
	if req.Price != nil {
		price = decimal.NewFromFloat(*req.Price)
	}

	listing, err := s.repo.Publish(ctx, Listing{
		SellerAccountID: ac.AccountID,
		InventoryItemID: item.ID,
		Title:           item.Name,
		Price:           price,
		Description:     req.Description,
	})
	if err != nil {
		return Listing{}, err
	}
	s.recordAudit(ctx, ac, "marketplace.publish", listing.ID)
	return listing, nil
}

// Unpublish takes the seller's listing down.
func (s *Service) Unpublish(ctx context.Context, ac shared.AccountContext, listingID int64) error {
	if err := s.repo.Unpublish(ctx, ac.AccountID, listingID); err != nil {
		return err
	}
	s.recordAudit(ctx, ac, "marketplace.unpublish", listingID)
	return nil
}

// Search browses listings across all tenants.
func (s *Service) Search(ctx context.Context, query string, page, perPage int) ([]Listing, shared.Pagination, error) {
	if perPage <= 0 {
		perPage = 50
	}
	if page <= 0 {
		page = 1
	}
	listings, total, err := s.repo.Search(ctx, query, perPage, (page-1)*perPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return listings, shared.NewPagination(page, perPage, total), nil
}

// Mine returns the caller's own listings.
func (s *Service) Mine(ctx context.Context, ac shared.AccountContext) ([]Listing, error) {
	return s.repo.ListMine(ctx, ac.AccountID)
}

func (s *Service) recordAudit(ctx context.Context, ac shared.AccountContext, action string, listingID int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		AccountID: ac.AccountID,
		SubuserID: ac.SubuserID,
		Action:    action,
		Entity:    "marketplace_listing",
		EntityID:  strconv.FormatInt(listingID, 10),
	})
}
