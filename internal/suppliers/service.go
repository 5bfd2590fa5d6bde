package suppliers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopbook/shopbook/internal/platform/httpx"
	"github.com/shopbook/shopbook/internal/shared"
)

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates supplier book-keeping.
type Service struct {
	repo  Repository
	audit AuditPort
}

// NewService builds Service.
func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// Create registers a supplier.
func (s *Service) Create(ctx context.Context, ac shared.AccountContext, req CreateSupplierRequest) (Supplier, error) {
	if err := validate.Struct(req); err != nil {
		return Supplier{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}

	supplier, err := s.repo.Create(ctx, Supplier{
		OwnerAccountID: ac.AccountID,
		Name:           strings.TrimSpace(req.Name),
		Contact:        strings.TrimSpace(req.Contact),
		Address:        strings.TrimSpace(req.Address),
		Notes:          req.Notes,
	})
	if err != nil {
		return Supplier{}, err
	}
	s.recordAudit(ctx, ac, "suppliers.create", supplier.ID)
	return supplier, nil
}

// Update applies a field-by-field patch.
func (s *Service) Update(ctx context.Context, ac shared.AccountContext, supplierID int64, req UpdateSupplierRequest) (Supplier, error) {
	if err := validate.Struct(req); err != nil {
		return Supplier{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}

	supplier, err := s.repo.Get(ctx, ac.AccountID, supplierID)
	if err != nil {
		return Supplier{}, err
	}

	if req.Name != nil {
		supplier.Name = strings.TrimSpace(*req.Name)
	}
	if req.Contact != nil {
		supplier.Contact = strings.TrimSpace(*req.Contact)
	}
	if req.Address != nil {
		supplier.Address = strings.TrimSpace(*req.Address)
	}
	if req.Notes != nil {
		supplier.Notes = req.Notes
	}

	updated, err := s.repo.Update(ctx, supplier)
	if err != nil {
		return Supplier{}, err
	}
	s.recordAudit(ctx, ac, "suppliers.update", supplierID)
	return updated, nil
}

// Delete removes a supplier.
func (s *Service) Delete(ctx context.Context, ac shared.AccountContext, supplierID int64) error {
	if err := s.repo.Delete(ctx, ac.AccountID, supplierID); err != nil {
		return err
	}
	s.recordAudit(ctx, ac, "suppliers.delete", supplierID)
	return nil
}

// Get fetches one supplier.
func (s *Service) Get(ctx context.Context, ac shared.AccountContext, supplierID int64) (Supplier, error) {
	return s.repo.Get(ctx, ac.AccountID, supplierID)
}

// List pages through the supplier book.
func (s *Service) List(ctx context.Context, ac shared.AccountContext, page, perPage int) ([]Supplier, shared.Pagination, error) {
	if perPage <= 0 {
		perPage = 50
	}
	if page <= 0 {
		page = 1
	}
	out, total, err := s.repo.List(ctx, ac.AccountID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return out, shared.NewPagination(page, perPage, total), nil
}

func (s *Service) recordAudit(ctx context.Context, ac shared.AccountContext, action string, supplierID int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		AccountID: ac.AccountID,
		SubuserID: ac.SubuserID,
		Action:    action,
		Entity:    "supplier",
		EntityID:  strconv.FormatInt(supplierID, 10),
	})
}
