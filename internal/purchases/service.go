package purchases

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shopbook/shopbook/internal/inventory"
	"github.com/shopbook/shopbook/internal/money"
	"github.com/shopbook/shopbook/internal/platform/httpx"
	"github.com/shopbook/shopbook/internal/shared"
)

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates the purchase ledger. Stock merges commit with the
// document; they are intentionally never reversed on edit or delete since the
// goods are already on the shelf.
type Service struct {
	repo  Repository
	audit AuditPort
}

// NewService builds Service.
func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

func linesToItems(lines []PurchaseLineRequest) ([]PurchaseItem, []money.Line) {
	items := make([]PurchaseItem, 0, len(lines))
	moneyLines := make([]money.Line, 0, len(lines))
	for _, line := range lines {
		qty := decimal.NewFromFloat(line.Quantity)
		price := decimal.NewFromFloat(line.UnitPrice)
		items = append(items, PurchaseItem{
			Description:    strings.TrimSpace(line.Description),
			Quantity:       qty,
			UnitPrice:      price,
			Amount:         money.LineAmount(qty, price),
			AddToInventory: line.AddToInventory,
		})
		moneyLines = append(moneyLines, money.Line{Quantity: qty, UnitPrice: price})
	}
	return items, moneyLines
}

// Create records a purchase and merges flagged lines into stock.
func (s *Service) Create(ctx context.Context, ac shared.AccountContext, req CreatePurchaseRequest) (*Purchase, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}

	items, moneyLines := linesToItems(req.Items)
	totals := money.Compute(moneyLines,
		decimal.NewFromFloat(req.DiscountPercentage), decimal.NewFromFloat(req.TaxPercentage))

	purchase := Purchase{
		OwnerAccountID:     ac.AccountID,
		SupplierID:         req.SupplierID,
		CreatedBySubuserID: ac.SubuserID,
		PurchaseDate:       req.PurchaseDate,
		Subtotal:           totals.Subtotal,
		DiscountPercentage: decimal.NewFromFloat(req.DiscountPercentage),
		DiscountAmount:     totals.DiscountAmount,
		TaxPercentage:      decimal.NewFromFloat(req.TaxPercentage),
		TaxAmount:          totals.TaxAmount,
		TotalAmount:        totals.TotalAmount,
		PaymentStatus:      PaymentStatus(req.PaymentStatus),
		Notes:              req.Notes,
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ok, err := tx.SupplierExists(ctx, ac.AccountID, req.SupplierID)
		if err != nil {
			return err
		}
		if !ok {
			return shared.ErrNotFound
		}

		id, err := tx.InsertPurchase(ctx, purchase)
		if err != nil {
			return err
		}
		purchase.ID = id

		if err := tx.InsertItems(ctx, id, items); err != nil {
			return err
		}
		for _, item := range items {
			if !item.AddToInventory {
				continue
			}
			if _, err := tx.MergeStock(ctx, ac.AccountID, item.Description, item.Quantity, item.UnitPrice); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, ac, "purchases.create", purchase.ID)
	return s.repo.Get(ctx, ac.AccountID, purchase.ID)
}

// newlyFlagged returns the lines in the updated set whose merge has not
// already run: a line matches a previous merge when an old flagged line had
// the same normalised description. Re-sending an unchanged flagged line does
// not double-count stock.
func newlyFlagged(old, updated []PurchaseItem) []PurchaseItem {
	merged := make(map[string]bool)
	for _, item := range old {
		if item.AddToInventory {
			merged[inventory.NormalizeName(item.Description)] = true
		}
	}
	var out []PurchaseItem
	for _, item := range updated {
		if item.AddToInventory && !merged[inventory.NormalizeName(item.Description)] {
			out = append(out, item)
		}
	}
	return out
}

// Update replaces the item set wholesale and patches header fields. Only
// freshly flagged lines merge into stock; earlier merges stay in place.
func (s *Service) Update(ctx context.Context, ac shared.AccountContext, purchaseID int64, req UpdatePurchaseRequest) (*Purchase, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}

	items, moneyLines := linesToItems(req.Items)

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, ac.AccountID, purchaseID)
		if err != nil {
			return err
		}

		if req.SupplierID != nil {
			ok, err := tx.SupplierExists(ctx, ac.AccountID, *req.SupplierID)
			if err != nil {
				return err
			}
			if !ok {
				return shared.ErrNotFound
			}
			current.SupplierID = *req.SupplierID
		}
		if req.PurchaseDate != nil {
			current.PurchaseDate = *req.PurchaseDate
		}
		if req.DiscountPercentage != nil {
			current.DiscountPercentage = decimal.NewFromFloat(*req.DiscountPercentage)
		}
		if req.TaxPercentage != nil {
			current.TaxPercentage = decimal.NewFromFloat(*req.TaxPercentage)
		}
		if req.PaymentStatus != nil {
			current.PaymentStatus = PaymentStatus(*req.PaymentStatus)
		}
		if req.Notes != nil {
			current.Notes = req.Notes
		}

		totals := money.Compute(moneyLines, current.DiscountPercentage, current.TaxPercentage)
		current.Subtotal = totals.Subtotal
		current.DiscountAmount = totals.DiscountAmount
		current.TaxAmount = totals.TaxAmount
		current.TotalAmount = totals.TotalAmount

		for _, item := range newlyFlagged(current.Items, items) {
			if _, err := tx.MergeStock(ctx, ac.AccountID, item.Description, item.Quantity, item.UnitPrice); err != nil {
				return err
			}
		}

		if err := tx.DeleteItems(ctx, purchaseID); err != nil {
			return err
		}
		if err := tx.InsertItems(ctx, purchaseID, items); err != nil {
			return err
		}
		return tx.UpdatePurchase(ctx, current)
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, ac, "purchases.update", purchaseID)
	return s.repo.Get(ctx, ac.AccountID, purchaseID)
}

// Delete removes a purchase. Stock merged from its lines stays merged.
func (s *Service) Delete(ctx context.Context, ac shared.AccountContext, purchaseID int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetForUpdate(ctx, ac.AccountID, purchaseID); err != nil {
			return err
		}
		if err := tx.DeleteItems(ctx, purchaseID); err != nil {
			return err
		}
		return tx.DeletePurchase(ctx, ac.AccountID, purchaseID)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, ac, "purchases.delete", purchaseID)
	return nil
}

// SetStatus flips the settlement status between paid and pending.
func (s *Service) SetStatus(ctx context.Context, ac shared.AccountContext, purchaseID int64, req SetStatusRequest) (*Purchase, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	if err := s.repo.SetStatus(ctx, ac.AccountID, purchaseID, PaymentStatus(req.Status)); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, ac, "purchases.set_status", purchaseID)
	return s.repo.Get(ctx, ac.AccountID, purchaseID)
}

// AttachBill stores the supplier's bill as an opaque blob keyed by a fresh
// UUID. A second upload replaces the first.
func (s *Service) AttachBill(ctx context.Context, ac shared.AccountContext, purchaseID int64, filename, contentType string, data []byte) (BillAttachment, error) {
	if len(data) == 0 {
		return BillAttachment{}, fmt.Errorf("%w: empty attachment", httpx.ErrValidation)
	}

	att := BillAttachment{
		Key:         uuid.NewString(),
		PurchaseID:  purchaseID,
		Filename:    strings.TrimSpace(filename),
		ContentType: contentType,
		Data:        data,
		UploadedAt:  time.Now().UTC(),
	}
	if err := s.repo.SaveAttachment(ctx, ac.AccountID, att); err != nil {
		return BillAttachment{}, err
	}
	s.recordAudit(ctx, ac, "purchases.attach_bill", purchaseID)
	return att, nil
}

// Attachment retrieves the stored bill blob.
func (s *Service) Attachment(ctx context.Context, ac shared.AccountContext, purchaseID int64) (BillAttachment, error) {
	return s.repo.GetAttachment(ctx, ac.AccountID, purchaseID)
}

// Get fetches one purchase with its items.
func (s *Service) Get(ctx context.Context, ac shared.AccountContext, purchaseID int64) (*Purchase, error) {
	return s.repo.Get(ctx, ac.AccountID, purchaseID)
}

// List pages through the purchase ledger, optionally by status.
func (s *Service) List(ctx context.Context, ac shared.AccountContext, status *string, page, perPage int) ([]Purchase, shared.Pagination, error) {
	if status != nil && *status != string(PaymentStatusPaid) && *status != string(PaymentStatusPending) {
		return nil, shared.Pagination{}, fmt.Errorf("%w: unknown status %q", httpx.ErrValidation, *status)
	}
	if perPage <= 0 {
		perPage = 50
	}
	if page <= 0 {
		page = 1
	}
	purchases, total, err := s.repo.List(ctx, ac.AccountID, status, perPage, (page-1)*perPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return purchases, shared.NewPagination(page, perPage, total), nil
}

func (s *Service) recordAudit(ctx context.Context, ac shared.AccountContext, action string, purchaseID int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		AccountID: ac.AccountID,
		SubuserID: ac.SubuserID,
		Action:    action,
		Entity:    "purchase",
		EntityID:  strconv.FormatInt(purchaseID, 10),
	})
}
