package billing

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/shopbook/shopbook/internal/money"
	"github.com/shopbook/shopbook/internal/platform/cache"
	"github.com/shopbook/shopbook/internal/platform/httpx"
	"github.com/shopbook/shopbook/internal/shared"
)

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates the estimate and bill lifecycle. Every mutation runs in
// one transaction so document writes and stock movements commit or roll back
// together.
type Service struct {
	repo  Repository
	audit AuditPort
	cache *cache.Cache
}

// NewService builds Service.
func NewService(repo Repository, audit AuditPort, c *cache.Cache) *Service {
	return &Service{repo: repo, audit: audit, cache: c}
}

func linesToItems(lines []EstimateLineRequest) ([]EstimateItem, []money.Line) {
	items := make([]EstimateItem, 0, len(lines))
	moneyLines := make([]money.Line, 0, len(lines))
	for _, line := range lines {
		qty := decimal.NewFromFloat(line.Quantity)
		price := decimal.NewFromFloat(line.UnitPrice)
		items = append(items, EstimateItem{
			Description:     strings.TrimSpace(line.Description),
			Quantity:        qty,
			UnitPrice:       price,
			Amount:          money.LineAmount(qty, price),
			InventoryItemID: line.InventoryItemID,
		})
		moneyLines = append(moneyLines, money.Line{Quantity: qty, UnitPrice: price})
	}
	return items, moneyLines
}

// Create issues a new estimate, numbers it, and deducts linked stock.
func (s *Service) Create(ctx context.Context, ac shared.AccountContext, req CreateEstimateRequest) (*Estimate, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}

	items, moneyLines := linesToItems(req.Items)
	totals := money.Compute(moneyLines,
		decimal.NewFromFloat(req.DiscountPercentage), decimal.NewFromFloat(req.TaxPercentage))

	estimate := Estimate{
		OwnerAccountID:      ac.AccountID,
		CreatedBySubuserID:  ac.SubuserID,
		CustomerName:        strings.TrimSpace(req.CustomerName),
		CustomerContact:     strings.TrimSpace(req.CustomerContact),
		IssueDate:           req.IssueDate,
		Subtotal:            totals.Subtotal,
		DiscountPercentage:  decimal.NewFromFloat(req.DiscountPercentage),
		DiscountAmount:      totals.DiscountAmount,
		TaxPercentage:       decimal.NewFromFloat(req.TaxPercentage),
		TaxAmount:           totals.TaxAmount,
		TotalAmount:         totals.TotalAmount,
		PaymentType:         PaymentType(req.PaymentType),
		ExpectedPaymentDate: req.ExpectedPaymentDate,
		Notes:               req.Notes,
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		number, err := tx.NextEstimateNumber(ctx, ac.AccountID)
		if err != nil {
			return err
		}
		estimate.EstimateNumber = number

		id, err := tx.InsertEstimate(ctx, estimate)
		if err != nil {
			return err
		}
		estimate.ID = id

		if err := tx.InsertItems(ctx, id, items); err != nil {
			return err
		}
		for _, item := range items {
			if item.InventoryItemID == nil {
				continue
			}
			if err := tx.AdjustStock(ctx, ac.AccountID, *item.InventoryItemID, item.Quantity.Neg()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, ac.AccountID)
	s.recordAudit(ctx, ac, "billing.create", estimate.ID, map[string]any{"estimateNumber": estimate.EstimateNumber})
	return s.repo.Get(ctx, ac.AccountID, estimate.ID)
}

// stockDeltas nets the old item set against the new one per inventory item.
// A positive delta returns stock, a negative one deducts more.
func stockDeltas(old, updated []EstimateItem) map[int64]decimal.Decimal {
	deltas := make(map[int64]decimal.Decimal)
	for _, item := range old {
		if item.InventoryItemID != nil {
			id := *item.InventoryItemID
			deltas[id] = deltas[id].Add(item.Quantity)
		}
	}
	for _, item := range updated {
		if item.InventoryItemID != nil {
			id := *item.InventoryItemID
			deltas[id] = deltas[id].Sub(item.Quantity)
		}
	}
	for id, d := range deltas {
		if d.IsZero() {
			delete(deltas, id)
		}
	}
	return deltas
}

// Update replaces the item set wholesale and patches header fields. Converted
// estimates are immutable.
func (s *Service) Update(ctx context.Context, ac shared.AccountContext, estimateID int64, req UpdateEstimateRequest) (*Estimate, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}

	items, moneyLines := linesToItems(req.Items)

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, ac.AccountID, estimateID)
		if err != nil {
			return err
		}
		if current.Converted() {
			return ErrConverted
		}

		if req.CustomerName != nil {
			current.CustomerName = strings.TrimSpace(*req.CustomerName)
		}
		if req.CustomerContact != nil {
			current.CustomerContact = strings.TrimSpace(*req.CustomerContact)
		}
		if req.IssueDate != nil {
			current.IssueDate = *req.IssueDate
		}
		if req.DiscountPercentage != nil {
			current.DiscountPercentage = decimal.NewFromFloat(*req.DiscountPercentage)
		}
		if req.TaxPercentage != nil {
			current.TaxPercentage = decimal.NewFromFloat(*req.TaxPercentage)
		}
		if req.ExpectedPaymentDate != nil {
			current.ExpectedPaymentDate = req.ExpectedPaymentDate
		}
		if req.Notes != nil {
			current.Notes = req.Notes
		}

		totals := money.Compute(moneyLines, current.DiscountPercentage, current.TaxPercentage)
		current.Subtotal = totals.Subtotal
		current.DiscountAmount = totals.DiscountAmount
		current.TaxAmount = totals.TaxAmount
		current.TotalAmount = totals.TotalAmount

		for itemID, delta := range stockDeltas(current.Items, items) {
			if err := tx.AdjustStock(ctx, ac.AccountID, itemID, delta); err != nil {
				return err
			}
		}

		if err := tx.DeleteItems(ctx, estimateID); err != nil {
			return err
		}
		if err := tx.InsertItems(ctx, estimateID, items); err != nil {
			return err
		}
		return tx.UpdateEstimate(ctx, current)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, ac.AccountID)
	s.recordAudit(ctx, ac, "billing.update", estimateID, nil)
	return s.repo.Get(ctx, ac.AccountID, estimateID)
}

// Delete removes an unconverted estimate and returns its linked stock.
func (s *Service) Delete(ctx context.Context, ac shared.AccountContext, estimateID int64) error {
	return s.delete(ctx, ac, estimateID, false)
}

// DeleteAsAdmin removes an estimate even after conversion. Stock restoration
// still applies.
func (s *Service) DeleteAsAdmin(ctx context.Context, ac shared.AccountContext, estimateID int64) error {
	if !ac.Admin {
		return httpx.ErrForbidden
	}
	return s.delete(ctx, ac, estimateID, true)
}

func (s *Service) delete(ctx context.Context, ac shared.AccountContext, estimateID int64, force bool) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, ac.AccountID, estimateID)
		if err != nil {
			return err
		}
		if current.Converted() && !force {
			return ErrConverted
		}
		for _, item := range current.Items {
			if item.InventoryItemID == nil {
				continue
			}
			if err := tx.AdjustStock(ctx, ac.AccountID, *item.InventoryItemID, item.Quantity); err != nil {
				return err
			}
		}
		if err := tx.DeleteItems(ctx, estimateID); err != nil {
			return err
		}
		return tx.DeleteEstimate(ctx, ac.AccountID, estimateID)
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, ac.AccountID)
	action := "billing.delete"
	if force {
		action = "billing.delete_admin"
	}
	s.recordAudit(ctx, ac, action, estimateID, nil)
	return nil
}

// ConvertToBill assigns the next bill number. The transition is one-way and
// freezes the document against edits and deletes.
func (s *Service) ConvertToBill(ctx context.Context, ac shared.AccountContext, estimateID int64) (*Estimate, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, ac.AccountID, estimateID)
		if err != nil {
			return err
		}
		if current.Converted() {
			return ErrAlreadyConverted
		}
		number, err := tx.NextBillNumber(ctx, ac.AccountID)
		if err != nil {
			return err
		}
		return tx.SetBillNumber(ctx, ac.AccountID, estimateID, number)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, ac.AccountID)
	s.recordAudit(ctx, ac, "billing.convert", estimateID, nil)
	return s.repo.Get(ctx, ac.AccountID, estimateID)
}

// MarkPaid settles a credit estimate in one step without ledger entries.
func (s *Service) MarkPaid(ctx context.Context, ac shared.AccountContext, estimateID int64, req MarkPaidRequest) (*Estimate, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, ac.AccountID, estimateID)
		if err != nil {
			return err
		}
		if current.PaymentType != PaymentTypeCredit {
			return ErrNotCredit
		}
		return tx.StampPaymentReceived(ctx, estimateID, req.ReceivedDate, PaymentMode(req.Mode))
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, ac.AccountID)
	s.recordAudit(ctx, ac, "billing.mark_paid", estimateID, nil)
	return s.repo.Get(ctx, ac.AccountID, estimateID)
}

// RecordPayment appends a partial payment. The estimate row is locked while
// the running sum is checked, so two concurrent payments cannot overdraw the
// balance. Reaching the total stamps the received date automatically.
func (s *Service) RecordPayment(ctx context.Context, ac shared.AccountContext, estimateID int64, req RecordPaymentRequest) (*EstimatePayment, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}

	payment := EstimatePayment{
		EstimateID:         estimateID,
		Amount:             decimal.NewFromFloat(req.Amount),
		PaymentDate:        req.PaymentDate,
		Mode:               PaymentMode(req.Mode),
		Notes:              req.Notes,
		CreatedBySubuserID: ac.SubuserID,
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, ac.AccountID, estimateID)
		if err != nil {
			return err
		}
		if current.PaymentType != PaymentTypeCredit {
			return ErrNotCredit
		}

		paid, err := tx.SumPayments(ctx, estimateID)
		if err != nil {
			return err
		}
		outstanding := current.TotalAmount.Sub(paid)
		if payment.Amount.GreaterThan(outstanding) {
			return &OverpaymentError{Requested: payment.Amount, Outstanding: outstanding}
		}

		id, err := tx.InsertPayment(ctx, payment)
		if err != nil {
			return err
		}
		payment.ID = id

		if paid.Add(payment.Amount).GreaterThanOrEqual(current.TotalAmount) {
			return tx.StampPaymentReceived(ctx, estimateID, payment.PaymentDate, payment.Mode)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, ac.AccountID)
	s.recordAudit(ctx, ac, "billing.payment", estimateID, map[string]any{"amount": payment.Amount.String()})
	return &payment, nil
}

// Get fetches one estimate with its items.
func (s *Service) Get(ctx context.Context, ac shared.AccountContext, estimateID int64) (*Estimate, error) {
	return s.repo.Get(ctx, ac.AccountID, estimateID)
}

// List pages through estimates. The unfiltered first page is served from the
// cache since it backs the dashboard.
func (s *Service) List(ctx context.Context, ac shared.AccountContext, req ListEstimatesRequest) ([]Estimate, int, error) {
	if err := validate.Struct(req); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}

	type listPage struct {
		Estimates []Estimate `json:"estimates"`
		Total     int        `json:"total"`
	}

	cacheable := s.cache != nil && req.PaymentType == nil && req.Query == "" && req.Page <= 1
	if !cacheable {
		return s.repo.List(ctx, ac.AccountID, req)
	}

	var page listPage
	err := s.cache.FetchJSON(ctx, recentEstimatesKey(ac.AccountID), &page, func(ctx context.Context) (interface{}, error) {
		estimates, total, err := s.repo.List(ctx, ac.AccountID, req)
		if err != nil {
			return nil, err
		}
		return listPage{Estimates: estimates, Total: total}, nil
	})
	if err != nil {
		return nil, 0, err
	}
	return page.Estimates, page.Total, nil
}

// ListPayments returns the payment ledger for one estimate together with the
// derived payment state.
func (s *Service) ListPayments(ctx context.Context, ac shared.AccountContext, estimateID int64) ([]EstimatePayment, PaymentState, error) {
	estimate, err := s.repo.Get(ctx, ac.AccountID, estimateID)
	if err != nil {
		return nil, "", err
	}
	payments, err := s.repo.ListPayments(ctx, ac.AccountID, estimateID)
	if err != nil {
		return nil, "", err
	}
	paid := decimal.Zero
	for _, p := range payments {
		paid = paid.Add(p.Amount)
	}
	return payments, estimate.PaymentStateFor(paid), nil
}

// CustomerLedger aggregates outstanding credit per customer.
func (s *Service) CustomerLedger(ctx context.Context, ac shared.AccountContext) ([]LedgerEntry, error) {
	if s.cache == nil {
		return s.repo.CustomerLedger(ctx, ac.AccountID)
	}
	var entries []LedgerEntry
	err := s.cache.FetchJSON(ctx, ledgerKey(ac.AccountID), &entries, func(ctx context.Context) (interface{}, error) {
		return s.repo.CustomerLedger(ctx, ac.AccountID)
	})
	return entries, err
}

func (s *Service) invalidate(ctx context.Context, accountID int64) {
	_ = s.cache.Invalidate(ctx, recentEstimatesKey(accountID), ledgerKey(accountID))
}

func (s *Service) recordAudit(ctx context.Context, ac shared.AccountContext, action string, estimateID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		AccountID: ac.AccountID,
		SubuserID: ac.SubuserID,
		Action:    action,
		Entity:    "estimate",
		EntityID:  strconv.FormatInt(estimateID, 10),
		Meta:      meta,
	})
}
