package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/shopbook/shopbook/internal/inventory"
	"github.com/shopbook/shopbook/internal/platform/db"
	"github.com/shopbook/shopbook/internal/shared"
)

// TxRepository exposes the operations a lifecycle transaction needs. Stock
// adjustments run through the same transaction as the estimate writes so a
// failure anywhere rolls back everything.
type TxRepository interface {
	NextEstimateNumber(ctx context.Context, accountID int64) (string, error)
	NextBillNumber(ctx context.Context, accountID int64) (string, error)
	InsertEstimate(ctx context.Context, e Estimate) (int64, error)
	UpdateEstimate(ctx context.Context, e Estimate) error
	DeleteEstimate(ctx context.Context, accountID, estimateID int64) error
	GetForUpdate(ctx context.Context, accountID, estimateID int64) (Estimate, error)
	InsertItems(ctx context.Context, estimateID int64, items []EstimateItem) error
	DeleteItems(ctx context.Context, estimateID int64) error
	SetBillNumber(ctx context.Context, accountID, estimateID int64, billNumber string) error
	SumPayments(ctx context.Context, estimateID int64) (decimal.Decimal, error)
	InsertPayment(ctx context.Context, p EstimatePayment) (int64, error)
	StampPaymentReceived(ctx context.Context, estimateID int64, date time.Time, mode PaymentMode) error
	AdjustStock(ctx context.Context, accountID, itemID int64, delta decimal.Decimal) error
}

// Repository persists estimates in PostgreSQL.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, accountID, estimateID int64) (*Estimate, error)
	List(ctx context.Context, accountID int64, req ListEstimatesRequest) ([]Estimate, int, error)
	ListPayments(ctx context.Context, accountID, estimateID int64) ([]EstimatePayment, error)
	CustomerLedger(ctx context.Context, accountID int64) ([]LedgerEntry, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

type txRepo struct {
	tx    pgx.Tx
	stock *inventory.Store
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx, stock: inventory.NewStore(tx)})
	})
}

const estimateColumns = `id, owner_account_id, created_by_subuser_id, estimate_number, bill_number,
	customer_name, customer_contact, issue_date,
	subtotal::text, discount_percentage::text, discount_amount::text,
	tax_percentage::text, tax_amount::text, total_amount::text,
	payment_type, expected_payment_date, payment_received_date, payment_received_mode,
	notes, created_at, updated_at`

func scanEstimate(row pgx.Row) (Estimate, error) {
	var e Estimate
	var subtotal, discountPct, discountAmt, taxPct, taxAmt, total string
	var receivedMode *string
	err := row.Scan(
		&e.ID, &e.OwnerAccountID, &e.CreatedBySubuserID, &e.EstimateNumber, &e.BillNumber,
		&e.CustomerName, &e.CustomerContact, &e.IssueDate,
		&subtotal, &discountPct, &discountAmt, &taxPct, &taxAmt, &total,
		&e.PaymentType, &e.ExpectedPaymentDate, &e.PaymentReceivedDate, &receivedMode,
		&e.Notes, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Estimate{}, shared.ErrNotFound
		}
		return Estimate{}, err
	}
	if receivedMode != nil {
		mode := PaymentMode(*receivedMode)
		e.PaymentReceivedMode = &mode
	}
	fields := []struct {
		dst *decimal.Decimal
		src string
	}{
		{&e.Subtotal, subtotal}, {&e.DiscountPercentage, discountPct}, {&e.DiscountAmount, discountAmt},
		{&e.TaxPercentage, taxPct}, {&e.TaxAmount, taxAmt}, {&e.TotalAmount, total},
	}
	for _, f := range fields {
		d, err := decimal.NewFromString(f.src)
		if err != nil {
			return Estimate{}, err
		}
		*f.dst = d
	}
	return e, nil
}

func loadItems(ctx context.Context, q inventory.DBTX, estimateID int64) ([]EstimateItem, error) {
	rows, err := q.Query(ctx,
		`SELECT id, estimate_id, description, quantity::text, unit_price::text, amount::text, inventory_item_id
		 FROM estimate_items WHERE estimate_id = $1 ORDER BY id`, estimateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []EstimateItem
	for rows.Next() {
		var it EstimateItem
		var qty, price, amount string
		if err := rows.Scan(&it.ID, &it.EstimateID, &it.Description, &qty, &price, &amount, &it.InventoryItemID); err != nil {
			return nil, err
		}
		if it.Quantity, err = decimal.NewFromString(qty); err != nil {
			return nil, err
		}
		if it.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		if it.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *repository) Get(ctx context.Context, accountID, estimateID int64) (*Estimate, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+estimateColumns+` FROM estimates WHERE id = $1 AND owner_account_id = $2`,
		estimateID, accountID)
	e, err := scanEstimate(row)
	if err != nil {
		return nil, err
	}
	if e.Items, err = loadItems(ctx, r.pool, e.ID); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *repository) List(ctx context.Context, accountID int64, req ListEstimatesRequest) ([]Estimate, int, error) {
	conditions := "WHERE owner_account_id = $1"
	args := []interface{}{accountID}
	argPos := 2

	if req.PaymentType != nil {
		conditions += fmt.Sprintf(" AND payment_type = $%d", argPos)
		args = append(args, *req.PaymentType)
		argPos++
	}
	if req.Query != "" {
		conditions += fmt.Sprintf(" AND (customer_name ILIKE $%d OR estimate_number ILIKE $%d)", argPos, argPos)
		args = append(args, "%"+req.Query+"%")
		argPos++
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM estimates "+conditions, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	perPage := req.PerPage
	if perPage <= 0 {
		perPage = 50
	}
	page := req.Page
	if page <= 0 {
		page = 1
	}
	args = append(args, perPage, (page-1)*perPage)

	rows, err := r.pool.Query(ctx,
		fmt.Sprintf("SELECT %s FROM estimates %s ORDER BY issue_date DESC, id DESC LIMIT $%d OFFSET $%d",
			estimateColumns, conditions, argPos, argPos+1),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var estimates []Estimate
	for rows.Next() {
		e, err := scanEstimate(rows)
		if err != nil {
			return nil, 0, err
		}
		estimates = append(estimates, e)
	}
	return estimates, total, rows.Err()
}

func (r *repository) ListPayments(ctx context.Context, accountID, estimateID int64) ([]EstimatePayment, error) {
	// ownership check keeps cross-tenant probes indistinguishable from misses
	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM estimates WHERE id = $1 AND owner_account_id = $2)`,
		estimateID, accountID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, shared.ErrNotFound
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, estimate_id, amount::text, payment_date, mode, notes, created_by_subuser_id, created_at
		 FROM estimate_payments WHERE estimate_id = $1 ORDER BY payment_date, id`, estimateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []EstimatePayment
	for rows.Next() {
		var p EstimatePayment
		var amount string
		if err := rows.Scan(&p.ID, &p.EstimateID, &amount, &p.PaymentDate, &p.Mode, &p.Notes, &p.CreatedBySubuserID, &p.CreatedAt); err != nil {
			return nil, err
		}
		if p.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (r *repository) CustomerLedger(ctx context.Context, accountID int64) ([]LedgerEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT e.customer_name,
		        COALESCE(SUM(e.total_amount), 0)::text,
		        COALESCE(SUM(p.paid), 0)::text
		 FROM estimates e
		 LEFT JOIN (
		     SELECT estimate_id, SUM(amount) AS paid FROM estimate_payments GROUP BY estimate_id
		 ) p ON p.estimate_id = e.id
		 WHERE e.owner_account_id = $1 AND e.payment_type = 'credit' AND e.payment_received_date IS NULL
		 GROUP BY e.customer_name
		 ORDER BY e.customer_name`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []LedgerEntry
	for rows.Next() {
		var entry LedgerEntry
		var billed, received string
		if err := rows.Scan(&entry.CustomerName, &billed, &received); err != nil {
			return nil, err
		}
		if entry.Billed, err = decimal.NewFromString(billed); err != nil {
			return nil, err
		}
		if entry.Received, err = decimal.NewFromString(received); err != nil {
			return nil, err
		}
		entry.Outstanding = entry.Billed.Sub(entry.Received)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// nextNumber scans the current per-account maximum by numeric value of the
// sequence suffix. Values that do not match the pattern are ignored, which
// restarts numbering at 1 rather than erroring. The advisory lock serialises
// concurrent allocations for the same account and prefix.
func (r *txRepo) nextNumber(ctx context.Context, accountID int64, column, prefix string) (string, error) {
	if err := db.AdvisoryXactLock(ctx, r.tx, fmt.Sprintf("billing:numbering:%s:%d", prefix, accountID)); err != nil {
		return "", err
	}
	var max int64
	query := fmt.Sprintf(
		`SELECT COALESCE(MAX((regexp_match(%s, '^%s-(\d+)$'))[1]::bigint), 0)
		 FROM estimates WHERE owner_account_id = $1`, column, prefix)
	if err := r.tx.QueryRow(ctx, query, accountID).Scan(&max); err != nil {
		return "", err
	}
	return FormatNumber(prefix, max+1), nil
}

func (r *txRepo) NextEstimateNumber(ctx context.Context, accountID int64) (string, error) {
	return r.nextNumber(ctx, accountID, "estimate_number", "EST")
}

func (r *txRepo) NextBillNumber(ctx context.Context, accountID int64) (string, error) {
	return r.nextNumber(ctx, accountID, "bill_number", "BILL")
}

func (r *txRepo) InsertEstimate(ctx context.Context, e Estimate) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx,
		`INSERT INTO estimates (owner_account_id, created_by_subuser_id, estimate_number,
		     customer_name, customer_contact, issue_date,
		     subtotal, discount_percentage, discount_amount, tax_percentage, tax_amount, total_amount,
		     payment_type, expected_payment_date, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8::numeric, $9::numeric, $10::numeric, $11::numeric, $12::numeric, $13, $14, $15)
		 RETURNING id`,
		e.OwnerAccountID, e.CreatedBySubuserID, e.EstimateNumber,
		e.CustomerName, e.CustomerContact, e.IssueDate,
		e.Subtotal.String(), e.DiscountPercentage.String(), e.DiscountAmount.String(),
		e.TaxPercentage.String(), e.TaxAmount.String(), e.TotalAmount.String(),
		string(e.PaymentType), e.ExpectedPaymentDate, e.Notes,
	).Scan(&id)
	return id, err
}

func (r *txRepo) UpdateEstimate(ctx context.Context, e Estimate) error {
	tag, err := r.tx.Exec(ctx,
		`UPDATE estimates SET customer_name = $3, customer_contact = $4, issue_date = $5,
		     subtotal = $6::numeric, discount_percentage = $7::numeric, discount_amount = $8::numeric,
		     tax_percentage = $9::numeric, tax_amount = $10::numeric, total_amount = $11::numeric,
		     expected_payment_date = $12, notes = $13, updated_at = NOW()
		 WHERE id = $1 AND owner_account_id = $2`,
		e.ID, e.OwnerAccountID, e.CustomerName, e.CustomerContact, e.IssueDate,
		e.Subtotal.String(), e.DiscountPercentage.String(), e.DiscountAmount.String(),
		e.TaxPercentage.String(), e.TaxAmount.String(), e.TotalAmount.String(),
		e.ExpectedPaymentDate, e.Notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *txRepo) DeleteEstimate(ctx context.Context, accountID, estimateID int64) error {
	tag, err := r.tx.Exec(ctx,
		`DELETE FROM estimates WHERE id = $1 AND owner_account_id = $2`, estimateID, accountID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *txRepo) GetForUpdate(ctx context.Context, accountID, estimateID int64) (Estimate, error) {
	row := r.tx.QueryRow(ctx,
		`SELECT `+estimateColumns+` FROM estimates WHERE id = $1 AND owner_account_id = $2 FOR UPDATE`,
		estimateID, accountID)
	e, err := scanEstimate(row)
	if err != nil {
		return Estimate{}, err
	}
	if e.Items, err = loadItems(ctx, r.tx, e.ID); err != nil {
		return Estimate{}, err
	}
	return e, nil
}

func (r *txRepo) InsertItems(ctx context.Context, estimateID int64, items []EstimateItem) error {
	for _, item := range items {
		_, err := r.tx.Exec(ctx,
			`INSERT INTO estimate_items (estimate_id, description, quantity, unit_price, amount, inventory_item_id)
			 VALUES ($1, $2, $3::numeric, $4::numeric, $5::numeric, $6)`,
			estimateID, item.Description, item.Quantity.String(), item.UnitPrice.String(),
			item.Amount.String(), item.InventoryItemID)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepo) DeleteItems(ctx context.Context, estimateID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM estimate_items WHERE estimate_id = $1`, estimateID)
	return err
}

// SetBillNumber stamps the bill number exactly once; the IS NULL guard makes
// the conversion a one-way transition even under concurrent attempts.
func (r *txRepo) SetBillNumber(ctx context.Context, accountID, estimateID int64, billNumber string) error {
	tag, err := r.tx.Exec(ctx,
		`UPDATE estimates SET bill_number = $3, updated_at = NOW()
		 WHERE id = $1 AND owner_account_id = $2 AND bill_number IS NULL`,
		estimateID, accountID, billNumber)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyConverted
	}
	return nil
}

func (r *txRepo) SumPayments(ctx context.Context, estimateID int64) (decimal.Decimal, error) {
	var sum string
	if err := r.tx.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0)::text FROM estimate_payments WHERE estimate_id = $1`,
		estimateID).Scan(&sum); err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(sum)
}

func (r *txRepo) InsertPayment(ctx context.Context, p EstimatePayment) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx,
		`INSERT INTO estimate_payments (estimate_id, amount, payment_date, mode, notes, created_by_subuser_id)
		 VALUES ($1, $2::numeric, $3, $4, $5, $6)
		 RETURNING id`,
		p.EstimateID, p.Amount.String(), p.PaymentDate, string(p.Mode), p.Notes, p.CreatedBySubuserID,
	).Scan(&id)
	return id, err
}

func (r *txRepo) StampPaymentReceived(ctx context.Context, estimateID int64, date time.Time, mode PaymentMode) error {
	_, err := r.tx.Exec(ctx,
		`UPDATE estimates SET payment_received_date = $2, payment_received_mode = $3, updated_at = NOW()
		 WHERE id = $1`, estimateID, date, string(mode))
	return err
}

func (r *txRepo) AdjustStock(ctx context.Context, accountID, itemID int64, delta decimal.Decimal) error {
	return r.stock.AdjustQuantity(ctx, accountID, itemID, delta)
}
