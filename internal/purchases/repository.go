package purchases

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/shopbook/shopbook/internal/inventory"
	"github.com/shopbook/shopbook/internal/platform/db"
	"github.com/shopbook/shopbook/internal/shared"
)

// TxRepository exposes the operations a purchase transaction needs. Stock
// merges run in the same transaction as the document writes.
type TxRepository interface {
	InsertPurchase(ctx context.Context, p Purchase) (int64, error)
	UpdatePurchase(ctx context.Context, p Purchase) error
	DeletePurchase(ctx context.Context, accountID, purchaseID int64) error
	GetForUpdate(ctx context.Context, accountID, purchaseID int64) (Purchase, error)
	InsertItems(ctx context.Context, purchaseID int64, items []PurchaseItem) error
	DeleteItems(ctx context.Context, purchaseID int64) error
	MergeStock(ctx context.Context, accountID int64, name string, qty, unitPrice decimal.Decimal) (inventory.Item, error)
	SupplierExists(ctx context.Context, accountID, supplierID int64) (bool, error)
}

// Repository persists purchases in PostgreSQL.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, accountID, purchaseID int64) (*Purchase, error)
	List(ctx context.Context, accountID int64, status *string, limit, offset int) ([]Purchase, int, error)
	SetStatus(ctx context.Context, accountID, purchaseID int64, status PaymentStatus) error
	SaveAttachment(ctx context.Context, accountID int64, att BillAttachment) error
	GetAttachment(ctx context.Context, accountID, purchaseID int64) (BillAttachment, error)
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

const purchaseColumns = `id, owner_account_id, supplier_id, created_by_subuser_id, purchase_date,
	subtotal::text, discount_percentage::text, discount_amount::text,
	tax_percentage::text, tax_amount::text, total_amount::text,
	payment_status, attachment_key, notes, created_at, updated_at`

func scanPurchase(row pgx.Row) (Purchase, error) {
	var p Purchase
	var subtotal, discountPct, discountAmt, taxPct, taxAmt, total string
	err := row.Scan(
		&p.ID, &p.OwnerAccountID, &p.SupplierID, &p.CreatedBySubuserID, &p.PurchaseDate,
		&subtotal, &discountPct, &discountAmt, &taxPct, &taxAmt, &total,
		&p.PaymentStatus, &p.AttachmentKey, &p.Notes, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Purchase{}, shared.ErrNotFound
		}
		return Purchase{}, err
	}
	fields := []struct {
		dst *decimal.Decimal
		src string
	}{
		{&p.Subtotal, subtotal}, {&p.DiscountPercentage, discountPct}, {&p.DiscountAmount, discountAmt},
		{&p.TaxPercentage, taxPct}, {&p.TaxAmount, taxAmt}, {&p.TotalAmount, total},
	}
	for _, f := range fields {
		d, err := decimal.NewFromString(f.src)
		if err != nil {
			return Purchase{}, err
		}
		*f.dst = d
	}
	return p, nil
}

func loadItems(ctx context.Context, q inventory.DBTX, purchaseID int64) ([]PurchaseItem, error) {
	rows, err := q.Query(ctx,
		`SELECT id, purchase_id, description, quantity::text, unit_price::text, amount::text, add_to_inventory
		 FROM purchase_items WHERE purchase_id = $1 ORDER BY id`, purchaseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []PurchaseItem
	for rows.Next() {
		var it PurchaseItem
		var qty, price, amount string
		if err := rows.Scan(&it.ID, &it.PurchaseID, &it.Description, &qty, &price, &amount, &it.AddToInventory); err != nil {
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

func (r *repository) Get(ctx context.Context, accountID, purchaseID int64) (*Purchase, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+purchaseColumns+` FROM purchases WHERE id = $1 AND owner_account_id = $2`,
		purchaseID, accountID)
	p, err := scanPurchase(row)
	if err != nil {
		return nil, err
	}
	if p.Items, err = loadItems(ctx, r.pool, p.ID); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) List(ctx context.Context, accountID int64, status *string, limit, offset int) ([]Purchase, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	conditions := "WHERE owner_account_id = $1"
	args := []interface{}{accountID}
	argPos := 2
	if status != nil {
		conditions += fmt.Sprintf(" AND payment_status = $%d", argPos)
		args = append(args, *status)
		argPos++
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM purchases "+conditions, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.pool.Query(ctx,
		fmt.Sprintf("SELECT %s FROM purchases %s ORDER BY purchase_date DESC, id DESC LIMIT $%d OFFSET $%d",
			purchaseColumns, conditions, argPos, argPos+1),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var purchases []Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, 0, err
		}
		purchases = append(purchases, p)
	}
	return purchases, total, rows.Err()
}

func (r *repository) SetStatus(ctx context.Context, accountID, purchaseID int64, status PaymentStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE purchases SET payment_status = $3, updated_at = NOW()
		 WHERE id = $1 AND owner_account_id = $2`,
		purchaseID, accountID, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) SaveAttachment(ctx context.Context, accountID int64, att BillAttachment) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE purchases SET attachment_key = $3, updated_at = NOW()
			 WHERE id = $1 AND owner_account_id = $2`,
			att.PurchaseID, accountID, att.Key)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO purchase_attachments (key, purchase_id, filename, content_type, data)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (purchase_id) DO UPDATE
			 SET key = EXCLUDED.key, filename = EXCLUDED.filename,
			     content_type = EXCLUDED.content_type, data = EXCLUDED.data, uploaded_at = NOW()`,
			att.Key, att.PurchaseID, att.Filename, att.ContentType, att.Data)
		return err
	})
}

func (r *repository) GetAttachment(ctx context.Context, accountID, purchaseID int64) (BillAttachment, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT a.key, a.purchase_id, a.filename, a.content_type, a.data, a.uploaded_at
		 FROM purchase_attachments a
		 JOIN purchases p ON p.id = a.purchase_id
		 WHERE a.purchase_id = $1 AND p.owner_account_id = $2`,
		purchaseID, accountID)
	var att BillAttachment
	err := row.Scan(&att.Key, &att.PurchaseID, &att.Filename, &att.ContentType, &att.Data, &att.UploadedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BillAttachment{}, shared.ErrNotFound
		}
		return BillAttachment{}, err
	}
	return att, nil
}

func (r *txRepo) InsertPurchase(ctx context.Context, p Purchase) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx,
		`INSERT INTO purchases (owner_account_id, supplier_id, created_by_subuser_id, purchase_date,
		     subtotal, discount_percentage, discount_amount, tax_percentage, tax_amount, total_amount,
		     payment_status, notes)
		 VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7::numeric, $8::numeric, $9::numeric, $10::numeric, $11, $12)
		 RETURNING id`,
		p.OwnerAccountID, p.SupplierID, p.CreatedBySubuserID, p.PurchaseDate,
		p.Subtotal.String(), p.DiscountPercentage.String(), p.DiscountAmount.String(),
		p.TaxPercentage.String(), p.TaxAmount.String(), p.TotalAmount.String(),
		string(p.PaymentStatus), p.Notes,
	).Scan(&id)
	return id, err
}

func (r *txRepo) UpdatePurchase(ctx context.Context, p Purchase) error {
	tag, err := r.tx.Exec(ctx,
		`UPDATE purchases SET supplier_id = $3, purchase_date = $4,
		     subtotal = $5::numeric, discount_percentage = $6::numeric, discount_amount = $7::numeric,
		     tax_percentage = $8::numeric, tax_amount = $9::numeric, total_amount = $10::numeric,
		     payment_status = $11, notes = $12, updated_at = NOW()
		 WHERE id = $1 AND owner_account_id = $2`,
		p.ID, p.OwnerAccountID, p.SupplierID, p.PurchaseDate,
		p.Subtotal.String(), p.DiscountPercentage.String(), p.DiscountAmount.String(),
		p.TaxPercentage.String(), p.TaxAmount.String(), p.TotalAmount.String(),
		string(p.PaymentStatus), p.Notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *txRepo) DeletePurchase(ctx context.Context, accountID, purchaseID int64) error {
	tag, err := r.tx.Exec(ctx,
		`DELETE FROM purchases WHERE id = $1 AND owner_account_id = $2`, purchaseID, accountID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *txRepo) GetForUpdate(ctx context.Context, accountID, purchaseID int64) (Purchase, error) {
	row := r.tx.QueryRow(ctx,
		`SELECT `+purchaseColumns+` FROM purchases WHERE id = $1 AND owner_account_id = $2 FOR UPDATE`,
		purchaseID, accountID)
	p, err := scanPurchase(row)
	if err != nil {
		return Purchase{}, err
	}
	if p.Items, err = loadItems(ctx, r.tx, p.ID); err != nil {
		return Purchase{}, err
	}
	return p, nil
}

func (r *txRepo) InsertItems(ctx context.Context, purchaseID int64, items []PurchaseItem) error {
	for _, item := range items {
		_, err := r.tx.Exec(ctx,
			`INSERT INTO purchase_items (purchase_id, description, quantity, unit_price, amount, add_to_inventory)
			 VALUES ($1, $2, $3::numeric, $4::numeric, $5::numeric, $6)`,
			purchaseID, item.Description, item.Quantity.String(), item.UnitPrice.String(),
			item.Amount.String(), item.AddToInventory)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepo) DeleteItems(ctx context.Context, purchaseID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM purchase_items WHERE purchase_id = $1`, purchaseID)
	return err
}

func (r *txRepo) MergeStock(ctx context.Context, accountID int64, name string, qty, unitPrice decimal.Decimal) (inventory.Item, error) {
	return r.stock.MergeStock(ctx, accountID, name, qty, unitPrice)
}

func (r *txRepo) SupplierExists(ctx context.Context, accountID, supplierID int64) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM suppliers WHERE id = $1 AND owner_account_id = $2)`,
		supplierID, accountID).Scan(&exists)
	return exists, err
}
