package inventory

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/shopbook/shopbook/internal/shared"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, so Store operations can
// join a caller's transaction. Billing and purchase reconciliation run their
// stock adjustments through a Store bound to their own tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Store executes stock movements against a pool or transaction.
type Store struct {
	db DBTX
}

// NewStore binds a Store to the given executor.
func NewStore(db DBTX) *Store {
	return &Store{db: db}
}

var nameFolder = cases.Lower(language.Und)

// NormalizeName canonicalises an item name for the per-account uniqueness and
// purchase-merge matching rules.
func NormalizeName(name string) string {
	return nameFolder.String(strings.Join(strings.Fields(name), " "))
}

const itemColumns = `id, owner_account_id, name, quantity::text, purchase_value::text, sales_value::text, created_at, updated_at`

func scanItem(row pgx.Row) (Item, error) {
	var it Item
	var qty, purchase, sales string
	err := row.Scan(&it.ID, &it.OwnerAccountID, &it.Name, &qty, &purchase, &sales, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, shared.ErrNotFound
		}
		return Item{}, err
	}
	if it.Quantity, err = decimal.NewFromString(qty); err != nil {
		return Item{}, err
	}
	if it.PurchaseValue, err = decimal.NewFromString(purchase); err != nil {
		return Item{}, err
	}
	if it.SalesValue, err = decimal.NewFromString(sales); err != nil {
		return Item{}, err
	}
	return it, nil
}

// Get returns the item scoped to the owning account.
func (s *Store) Get(ctx context.Context, accountID, itemID int64) (Item, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+itemColumns+` FROM inventory_items WHERE id = $1 AND owner_account_id = $2`,
		itemID, accountID)
	return scanItem(row)
}

// FindByName looks an item up by its normalised name.
func (s *Store) FindByName(ctx context.Context, accountID int64, name string) (Item, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+itemColumns+` FROM inventory_items WHERE owner_account_id = $1 AND normalized_name = $2`,
		accountID, NormalizeName(name))
	return scanItem(row)
}

// AdjustQuantity applies a signed delta as an atomic column expression; the
// guard in the WHERE clause is what keeps quantity non-negative under
// concurrent writers. A zero row count means either the item is missing or
// the decrement would overdraw the stock, distinguished by a follow-up read.
func (s *Store) AdjustQuantity(ctx context.Context, accountID, itemID int64, delta decimal.Decimal) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE inventory_items
		 SET quantity = quantity + $3::numeric, updated_at = NOW()
		 WHERE id = $1 AND owner_account_id = $2 AND quantity + $3::numeric >= 0`,
		itemID, accountID, delta.String())
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	item, err := s.Get(ctx, accountID, itemID)
	if err != nil {
		return err
	}
	return &InsufficientStockError{
		ItemName:  item.Name,
		Available: item.Quantity,
		Required:  delta.Neg(),
	}
}

// MergeStock applies the purchase merge rule: an existing item absorbs the
// incoming lot at a weighted-average cost, otherwise a new item is created
// with cost equal to the lot's unit price.
//
//	newCost = (oldQty*oldCost + newQty*unitPrice) / (oldQty + newQty)
func (s *Store) MergeStock(ctx context.Context, accountID int64, name string, qty, unitPrice decimal.Decimal) (Item, error) {
	if qty.Sign() <= 0 {
		return Item{}, ErrInvalidQuantity
	}

	existing, err := s.FindByName(ctx, accountID, name)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return s.insert(ctx, Item{
				OwnerAccountID: accountID,
				Name:           strings.TrimSpace(name),
				Quantity:       qty,
				PurchaseValue:  unitPrice,
				SalesValue:     unitPrice,
			})
		}
		return Item{}, err
	}

	totalQty := existing.Quantity.Add(qty)
	weighted := WeightedAverageCost(existing.Quantity, existing.PurchaseValue, qty, unitPrice)

	_, err = s.db.Exec(ctx,
		`UPDATE inventory_items
		 SET quantity = $3::numeric, purchase_value = $4::numeric, updated_at = NOW()
		 WHERE id = $1 AND owner_account_id = $2`,
		existing.ID, accountID, totalQty.String(), weighted.String())
	if err != nil {
		return Item{}, err
	}
	existing.Quantity = totalQty
	existing.PurchaseValue = weighted
	return existing, nil
}

func (s *Store) insert(ctx context.Context, item Item) (Item, error) {
	row := s.db.QueryRow(ctx,
		`INSERT INTO inventory_items (owner_account_id, name, normalized_name, quantity, purchase_value, sales_value)
		 VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6::numeric)
		 RETURNING `+itemColumns,
		item.OwnerAccountID, item.Name, NormalizeName(item.Name),
		item.Quantity.String(), item.PurchaseValue.String(), item.SalesValue.String())
	return scanItem(row)
}
