package inventory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopbook/shopbook/internal/shared"
)

// ErrDuplicateName indicates another item already uses the name.
var ErrDuplicateName = errors.New("inventory: item name already in use")

// Repository persists the account's stock register.
type Repository interface {
	List(ctx context.Context, accountID int64, limit, offset int) ([]Item, int, error)
	Get(ctx context.Context, accountID, itemID int64) (Item, error)
	FindByName(ctx context.Context, accountID int64, name string) (Item, error)
	Create(ctx context.Context, item Item) (Item, error)
	Update(ctx context.Context, item Item) (Item, error)
	Delete(ctx context.Context, accountID, itemID int64) error
}

type repository struct {
	pool  *pgxpool.Pool
	store *Store
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool, store: NewStore(pool)}
}

func (r *repository) List(ctx context.Context, accountID int64, limit, offset int) ([]Item, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM inventory_items WHERE owner_account_id = $1`, accountID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+itemColumns+` FROM inventory_items
		 WHERE owner_account_id = $1
		 ORDER BY name ASC
		 LIMIT $2 OFFSET $3`,
		accountID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	return items, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, accountID, itemID int64) (Item, error) {
	return r.store.Get(ctx, accountID, itemID)
}

func (r *repository) FindByName(ctx context.Context, accountID int64, name string) (Item, error) {
	return r.store.FindByName(ctx, accountID, name)
}

func (r *repository) Create(ctx context.Context, item Item) (Item, error) {
	created, err := r.store.insert(ctx, item)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Item{}, ErrDuplicateName
		}
		return Item{}, err
	}
	return created, nil
}

func (r *repository) Update(ctx context.Context, item Item) (Item, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE inventory_items
		 SET name = $3, normalized_name = $4, quantity = $5::numeric,
		     purchase_value = $6::numeric, sales_value = $7::numeric, updated_at = NOW()
		 WHERE id = $1 AND owner_account_id = $2
		 RETURNING `+itemColumns,
		item.ID, item.OwnerAccountID, item.Name, NormalizeName(item.Name),
		item.Quantity.String(), item.PurchaseValue.String(), item.SalesValue.String())
	updated, err := scanItem(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Item{}, ErrDuplicateName
		}
		return Item{}, err
	}
	return updated, nil
}

func (r *repository) Delete(ctx context.Context, accountID, itemID int64) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM inventory_items WHERE id = $1 AND owner_account_id = $2`,
		itemID, accountID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
