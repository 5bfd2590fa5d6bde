package suppliers

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopbook/shopbook/internal/shared"
)

// Repository persists suppliers.
type Repository interface {
	List(ctx context.Context, accountID int64, limit, offset int) ([]Supplier, int, error)
	Get(ctx context.Context, accountID, supplierID int64) (Supplier, error)
	Create(ctx context.Context, s Supplier) (Supplier, error)
	Update(ctx context.Context, s Supplier) (Supplier, error)
	Delete(ctx context.Context, accountID, supplierID int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const supplierColumns = `id, owner_account_id, name, contact, address, notes, created_at, updated_at`

func scanSupplier(row pgx.Row) (Supplier, error) {
	var s Supplier
	err := row.Scan(&s.ID, &s.OwnerAccountID, &s.Name, &s.Contact, &s.Address, &s.Notes, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Supplier{}, shared.ErrNotFound
		}
		return Supplier{}, err
	}
	return s, nil
}

func (r *repository) List(ctx context.Context, accountID int64, limit, offset int) ([]Supplier, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM suppliers WHERE owner_account_id = $1`, accountID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+supplierColumns+` FROM suppliers
		 WHERE owner_account_id = $1
		 ORDER BY name ASC
		 LIMIT $2 OFFSET $3`,
		accountID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Supplier
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, accountID, supplierID int64) (Supplier, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+supplierColumns+` FROM suppliers WHERE id = $1 AND owner_account_id = $2`,
		supplierID, accountID)
	return scanSupplier(row)
}

func (r *repository) Create(ctx context.Context, s Supplier) (Supplier, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO suppliers (owner_account_id, name, contact, address, notes)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+supplierColumns,
		s.OwnerAccountID, s.Name, s.Contact, s.Address, s.Notes)
	return scanSupplier(row)
}

func (r *repository) Update(ctx context.Context, s Supplier) (Supplier, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE suppliers SET name = $3, contact = $4, address = $5, notes = $6, updated_at = NOW()
		 WHERE id = $1 AND owner_account_id = $2
		 RETURNING `+supplierColumns,
		s.ID, s.OwnerAccountID, s.Name, s.Contact, s.Address, s.Notes)
	return scanSupplier(row)
}

func (r *repository) Delete(ctx context.Context, accountID, supplierID int64) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM suppliers WHERE id = $1 AND owner_account_id = $2`,
		supplierID, accountID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
