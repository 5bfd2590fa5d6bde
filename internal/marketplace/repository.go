package marketplace

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/shopbook/shopbook/internal/inventory"
	"github.com/shopbook/shopbook/internal/shared"
)

// Repository persists marketplace listings.
type Repository interface {
	Publish(ctx context.Context, l Listing) (Listing, error)
	Unpublish(ctx context.Context, sellerAccountID, listingID int64) error
	Search(ctx context.Context, query string, limit, offset int) ([]Listing, int, error)
	ListMine(ctx context.Context, sellerAccountID int64) ([]Listing, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const listingColumns = `id, seller_account_id, inventory_item_id, title, price::text, description, published_at`

func scanListing(row pgx.Row) (Listing, error) {
	var l Listing
	var price string
	err := row.Scan(&l.ID, &l.SellerAccountID, &l.InventoryItemID, &l.Title, &price, &l.Description, &l.PublishedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Listing{}, shared.ErrNotFound
		}
		return Listing{}, err
	}
	if l.Price, err = decimal.NewFromString(price); err != nil {
		return Listing{}, err
	}
	return l, nil
}

func (r *repository) Publish(ctx context.Context, l Listing) (Listing, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO marketplace_listings (seller_account_id, inventory_item_id, title, normalized_title, price, description)
		 VALUES ($1, $2, $3, $4, $5::numeric, $6)
		 RETURNING `+listingColumns,
		l.SellerAccountID, l.InventoryItemID, l.Title, inventory.NormalizeName(l.Title),
		l.Price.String(), l.Description)
	created, err := scanListing(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Listing{}, ErrAlreadyPublished
		}
		return Listing{}, err
	}
	return created, nil
}

func (r *repository) Unpublish(ctx context.Context, sellerAccountID, listingID int64) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM marketplace_listings WHERE id = $1 AND seller_account_id = $2`,
		listingID, sellerAccountID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Search spans all tenants. The query matches against the normalised title so
// "SUGAR  1kg" and "sugar 1kg" find the same listings.
func (r *repository) Search(ctx context.Context, query string, limit, offset int) ([]Listing, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	conditions := ""
	args := []interface{}{}
	if query != "" {
		conditions = "WHERE normalized_title LIKE '%' || $1 || '%'"
		args = append(args, inventory.NormalizeName(query))
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM marketplace_listings "+conditions, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limitPos := len(args) + 1
	args = append(args, limit, offset)
	rows, err := r.pool.Query(ctx,
		fmt.Sprintf("SELECT %s FROM marketplace_listings %s ORDER BY published_at DESC, id DESC LIMIT $%d OFFSET $%d",
			listingColumns, conditions, limitPos, limitPos+1),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var listings []Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, 0, err
		}
		listings = append(listings, l)
	}
	return listings, total, rows.Err()
}

func (r *repository) ListMine(ctx context.Context, sellerAccountID int64) ([]Listing, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+listingColumns+` FROM marketplace_listings
		 WHERE seller_account_id = $1 ORDER BY published_at DESC`, sellerAccountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}
