package accounts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopbook/shopbook/internal/shared"
)

// Repository persists accounts and subusers.
type Repository interface {
	CreateAccount(ctx context.Context, a Account) (Account, error)
	AccountByEmail(ctx context.Context, email string) (Account, error)
	CreateSubuser(ctx context.Context, s Subuser) (Subuser, error)
	SubuserByUsername(ctx context.Context, accountID int64, username string) (Subuser, error)
	ListSubusers(ctx context.Context, accountID int64) ([]Subuser, error)
	SetSubuserActive(ctx context.Context, accountID, subuserID int64, active bool) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) CreateAccount(ctx context.Context, a Account) (Account, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO accounts (email, shop_name, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		a.Email, a.ShopName, a.PasswordHash,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Account{}, ErrEmailTaken
		}
		return Account{}, err
	}
	return a, nil
}

func (r *repository) AccountByEmail(ctx context.Context, email string) (Account, error) {
	var a Account
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, shop_name, password_hash, admin, created_at
		 FROM accounts WHERE email = $1`, email,
	).Scan(&a.ID, &a.Email, &a.ShopName, &a.PasswordHash, &a.Admin, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.ErrNotFound
		}
		return Account{}, err
	}
	return a, nil
}

func (r *repository) CreateSubuser(ctx context.Context, s Subuser) (Subuser, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO subusers (account_id, username, password_hash, active)
		 VALUES ($1, $2, $3, TRUE)
		 RETURNING id, active, created_at`,
		s.AccountID, s.Username, s.PasswordHash,
	).Scan(&s.ID, &s.Active, &s.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Subuser{}, ErrUsernameTaken
		}
		return Subuser{}, err
	}
	return s, nil
}

func (r *repository) SubuserByUsername(ctx context.Context, accountID int64, username string) (Subuser, error) {
	var s Subuser
	err := r.pool.QueryRow(ctx,
		`SELECT id, account_id, username, password_hash, active, created_at
		 FROM subusers WHERE account_id = $1 AND username = $2`,
		accountID, username,
	).Scan(&s.ID, &s.AccountID, &s.Username, &s.PasswordHash, &s.Active, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Subuser{}, shared.ErrNotFound
		}
		return Subuser{}, err
	}
	return s, nil
}

func (r *repository) ListSubusers(ctx context.Context, accountID int64) ([]Subuser, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, account_id, username, password_hash, active, created_at
		 FROM subusers WHERE account_id = $1 ORDER BY username`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Subuser
	for rows.Next() {
		var s Subuser
		if err := rows.Scan(&s.ID, &s.AccountID, &s.Username, &s.PasswordHash, &s.Active, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repository) SetSubuserActive(ctx context.Context, accountID, subuserID int64, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE subusers SET active = $3 WHERE id = $1 AND account_id = $2`,
		subuserID, accountID, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
