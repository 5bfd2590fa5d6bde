package accounts

import (
	"errors"
	"time"
)

// Account is an owning tenant. Every domain record in the system is scoped to
// exactly one account.
type Account struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	ShopName     string    `json:"shopName"`
	PasswordHash string    `json:"-"`
	Admin        bool      `json:"admin,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Subuser is a restricted named login under one account. Subusers can work
// the ledgers but cannot manage account-level settings or other subusers.
type Subuser struct {
	ID           int64     `json:"id"`
	AccountID    int64     `json:"-"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"createdAt"`
}

var (
	// ErrEmailTaken indicates another account already uses the email.
	ErrEmailTaken = errors.New("accounts: email already registered")
	// ErrUsernameTaken indicates the subuser name is already used under the account.
	ErrUsernameTaken = errors.New("accounts: username already in use")
	// ErrSubuserInactive rejects logins from deactivated subusers.
	ErrSubuserInactive = errors.New("accounts: subuser deactivated")
	// ErrSubuserForbidden rejects subusers from account management endpoints.
	ErrSubuserForbidden = errors.New("accounts: operation requires the owner login")
)
