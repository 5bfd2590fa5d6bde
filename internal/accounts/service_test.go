package accounts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shopbook/shopbook/internal/shared"
)

type memoryRepo struct {
	accounts    map[int64]Account
	subusers    map[int64]Subuser
	nextAccount int64
	nextSubuser int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		accounts: make(map[int64]Account),
		subusers: make(map[int64]Subuser),
	}
}

func (r *memoryRepo) CreateAccount(ctx context.Context, a Account) (Account, error) {
	for _, existing := range r.accounts {
		if existing.Email == a.Email {
			return Account{}, ErrEmailTaken
		}
	}
	r.nextAccount++
	a.ID = r.nextAccount
	r.accounts[a.ID] = a
	return a, nil
}

func (r *memoryRepo) AccountByEmail(ctx context.Context, email string) (Account, error) {
	for _, a := range r.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return Account{}, shared.ErrNotFound
}

func (r *memoryRepo) CreateSubuser(ctx context.Context, s Subuser) (Subuser, error) {
	for _, existing := range r.subusers {
		if existing.AccountID == s.AccountID && existing.Username == s.Username {
			return Subuser{}, ErrUsernameTaken
		}
	}
	r.nextSubuser++
	s.ID = r.nextSubuser
	s.Active = true
	r.subusers[s.ID] = s
	return s, nil
}

func (r *memoryRepo) SubuserByUsername(ctx context.Context, accountID int64, username string) (Subuser, error) {
	for _, s := range r.subusers {
		if s.AccountID == accountID && s.Username == username {
			return s, nil
		}
	}
	return Subuser{}, shared.ErrNotFound
}

func (r *memoryRepo) ListSubusers(ctx context.Context, accountID int64) ([]Subuser, error) {
	var out []Subuser
	for _, s := range r.subusers {
		if s.AccountID == accountID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memoryRepo) SetSubuserActive(ctx context.Context, accountID, subuserID int64, active bool) error {
	s, ok := r.subusers[subuserID]
	if !ok || s.AccountID != accountID {
		return shared.ErrNotFound
	}
	s.Active = active
	r.subusers[subuserID] = s
	return nil
}

func TestRegisterAndLogin(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	account, err := svc.Register(ctx, RegisterRequest{
		Email: "Owner@Shop.example", ShopName: "Asha Stores", Password: "s3cret-pass",
	})
	require.NoError(t, err)
	require.Equal(t, "owner@shop.example", account.Email)

	ac, err := svc.Login(ctx, LoginRequest{Email: "owner@shop.example", Password: "s3cret-pass"})
	require.NoError(t, err)
	require.Equal(t, account.ID, ac.AccountID)
	require.Nil(t, ac.SubuserID)

	_, err = svc.Login(ctx, LoginRequest{Email: "owner@shop.example", Password: "wrong"})
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	// unknown email is indistinguishable from a bad password
	_, err = svc.Login(ctx, LoginRequest{Email: "nobody@shop.example", Password: "s3cret-pass"})
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestSubuserLifecycle(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	account, err := svc.Register(ctx, RegisterRequest{
		Email: "owner@shop.example", ShopName: "Asha Stores", Password: "s3cret-pass",
	})
	require.NoError(t, err)
	owner := shared.AccountContext{AccountID: account.ID}

	subuser, err := svc.CreateSubuser(ctx, owner, CreateSubuserRequest{
		Username: "counter-1", Password: "counter-pass",
	})
	require.NoError(t, err)

	username := "counter-1"
	ac, err := svc.Login(ctx, LoginRequest{
		Email: "owner@shop.example", Username: &username, Password: "counter-pass",
	})
	require.NoError(t, err)
	require.Equal(t, account.ID, ac.AccountID)
	require.NotNil(t, ac.SubuserID)
	require.Equal(t, subuser.ID, *ac.SubuserID)

	// subusers cannot manage subusers
	asSubuser := shared.AccountContext{AccountID: account.ID, SubuserID: &subuser.ID}
	_, err = svc.CreateSubuser(ctx, asSubuser, CreateSubuserRequest{
		Username: "counter-2", Password: "counter-pass",
	})
	require.ErrorIs(t, err, ErrSubuserForbidden)

	require.NoError(t, svc.DeactivateSubuser(ctx, owner, subuser.ID))
	_, err = svc.Login(ctx, LoginRequest{
		Email: "owner@shop.example", Username: &username, Password: "counter-pass",
	})
	require.ErrorIs(t, err, ErrSubuserInactive)
}

func TestDuplicateRegistrations(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{
		Email: "owner@shop.example", ShopName: "Asha Stores", Password: "s3cret-pass",
	})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterRequest{
		Email: "OWNER@shop.example", ShopName: "Other", Password: "s3cret-pass",
	})
	require.ErrorIs(t, err, ErrEmailTaken)
}
