package accounts

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/shopbook/shopbook/internal/platform/httpx"
	"github.com/shopbook/shopbook/internal/shared"
)

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles registration, authentication and subuser management.
type Service struct {
	repo  Repository
	audit AuditPort
}

// NewService builds Service.
func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// Register creates an owner account.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (Account, error) {
	if err := validate.Struct(req); err != nil {
		return Account{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return Account{}, err
	}

	account, err := s.repo.CreateAccount(ctx, Account{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		ShopName:     strings.TrimSpace(req.ShopName),
		PasswordHash: string(hash),
	})
	if err != nil {
		return Account{}, err
	}
	s.recordAudit(ctx, account.ID, nil, "accounts.register", account.ID)
	return account, nil
}

// Login authenticates the owner, or a subuser when a username is supplied.
// Bad email, bad username and bad password all collapse into the same error
// so the response never reveals which part was wrong.
func (s *Service) Login(ctx context.Context, req LoginRequest) (shared.AccountContext, error) {
	if err := validate.Struct(req); err != nil {
		return shared.AccountContext{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}

	account, err := s.repo.AccountByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.AccountContext{}, shared.ErrInvalidCredentials
		}
		return shared.AccountContext{}, err
	}

	if req.Username == nil {
		if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)) != nil {
			return shared.AccountContext{}, shared.ErrInvalidCredentials
		}
		ac := shared.AccountContext{AccountID: account.ID, Admin: account.Admin}
		s.recordAudit(ctx, account.ID, nil, "accounts.login", account.ID)
		return ac, nil
	}

	subuser, err := s.repo.SubuserByUsername(ctx, account.ID, strings.TrimSpace(*req.Username))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.AccountContext{}, shared.ErrInvalidCredentials
		}
		return shared.AccountContext{}, err
	}
	if !subuser.Active {
		return shared.AccountContext{}, ErrSubuserInactive
	}
	if bcrypt.CompareHashAndPassword([]byte(subuser.PasswordHash), []byte(req.Password)) != nil {
		return shared.AccountContext{}, shared.ErrInvalidCredentials
	}

	ac := shared.AccountContext{AccountID: account.ID, SubuserID: &subuser.ID}
	s.recordAudit(ctx, account.ID, &subuser.ID, "accounts.login", subuser.ID)
	return ac, nil
}

// CreateSubuser adds a named login under the owner's account. Subusers cannot
// manage other subusers.
func (s *Service) CreateSubuser(ctx context.Context, ac shared.AccountContext, req CreateSubuserRequest) (Subuser, error) {
	if ac.SubuserID != nil {
		return Subuser{}, ErrSubuserForbidden
	}
	if err := validate.Struct(req); err != nil {
		return Subuser{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return Subuser{}, err
	}

	subuser, err := s.repo.CreateSubuser(ctx, Subuser{
		AccountID:    ac.AccountID,
		Username:     strings.TrimSpace(req.Username),
		PasswordHash: string(hash),
	})
	if err != nil {
		return Subuser{}, err
	}
	s.recordAudit(ctx, ac.AccountID, nil, "accounts.subuser_create", subuser.ID)
	return subuser, nil
}

// ListSubusers returns the account's subusers.
func (s *Service) ListSubusers(ctx context.Context, ac shared.AccountContext) ([]Subuser, error) {
	if ac.SubuserID != nil {
		return nil, ErrSubuserForbidden
	}
	return s.repo.ListSubusers(ctx, ac.AccountID)
}

// DeactivateSubuser revokes a subuser's ability to log in. Existing sessions
// expire on their own TTL.
func (s *Service) DeactivateSubuser(ctx context.Context, ac shared.AccountContext, subuserID int64) error {
	if ac.SubuserID != nil {
		return ErrSubuserForbidden
	}
	if err := s.repo.SetSubuserActive(ctx, ac.AccountID, subuserID, false); err != nil {
		return err
	}
	s.recordAudit(ctx, ac.AccountID, nil, "accounts.subuser_deactivate", subuserID)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, accountID int64, subuserID *int64, action string, entityID int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		AccountID: accountID,
		SubuserID: subuserID,
		Action:    action,
		Entity:    "account",
		EntityID:  strconv.FormatInt(entityID, 10),
	})
}
