package shared

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionManager orchestrates opaque cookie sessions backed by Redis.
// The cookie carries only a random id; the account/subuser binding lives
// server-side so a stolen value cannot be tampered with.
type SessionManager struct {
	client     *redis.Client
	cookieName string
	ttl        time.Duration
	secure     bool
}

type sessionPayload struct {
	AccountID int64  `json:"account_id"`
	SubuserID *int64 `json:"subuser_id,omitempty"`
	Admin     bool   `json:"admin,omitempty"`
}

// NewSessionManager constructs a SessionManager.
func NewSessionManager(client *redis.Client, cookieName string, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{
		client:     client,
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
	}
}

// Create registers a new session and writes the cookie.
func (sm *SessionManager) Create(ctx context.Context, w http.ResponseWriter, ac AccountContext) (string, error) {
	id := uuid.NewString()
	payload, err := json.Marshal(sessionPayload{
		AccountID: ac.AccountID,
		SubuserID: ac.SubuserID,
		Admin:     ac.Admin,
	})
	if err != nil {
		return "", err
	}
	if err := sm.client.Set(ctx, sm.redisKey(id), payload, sm.ttl).Err(); err != nil {
		return "", fmt.Errorf("shared: store session: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(sm.ttl / time.Second),
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteStrictMode,
	})
	return id, nil
}

// Resolve maps the request cookie to an account context.
// Missing or expired sessions return ErrSessionExpired.
func (sm *SessionManager) Resolve(ctx context.Context, r *http.Request) (*AccountContext, error) {
	cookie, err := r.Cookie(sm.cookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return nil, ErrSessionExpired
		}
		return nil, err
	}

	payload, err := sm.client.Get(ctx, sm.redisKey(cookie.Value)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionExpired
		}
		return nil, err
	}

	var stored sessionPayload
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, err
	}
	return &AccountContext{
		AccountID: stored.AccountID,
		SubuserID: stored.SubuserID,
		Admin:     stored.Admin,
	}, nil
}

// Destroy removes the session and clears the cookie.
func (sm *SessionManager) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	cookie, err := r.Cookie(sm.cookieName)
	if err == nil {
		if err := sm.client.Del(ctx, sm.redisKey(cookie.Value)).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteStrictMode,
	})
	return nil
}

// Touch extends the TTL of an active session.
func (sm *SessionManager) Touch(ctx context.Context, id string) error {
	return sm.client.Expire(ctx, sm.redisKey(id), sm.ttl).Err()
}

func (sm *SessionManager) redisKey(id string) string {
	return "shopbook:session:" + id
}
