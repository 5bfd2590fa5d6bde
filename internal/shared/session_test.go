package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *SessionManager {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "shopbook_session", time.Hour, false)
}

func TestSessionRoundTrip(t *testing.T) {
	sm := newTestManager(t)
	ctx := context.Background()

	sub := int64(7)
	rec := httptest.NewRecorder()
	_, err := sm.Create(ctx, rec, AccountContext{AccountID: 42, SubuserID: &sub})
	require.NoError(t, err)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])

	ac, err := sm.Resolve(ctx, req)
	require.NoError(t, err)
	require.Equal(t, int64(42), ac.AccountID)
	require.NotNil(t, ac.SubuserID)
	require.Equal(t, int64(7), *ac.SubuserID)
	require.False(t, ac.Admin)
}

func TestSessionMissingCookie(t *testing.T) {
	sm := newTestManager(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	_, err := sm.Resolve(context.Background(), req)
	require.ErrorIs(t, err, ErrSessionExpired)
}

func TestSessionDestroy(t *testing.T) {
	sm := newTestManager(t)
	ctx := context.Background()

	rec := httptest.NewRecorder()
	_, err := sm.Create(ctx, rec, AccountContext{AccountID: 1})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(rec.Result().Cookies()[0])

	rec2 := httptest.NewRecorder()
	require.NoError(t, sm.Destroy(ctx, rec2, req))

	_, err = sm.Resolve(ctx, req)
	require.ErrorIs(t, err, ErrSessionExpired)
}
