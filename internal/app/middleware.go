package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/shopbook/shopbook/internal/platform/httpx"
	"github.com/shopbook/shopbook/internal/shared"
)

// MiddlewareConfig aggregates dependencies shared by the middleware stack.
type MiddlewareConfig struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
}

// MiddlewareStack returns the global middleware chain applied to every route.
func MiddlewareStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	secureMW := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		IsDevelopment:      !cfg.Config.IsProduction(),
	})

	return []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Timeout(cfg.Config.AppRequestTimeout),
		secureMW.Handler,
		httprate.LimitByIP(300, cfg.Config.LoginRateWindow),
		sessionMiddleware(cfg.SessionManager),
	}
}

// sessionMiddleware resolves the session cookie into an account context when
// present. Routes that require authentication enforce it with RequireAccount.
func sessionMiddleware(sm *shared.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, err := sm.Resolve(r.Context(), r)
			if err == nil && ac != nil {
				r = r.WithContext(shared.ContextWithAccount(r.Context(), ac))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAccount rejects requests without an authenticated account context.
func RequireAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if shared.AccountFromContext(r.Context()) == nil {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
