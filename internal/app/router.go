package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/shopbook/shopbook/internal/accounts"
	"github.com/shopbook/shopbook/internal/billing"
	"github.com/shopbook/shopbook/internal/inventory"
	"github.com/shopbook/shopbook/internal/marketplace"
	"github.com/shopbook/shopbook/internal/purchases"
	"github.com/shopbook/shopbook/internal/shared"
	"github.com/shopbook/shopbook/internal/subscriptions"
	"github.com/shopbook/shopbook/internal/suppliers"
	"github.com/shopbook/shopbook/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager

	AccountsHandler      *accounts.Handler
	BillingHandler       *billing.Handler
	InventoryHandler     *inventory.Handler
	SuppliersHandler     *suppliers.Handler
	PurchasesHandler     *purchases.Handler
	MarketplaceHandler   *marketplace.Handler
	SubscriptionsHandler *subscriptions.Handler
	JobsHandler          *jobs.Handler
}

// NewRouter constructs the chi.Router with Shopbook defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			// Login endpoints take the brunt of credential stuffing; they get
			// a tighter per-IP budget than the global limiter.
			r.Use(httprate.LimitByIP(params.Config.LoginRateLimit, params.Config.LoginRateWindow))
			r.Route("/auth", params.AccountsHandler.MountAuthRoutes)
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireAccount)
			r.Route("/subusers", params.AccountsHandler.MountSubuserRoutes)
			r.Route("/estimates", params.BillingHandler.MountRoutes)
			r.Route("/inventory", params.InventoryHandler.MountRoutes)
			r.Route("/suppliers", params.SuppliersHandler.MountRoutes)
			r.Route("/purchases", params.PurchasesHandler.MountRoutes)
			r.Route("/marketplace", params.MarketplaceHandler.MountRoutes)
			r.Route("/subscription", params.SubscriptionsHandler.MountRoutes)
			r.Route("/jobs", params.JobsHandler.MountRoutes)
		})
	})

	return r
}
