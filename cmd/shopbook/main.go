package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/shopbook/shopbook/internal/accounts"
	"github.com/shopbook/shopbook/internal/app"
	"github.com/shopbook/shopbook/internal/billing"
	"github.com/shopbook/shopbook/internal/inventory"
	"github.com/shopbook/shopbook/internal/marketplace"
	"github.com/shopbook/shopbook/internal/platform/cache"
	"github.com/shopbook/shopbook/internal/purchases"
	"github.com/shopbook/shopbook/internal/shared"
	"github.com/shopbook/shopbook/internal/subscriptions"
	"github.com/shopbook/shopbook/internal/suppliers"
	"github.com/shopbook/shopbook/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "shopbook_session", cfg.SessionTTL, cfg.IsProduction())
	auditLogger := shared.NewAuditLogger(dbpool)
	listCache := cache.NewCache(redisClient, cfg.ListCacheTTL)

	accountsRepo := accounts.NewRepository(dbpool)
	accountsService := accounts.NewService(accountsRepo, auditLogger)
	accountsHandler := accounts.NewHandler(logger, accountsService, sessionManager)

	inventoryRepo := inventory.NewRepository(dbpool)
	inventoryService := inventory.NewService(inventoryRepo, auditLogger)
	inventoryHandler := inventory.NewHandler(logger, inventoryService)

	billingRepo := billing.NewRepository(dbpool)
	billingService := billing.NewService(billingRepo, auditLogger, listCache)
	billingHandler := billing.NewHandler(logger, billingService)

	suppliersRepo := suppliers.NewRepository(dbpool)
	suppliersService := suppliers.NewService(suppliersRepo, auditLogger)
	suppliersHandler := suppliers.NewHandler(logger, suppliersService)

	purchasesRepo := purchases.NewRepository(dbpool)
	purchasesService := purchases.NewService(purchasesRepo, auditLogger)
	purchasesHandler := purchases.NewHandler(logger, purchasesService)

	marketplaceRepo := marketplace.NewRepository(dbpool)
	marketplaceService := marketplace.NewService(marketplaceRepo, inventoryRepo, auditLogger)
	marketplaceHandler := marketplace.NewHandler(logger, marketplaceService)

	subscriptionsRepo := subscriptions.NewRepository(dbpool)
	subscriptionsService := subscriptions.NewService(subscriptionsRepo, auditLogger)
	subscriptionsHandler := subscriptions.NewHandler(logger, subscriptionsService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, jobsClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,

		AccountsHandler:      accountsHandler,
		BillingHandler:       billingHandler,
		InventoryHandler:     inventoryHandler,
		SuppliersHandler:     suppliersHandler,
		PurchasesHandler:     purchasesHandler,
		MarketplaceHandler:   marketplaceHandler,
		SubscriptionsHandler: subscriptionsHandler,
		JobsHandler:          jobsHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
