package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/shopbook/shopbook/internal/app"
	"github.com/shopbook/shopbook/internal/billing"
	"github.com/shopbook/shopbook/internal/platform/cache"
	"github.com/shopbook/shopbook/internal/subscriptions"
	"github.com/shopbook/shopbook/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}

	subscriptionsRepo := subscriptions.NewRepository(pool)
	subscriptionsService := subscriptions.NewService(subscriptionsRepo, nil)
	expireJob := jobs.NewSubscriptionsExpireJob(subscriptionsService, logger)

	listCache := cache.NewCache(redisClient, cfg.ListCacheTTL)
	billingRepo := billing.NewRepository(pool)
	billingService := billing.NewService(billingRepo, nil, listCache)
	warmJob := jobs.NewBillingCacheWarmJob(pool, billingService, logger)

	warmTask, err := jobs.NewBillingCacheWarmTask(jobs.CacheWarmPayload{ActiveWithinDays: 7})
	if err != nil {
		logger.Error("build cache warm task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskSubscriptionsExpire, Handler: expireJob.Handle},
			{Type: jobs.TaskBillingCacheWarm, Handler: warmJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 1 * * *", Task: jobs.NewSubscriptionsExpireTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 5 * * *", Task: warmTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
