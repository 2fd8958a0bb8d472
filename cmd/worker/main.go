package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/flutterbye/platform/internal/app"
	"github.com/flutterbye/platform/internal/features"
	"github.com/flutterbye/platform/internal/identity"
	"github.com/flutterbye/platform/internal/platform/cache"
	"github.com/flutterbye/platform/internal/platform/db"
	"github.com/flutterbye/platform/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	identityRepo := identity.NewRepository(pool)
	identityStore := identity.NewStore(identityRepo, logger)

	navCache := features.NewNavCache(redisClient, cfg.NavCacheTTL)
	featureRepo := features.NewRepository(pool)
	registry := features.NewRegistry(featureRepo, logger, func() {
		navCache.Invalidate(context.Background())
	})

	refreshJob := jobs.NewIdentityRefreshJob(identityStore, logger)
	reloadJob := jobs.NewFeatureReloadJob(registry, navCache, logger)
	warmJob := jobs.NewNavCacheWarmJob(registry, navCache, logger)

	refreshTask, err := jobs.NewIdentityRefreshTask("scheduled")
	if err != nil {
		logger.Error("build identity refresh task", slog.Any("error", err))
		os.Exit(1)
	}
	reloadTask, err := jobs.NewFeatureReloadTask("scheduled")
	if err != nil {
		logger.Error("build feature reload task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskIdentityRefresh, Handler: refreshJob.Handle},
			{Type: jobs.TaskFeatureReload, Handler: reloadJob.Handle},
			{Type: jobs.TaskNavCacheWarm, Handler: warmJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "*/10 * * * *", Task: refreshTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "*/5 * * * *", Task: reloadTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("build worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker", slog.String("redis", cfg.RedisAddr))
	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker exited", slog.Any("error", err))
		os.Exit(1)
	}
}
