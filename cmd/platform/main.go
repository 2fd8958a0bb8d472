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
	"golang.org/x/sync/errgroup"

	"github.com/flutterbye/platform/internal/app"
	"github.com/flutterbye/platform/internal/auth"
	"github.com/flutterbye/platform/internal/authz"
	"github.com/flutterbye/platform/internal/features"
	"github.com/flutterbye/platform/internal/identity"
	"github.com/flutterbye/platform/internal/observability"
	"github.com/flutterbye/platform/internal/platform/cache"
	"github.com/flutterbye/platform/internal/platform/db"
	"github.com/flutterbye/platform/internal/realtime"
	"github.com/flutterbye/platform/jobs"
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
	if err := identityStore.Warm(ctx); err != nil {
		logger.Error("warm identity store", slog.Any("error", err))
		os.Exit(1)
	}

	navCache := features.NewNavCache(redisClient, cfg.NavCacheTTL)
	featureRepo := features.NewRepository(pool)
	registry := features.NewRegistry(featureRepo, logger, func() {
		navCache.Invalidate(context.Background())
	})
	if err := registry.Load(ctx); err != nil {
		logger.Error("load feature registry", slog.Any("error", err))
		os.Exit(1)
	}
	if err := registry.EnsureDefaults(ctx); err != nil {
		logger.Error("seed default features", slog.Any("error", err))
		os.Exit(1)
	}

	challenges := auth.NewChallengeStore(redisClient, cfg.ChallengeTTL)
	limiter := auth.NewAttemptLimiter(redisClient, cfg.AuthMaxAttempts, cfg.AuthAttemptWindow)
	verifier := auth.NewVerifier(challenges, limiter, identityStore, logger)
	tokens := auth.NewTokenCodec(cfg.SessionSecret, cfg.SessionTTL)
	resolver := auth.NewCredentialResolver(tokens, identityStore)
	authHandler := auth.NewHandler(logger, challenges, verifier, tokens, resolver)

	metrics := observability.NewMetrics()
	gate := authz.NewGate(identityStore, registry)
	guard := &authz.Middleware{
		Gate:     gate,
		Resolver: resolver,
		Logger:   logger,
		Metrics:  metrics,
	}

	hub := realtime.NewHub(logger, metrics)
	realtimeHandler := realtime.NewHandler(logger, hub, gate, resolver, metrics, cfg.WSSendBuffer)

	featureHandler := features.NewHandler(logger, registry, navCache)
	identityHandler := identity.NewHandler(logger, identityStore)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		AuthHandler:     authHandler,
		FeatureHandler:  featureHandler,
		IdentityHandler: identityHandler,
		RealtimeHandler: realtimeHandler,
		JobHandler:      jobHandler,
		Authz:           guard,
		Pool:            pool,
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(cfg.WSIdleTimeout / 2)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case now := <-ticker.C:
				hub.SweepIdle(now, cfg.WSIdleTimeout)
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}
