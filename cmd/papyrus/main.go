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

	"github.com/papyrus-commerce/papyrus-admin/internal/analytics"
	"github.com/papyrus-commerce/papyrus-admin/internal/app"
	"github.com/papyrus-commerce/papyrus-admin/internal/auth"
	"github.com/papyrus-commerce/papyrus-admin/internal/catalog"
	"github.com/papyrus-commerce/papyrus-admin/internal/guard"
	"github.com/papyrus-commerce/papyrus-admin/internal/orders"
	"github.com/papyrus-commerce/papyrus-admin/internal/shared"
	"github.com/papyrus-commerce/papyrus-admin/internal/users"
	"github.com/papyrus-commerce/papyrus-admin/internal/view"
	"github.com/papyrus-commerce/papyrus-admin/jobs"
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

	sessionManager := shared.NewSessionManager(redisClient, "papyrus_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	events := auth.NewEvents(redisClient, logger)
	events.Listen(ctx)
	defer events.Close()

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo, events)
	authHandler := auth.NewHandler(logger, authService, templates, sessionManager, csrfManager, cfg.AdminRole)

	auditLogger := shared.NewAuditLogger(dbpool)

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo, auditLogger)
	usersHandler := users.NewHandler(logger, usersService, templates, csrfManager)
	oracle := users.NewOracle(usersRepo)

	analyticsRepo := analytics.NewRepository(dbpool)
	analyticsCache := analytics.NewCache(redisClient, cfg.AnalyticsCacheTTL)
	analyticsService := analytics.NewService(analyticsRepo, analyticsCache, analytics.ServiceConfig{
		LowStockThreshold: cfg.LowStockThreshold,
	})
	analyticsHandler := analytics.NewHandler(logger, analyticsService, templates, csrfManager)
	if err := analyticsCache.ListenForInvalidation(ctx, ""); err != nil {
		logger.Warn("cache invalidation listener", slog.Any("error", err))
	}
	invalidate := func() {
		if err := analyticsService.Invalidate(context.Background()); err != nil {
			logger.Warn("invalidate dashboard cache", slog.Any("error", err))
		}
	}

	catalogRepo := catalog.NewRepository(dbpool)
	catalogService := catalog.NewService(catalogRepo, auditLogger, catalog.ServiceConfig{
		LowStockThreshold: cfg.LowStockThreshold,
	})
	catalogHandler := catalog.NewHandler(logger, catalogService, templates, csrfManager, invalidate)

	ordersRepo := orders.NewRepository(dbpool)
	ordersService := orders.NewService(ordersRepo, auditLogger)
	ordersHandler := orders.NewHandler(logger, ordersService, templates, csrfManager, invalidate)

	// One evaluator per session so pending sign-out timers and in-flight
	// verifications survive across requests.
	registry := guard.NewRegistry(func(sessionID string) *guard.Evaluator {
		return guard.New(guard.Config{
			Identity:     auth.NewIdentity(sessionID, authService, events, sessionManager),
			Oracle:       oracle,
			Mirror:       guard.NewRedisMirror(redisClient, sessionID, cfg.SessionTTL),
			Logger:       logger,
			RequiredRole: cfg.AdminRole,
			SignOutDelay: cfg.SignOutDelay,
			LoginRoute:   "/auth/login",
		})
	})
	defer registry.Close()
	unsubscribe := events.Subscribe(func(ev auth.Event) {
		if ev.Type == auth.EventSignOut {
			registry.Drop(ev.SessionID)
		}
	})
	defer unsubscribe()

	guardMiddleware := &guard.Middleware{
		Logger:     logger,
		Templates:  templates,
		Registry:   registry,
		LoginRoute: "/auth/login",
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Templates:        templates,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		AuthHandler:      authHandler,
		CatalogHandler:   catalogHandler,
		OrdersHandler:    ordersHandler,
		UsersHandler:     usersHandler,
		AnalyticsHandler: analyticsHandler,
		JobHandler:       jobHandler,
		Guard:            guardMiddleware,
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
