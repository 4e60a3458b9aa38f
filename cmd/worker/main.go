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

	"github.com/papyrus-commerce/papyrus-admin/internal/analytics"
	"github.com/papyrus-commerce/papyrus-admin/internal/app"
	"github.com/papyrus-commerce/papyrus-admin/internal/auth"
	"github.com/papyrus-commerce/papyrus-admin/internal/guard"
	"github.com/papyrus-commerce/papyrus-admin/jobs"
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

	analyticsRepo := analytics.NewRepository(pool)
	analyticsCache := analytics.NewCache(redisClient, cfg.AnalyticsCacheTTL)
	analyticsService := analytics.NewService(analyticsRepo, analyticsCache, analytics.ServiceConfig{
		LowStockThreshold: cfg.LowStockThreshold,
	})

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, nil)

	warm := func(ctx context.Context) error {
		_, err := analyticsService.Dashboard(ctx)
		return err
	}

	// Expired sessions take their mirror slots with them; a slot must
	// not outlive the session it describes.
	sweep := func(ctx context.Context) (int64, error) {
		ids, err := authService.SweepExpiredSessions(ctx)
		if err != nil {
			return 0, err
		}
		if err := guard.SweepMirrors(ctx, redisClient, ids); err != nil {
			logger.Warn("sweep mirror slots", slog.Any("error", err))
		}
		return int64(len(ids)), nil
	}

	warmupTask, err := jobs.NewAnalyticsWarmupTask(jobs.WarmupPayload{Reason: "scheduled"})
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}
	sweepTask := jobs.NewSessionsSweepTask()

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskAnalyticsWarmup, Handler: jobs.NewAnalyticsWarmupHandler(warm, logger)},
			{Type: jobs.TaskSessionsSweep, Handler: jobs.NewSessionsSweepHandler(sweep, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "*/15 * * * *", Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "45 2 * * *", Task: sweepTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
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
