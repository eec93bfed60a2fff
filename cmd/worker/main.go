package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/meridian-erp/meridian/internal/app"
	"github.com/meridian-erp/meridian/internal/outbox"
	"github.com/meridian-erp/meridian/internal/platform/db"
	"github.com/meridian-erp/meridian/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
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

	outboxRepo := outbox.NewRepository(pool)
	transport := outbox.NewRedisStreamTransport(redisClient, 0)
	routes := outbox.Routes{
		outbox.ChannelJournalEvents:   cfg.JournalEventsStream,
		outbox.ChannelPeriodEvents:    cfg.PeriodEventsStream,
		outbox.ChannelDimensionEvents: cfg.DimensionEventsStream,
	}
	dispatcher, err := outbox.NewDispatcher(pool, outboxRepo, routes, transport, outbox.DispatcherConfig{
		BatchSize:   cfg.OutboxBatchSize,
		MaxAttempts: cfg.OutboxMaxAttempts,
	}, outbox.NewMetrics(prometheus.NewRegistry()), logger)
	if err != nil {
		logger.Error("init outbox dispatcher", slog.Any("error", err))
		os.Exit(1)
	}

	drainJob := jobs.NewOutboxDrainJob(dispatcher, logger)
	cleanupJob := jobs.NewOutboxCleanupJob(outboxRepo, cfg.OutboxRetention, logger)
	integrityJob := jobs.NewGLIntegrityJob(pool, logger)

	cleanupTask, err := jobs.NewOutboxCleanupTask(int(cfg.OutboxRetention.Hours()))
	if err != nil {
		logger.Error("build cleanup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskOutboxDrain, Handler: drainJob.Handle},
			{Type: jobs.TaskOutboxCleanup, Handler: cleanupJob.Handle},
			{Type: jobs.TaskGLIntegrity, Handler: integrityJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "@every " + cfg.OutboxDrainInterval.String(), Task: jobs.NewOutboxDrainTask()},
			{Spec: "0 3 * * *", Task: cleanupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 2 * * *", Task: jobs.NewGLIntegrityTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
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
