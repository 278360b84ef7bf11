package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/app"
	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/integration"
	jobmetrics "github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/jobs"
	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/platform/cache"
	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/platform/db"
	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/shared"
	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/jobs"
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

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	channel := integration.NewClient(integration.ClientConfig{
		BaseURL: cfg.ChannelBaseURL,
		APIKey:  cfg.ChannelAPIKey,
		Timeout: cfg.ChannelTimeout,
	}, logger, nil)

	replayer := jobs.NewReplayer(jobs.ReplayerConfig{
		Journal:     integration.NewJournal(pool),
		Channel:     channel,
		Idempotency: shared.NewIdempotencyStore(pool),
		Locker:      redisClient,
		Logger:      logger,
		Metrics:     jobmetrics.NewMetrics(nil),
		BatchSize:   cfg.ReplayBatchSize,
	})

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Replayer:  replayer,
		Cron: []jobs.CronRegistration{
			{Spec: "@every 1m", Task: jobs.NewChannelReplayTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
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
