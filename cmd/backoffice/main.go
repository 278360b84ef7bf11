package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/app"
	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/delivery"
	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/integration"
	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/numbering"
	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/observability"
	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/orders"
	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/platform/db"
	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/purchasing"
	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/returns"
	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/shared"
)

func main() {
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

	metrics := observability.NewMetrics()

	channel := integration.NewClient(integration.ClientConfig{
		BaseURL: cfg.ChannelBaseURL,
		APIKey:  cfg.ChannelAPIKey,
		Timeout: cfg.ChannelTimeout,
	}, logger, metrics)
	dispatcher := integration.NewDispatcher(channel, integration.NewJournal(pool), logger)

	numberingClient := numbering.NewClient(cfg.NumberingBaseURL, cfg.NumberingTimeout)
	audit := shared.NewAuditLogger(pool)

	purchasingService := purchasing.NewService(purchasing.NewRepository(pool), dispatcher, audit)
	returnsService := returns.NewService(returns.NewRepository(pool), orders.NewRepository(pool), dispatcher, audit, logger, cfg.ReturnsRestockOnProcess)
	deliveryService := delivery.NewService(delivery.NewRepository(pool), dispatcher, audit)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		PurchasingHandler: purchasing.NewHandler(logger, purchasingService, numberingClient),
		ReturnsHandler:    returns.NewHandler(logger, returnsService, numberingClient),
		DeliveryHandler:   delivery.NewHandler(logger, deliveryService, numberingClient),
		Metrics:           metrics,
	})

	srv := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", slog.String("addr", cfg.AppAddr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown", slog.Any("error", err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			os.Exit(1)
		}
	}
}
