package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/rentloop/rentloop-backend/api"
	"github.com/rentloop/rentloop-backend/internal/dispatcher"
	"github.com/rentloop/rentloop-backend/internal/notifications"
	"github.com/rentloop/rentloop-backend/internal/outbox"
	"github.com/rentloop/rentloop-backend/pkg/config"
	"github.com/rentloop/rentloop-backend/pkg/db"
	"github.com/rentloop/rentloop-backend/pkg/logger"
	"github.com/rentloop/rentloop-backend/pkg/metrics"
	"github.com/rentloop/rentloop-backend/pkg/migrate"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "dispatcher"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "dispatcher"

	logg = logger.New(logger.Options{
		ServiceName: "dispatcher",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector())
	dispatcherMetrics := metrics.NewDispatcherMetrics(promRegistry)

	outboxRepo := outbox.NewRepository(dbClient.DB())
	notificationRepo := notifications.NewRepository(dbClient.DB())
	notifier, err := notifications.NewService(notificationRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	router := dispatcher.NewRouter()
	handlers, err := dispatcher.NewHandlers(notifier, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create handlers", err)
		os.Exit(1)
	}
	handlers.RegisterAll(router)

	worker, err := dispatcher.NewService(dispatcher.ServiceParams{
		Config:  cfg,
		Logger:  logg,
		Store:   outboxRepo,
		Router:  router,
		Metrics: dispatcherMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create dispatcher", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting outbox dispatcher")

	worker.Start(ctx)

	err = api.Serve(ctx, api.ServerParams{
		Config:     cfg,
		Logger:     logg,
		Dispatcher: worker,
		Deps:       map[string]api.Pinger{"database": dbClient},
		Registry:   promRegistry,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "health server stopped unexpectedly", err)
	}

	worker.Stop()
	<-worker.Done()
	logg.Info(ctx, "dispatcher shutting down gracefully")
}
