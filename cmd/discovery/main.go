package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/facility-discovery/internal/adapter/govdata"
	"github.com/couchcryptid/facility-discovery/internal/adapter/httpapi"
	kafkaadapter "github.com/couchcryptid/facility-discovery/internal/adapter/kafka"
	"github.com/couchcryptid/facility-discovery/internal/adapter/redisstore"
	"github.com/couchcryptid/facility-discovery/internal/config"
	"github.com/couchcryptid/facility-discovery/internal/observability"
	"github.com/couchcryptid/facility-discovery/internal/queue"
	"github.com/couchcryptid/facility-discovery/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	// Remote providers (feature-flagged via GOV_PROVIDERS_ENABLED).
	var providers []service.Provider
	if cfg.ProvidersEnabled {
		providers = []service.Provider{
			govdata.NewHRSA(cfg.HRSABaseURL, cfg.APITimeout, clock, logger, metrics),
			govdata.NewVA(cfg.VABaseURL, cfg.APITimeout, clock, logger, metrics),
			govdata.NewUSDA(cfg.USDABaseURL, cfg.APITimeout, clock, logger, metrics),
		}
		logger.Info("remote providers enabled", "count", len(providers))
	} else {
		logger.Info("remote providers disabled, serving bundled data only")
	}

	// Submission sink (enabled when brokers are configured).
	var send queue.SendFunc
	var writer *kafkaadapter.Writer
	if len(cfg.KafkaBrokers) > 0 {
		writer = kafkaadapter.NewWriter(cfg, logger)
		send = writer.Send
		logger.Info("kafka submission sink enabled", "topic", cfg.KafkaSubmissionTopic)
	} else {
		logger.Info("no kafka brokers configured, submissions queue locally")
	}

	// Persistence layer (enabled when a Redis address is configured).
	var store service.Store
	var redisStore *redisstore.Store
	if cfg.RedisAddr != "" {
		redisStore = redisstore.New(cfg.RedisAddr, cfg.RedisPassword, logger)
		store = redisStore
		logger.Info("redis persistence enabled", "addr", cfg.RedisAddr)
	} else {
		logger.Info("no redis configured, running memory-only")
	}

	svc, err := service.New(service.Options{
		Config:    cfg,
		Providers: providers,
		Send:      send,
		Store:     store,
		Clock:     clock,
		Logger:    logger,
		Metrics:   metrics,
	})
	if err != nil {
		logger.Error("failed to build service", "error", err)
		os.Exit(1)
	}

	srv := httpapi.NewServer(cfg.HTTPAddr, svc, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start the maintenance loop.
	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		if err := svc.Run(ctx); err != nil {
			logger.Error("maintenance loop error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	// The maintenance loop persists state on its way out; wait for it before
	// closing the adapters it writes through.
	<-runDone

	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if redisStore != nil {
		if err := redisStore.Close(); err != nil {
			logger.Error("redis close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
