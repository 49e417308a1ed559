package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	httpadapter "github.com/couchcryptid/weather-production-optimizer/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/weather-production-optimizer/internal/adapter/kafka"
	"github.com/couchcryptid/weather-production-optimizer/internal/adapter/postgres"
	redisadapter "github.com/couchcryptid/weather-production-optimizer/internal/adapter/redis"
	"github.com/couchcryptid/weather-production-optimizer/internal/align"
	"github.com/couchcryptid/weather-production-optimizer/internal/config"
	"github.com/couchcryptid/weather-production-optimizer/internal/correlate"
	"github.com/couchcryptid/weather-production-optimizer/internal/dispatch"
	"github.com/couchcryptid/weather-production-optimizer/internal/observability"
	"github.com/couchcryptid/weather-production-optimizer/internal/pipeline"
	"github.com/couchcryptid/weather-production-optimizer/internal/recommend"
)

func main() {
	_ = godotenv.Load() // optional .env for local runs

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	productionReader := kafkaadapter.NewReader(cfg, cfg.KafkaProductionTopic, logger)
	weatherReader := kafkaadapter.NewReader(cfg, cfg.KafkaWeatherTopic, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	cache := redisadapter.NewCache(cfg, logger)

	// Postgres is optional: without it the service runs on the live cache
	// alone, losing historical alignment and the audit trail.
	var store *postgres.Store
	if cfg.PostgresDSN != "" {
		store, err = postgres.Open(cfg, logger)
		if err != nil {
			logger.Error("failed to open postgres", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("POSTGRES_DSN not set, running without historical store")
	}

	var history align.History
	var weatherHistory pipeline.WeatherHistory
	var optimizationStore dispatch.Store
	var enrichedStore pipeline.EnrichedStore
	if store != nil {
		history = store
		weatherHistory = store
		optimizationStore = store
		enrichedStore = store
	}

	aligner := align.New(cache, history, cfg.MaxWeatherAge, logger)

	corrCfg := correlate.Config{
		MinSamples:         cfg.MinSamples,
		WindowDuration:     cfg.WindowDuration,
		WindowMaxPairs:     cfg.WindowMaxPairs,
		FrontThresholdInHg: cfg.FrontThresholdInHg,
	}
	window := correlate.NewStore(correlate.NewEngine(corrCfg), corrCfg, cfg.RecomputeInterval)

	recommender := recommend.New(cfg.Rules, logger)
	dispatcher := dispatch.New(recommender, writer, optimizationStore, dispatch.Config{
		ConfidenceGate:   cfg.ConfidenceGate,
		BaselineDryerF:   cfg.BaselineDryerF,
		BaselinePreMixS:  cfg.BaselinePreMixS,
		HumidityDriverAt: 65,
	}, logger)

	processor := pipeline.New(
		productionReader, weatherReader, aligner, window, dispatcher,
		cache, weatherHistory, writer, enrichedStore,
		pipeline.Config{
			BatchSize:          cfg.BatchSize,
			WorkerLimit:        cfg.WorkerLimit,
			FrontThresholdInHg: cfg.FrontThresholdInHg,
		},
		logger, metrics,
	)

	srv := httpadapter.NewServer(cfg.HTTPAddr, processor, recommender, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := processor.Run(ctx); err != nil {
			logger.Error("processor error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := productionReader.Close(); err != nil {
		logger.Error("production reader close error", "error", err)
	}
	if err := weatherReader.Close(); err != nil {
		logger.Error("weather reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}
	if err := cache.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}
	if store != nil {
		if err := store.Close(); err != nil {
			logger.Error("postgres close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
