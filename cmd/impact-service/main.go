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

	httpadapter "github.com/couchcryptid/cyclone-impact-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/cyclone-impact-service/internal/adapter/kafka"
	"github.com/couchcryptid/cyclone-impact-service/internal/app"
	"github.com/couchcryptid/cyclone-impact-service/internal/config"
	"github.com/couchcryptid/cyclone-impact-service/internal/observability"
	"github.com/couchcryptid/cyclone-impact-service/internal/pipeline"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if envErr != nil {
		logger.Debug(".env not loaded, using environment", "error", envErr)
	}
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	components, err := app.Build(ctx, cfg, logger, metrics)
	if err != nil {
		logger.Error("failed to build components", "error", err)
		os.Exit(1)
	}

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(components.Runner, cfg.RequestDefaults(), logger)

	p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)

	var runs httpadapter.RunLookup
	if components.Ledger != nil {
		runs = components.Ledger
	}
	srv := httpadapter.NewServer(cfg.HTTPAddr, p, runs, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	logger.Info("impact service started",
		"source_topic", cfg.KafkaSourceTopic,
		"sink_topic", cfg.KafkaSinkTopic,
		"pathways", cfg.Pathways,
	)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}
	components.Close(logger)

	logger.Info("shutdown complete")
}
