package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/cems-etl/internal/adapter/epa"
	httpadapter "github.com/couchcryptid/cems-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/cems-etl/internal/adapter/kafka"
	"github.com/couchcryptid/cems-etl/internal/config"
	"github.com/couchcryptid/cems-etl/internal/observability"
	"github.com/couchcryptid/cems-etl/internal/pipeline"
	"github.com/couchcryptid/cems-etl/internal/reference"
	"github.com/couchcryptid/cems-etl/internal/store"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Error("failed to read .env", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	offsets, err := reference.LoadOffsetTable(cfg.OffsetTablePath, logger)
	if err != nil {
		logger.Error("failed to load offset table", "path", cfg.OffsetTablePath, "error", err)
		os.Exit(1)
	}

	// Stack heights are optional and only annotate /facilities.
	var stackHeights map[int]float64
	if cfg.StackReferencePath != "" {
		stacks, err := reference.LoadStackReference(cfg.StackReferencePath, logger)
		if err != nil {
			logger.Error("failed to load stack reference", "path", cfg.StackReferencePath, "error", err)
			os.Exit(1)
		}
		stackHeights = reference.FacilityHeights(reference.MaxStackHeight(stacks, true, logger))
		logger.Info("stack reference loaded", "records", len(stacks), "facilities", len(stackHeights))
	}

	// Remote retrieval is feature-flagged via FETCH_ENABLED; without it only
	// files already in CEMS_CACHE_DIR can be loaded.
	var fetcher pipeline.Fetcher
	if cfg.FetchEnabled {
		client := epa.NewClient(cfg.FetchTimeout, metrics, logger)
		fetcher = epa.NewCachedFetcher(client, cfg.FetchCacheSize, metrics)
		logger.Info("remote fetch enabled", "base_url", cfg.BaseURL, "cache_size", cfg.FetchCacheSize, "timeout", cfg.FetchTimeout)
	} else {
		logger.Info("remote fetch disabled", "cache_dir", cfg.CacheDir)
	}

	loader, err := pipeline.NewLoader(fetcher, offsets, cfg.SourceEncoding, logger)
	if err != nil {
		logger.Error("failed to create loader", "error", err)
		os.Exit(1)
	}
	locator := pipeline.NewLocator(cfg.BaseURL, cfg.CacheDir)
	st := store.New()

	var (
		publisher pipeline.Publisher
		writer    *kafkaadapter.Writer
	)
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		logger.Info("kafka sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaSinkTopic)
	}

	ingestor := pipeline.New(locator, loader, st, publisher, logger, metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, st, st, stackHeights, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start ingest. The service keeps serving queries after it finishes.
	go func() {
		if err := ingestor.AddData(ctx, cfg.Start, cfg.End, cfg.States); err != nil {
			logger.Error("ingest finished with errors", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
