package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/grachmannico95/branch-ingest/internal/bootstrap"
	"github.com/grachmannico95/branch-ingest/internal/config"
	"github.com/grachmannico95/branch-ingest/internal/handler"
	"github.com/grachmannico95/branch-ingest/internal/metrics"
	"github.com/grachmannico95/branch-ingest/internal/server"
	"github.com/grachmannico95/branch-ingest/internal/service"
	"github.com/grachmannico95/branch-ingest/pkg/logger"
)

func main() {
	cfg := config.Load()

	log := logger.New(cfg.Logging.Level)
	defer log.Sync()

	ctx := context.Background()
	log.Info(ctx, "Starting application")

	metrics.Register()

	repo, closeRepo, err := bootstrap.OpenRepository(ctx, cfg, log)
	if err != nil {
		log.Fatal(ctx, "Failed to initialize repository",
			"error", err,
		)
	}
	defer closeRepo()

	store, err := bootstrap.OpenStore(ctx, cfg.Storage, log)
	if err != nil {
		log.Fatal(ctx, "Failed to initialize storage",
			"error", err,
		)
	}

	ingestionService := service.NewIngestionService(repo, store, service.IngestionConfig{
		MaxArchiveBytes:      cfg.Upload.MaxArchiveBytes(),
		MaxUncompressedBytes: cfg.Upload.MaxUncompressedBytes(),
		MaxEntries:           cfg.Upload.MaxEntries,
		MaxCSVFiles:          cfg.Upload.MaxCSVFiles,
		MaxClockSkew:         cfg.Upload.MaxClockSkew,
		TempDir:              cfg.Upload.TempDir,
		RetryAttempts:        cfg.Retry.MaxAttempts,
		RetryDelay:           cfg.Retry.BaseDelay,
	}, log)
	log.Info(ctx, "Services initialized")

	uploadHandler := handler.NewUploadHandler(ingestionService, log)
	healthHandler := handler.NewHealthHandler()

	srv := server.New(cfg, log, uploadHandler, healthHandler)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal(ctx, "Failed to start HTTP server",
				"error", err,
			)
		}
	}()

	log.Info(ctx, "Application started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info(ctx, "Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()

	// In-flight uploads finish before the repository is closed by the defer.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "HTTP server shutdown error",
			"error", err,
		)
	}

	log.Info(ctx, "Application stopped gracefully")
}
