// Package bootstrap builds the storage and repository backends shared by the
// HTTP server and the batch validator from configuration.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/grachmannico95/branch-ingest/internal/blob"
	"github.com/grachmannico95/branch-ingest/internal/config"
	"github.com/grachmannico95/branch-ingest/internal/domain"
	"github.com/grachmannico95/branch-ingest/internal/storage"
	"github.com/grachmannico95/branch-ingest/pkg/logger"
	"github.com/grachmannico95/branch-ingest/pkg/retry"
)

// OpenStore returns the blob store selected by STORAGE_DRIVER.
func OpenStore(ctx context.Context, cfg config.StorageConfig, log *logger.Logger) (blob.Store, error) {
	switch cfg.Driver {
	case config.StorageDriverLocal:
		store, err := blob.NewLocalStore(cfg.BaseDir)
		if err != nil {
			return nil, err
		}
		log.Info(ctx, "Using local storage", "base_dir", cfg.BaseDir)
		return store, nil
	case config.StorageDriverS3:
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("STORAGE_BUCKET is required for the s3 driver")
		}
		store, err := blob.NewS3StoreFromEnv(ctx, blob.S3Options{
			Bucket:   cfg.Bucket,
			Region:   cfg.Region,
			Endpoint: cfg.Endpoint,
		})
		if err != nil {
			return nil, err
		}
		log.Info(ctx, "Using S3 storage", "bucket", cfg.Bucket, "region", cfg.Region)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// OpenRepository connects to Postgres when a DSN is configured, otherwise it
// returns an in-memory store seeded from PARTNER_CREDENTIALS. The returned
// close func is never nil.
func OpenRepository(ctx context.Context, cfg *config.Config, log *logger.Logger) (domain.Repository, func() error, error) {
	if cfg.Database.DSN != "" {
		store, err := storage.NewPostgresStore(ctx, cfg.Database.DSN, log,
			retry.WithMaxAttempts(cfg.Retry.MaxAttempts),
			retry.WithBaseDelay(cfg.Retry.BaseDelay),
		)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	}

	creds, err := storage.ParseCredentials(cfg.Database.Credentials)
	if err != nil {
		return nil, nil, err
	}
	mem := storage.NewMemoryStore()
	for _, c := range creds {
		mem.PutCredential(c)
	}
	log.Info(ctx, "Using in-memory repository", "partners", len(creds))

	return mem, func() error { return nil }, nil
}
