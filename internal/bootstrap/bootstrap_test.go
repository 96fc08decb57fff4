package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grachmannico95/branch-ingest/internal/blob"
	"github.com/grachmannico95/branch-ingest/internal/config"
	"github.com/grachmannico95/branch-ingest/internal/domain"
	"github.com/grachmannico95/branch-ingest/pkg/logger"
)

func TestOpenStore_Local(t *testing.T) {
	store, err := OpenStore(context.Background(), config.StorageConfig{
		Driver:  config.StorageDriverLocal,
		BaseDir: t.TempDir(),
	}, logger.NewNop())

	require.NoError(t, err)
	assert.IsType(t, &blob.LocalStore{}, store)
}

func TestOpenStore_S3RequiresBucket(t *testing.T) {
	_, err := OpenStore(context.Background(), config.StorageConfig{Driver: config.StorageDriverS3}, logger.NewNop())

	assert.ErrorContains(t, err, "STORAGE_BUCKET")
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	_, err := OpenStore(context.Background(), config.StorageConfig{Driver: "ftp"}, logger.NewNop())

	assert.ErrorContains(t, err, `unknown storage driver "ftp"`)
}

func TestOpenRepository_MemorySeededFromCredentials(t *testing.T) {
	cfg := &config.Config{Database: config.DatabaseConfig{Credentials: "10:s3cr3t,11:other"}}

	repo, closeFn, err := OpenRepository(context.Background(), cfg, logger.NewNop())
	require.NoError(t, err)
	defer closeFn()

	cred, err := repo.FindActiveCredential(context.Background(), "11")
	require.NoError(t, err)
	assert.Equal(t, "other", cred.Secret)

	_, err = repo.FindActiveCredential(context.Background(), "12")
	assert.ErrorIs(t, err, domain.ErrCredentialNotFound)
}

func TestOpenRepository_BadCredentials(t *testing.T) {
	cfg := &config.Config{Database: config.DatabaseConfig{Credentials: "no-separator"}}

	_, _, err := OpenRepository(context.Background(), cfg, logger.NewNop())

	assert.Error(t, err)
}
