package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/grachmannico95/branch-ingest/internal/blob"
	"github.com/grachmannico95/branch-ingest/internal/domain"
	"github.com/grachmannico95/branch-ingest/internal/signature"
	"github.com/grachmannico95/branch-ingest/internal/storage"
	"github.com/grachmannico95/branch-ingest/mocks"
	"github.com/grachmannico95/branch-ingest/pkg/logger"
)

const (
	testPartner = "10"
	testSecret  = "partner-ten-secret"
	testArchive = "branch_10_03022026.zip"
	testFolder  = "branch_10_03022026"
)

type ingestFixture struct {
	repo  *storage.MemoryStore
	store *blob.LocalStore
	tmp   string
	svc   IngestionService
}

func newIngestFixture(t *testing.T, mutate func(*IngestionConfig)) *ingestFixture {
	t.Helper()
	repo := storage.NewMemoryStore()
	repo.PutCredential(domain.Credential{PartnerID: testPartner, Secret: testSecret, Active: true})
	repo.PutCredential(domain.Credential{PartnerID: "11", Secret: "inactive", Active: false})

	store, err := blob.NewLocalStore(filepath.Join(t.TempDir(), "storage"))
	require.NoError(t, err)

	tmp := t.TempDir()
	cfg := IngestionConfig{
		MaxArchiveBytes:      10 << 20,
		MaxUncompressedBytes: 50 << 20,
		MaxCSVFiles:          100,
		TempDir:              tmp,
		RetryAttempts:        2,
		RetryDelay:           time.Millisecond,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	return &ingestFixture{
		repo:  repo,
		store: store,
		tmp:   tmp,
		svc:   NewIngestionService(repo, store, cfg, logger.NewNop()),
	}
}

func signedEnvelope(filename string, body *bytes.Buffer) domain.UploadEnvelope {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	return domain.UploadEnvelope{
		PartnerID:  testPartner,
		Signature:  signature.Sign(testSecret, testPartner, filename, ts),
		Timestamp:  ts,
		Filename:   filename,
		Archive:    body,
		RemoteAddr: "203.0.113.7",
	}
}

func goodArchive(t *testing.T) *bytes.Buffer {
	return buildZip(t,
		zipEntry{name: testFolder + "/"},
		zipEntry{name: testFolder + "/branch_10_01_03022026.csv", body: validCSV()},
		zipEntry{name: testFolder + "/branch_10_02_03022026.csv", body: validCSV(validRow, validRow)},
	)
}

func requireIngestError(t *testing.T, err error, kind domain.ErrorType) *domain.IngestError {
	t.Helper()
	require.Error(t, err)
	var ie *domain.IngestError
	require.True(t, errors.As(err, &ie), "expected IngestError, got %T", err)
	assert.Equal(t, kind, ie.Type)
	return ie
}

func TestIngest_Success(t *testing.T) {
	// Setup
	fx := newIngestFixture(t, nil)
	env := signedEnvelope(testArchive, goodArchive(t))

	// Execute
	result, err := fx.svc.Ingest(context.Background(), env)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, testFolder, result.Folder)
	assert.Equal(t, 2, result.CSVCount)
	assert.Equal(t, "uploads/10/branch_10_03022026", result.StoragePath)

	objs, err := fx.store.List(context.Background(), "uploads/")
	require.NoError(t, err)
	require.Len(t, objs, 2)
	assert.Equal(t, "uploads/10/branch_10_03022026/branch_10_01_03022026.csv", objs[0].Key)

	logs := fx.repo.Transfers()
	require.Len(t, logs, 1)
	assert.Equal(t, domain.TransferStatusSuccess, logs[0].Status)
	assert.Equal(t, "2 CSV files uploaded", logs[0].Message)
	assert.Equal(t, "uploads/10/branch_10_03022026", logs[0].StoragePath)
	assert.Equal(t, "203.0.113.7", logs[0].RemoteAddr)

	entries, _ := os.ReadDir(fx.tmp)
	assert.Empty(t, entries, "temp dir must be removed")
}

func TestIngest_ReuploadReplacesFolder(t *testing.T) {
	fx := newIngestFixture(t, nil)
	ctx := context.Background()

	_, err := fx.svc.Ingest(ctx, signedEnvelope(testArchive, goodArchive(t)))
	require.NoError(t, err)

	second := buildZip(t,
		zipEntry{name: testFolder + "/branch_10_03_03022026.csv", body: validCSV()},
	)
	_, err = fx.svc.Ingest(ctx, signedEnvelope(testArchive, second))
	require.NoError(t, err)

	objs, err := fx.store.List(ctx, blob.PartnerPrefix(testPartner))
	require.NoError(t, err)
	require.Len(t, objs, 1)
	assert.Equal(t, "uploads/10/branch_10_03022026/branch_10_03_03022026.csv", objs[0].Key)
	assert.Len(t, fx.repo.Transfers(), 2)
}

func TestIngest_Rejections(t *testing.T) {
	tests := []struct {
		name        string
		env         func(t *testing.T) domain.UploadEnvelope
		wantType    domain.ErrorType
		wantMessage string
	}{
		{
			name: "missing signature",
			env: func(t *testing.T) domain.UploadEnvelope {
				env := signedEnvelope(testArchive, goodArchive(t))
				env.Signature = ""
				return env
			},
			wantType:    domain.ErrorTypeFormat,
			wantMessage: "missing required parameters: signature",
		},
		{
			name: "missing file",
			env: func(t *testing.T) domain.UploadEnvelope {
				env := signedEnvelope(testArchive, nil)
				env.Archive = nil
				return env
			},
			wantType:    domain.ErrorTypeFormat,
			wantMessage: "missing required parameters: file",
		},
		{
			name: "unknown partner",
			env: func(t *testing.T) domain.UploadEnvelope {
				env := signedEnvelope(testArchive, goodArchive(t))
				env.PartnerID = "99"
				return env
			},
			wantType:    domain.ErrorTypeAuth,
			wantMessage: domain.MessageInvalidPartner,
		},
		{
			name: "inactive partner",
			env: func(t *testing.T) domain.UploadEnvelope {
				env := signedEnvelope(testArchive, goodArchive(t))
				env.PartnerID = "11"
				return env
			},
			wantType:    domain.ErrorTypeAuth,
			wantMessage: domain.MessageInvalidPartner,
		},
		{
			name: "not a zip",
			env: func(t *testing.T) domain.UploadEnvelope {
				return signedEnvelope("branch_10_03022026.rar", goodArchive(t))
			},
			wantType:    domain.ErrorTypeFormat,
			wantMessage: "only ZIP files are accepted",
		},
		{
			name: "bad signature",
			env: func(t *testing.T) domain.UploadEnvelope {
				env := signedEnvelope(testArchive, goodArchive(t))
				env.Signature = strings.Repeat("0", 64)
				return env
			},
			wantType:    domain.ErrorTypeAuth,
			wantMessage: domain.MessageInvalidPartner,
		},
		{
			name: "signature over a different filename",
			env: func(t *testing.T) domain.UploadEnvelope {
				env := signedEnvelope(testArchive, goodArchive(t))
				env.Signature = signature.Sign(testSecret, testPartner, "branch_10_04022026.zip", env.Timestamp)
				return env
			},
			wantType:    domain.ErrorTypeAuth,
			wantMessage: domain.MessageInvalidPartner,
		},
		{
			name: "archive named for another partner",
			env: func(t *testing.T) domain.UploadEnvelope {
				return signedEnvelope("branch_12_03022026.zip", goodArchive(t))
			},
			wantType:    domain.ErrorTypeFormat,
			wantMessage: "belongs to partner 12",
		},
		{
			name: "impossible date",
			env: func(t *testing.T) domain.UploadEnvelope {
				return signedEnvelope("branch_10_31022026.zip", goodArchive(t))
			},
			wantType:    domain.ErrorTypeFormat,
			wantMessage: "invalid date",
		},
		{
			name: "corrupt zip",
			env: func(t *testing.T) domain.UploadEnvelope {
				return signedEnvelope(testArchive, bytes.NewBufferString("definitely not a zip"))
			},
			wantType:    domain.ErrorTypeFormat,
			wantMessage: "not a readable ZIP",
		},
		{
			name: "folder name mismatch",
			env: func(t *testing.T) domain.UploadEnvelope {
				return signedEnvelope(testArchive, buildZip(t,
					zipEntry{name: "branch_10_04022026/branch_10_01_04022026.csv", body: validCSV()},
				))
			},
			wantType:    domain.ErrorTypeFormat,
			wantMessage: "does not match archive name",
		},
		{
			name: "empty folder",
			env: func(t *testing.T) domain.UploadEnvelope {
				return signedEnvelope(testArchive, buildZip(t, zipEntry{name: testFolder + "/"}))
			},
			wantType:    domain.ErrorTypeFormat,
			wantMessage: "no CSV files found",
		},
		{
			name: "member date differs from folder",
			env: func(t *testing.T) domain.UploadEnvelope {
				return signedEnvelope(testArchive, buildZip(t,
					zipEntry{name: testFolder + "/branch_10_01_04022026.csv", body: validCSV()},
				))
			},
			wantType:    domain.ErrorTypeFormat,
			wantMessage: "does not match folder date",
		},
		{
			name: "sequence zero",
			env: func(t *testing.T) domain.UploadEnvelope {
				return signedEnvelope(testArchive, buildZip(t,
					zipEntry{name: testFolder + "/branch_10_00_03022026.csv", body: validCSV()},
				))
			},
			wantType:    domain.ErrorTypeFormat,
			wantMessage: "between 01 and 99",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Setup
			fx := newIngestFixture(t, nil)

			// Execute
			result, err := fx.svc.Ingest(context.Background(), tt.env(t))

			// Assert
			assert.Nil(t, result)
			ie := requireIngestError(t, err, tt.wantType)
			assert.Contains(t, ie.PublicMessage(), tt.wantMessage)

			logs := fx.repo.Transfers()
			require.Len(t, logs, 1)
			assert.Equal(t, domain.TransferStatusFailed, logs[0].Status)
			assert.NotContains(t, logs[0].Message, testSecret)

			objs, err := fx.store.List(context.Background(), "uploads/")
			require.NoError(t, err)
			assert.Empty(t, objs)
		})
	}
}

func TestIngest_ZipSlipRejectedBeforeWriting(t *testing.T) {
	fx := newIngestFixture(t, nil)
	body := buildZip(t,
		zipEntry{name: testFolder + "/branch_10_01_03022026.csv", body: validCSV()},
		zipEntry{name: "../../escape.csv", body: "owned"},
	)

	_, err := fx.svc.Ingest(context.Background(), signedEnvelope(testArchive, body))

	ie := requireIngestError(t, err, domain.ErrorTypeFormat)
	assert.Contains(t, ie.PublicMessage(), "security error")

	objs, _ := fx.store.List(context.Background(), "uploads/")
	assert.Empty(t, objs)
	_, statErr := os.Stat(filepath.Join(fx.tmp, "escape.csv"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestIngest_HeaderFailuresListedAndCounted(t *testing.T) {
	fx := newIngestFixture(t, nil)

	entries := []zipEntry{{name: testFolder + "/"}}
	for i := 1; i <= 7; i++ {
		entries = append(entries, zipEntry{
			name: fmt.Sprintf("%s/branch_10_%02d_03022026.csv", testFolder, i),
			body: "id,game,date\n1,2,3\n",
		})
	}
	entries = append(entries, zipEntry{name: testFolder + "/branch_10_08_03022026.csv", body: validCSV()})

	_, err := fx.svc.Ingest(context.Background(), signedEnvelope(testArchive, buildZip(t, entries...)))

	ie := requireIngestError(t, err, domain.ErrorTypeFormat)
	msg := ie.PublicMessage()
	assert.True(t, strings.HasPrefix(msg, "CSV format errors: branch_10_01_03022026.csv: header does not match"))
	assert.Contains(t, msg, "branch_10_05_03022026.csv")
	assert.NotContains(t, msg, "branch_10_06_03022026.csv")
	assert.True(t, strings.HasSuffix(msg, "(and 2 more)"))
}

func TestIngest_EmptyCSVRejected(t *testing.T) {
	fx := newIngestFixture(t, nil)
	body := buildZip(t,
		zipEntry{name: testFolder + "/branch_10_01_03022026.csv"},
	)

	_, err := fx.svc.Ingest(context.Background(), signedEnvelope(testArchive, body))

	ie := requireIngestError(t, err, domain.ErrorTypeFormat)
	assert.Contains(t, ie.PublicMessage(), "CSV file is empty")
}

func TestIngest_ArchiveTooLarge(t *testing.T) {
	fx := newIngestFixture(t, func(c *IngestionConfig) { c.MaxArchiveBytes = 64 })

	_, err := fx.svc.Ingest(context.Background(), signedEnvelope(testArchive, goodArchive(t)))

	ie := requireIngestError(t, err, domain.ErrorTypeFormat)
	assert.Contains(t, ie.PublicMessage(), "maximum size")
}

func TestIngest_TooManyCSVFiles(t *testing.T) {
	fx := newIngestFixture(t, func(c *IngestionConfig) { c.MaxCSVFiles = 1 })

	_, err := fx.svc.Ingest(context.Background(), signedEnvelope(testArchive, goodArchive(t)))

	ie := requireIngestError(t, err, domain.ErrorTypeFormat)
	assert.Contains(t, ie.PublicMessage(), "too many CSV files")
}

func TestIngest_ClockSkew(t *testing.T) {
	fx := newIngestFixture(t, func(c *IngestionConfig) { c.MaxClockSkew = 5 * time.Minute })

	env := signedEnvelope(testArchive, goodArchive(t))
	env.Timestamp = strconv.FormatInt(time.Now().Add(-time.Hour).Unix(), 10)
	env.Signature = signature.Sign(testSecret, testPartner, testArchive, env.Timestamp)

	_, err := fx.svc.Ingest(context.Background(), env)
	requireIngestError(t, err, domain.ErrorTypeAuth)

	fresh := signedEnvelope(testArchive, goodArchive(t))
	_, err = fx.svc.Ingest(context.Background(), fresh)
	assert.NoError(t, err)
}

func TestIngest_StorageFailureRollsBack(t *testing.T) {
	// Setup
	repo := storage.NewMemoryStore()
	repo.PutCredential(domain.Credential{PartnerID: testPartner, Secret: testSecret, Active: true})
	store := mocks.NewMockStore(t)
	svc := NewIngestionService(repo, store, IngestionConfig{TempDir: t.TempDir(), RetryAttempts: 1}, logger.NewNop())

	staged := func(name string) interface{} {
		return mock.MatchedBy(func(key string) bool {
			return strings.HasPrefix(key, "uploads/10/"+blob.StagingMarker) && strings.HasSuffix(key, "/new/"+name)
		})
	}

	// Mock expectations
	store.EXPECT().
		List(mock.Anything, "uploads/10/branch_10_03022026/").
		Return(nil, nil).
		Once()
	store.EXPECT().
		Put(mock.Anything, staged("branch_10_01_03022026.csv"), mock.Anything, mock.AnythingOfType("int64")).
		Return(nil).
		Once()
	store.EXPECT().
		Put(mock.Anything, staged("branch_10_02_03022026.csv"), mock.Anything, mock.AnythingOfType("int64")).
		Return(errors.New("s3 unavailable password=hunter2")).
		Once()
	store.EXPECT().
		Delete(mock.Anything, staged("branch_10_01_03022026.csv")).
		Return(nil).
		Once()

	// Execute
	result, err := svc.Ingest(context.Background(), signedEnvelope(testArchive, goodArchive(t)))

	// Assert
	assert.Nil(t, result)
	ie := requireIngestError(t, err, domain.ErrorTypeStorage)
	assert.Equal(t, domain.MessageStorageFailure, ie.PublicMessage())

	logs := repo.Transfers()
	require.Len(t, logs, 1)
	assert.Equal(t, domain.TransferStatusFailed, logs[0].Status)
	assert.Contains(t, logs[0].Message, "storage transfer failed")
	assert.Contains(t, logs[0].Message, "password=[REDACTED]")
	assert.NotContains(t, logs[0].Message, "hunter2")
}

func TestIngest_CredentialLookupError(t *testing.T) {
	// Setup
	repo := mocks.NewMockRepository(t)
	store := mocks.NewMockStore(t)
	svc := NewIngestionService(repo, store, IngestionConfig{TempDir: t.TempDir()}, logger.NewNop())

	// Mock expectations
	repo.EXPECT().
		FindActiveCredential(mock.Anything, testPartner).
		Return(nil, errors.New("connection refused")).
		Once()
	repo.EXPECT().
		RecordTransfer(mock.Anything, mock.MatchedBy(func(e *domain.TransferLog) bool {
			return e.Status == domain.TransferStatusFailed && strings.HasPrefix(e.Message, "unexpected error")
		})).
		Return(nil).
		Once()

	// Execute
	_, err := svc.Ingest(context.Background(), signedEnvelope(testArchive, goodArchive(t)))

	// Assert
	ie := requireIngestError(t, err, domain.ErrorTypeUnexpected)
	assert.Equal(t, domain.MessageUnexpected, ie.PublicMessage())
}

func TestIngest_TransferLogFailureDoesNotChangeOutcome(t *testing.T) {
	repo := mocks.NewMockRepository(t)
	store, err := blob.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	svc := NewIngestionService(repo, store, IngestionConfig{TempDir: t.TempDir()}, logger.NewNop())

	repo.EXPECT().
		FindActiveCredential(mock.Anything, testPartner).
		Return(&domain.Credential{PartnerID: testPartner, Secret: testSecret, Active: true}, nil).
		Once()
	repo.EXPECT().
		RecordTransfer(mock.Anything, mock.Anything).
		Return(errors.New("disk full")).
		Once()

	result, err := svc.Ingest(context.Background(), signedEnvelope(testArchive, goodArchive(t)))

	require.NoError(t, err)
	assert.Equal(t, 2, result.CSVCount)
}

type panickingRepo struct {
	*storage.MemoryStore
}

func (panickingRepo) FindActiveCredential(ctx context.Context, partnerID string) (*domain.Credential, error) {
	panic("driver bug")
}

func TestIngest_PanicBecomesUnexpectedError(t *testing.T) {
	mem := storage.NewMemoryStore()
	store, err := blob.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	svc := NewIngestionService(panickingRepo{mem}, store, IngestionConfig{TempDir: t.TempDir()}, logger.NewNop())

	_, err = svc.Ingest(context.Background(), signedEnvelope(testArchive, goodArchive(t)))

	requireIngestError(t, err, domain.ErrorTypeUnexpected)
	logs := mem.Transfers()
	require.Len(t, logs, 1)
	assert.Contains(t, logs[0].Message, "panic: driver bug")
}
