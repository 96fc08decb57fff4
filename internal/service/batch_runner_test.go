package service

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grachmannico95/branch-ingest/internal/blob"
	"github.com/grachmannico95/branch-ingest/internal/discovery"
	"github.com/grachmannico95/branch-ingest/internal/domain"
	"github.com/grachmannico95/branch-ingest/internal/pipeline"
	"github.com/grachmannico95/branch-ingest/internal/report"
	"github.com/grachmannico95/branch-ingest/internal/runlock"
	"github.com/grachmannico95/branch-ingest/internal/storage"
	"github.com/grachmannico95/branch-ingest/pkg/logger"
)

type batchFixture struct {
	repo   *storage.MemoryStore
	store  *blob.LocalStore
	runner *BatchRunner
	cfg    BatchConfig
	out    *bytes.Buffer
}

func newBatchFixture(t *testing.T) *batchFixture {
	t.Helper()
	store, err := blob.NewLocalStore(filepath.Join(t.TempDir(), "storage"))
	require.NoError(t, err)

	put := func(key, body string) {
		require.NoError(t, store.Put(context.Background(), key, strings.NewReader(body), int64(len(body))))
	}
	put("uploads/10/branch_10_03022026/branch_10_01_03022026.csv", validCSV(validRow, validRow))
	put("uploads/10/branch_10_03022026/branch_10_02_03022026.csv", validCSV(validRow, badStatusRow))
	put("uploads/11/branch_11_03022026/branch_11_01_03022026.csv", "bad;header\n1;2\n")
	put("uploads/11/branch_11_04022026/branch_11_01_04022026.csv", validCSV())

	repo := storage.NewMemoryStore()
	out := &bytes.Buffer{}
	cfg := BatchConfig{
		LockDir:    filepath.Join(t.TempDir(), "locks"),
		JournalDir: filepath.Join(t.TempDir(), "journal"),
		QueueSize:  10,
		Out:        out,
	}

	return &batchFixture{
		repo:   repo,
		store:  store,
		runner: NewBatchRunner(repo, store, discovery.NewStoreDiscoverer(store), cfg, logger.NewNop()),
		cfg:    cfg,
		out:    out,
	}
}

func TestBatchRunner_Run(t *testing.T) {
	// Setup
	fx := newBatchFixture(t)

	// Execute
	rep, err := fx.runner.Run(context.Background(), RunOptions{Date: runDate, Workers: 2, JoinTimeout: 10 * time.Second})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Stats.TotalFiles)
	assert.Equal(t, 3, rep.Stats.ProcessedFiles)
	assert.Equal(t, 0, rep.Stats.FailedFiles)
	assert.Equal(t, 4, rep.Stats.ProcessedRows)
	assert.Equal(t, 2, rep.Stats.ErrorsFound)
	assert.Equal(t, 1, rep.Stats.Categories[domain.CategoryPerfect])
	assert.Equal(t, 1, rep.Stats.Categories[domain.CategoryMedium])
	assert.Equal(t, 1, rep.Stats.Categories[domain.CategoryCritical])
	assert.Equal(t, 3, fx.repo.SummaryCount())

	records, err := report.ReadJournal(rep.JournalPath)
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, "session_summary", records[3]["type"])
	assert.Equal(t, rep.SessionID, records[3]["session_id"])

	console := fx.out.String()
	assert.Contains(t, console, "[OK] branch_10_01_03022026.csv")
	assert.Contains(t, console, "RUN COMPLETE")
	assert.Contains(t, console, "  - Files processed: 3")
}

func TestBatchRunner_RerunKeepsOneSummaryPerFile(t *testing.T) {
	fx := newBatchFixture(t)
	opts := RunOptions{Date: runDate, Workers: 3, JoinTimeout: 10 * time.Second}

	_, err := fx.runner.Run(context.Background(), opts)
	require.NoError(t, err)
	_, err = fx.runner.Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, 3, fx.repo.SummaryCount())
}

func TestBatchRunner_PartnerFilterAndDryRun(t *testing.T) {
	fx := newBatchFixture(t)

	rep, err := fx.runner.Run(context.Background(), RunOptions{
		Date: runDate, Workers: 1, PartnerID: "10", DryRun: true, JoinTimeout: 10 * time.Second,
	})

	require.NoError(t, err)
	assert.Equal(t, 2, rep.Stats.ProcessedFiles)
	assert.Equal(t, 0, fx.repo.SummaryCount())
	assert.Contains(t, fx.out.String(), "dry run")
}

func TestBatchRunner_NoFiles(t *testing.T) {
	fx := newBatchFixture(t)

	rep, err := fx.runner.Run(context.Background(), RunOptions{
		Date: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Workers: 2, JoinTimeout: time.Second,
	})

	require.NoError(t, err)
	assert.Zero(t, rep.Stats.TotalFiles)

	records, err := report.ReadJournal(rep.JournalPath)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "session_summary", records[0]["type"])
}

func TestBatchRunner_LockedDate(t *testing.T) {
	fx := newBatchFixture(t)

	held, err := runlock.Acquire(fx.cfg.LockDir, runDate)
	require.NoError(t, err)
	defer held.Release()

	_, err = fx.runner.Run(context.Background(), RunOptions{Date: runDate, Workers: 1, JoinTimeout: time.Second})

	assert.ErrorIs(t, err, domain.ErrRunLocked)
	assert.Zero(t, fx.repo.SummaryCount())
}

type blockingStore struct {
	*blob.LocalStore
	release chan struct{}
}

func (s *blockingStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	<-s.release
	return s.LocalStore.Open(ctx, key)
}

func TestBatchRunner_JoinTimeoutKeepsLockUntilWorkersExit(t *testing.T) {
	// Setup
	fx := newBatchFixture(t)
	store := &blockingStore{LocalStore: fx.store, release: make(chan struct{})}
	runner := NewBatchRunner(fx.repo, store, discovery.NewStoreDiscoverer(fx.store), fx.cfg, logger.NewNop())

	// Execute
	_, err := runner.Run(context.Background(), RunOptions{Date: runDate, Workers: 3, JoinTimeout: 50 * time.Millisecond})

	// Assert
	assert.ErrorContains(t, err, "did not finish")
	_, err = runlock.Acquire(fx.cfg.LockDir, runDate)
	assert.ErrorIs(t, err, domain.ErrRunLocked)

	close(store.release)
	assert.Eventually(t, func() bool {
		lock, err := runlock.Acquire(fx.cfg.LockDir, runDate)
		if err != nil {
			return false
		}
		_ = lock.Release()
		return true
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, 3, fx.repo.SummaryCount())
}

func TestFormatRunSummary(t *testing.T) {
	start := time.Date(2026, 2, 4, 1, 0, 0, 0, time.UTC)
	rep := RunReport{
		Date: runDate,
		Stats: pipeline.StatsSnapshot{
			TotalFiles:     2,
			ProcessedFiles: 2,
			ProcessedRows:  200,
			Categories:     map[domain.Category]int{domain.CategoryCritical: 1, domain.CategoryPerfect: 1},
			StartTime:      start,
			EndTime:        start.Add(2 * time.Second),
		},
	}

	out := FormatRunSummary(rep)

	assert.Contains(t, out, "Date: 2026-02-03")
	assert.Contains(t, out, "  - Total rows: 200")
	assert.Contains(t, out, "  - Throughput: 100.0 rows/second")
	assert.Less(t, strings.Index(out, "Perfect"), strings.Index(out, "Critical"))
}
