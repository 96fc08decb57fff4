package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grachmannico95/branch-ingest/internal/domain"
	"github.com/grachmannico95/branch-ingest/pkg/logger"
)

func tasks(n int) []domain.FileTask {
	out := make([]domain.FileTask, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.FileTask{Key: fmt.Sprintf("uploads/10/f/%03d.csv", i), PartnerID: "10"})
	}
	return out
}

func TestPool_ProcessesEveryTaskOnce(t *testing.T) {
	// Setup
	var mu sync.Mutex
	seen := make(map[string]int)
	handler := HandlerFunc(func(ctx context.Context, task domain.FileTask) (Outcome, error) {
		mu.Lock()
		seen[task.Key]++
		mu.Unlock()
		return Outcome{Rows: 10, Errors: 1, Category: domain.CategoryGood}, nil
	})
	pool := New(handler, logger.NewNop(), Config{Workers: 4, QueueSize: 5})

	// Execute
	ctx := context.Background()
	pool.Start(ctx)
	require.NoError(t, pool.Submit(ctx, tasks(50)...))
	require.NoError(t, pool.Wait(ctx, 5*time.Second))

	// Assert
	assert.Len(t, seen, 50)
	for key, count := range seen {
		assert.Equal(t, 1, count, key)
	}
	stats := pool.Stats()
	assert.Equal(t, 50, stats.TotalFiles)
	assert.Equal(t, 50, stats.ProcessedFiles)
	assert.Equal(t, 500, stats.ProcessedRows)
	assert.Equal(t, 50, stats.ErrorsFound)
	assert.Equal(t, 50, stats.Categories[domain.CategoryGood])
	assert.False(t, stats.EndTime.IsZero())
	assert.GreaterOrEqual(t, stats.LatencyMax, stats.LatencyP50)
}

func TestPool_IsolatesFailuresAndPanics(t *testing.T) {
	handler := HandlerFunc(func(ctx context.Context, task domain.FileTask) (Outcome, error) {
		switch task.Key {
		case "uploads/10/f/001.csv":
			return Outcome{}, errors.New("object vanished")
		case "uploads/10/f/002.csv":
			panic("nil map")
		}
		return Outcome{Rows: 1, Category: domain.CategoryPerfect}, nil
	})
	pool := New(handler, logger.NewNop(), Config{Workers: 2})

	ctx := context.Background()
	pool.Start(ctx)
	require.NoError(t, pool.Submit(ctx, tasks(6)...))
	require.NoError(t, pool.Wait(ctx, 5*time.Second))

	stats := pool.Stats()
	assert.Equal(t, 2, stats.FailedFiles)
	assert.Equal(t, 4, stats.ProcessedFiles)
	assert.Equal(t, 4, stats.Categories[domain.CategoryPerfect])
}

func TestPool_ProgressCallback(t *testing.T) {
	handler := HandlerFunc(func(ctx context.Context, task domain.FileTask) (Outcome, error) {
		return Outcome{Rows: 2}, nil
	})
	pool := New(handler, logger.NewNop(), Config{Workers: 3})

	var calls []int
	pool.OnProgress(func(s StatsSnapshot) {
		calls = append(calls, s.ProcessedFiles+s.FailedFiles)
	})

	ctx := context.Background()
	pool.Start(ctx)
	require.NoError(t, pool.Submit(ctx, tasks(7)...))
	require.NoError(t, pool.Wait(ctx, 5*time.Second))

	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7}, calls)
}

func TestPool_StopLeavesQueueAndFinishesInFlight(t *testing.T) {
	// Setup
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	handler := HandlerFunc(func(ctx context.Context, task domain.FileTask) (Outcome, error) {
		once.Do(func() { close(started) })
		<-release
		return Outcome{Rows: 1}, nil
	})
	pool := New(handler, logger.NewNop(), Config{Workers: 1, QueueSize: 20})

	ctx := context.Background()
	pool.Start(ctx)
	require.NoError(t, pool.Submit(ctx, tasks(10)...))
	<-started

	// Execute
	pool.Stop()
	close(release)
	begin := time.Now()
	err := pool.Wait(ctx, 2*time.Second)

	// Assert
	require.NoError(t, err)
	assert.Less(t, time.Since(begin), time.Second)
	stats := pool.Stats()
	assert.Equal(t, 1, stats.ProcessedFiles)
	assert.Equal(t, 10, stats.TotalFiles)

	assert.ErrorIs(t, pool.Submit(ctx, tasks(1)...), domain.ErrPoolStopped)
}

func TestPool_CancelLetsInFlightTaskFinish(t *testing.T) {
	// Setup
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	handler := HandlerFunc(func(ctx context.Context, task domain.FileTask) (Outcome, error) {
		once.Do(func() { close(started) })
		<-release
		// stands in for a store or database call that honours ctx
		if err := ctx.Err(); err != nil {
			return Outcome{}, err
		}
		return Outcome{Rows: 3, Category: domain.CategoryPerfect}, nil
	})
	pool := New(handler, logger.NewNop(), Config{Workers: 1, QueueSize: 20})

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)
	require.NoError(t, pool.Submit(ctx, tasks(5)...))
	<-started

	// Execute
	cancel()
	close(release)
	err := pool.Wait(context.Background(), 2*time.Second)

	// Assert
	require.NoError(t, err)
	stats := pool.Stats()
	assert.Equal(t, 1, stats.ProcessedFiles)
	assert.Equal(t, 0, stats.FailedFiles)
	assert.Equal(t, 3, stats.ProcessedRows)
}

func TestPool_StopExitsIdleWorkersQuickly(t *testing.T) {
	pool := New(HandlerFunc(func(ctx context.Context, task domain.FileTask) (Outcome, error) {
		return Outcome{}, nil
	}), logger.NewNop(), Config{Workers: 8})

	ctx := context.Background()
	pool.Start(ctx)
	time.Sleep(20 * time.Millisecond)

	begin := time.Now()
	pool.Stop()
	require.NoError(t, pool.Wait(ctx, time.Second))
	assert.Less(t, time.Since(begin), 500*time.Millisecond)
}

func TestPool_WaitTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	pool := New(HandlerFunc(func(ctx context.Context, task domain.FileTask) (Outcome, error) {
		<-release
		return Outcome{}, nil
	}), logger.NewNop(), Config{Workers: 1})

	ctx := context.Background()
	pool.Start(ctx)
	require.NoError(t, pool.Submit(ctx, tasks(1)...))

	err := pool.Wait(ctx, 50*time.Millisecond)

	assert.ErrorContains(t, err, "did not finish")
}

func TestPool_DoneClosesAfterLateWorkersExit(t *testing.T) {
	release := make(chan struct{})
	pool := New(HandlerFunc(func(ctx context.Context, task domain.FileTask) (Outcome, error) {
		<-release
		return Outcome{Rows: 1}, nil
	}), logger.NewNop(), Config{Workers: 2})

	ctx := context.Background()
	pool.Start(ctx)
	require.NoError(t, pool.Submit(ctx, tasks(2)...))
	require.Error(t, pool.Wait(ctx, 20*time.Millisecond))

	select {
	case <-pool.Done():
		t.Fatal("workers still running")
	default:
	}

	close(release)
	select {
	case <-pool.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("workers did not exit")
	}
	assert.Equal(t, 2, pool.Stats().ProcessedFiles)
}

func TestPool_SubmitAfterWait(t *testing.T) {
	pool := New(HandlerFunc(func(ctx context.Context, task domain.FileTask) (Outcome, error) {
		return Outcome{}, nil
	}), logger.NewNop(), Config{Workers: 2})

	ctx := context.Background()
	pool.Start(ctx)
	require.NoError(t, pool.Wait(ctx, time.Second))

	assert.ErrorIs(t, pool.Submit(ctx, tasks(1)...), domain.ErrPoolStopped)
}

func TestStatsSnapshot_RowsPerSecond(t *testing.T) {
	start := time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)
	snap := StatsSnapshot{ProcessedRows: 300, StartTime: start, EndTime: start.Add(3 * time.Second)}

	assert.Equal(t, 3*time.Second, snap.Elapsed())
	assert.InDelta(t, 100.0, snap.RowsPerSecond(), 0.001)
	assert.Zero(t, StatsSnapshot{}.RowsPerSecond())
}
