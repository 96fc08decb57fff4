package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/grachmannico95/branch-ingest/internal/domain"
	"github.com/grachmannico95/branch-ingest/pkg/logger"
)

// Outcome is what a handler reports for one file.
type Outcome struct {
	Rows     int
	Errors   int
	Category domain.Category
}

type Handler interface {
	Handle(ctx context.Context, task domain.FileTask) (Outcome, error)
}

type HandlerFunc func(ctx context.Context, task domain.FileTask) (Outcome, error)

func (f HandlerFunc) Handle(ctx context.Context, task domain.FileTask) (Outcome, error) {
	return f(ctx, task)
}

type Config struct {
	Workers   int
	QueueSize int
}

// Pool runs a fixed number of workers over a bounded task queue. Shutdown is
// cooperative: Wait enqueues one nil sentinel per worker, Stop makes idle
// workers exit without draining the queue. A task already being handled is
// never interrupted.
type Pool struct {
	handler Handler
	logger  *logger.Logger
	cfg     Config

	queue    chan *domain.FileTask
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	done     chan struct{}
	doneOnce sync.Once

	mu       sync.Mutex
	stats    Stats
	progress func(StatsSnapshot)
	started  bool
	closed   bool
}

func New(handler Handler, log *logger.Logger, cfg Config) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}

	return &Pool{
		handler: handler,
		logger:  log,
		cfg:     cfg,
		queue:   make(chan *domain.FileTask, cfg.QueueSize),
		stop:    make(chan struct{}),
		stats:   newStats(),
	}
}

// OnProgress registers a callback invoked after every file while the stats
// lock is held. The callback must not call back into the pool.
func (p *Pool) OnProgress(fn func(StatsSnapshot)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.progress = fn
}

func (p *Pool) Workers() int {
	return p.cfg.Workers
}

func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return
	}
	p.started = true
	p.stats.StartTime = time.Now()

	p.logger.Info(ctx, "Starting workers", "worker_count", p.cfg.Workers, "queue_size", p.cfg.QueueSize)

	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Submit enqueues tasks, blocking while the queue is full.
func (p *Pool) Submit(ctx context.Context, tasks ...domain.FileTask) error {
	for i := range tasks {
		task := tasks[i]

		p.mu.Lock()
		closed := p.closed
		p.mu.Unlock()
		if closed || p.isStopped() {
			return domain.ErrPoolStopped
		}

		select {
		case p.queue <- &task:
			p.mu.Lock()
			p.stats.TotalFiles++
			p.mu.Unlock()
		case <-p.stop:
			return domain.ErrPoolStopped
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Stop signals workers to exit as soon as they are idle. Tasks still queued
// are left unprocessed.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		close(p.stop)
	})
}

// Wait closes the pool to new tasks, enqueues one sentinel per worker and
// joins them. It returns an error if the workers have not exited within
// timeout; they keep running in that case.
func (p *Pool) Wait(ctx context.Context, timeout time.Duration) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		for i := 0; i < p.cfg.Workers; i++ {
			select {
			case p.queue <- nil:
			case <-p.stop:
			case <-ctx.Done():
			}
		}
		p.wg.Wait()
		close(done)
	}()

	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}

	select {
	case <-done:
		p.mu.Lock()
		p.stats.EndTime = time.Now()
		p.mu.Unlock()
		p.logger.Info(ctx, "All workers finished")
		return nil
	case <-timer:
		p.logger.Warn(ctx, "Workers did not finish before timeout", "timeout", timeout.String())
		return fmt.Errorf("workers did not finish within %s", timeout)
	}
}

// Done returns a channel closed once every started worker has exited. It is
// meant to be called after Start.
func (p *Pool) Done() <-chan struct{} {
	p.doneOnce.Do(func() {
		p.done = make(chan struct{})
		go func() {
			p.wg.Wait()
			close(p.done)
		}()
	})
	return p.done
}

func (p *Pool) Stats() StatsSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats.snapshot()
}

func (p *Pool) isStopped() bool {
	select {
	case <-p.stop:
		return true
	default:
		return false
	}
}

func (p *Pool) worker(ctx context.Context, workerID int) {
	defer p.wg.Done()

	p.logger.Debug(ctx, "Worker started", "worker_id", workerID)

	for {
		// Checked first so a stopped or cancelled pool never picks up another task.
		if p.isStopped() {
			p.logger.Debug(ctx, "Worker stopping", "worker_id", workerID)
			return
		}
		if ctx.Err() != nil {
			p.logger.Debug(ctx, "Context done, worker stopping", "worker_id", workerID)
			return
		}

		select {
		case <-p.stop:
			p.logger.Debug(ctx, "Worker stopping", "worker_id", workerID)
			return
		case <-ctx.Done():
			p.logger.Debug(ctx, "Context done, worker stopping", "worker_id", workerID)
			return
		case task := <-p.queue:
			if task == nil {
				p.logger.Debug(ctx, "Sentinel received, worker stopping", "worker_id", workerID)
				return
			}
			p.process(ctx, *task, workerID)
		}
	}
}

// process runs one dequeued task to completion. Cancelling the run context
// stops workers from taking new tasks but does not reach the handler, so a
// file already being read or saved is not cut short.
func (p *Pool) process(ctx context.Context, task domain.FileTask, workerID int) {
	taskCtx := logger.WithFile(context.WithoutCancel(ctx), task.Source())
	if task.PartnerID != "" {
		taskCtx = logger.WithPartnerID(taskCtx, task.PartnerID)
	}

	started := time.Now()
	outcome, err := p.safeHandle(taskCtx, task)
	elapsed := time.Since(started)

	if err != nil {
		p.logger.Error(taskCtx, "Failed to process file",
			"file", task.DisplayName(),
			"worker_id", workerID,
			"error", err.Error(),
		)
	} else {
		p.logger.Debug(taskCtx, "File processed",
			"file", task.DisplayName(),
			"worker_id", workerID,
			"rows", outcome.Rows,
			"errors", outcome.Errors,
		)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.observe(elapsed)
	if err != nil {
		p.stats.FailedFiles++
	} else {
		p.stats.ProcessedFiles++
		p.stats.ProcessedRows += outcome.Rows
		p.stats.ErrorsFound += outcome.Errors
		if outcome.Category != "" {
			p.stats.Categories[outcome.Category]++
		}
	}
	if p.progress != nil {
		p.progress(p.stats.snapshot())
	}
}

func (p *Pool) safeHandle(ctx context.Context, task domain.FileTask) (outcome Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while handling %s: %v", task.DisplayName(), r)
		}
	}()
	return p.handler.Handle(ctx, task)
}
