package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/grachmannico95/branch-ingest/internal/blob"
	"github.com/grachmannico95/branch-ingest/internal/domain"
	"github.com/grachmannico95/branch-ingest/internal/pipeline"
	"github.com/grachmannico95/branch-ingest/internal/report"
	"github.com/grachmannico95/branch-ingest/internal/runlock"
	"github.com/grachmannico95/branch-ingest/pkg/logger"
)

const progressEvery = 10

type Discoverer interface {
	Discover(ctx context.Context, date time.Time, partnerID string) ([]domain.FileTask, error)
}

type RunOptions struct {
	Date        time.Time
	Workers     int
	DryRun      bool
	PartnerID   string
	JoinTimeout time.Duration
}

type RunReport struct {
	SessionID   string
	Date        time.Time
	DryRun      bool
	Stats       pipeline.StatsSnapshot
	JournalPath string
}

type BatchConfig struct {
	LockDir    string
	JournalDir string
	QueueSize  int
	// Out receives per-file status lines and the run summary. Optional.
	Out io.Writer
}

// BatchRunner validates every stored file of one business date.
type BatchRunner struct {
	summaries  domain.SummaryStore
	store      blob.Store
	discoverer Discoverer
	cfg        BatchConfig
	logger     *logger.Logger
}

func NewBatchRunner(summaries domain.SummaryStore, store blob.Store, discoverer Discoverer, cfg BatchConfig, log *logger.Logger) *BatchRunner {
	return &BatchRunner{
		summaries:  summaries,
		store:      store,
		discoverer: discoverer,
		cfg:        cfg,
		logger:     log,
	}
}

// Run holds the per-date lock for its whole duration. A join timeout returns
// the report gathered so far together with the error, and the lock stays held
// until the remaining workers have exited.
func (r *BatchRunner) Run(ctx context.Context, opts RunOptions) (*RunReport, error) {
	lock, err := runlock.Acquire(r.cfg.LockDir, opts.Date)
	if err != nil {
		return nil, err
	}
	var drained <-chan struct{}
	defer func() {
		release := func() {
			if err := lock.Release(); err != nil {
				r.logger.Warn(ctx, "Failed to release run lock", "error", err.Error())
			}
		}
		if drained == nil {
			release()
			return
		}
		go func() {
			<-drained
			release()
		}()
	}()

	sessionID := uuid.New().String()
	ctx = logger.WithTraceID(ctx, sessionID)
	rep := &RunReport{SessionID: sessionID, Date: opts.Date, DryRun: opts.DryRun}

	r.logger.Info(ctx, "Starting validation run",
		"date", opts.Date.Format("2006-01-02"),
		"workers", opts.Workers,
		"dry_run", opts.DryRun,
		"partner_id", opts.PartnerID,
	)

	tasks, err := r.discoverer.Discover(ctx, opts.Date, opts.PartnerID)
	if err != nil {
		return nil, fmt.Errorf("discover files: %w", err)
	}

	var journal *report.Journal
	if r.cfg.JournalDir != "" {
		journal, err = report.NewJournal(r.cfg.JournalDir, sessionID, nil)
		if err != nil {
			return nil, err
		}
		rep.JournalPath = journal.Path()
	}

	if len(tasks) == 0 {
		r.logger.Info(ctx, "No files found for date", "date", opts.Date.Format("2006-01-02"))
		r.finish(ctx, rep, journal)
		return rep, nil
	}

	handler := NewFileValidator(r.summaries, r.store, FileValidatorConfig{
		Date:    opts.Date,
		DryRun:  opts.DryRun,
		Journal: journal,
		Out:     r.cfg.Out,
	}, r.logger)

	pool := pipeline.New(handler, r.logger, pipeline.Config{Workers: opts.Workers, QueueSize: r.cfg.QueueSize})
	pool.OnProgress(func(s pipeline.StatsSnapshot) {
		done := s.ProcessedFiles + s.FailedFiles
		if done%progressEvery == 0 || done == len(tasks) {
			r.logger.Info(ctx, "Progress",
				"done", done,
				"total", len(tasks),
				"rows", s.ProcessedRows,
				"errors", s.ErrorsFound,
			)
		}
	})

	pool.Start(ctx)
	submitErr := pool.Submit(ctx, tasks...)
	if submitErr != nil {
		r.logger.Warn(ctx, "Stopping run before all files were queued", "error", submitErr.Error())
		pool.Stop()
	}
	waitErr := pool.Wait(ctx, opts.JoinTimeout)
	if waitErr != nil {
		r.logger.Warn(ctx, "Keeping run lock until remaining workers exit", "lock", lock.Path())
		drained = pool.Done()
	}

	rep.Stats = pool.Stats()
	r.finish(ctx, rep, journal)

	return rep, errors.Join(submitErr, waitErr)
}

func (r *BatchRunner) finish(ctx context.Context, rep *RunReport, journal *report.Journal) {
	s := rep.Stats
	if journal != nil {
		err := journal.RecordSession(report.SessionSummary{
			TotalFiles:     s.TotalFiles,
			ProcessedFiles: s.ProcessedFiles,
			FailedFiles:    s.FailedFiles,
			TotalRows:      s.ProcessedRows,
			TotalErrors:    s.ErrorsFound,
			Categories:     s.Categories,
			Elapsed:        s.Elapsed(),
		})
		if err != nil {
			r.logger.Warn(ctx, "Failed to write session summary", "error", err.Error())
		}
	}

	r.logger.Info(ctx, "Validation run finished",
		"total_files", s.TotalFiles,
		"processed_files", s.ProcessedFiles,
		"failed_files", s.FailedFiles,
		"rows", s.ProcessedRows,
		"errors", s.ErrorsFound,
		"elapsed", s.Elapsed().String(),
		"latency_p95", s.LatencyP95.String(),
	)

	if r.cfg.Out != nil {
		fmt.Fprint(r.cfg.Out, FormatRunSummary(*rep))
	}
}

// FormatRunSummary renders the closing console report of a run.
func FormatRunSummary(rep RunReport) string {
	s := rep.Stats
	var b strings.Builder
	rule := strings.Repeat("=", 70)

	fmt.Fprintf(&b, "\n%s\nRUN COMPLETE\n%s\n", rule, rule)
	fmt.Fprintf(&b, "Date: %s\n", rep.Date.Format("2006-01-02"))
	if rep.DryRun {
		b.WriteString("Mode: dry run (no summaries saved)\n")
	}
	fmt.Fprintf(&b, "  - Files found: %d\n", s.TotalFiles)
	fmt.Fprintf(&b, "  - Files processed: %d\n", s.ProcessedFiles)
	fmt.Fprintf(&b, "  - Files failed: %d\n", s.FailedFiles)
	fmt.Fprintf(&b, "  - Total rows: %d\n", s.ProcessedRows)
	fmt.Fprintf(&b, "  - Errors found: %d\n", s.ErrorsFound)
	fmt.Fprintf(&b, "  - Processing time: %.2f seconds\n", s.Elapsed().Seconds())
	if rps := s.RowsPerSecond(); rps > 0 {
		fmt.Fprintf(&b, "  - Throughput: %.1f rows/second\n", rps)
	}

	if len(s.Categories) > 0 {
		b.WriteString("\nAccuracy categories:\n")
		for _, c := range sortedCategories(s.Categories) {
			fmt.Fprintf(&b, "  - %s: %d\n", c, s.Categories[c])
		}
	}
	if rep.JournalPath != "" {
		fmt.Fprintf(&b, "\nJournal: %s\n", rep.JournalPath)
	}
	return b.String()
}

func sortedCategories(m map[domain.Category]int) []domain.Category {
	order := map[domain.Category]int{
		domain.CategoryPerfect:  0,
		domain.CategoryGood:     1,
		domain.CategoryMedium:   2,
		domain.CategoryCritical: 3,
	}
	out := make([]domain.Category, 0, len(m))
	for c := range m {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		oi, iok := order[out[i]]
		oj, jok := order[out[j]]
		if iok != jok {
			return iok
		}
		if oi != oj {
			return oi < oj
		}
		return out[i] < out[j]
	})
	return out
}
