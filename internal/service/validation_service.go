package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/grachmannico95/branch-ingest/internal/blob"
	"github.com/grachmannico95/branch-ingest/internal/domain"
	"github.com/grachmannico95/branch-ingest/internal/metrics"
	"github.com/grachmannico95/branch-ingest/internal/pipeline"
	"github.com/grachmannico95/branch-ingest/internal/report"
	"github.com/grachmannico95/branch-ingest/internal/validator"
	"github.com/grachmannico95/branch-ingest/pkg/logger"
)

// FileValidator is the pipeline handler: it validates one stored file and
// persists its summary for the run date.
type FileValidator struct {
	summaries domain.SummaryStore
	store     blob.Store
	journal   *report.Journal
	date      time.Time
	dryRun    bool
	logger    *logger.Logger
	now       func() time.Time

	outMu sync.Mutex
	out   io.Writer
}

type FileValidatorConfig struct {
	Date   time.Time
	DryRun bool
	// Journal and Out are optional.
	Journal *report.Journal
	Out     io.Writer
}

func NewFileValidator(summaries domain.SummaryStore, store blob.Store, cfg FileValidatorConfig, log *logger.Logger) *FileValidator {
	return &FileValidator{
		summaries: summaries,
		store:     store,
		journal:   cfg.Journal,
		date:      cfg.Date,
		dryRun:    cfg.DryRun,
		logger:    log,
		now:       time.Now,
		out:       cfg.Out,
	}
}

func (v *FileValidator) Handle(ctx context.Context, task domain.FileTask) (pipeline.Outcome, error) {
	started := time.Now()

	result := v.validate(ctx, task)
	summary := report.Summarize(task.PartnerID, task.DisplayName(), v.date, result, v.now())

	metrics.FileValidationDuration.Observe(time.Since(started).Seconds())

	if !v.dryRun {
		if err := v.summaries.UpsertSummary(ctx, &summary); err != nil {
			metrics.FilesFailedTotal.Inc()
			return pipeline.Outcome{}, fmt.Errorf("save summary: %w", err)
		}
	}

	if v.journal != nil {
		if err := v.journal.RecordFile(summary); err != nil {
			v.logger.Warn(ctx, "Failed to write journal record", "error", err.Error())
		}
	}

	v.report(ctx, summary, result)

	return pipeline.Outcome{
		Rows:     summary.TotalRows,
		Errors:   summary.ErrorCount,
		Category: summary.Category,
	}, nil
}

// validate streams the file from disk when a local path is known, otherwise
// from the blob store. Open failures become a single header error.
func (v *FileValidator) validate(ctx context.Context, task domain.FileTask) validator.Result {
	if task.Path != "" {
		return validator.ValidateFile(task.Path)
	}

	rc, err := v.store.Open(ctx, task.Key)
	if err != nil {
		v.logger.Warn(ctx, "Failed to open stored file", "key", task.Key, "error", err.Error())
		return validator.Unreadable(err)
	}
	defer rc.Close()

	return validator.Validate(rc)
}

func (v *FileValidator) report(ctx context.Context, summary domain.ValidationSummary, result validator.Result) {
	metrics.FilesValidatedTotal.WithLabelValues(string(summary.Category)).Inc()
	metrics.RowsValidatedTotal.Add(float64(summary.TotalRows))
	for _, e := range result.Errors {
		metrics.RowErrorsTotal.WithLabelValues(string(e.Kind)).Inc()
	}

	line := report.ConsoleLine(summary)
	v.logger.Info(ctx, line,
		"rows", summary.TotalRows,
		"errors", summary.ErrorCount,
		"accuracy_rate", summary.AccuracyRate,
		"category", string(summary.Category),
	)

	if v.out != nil {
		v.outMu.Lock()
		fmt.Fprintln(v.out, line)
		v.outMu.Unlock()
	}
}
