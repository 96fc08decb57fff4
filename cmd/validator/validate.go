package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/grachmannico95/branch-ingest/internal/bootstrap"
	"github.com/grachmannico95/branch-ingest/internal/config"
	"github.com/grachmannico95/branch-ingest/internal/discovery"
	"github.com/grachmannico95/branch-ingest/internal/metrics"
	"github.com/grachmannico95/branch-ingest/internal/service"
	"github.com/grachmannico95/branch-ingest/pkg/logger"
)

const dateLayout = "2006-01-02"

var (
	runDate     string
	workerCount int
	dryRun      bool
	partnerID   string
	joinTimeout time.Duration
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the stored CSV files of one business date",
	Long: `Validate discovers uploads/{partner}/branch_{partner}_{DDMMYYYY}/*.csv for the
given date, validates each file concurrently and upserts one summary per file.
Only one run per date may be active on a host.`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&runDate, "date", "", "business date YYYY-MM-DD (default yesterday)")
	validateCmd.Flags().IntVarP(&workerCount, "workers", "w", 4, "number of concurrent workers")
	validateCmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate without saving summaries")
	validateCmd.Flags().StringVar(&partnerID, "partner-id", "", "only validate this partner's files")
	validateCmd.Flags().DurationVar(&joinTimeout, "join-timeout", 10*time.Minute, "how long to wait for workers to finish")
}

func runValidate(cmd *cobra.Command, args []string) error {
	target, err := parseRunDate(runDate, time.Now())
	if err != nil {
		return err
	}
	if workerCount < 1 {
		return fmt.Errorf("--workers must be at least 1, got %d", workerCount)
	}

	cfg := config.Load()
	log := logger.New(cfg.Logging.Level)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Register()

	repo, closeRepo, err := bootstrap.OpenRepository(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize repository: %w", err)
	}
	defer closeRepo()

	store, err := bootstrap.OpenStore(ctx, cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	runner := service.NewBatchRunner(repo, store, discovery.NewStoreDiscoverer(store), service.BatchConfig{
		LockDir:    cfg.Validation.LockDir,
		JournalDir: cfg.Validation.JournalDir,
		QueueSize:  cfg.Worker.QueueSize,
		Out:        cmd.OutOrStdout(),
	}, log)

	_, err = runner.Run(ctx, service.RunOptions{
		Date:        target,
		Workers:     workerCount,
		DryRun:      dryRun,
		PartnerID:   partnerID,
		JoinTimeout: joinTimeout,
	})
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		return fmt.Errorf("validation interrupted: %w", context.Cause(ctx))
	}
	return nil
}

// parseRunDate reads --date as a calendar day; empty means the day before now.
func parseRunDate(value string, now time.Time) (time.Time, error) {
	if value == "" {
		y, m, d := now.AddDate(0, 0, -1).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q, expected YYYY-MM-DD", value)
	}
	return t, nil
}
