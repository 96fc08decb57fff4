package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/grachmannico95/branch-ingest/internal/archive"
	"github.com/grachmannico95/branch-ingest/internal/blob"
	"github.com/grachmannico95/branch-ingest/internal/domain"
	"github.com/grachmannico95/branch-ingest/internal/metrics"
	"github.com/grachmannico95/branch-ingest/internal/signature"
	"github.com/grachmannico95/branch-ingest/internal/validator"
	"github.com/grachmannico95/branch-ingest/pkg/logger"
	"github.com/grachmannico95/branch-ingest/pkg/redact"
	"github.com/grachmannico95/branch-ingest/pkg/retry"
)

const maxListedHeaderFailures = 5

type IngestionService interface {
	Ingest(ctx context.Context, env domain.UploadEnvelope) (*domain.UploadResult, error)
}

type IngestionConfig struct {
	MaxArchiveBytes      int64
	MaxUncompressedBytes int64
	MaxEntries           int
	MaxCSVFiles          int
	// MaxClockSkew bounds |now - X-Timestamp|. Zero disables the check.
	MaxClockSkew  time.Duration
	TempDir       string
	RetryAttempts int
	RetryDelay    time.Duration
}

type ingestionService struct {
	repo   domain.Repository
	store  blob.Store
	cfg    IngestionConfig
	logger *logger.Logger
	now    func() time.Time
}

func NewIngestionService(repo domain.Repository, store blob.Store, cfg IngestionConfig, log *logger.Logger) IngestionService {
	return &ingestionService{
		repo:   repo,
		store:  store,
		cfg:    cfg,
		logger: log,
		now:    time.Now,
	}
}

// Ingest runs one upload through authentication, archive checks and transfer.
// Every call, successful or not, writes exactly one transfer log.
func (s *ingestionService) Ingest(ctx context.Context, env domain.UploadEnvelope) (result *domain.UploadResult, err error) {
	started := s.now()
	if env.PartnerID != "" {
		ctx = logger.WithPartnerID(ctx, env.PartnerID)
	}

	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = domain.NewUnexpectedError(fmt.Errorf("panic: %v", r))
		}
		s.finish(ctx, env, result, err, started)
	}()

	return s.ingest(ctx, env)
}

func (s *ingestionService) ingest(ctx context.Context, env domain.UploadEnvelope) (*domain.UploadResult, error) {
	if missing := missingParams(env); len(missing) > 0 {
		return nil, domain.NewFormatError("missing required parameters: %s", strings.Join(missing, ", "))
	}

	cred, err := s.repo.FindActiveCredential(ctx, env.PartnerID)
	if err != nil {
		if errors.Is(err, domain.ErrCredentialNotFound) {
			return nil, domain.NewAuthError(err)
		}
		return nil, domain.NewUnexpectedError(fmt.Errorf("credential lookup: %w", err))
	}

	if !strings.HasSuffix(env.Filename, ".zip") {
		return nil, domain.NewFormatError("only ZIP files are accepted")
	}

	if err := s.verifySignature(cred, env); err != nil {
		return nil, domain.NewAuthError(err)
	}

	name, err := archive.ParseArchiveName(env.Filename, env.PartnerID)
	if err != nil {
		return nil, domain.NewFormatError("%s", err.Error())
	}

	tmp, err := os.MkdirTemp(s.cfg.TempDir, "ingest-*")
	if err != nil {
		return nil, domain.NewUnexpectedError(fmt.Errorf("create temp dir: %w", err))
	}
	defer func() {
		if err := os.RemoveAll(tmp); err != nil {
			s.logger.Warn(ctx, "Failed to remove temp dir", "error", err.Error())
		}
	}()

	archivePath := filepath.Join(tmp, "upload.zip")
	if err := s.spool(env.Archive, archivePath); err != nil {
		return nil, err
	}

	extractDir := filepath.Join(tmp, "extracted")
	if err := os.Mkdir(extractDir, 0o700); err != nil {
		return nil, domain.NewUnexpectedError(fmt.Errorf("create extraction dir: %w", err))
	}
	if err := s.extract(archivePath, extractDir); err != nil {
		return nil, err
	}

	st, err := archive.ValidateStructure(extractDir, name, s.cfg.MaxCSVFiles)
	if err != nil {
		return nil, domain.NewFormatError("%s", err.Error())
	}

	if err := checkHeaders(st); err != nil {
		return nil, err
	}

	prefix := blob.FolderPrefix(env.PartnerID, name.Folder)
	transfer, err := blob.CopyFolder(ctx, s.store, st.Dir, st.Files, prefix, s.retryOptions()...)
	if err != nil {
		if transfer == nil {
			return nil, domain.NewStorageError("storage transfer failed", err)
		}
		s.logger.Warn(ctx, "Uploaded folder stored but stale objects remain",
			"prefix", prefix,
			"error", redact.Error(err),
		)
	}

	return &domain.UploadResult{
		Folder:      name.Folder,
		CSVCount:    len(st.Files),
		StoragePath: prefix,
		Message:     fmt.Sprintf("archive uploaded successfully, %d CSV files processed", len(st.Files)),
	}, nil
}

func missingParams(env domain.UploadEnvelope) []string {
	var missing []string
	if env.PartnerID == "" {
		missing = append(missing, "partner id")
	}
	if env.Signature == "" {
		missing = append(missing, "signature")
	}
	if env.Timestamp == "" {
		missing = append(missing, "timestamp")
	}
	if env.Archive == nil || env.Filename == "" {
		missing = append(missing, "file")
	}
	return missing
}

func (s *ingestionService) verifySignature(cred *domain.Credential, env domain.UploadEnvelope) error {
	if s.cfg.MaxClockSkew > 0 {
		ts, err := signature.ParseTimestamp(env.Timestamp)
		if err != nil {
			return err
		}
		if err := signature.CheckSkew(ts, s.now(), s.cfg.MaxClockSkew); err != nil {
			return err
		}
	}
	return signature.Verify(cred.Secret, env.PartnerID, env.Filename, env.Timestamp, env.Signature)
}

// spool copies the request body to disk, rejecting bodies over the size cap.
func (s *ingestionService) spool(src io.Reader, dst string) error {
	f, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return domain.NewUnexpectedError(fmt.Errorf("create spool file: %w", err))
	}
	defer f.Close()

	reader := src
	if s.cfg.MaxArchiveBytes > 0 {
		reader = io.LimitReader(src, s.cfg.MaxArchiveBytes+1)
	}

	n, err := io.Copy(f, reader)
	if err != nil {
		return domain.NewUnexpectedError(fmt.Errorf("read upload: %w", err))
	}
	if s.cfg.MaxArchiveBytes > 0 && n > s.cfg.MaxArchiveBytes {
		return domain.NewFormatError("archive exceeds the maximum size of %d MB", s.cfg.MaxArchiveBytes/(1<<20))
	}
	return nil
}

func (s *ingestionService) extract(archivePath, dest string) error {
	err := archive.Extract(archivePath, dest, archive.Limits{
		MaxUncompressedBytes: s.cfg.MaxUncompressedBytes,
		MaxEntries:           s.cfg.MaxEntries,
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, archive.ErrUnsafePath):
		return domain.NewFormatError("security error: %s", err.Error())
	case errors.Is(err, archive.ErrCorrupt), errors.Is(err, archive.ErrTooLarge), errors.Is(err, archive.ErrTooMany):
		return domain.NewFormatError("%s", err.Error())
	default:
		return domain.NewUnexpectedError(fmt.Errorf("extract archive: %w", err))
	}
}

func checkHeaders(st *archive.Structure) error {
	var failures []string
	for _, name := range st.Files {
		if err := checkHeader(filepath.Join(st.Dir, name)); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %s", name, err.Error()))
		}
	}
	if len(failures) == 0 {
		return nil
	}

	shown := failures
	if len(shown) > maxListedHeaderFailures {
		shown = shown[:maxListedHeaderFailures]
	}
	msg := "CSV format errors: " + strings.Join(shown, "; ")
	if extra := len(failures) - len(shown); extra > 0 {
		msg += fmt.Sprintf(" (and %d more)", extra)
	}
	return domain.NewFormatError("%s", msg)
}

func checkHeader(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.New("file could not be opened")
	}
	defer f.Close()
	return validator.CheckHeader(f)
}

func (s *ingestionService) retryOptions() []retry.Option {
	var opts []retry.Option
	if s.cfg.RetryAttempts > 0 {
		opts = append(opts, retry.WithMaxAttempts(s.cfg.RetryAttempts))
	}
	if s.cfg.RetryDelay > 0 {
		opts = append(opts, retry.WithBaseDelay(s.cfg.RetryDelay))
	}
	return opts
}

// finish writes the transfer log and metrics for a terminal outcome.
func (s *ingestionService) finish(ctx context.Context, env domain.UploadEnvelope, result *domain.UploadResult, err error, started time.Time) {
	entry := &domain.TransferLog{
		PartnerID:  env.PartnerID,
		Filename:   env.Filename,
		RemoteAddr: env.RemoteAddr,
		CreatedAt:  s.now(),
	}

	if err == nil {
		entry.Status = domain.TransferStatusSuccess
		entry.StoragePath = result.StoragePath
		entry.Message = fmt.Sprintf("%d CSV files uploaded", result.CSVCount)
		metrics.UploadedFilesTotal.Add(float64(result.CSVCount))
		s.logger.Info(ctx, "Archive ingested",
			"filename", env.Filename,
			"folder", result.Folder,
			"csv_count", result.CSVCount,
		)
	} else {
		ie := domain.AsIngestError(err)
		entry.Status = domain.TransferStatusFailed
		entry.Message = transferMessage(ie)
		s.logger.Warn(ctx, "Archive rejected",
			"filename", env.Filename,
			"error_type", string(ie.Type),
			"error", redact.Error(ie),
		)
	}

	metrics.UploadsTotal.WithLabelValues(string(entry.Status)).Inc()
	metrics.UploadDuration.Observe(s.now().Sub(started).Seconds())

	if logErr := s.repo.RecordTransfer(context.WithoutCancel(ctx), entry); logErr != nil {
		s.logger.Error(ctx, "Failed to record transfer log",
			"status", string(entry.Status),
			"error", redact.Error(logErr),
		)
	}
}

func transferMessage(ie *domain.IngestError) string {
	switch ie.Type {
	case domain.ErrorTypeFormat:
		return redact.String(ie.Message)
	case domain.ErrorTypeStorage:
		return "storage transfer failed: " + redact.Error(ie.Err)
	case domain.ErrorTypeAuth:
		return "authentication failed: " + redact.Error(ie.Err)
	default:
		return "unexpected error: " + redact.Error(ie.Err)
	}
}
