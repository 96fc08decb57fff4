package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/grachmannico95/branch-ingest/internal/domain"
	"github.com/grachmannico95/branch-ingest/pkg/logger"
	"github.com/grachmannico95/branch-ingest/pkg/retry"
)

type credentialModel struct {
	PartnerID string `gorm:"primaryKey;size:64"`
	Name      string `gorm:"size:255"`
	SecretKey string `gorm:"size:255;not null"`
	IsActive  bool   `gorm:"not null;default:true"`
	CreatedAt time.Time
}

func (credentialModel) TableName() string { return "partner_credentials" }

type transferLogModel struct {
	ID          string `gorm:"primaryKey;size:36"`
	PartnerID   string `gorm:"index;size:64;not null"`
	Filename    string `gorm:"size:255;not null"`
	StoragePath string `gorm:"size:1024"`
	Status      string `gorm:"size:16;not null"`
	Message     string `gorm:"type:text"`
	RemoteAddr  string `gorm:"size:64"`
	CreatedAt   time.Time
}

func (transferLogModel) TableName() string { return "transfer_logs" }

type summaryModel struct {
	ID             uint                 `gorm:"primaryKey"`
	PartnerID      string               `gorm:"uniqueIndex:idx_summary_key;size:64;not null"`
	Filename       string               `gorm:"uniqueIndex:idx_summary_key;size:255;not null"`
	ValidationDate time.Time            `gorm:"uniqueIndex:idx_summary_key;type:date;not null"`
	TotalRows      int                  `gorm:"not null"`
	ErrorCount     int                  `gorm:"not null"`
	AccuracyRate   float64              `gorm:"not null"`
	Category       string               `gorm:"size:16;not null"`
	ErrorSummary   domain.GroupedErrors `gorm:"type:jsonb;serializer:json"`
	Message        string               `gorm:"type:text"`
	DetectedAt     time.Time            `gorm:"not null"`
}

func (summaryModel) TableName() string { return "validation_summaries" }

// PostgresStore implements domain.Repository on top of gorm.
type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStoreFromDB(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// NewPostgresStore connects with retry, sizes the pool and migrates the three
// tables.
func NewPostgresStore(ctx context.Context, dsn string, log *logger.Logger, opts ...retry.Option) (*PostgresStore, error) {
	var db *gorm.DB
	err := retry.Do(ctx, func() error {
		var err error
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			log.Warn(ctx, "database connection failed, retrying", "error", err.Error())
		}
		return err
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err == nil {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}

	store := NewPostgresStoreFromDB(db)
	if err := store.Migrate(ctx); err != nil {
		return nil, err
	}

	log.Info(ctx, "connected to postgres")
	return store, nil
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&credentialModel{}, &transferLogModel{}, &summaryModel{}); err != nil {
		return fmt.Errorf("auto migrate failed: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *PostgresStore) FindActiveCredential(ctx context.Context, partnerID string) (*domain.Credential, error) {
	var m credentialModel
	err := s.db.WithContext(ctx).
		Where("partner_id = ? AND is_active = ?", partnerID, true).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCredentialNotFound
		}
		return nil, fmt.Errorf("failed to query credential: %w", err)
	}

	return &domain.Credential{
		PartnerID: m.PartnerID,
		Name:      m.Name,
		Secret:    m.SecretKey,
		Active:    m.IsActive,
		CreatedAt: m.CreatedAt,
	}, nil
}

func (s *PostgresStore) RecordTransfer(ctx context.Context, entry *domain.TransferLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	m := transferLogModel{
		ID:          entry.ID,
		PartnerID:   entry.PartnerID,
		Filename:    entry.Filename,
		StoragePath: entry.StoragePath,
		Status:      string(entry.Status),
		Message:     entry.Message,
		RemoteAddr:  entry.RemoteAddr,
		CreatedAt:   entry.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("failed to record transfer: %w", err)
	}
	return nil
}

// UpsertSummary inserts or replaces the summary for its
// (partner_id, filename, validation_date) key.
func (s *PostgresStore) UpsertSummary(ctx context.Context, summary *domain.ValidationSummary) error {
	m := summaryModel{
		PartnerID:      summary.PartnerID,
		Filename:       summary.Filename,
		ValidationDate: dateOnly(summary.ValidationDate),
		TotalRows:      summary.TotalRows,
		ErrorCount:     summary.ErrorCount,
		AccuracyRate:   summary.AccuracyRate,
		Category:       string(summary.Category),
		ErrorSummary:   summary.Errors,
		Message:        summary.Message,
		DetectedAt:     summary.DetectedAt,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "partner_id"}, {Name: "filename"}, {Name: "validation_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_rows", "error_count", "accuracy_rate", "category",
			"error_summary", "message", "detected_at",
		}),
	}).Create(&m).Error
	if err != nil {
		return fmt.Errorf("failed to upsert summary for %s: %w", summary.Filename, err)
	}
	return nil
}

func (s *PostgresStore) FindSummary(ctx context.Context, partnerID, filename string, date time.Time) (*domain.ValidationSummary, error) {
	var m summaryModel
	err := s.db.WithContext(ctx).
		Where("partner_id = ? AND filename = ? AND validation_date = ?", partnerID, filename, dateOnly(date)).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrSummaryNotFound
		}
		return nil, fmt.Errorf("failed to query summary: %w", err)
	}

	return &domain.ValidationSummary{
		PartnerID:      m.PartnerID,
		Filename:       m.Filename,
		ValidationDate: m.ValidationDate,
		TotalRows:      m.TotalRows,
		ErrorCount:     m.ErrorCount,
		AccuracyRate:   m.AccuracyRate,
		Category:       domain.Category(m.Category),
		Errors:         m.ErrorSummary,
		Message:        m.Message,
		DetectedAt:     m.DetectedAt,
	}, nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
