package domain

import (
	"context"
	"time"
)

// CredentialStore is the single read path for partner credentials.
type CredentialStore interface {
	// FindActiveCredential returns ErrCredentialNotFound for unknown and
	// inactive partners alike.
	FindActiveCredential(ctx context.Context, partnerID string) (*Credential, error)
}

type TransferLogStore interface {
	RecordTransfer(ctx context.Context, entry *TransferLog) error
}

type SummaryStore interface {
	// UpsertSummary inserts or replaces the summary keyed by
	// (partner, filename, validation date).
	UpsertSummary(ctx context.Context, summary *ValidationSummary) error
	FindSummary(ctx context.Context, partnerID, filename string, date time.Time) (*ValidationSummary, error)
}

type Repository interface {
	CredentialStore
	TransferLogStore
	SummaryStore
}
