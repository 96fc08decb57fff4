package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/grachmannico95/branch-ingest/internal/domain"
)

// MemoryStore implements domain.Repository in process memory. It backs
// local runs and tests.
type MemoryStore struct {
	credentials map[string]domain.Credential
	transfers   []domain.TransferLog
	summaries   map[domain.SummaryKey]domain.ValidationSummary
	mu          sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		credentials: make(map[string]domain.Credential),
		summaries:   make(map[domain.SummaryKey]domain.ValidationSummary),
	}
}

// ParseCredentials reads "id:secret,id:secret" pairs.
func ParseCredentials(spec string) ([]domain.Credential, error) {
	var creds []domain.Credential
	for _, pair := range strings.Split(spec, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		id, secret, ok := strings.Cut(pair, ":")
		if !ok || id == "" || secret == "" {
			return nil, fmt.Errorf("invalid credential entry %q, expected id:secret", redactPair(pair))
		}
		creds = append(creds, domain.Credential{PartnerID: id, Secret: secret, Active: true, CreatedAt: time.Now()})
	}
	return creds, nil
}

func redactPair(pair string) string {
	if id, _, ok := strings.Cut(pair, ":"); ok {
		return id + ":[REDACTED]"
	}
	return pair
}

func (s *MemoryStore) PutCredential(c domain.Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials[c.PartnerID] = c
}

func (s *MemoryStore) FindActiveCredential(ctx context.Context, partnerID string) (*domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.credentials[partnerID]
	if !ok || !c.Active {
		return nil, domain.ErrCredentialNotFound
	}
	return &c, nil
}

func (s *MemoryStore) RecordTransfer(ctx context.Context, entry *domain.TransferLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := *entry
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	s.transfers = append(s.transfers, rec)
	entry.ID = rec.ID
	entry.CreatedAt = rec.CreatedAt
	return nil
}

// Transfers returns a copy of all transfer records in insertion order.
func (s *MemoryStore) Transfers() []domain.TransferLog {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.TransferLog, len(s.transfers))
	copy(out, s.transfers)
	return out
}

func (s *MemoryStore) UpsertSummary(ctx context.Context, summary *domain.ValidationSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.summaries[summary.Key()] = *summary
	return nil
}

func (s *MemoryStore) FindSummary(ctx context.Context, partnerID, filename string, date time.Time) (*domain.ValidationSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := domain.SummaryKey{PartnerID: partnerID, Filename: filename, ValidationDate: date.Format("2006-01-02")}
	summary, ok := s.summaries[key]
	if !ok {
		return nil, domain.ErrSummaryNotFound
	}
	return &summary, nil
}

func (s *MemoryStore) SummaryCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.summaries)
}
