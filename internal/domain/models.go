package domain

import (
	"io"
	"path"
	"time"
)

// Credential identifies a partner allowed to upload archives.
type Credential struct {
	PartnerID string    `json:"partner_id"`
	Name      string    `json:"name"`
	Secret    string    `json:"-"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UploadEnvelope is one signed upload request. It lives for a single request.
type UploadEnvelope struct {
	PartnerID  string
	Signature  string
	Timestamp  string
	Filename   string
	Archive    io.Reader
	RemoteAddr string
}

// UploadResult describes an accepted archive.
type UploadResult struct {
	Folder      string `json:"folder"`
	CSVCount    int    `json:"csv_count"`
	StoragePath string `json:"storage_path"`
	Message     string `json:"message"`
}

type TransferStatus string

const (
	TransferStatusSuccess TransferStatus = "SUCCESS"
	TransferStatusFailed  TransferStatus = "FAILED"
)

// TransferLog records the terminal outcome of one ingestion attempt.
type TransferLog struct {
	ID          string         `json:"id"`
	PartnerID   string         `json:"partner_id"`
	Filename    string         `json:"filename"`
	StoragePath string         `json:"storage_path,omitempty"`
	Status      TransferStatus `json:"status"`
	Message     string         `json:"message,omitempty"`
	RemoteAddr  string         `json:"remote_addr,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// FileTask is one stored CSV file queued for batch validation. Exactly one of
// Path or Key is normally set.
type FileTask struct {
	Path      string `json:"path,omitempty"`
	Key       string `json:"key,omitempty"`
	PartnerID string `json:"partner_id"`
	Filename  string `json:"filename"`
}

// Source returns the location the task reads from, for logging.
func (t FileTask) Source() string {
	if t.Key != "" {
		return t.Key
	}
	return t.Path
}

// DisplayName falls back to the base name of the source when Filename is empty.
func (t FileTask) DisplayName() string {
	if t.Filename != "" {
		return t.Filename
	}
	return path.Base(t.Source())
}

type ErrorKind string

const (
	ErrorKindHeader     ErrorKind = "HEADER"
	ErrorKindDelimiter  ErrorKind = "DELIMITER"
	ErrorKindEmptyField ErrorKind = "EMPTY_FIELD"
	ErrorKindDateFormat ErrorKind = "DATE_FORMAT"
	ErrorKindDecimal    ErrorKind = "DECIMAL"
	ErrorKindNumeric    ErrorKind = "NUMERIC"
	ErrorKindStatus     ErrorKind = "STATUS"
)

// RowError is a single rule violation found by the CSV validator.
type RowError struct {
	Row    int       `json:"row"`
	Kind   ErrorKind `json:"kind"`
	Detail string    `json:"detail"`
	Raw    string    `json:"raw,omitempty"`
}

// ErrorGroup counts the occurrences of one normalized detail.
type ErrorGroup struct {
	Count int   `json:"count"`
	Rows  []int `json:"rows"`
}

// GroupedErrors maps kind -> normalized detail -> group.
type GroupedErrors map[ErrorKind]map[string]*ErrorGroup

// Total returns the number of error occurrences across all groups.
func (g GroupedErrors) Total() int {
	total := 0
	for _, details := range g {
		for _, group := range details {
			total += group.Count
		}
	}
	return total
}

type Category string

const (
	CategoryPerfect  Category = "Perfect"
	CategoryGood     Category = "Good"
	CategoryMedium   Category = "Medium"
	CategoryCritical Category = "Critical"
)

// ValidationSummary is the per-file result of a batch validation pass. At most
// one exists per (PartnerID, Filename, ValidationDate).
type ValidationSummary struct {
	PartnerID      string        `json:"partner_id"`
	Filename       string        `json:"filename"`
	ValidationDate time.Time     `json:"validation_date"`
	TotalRows      int           `json:"total_rows"`
	ErrorCount     int           `json:"error_count"`
	AccuracyRate   float64       `json:"accuracy_rate"`
	Category       Category      `json:"category"`
	Errors         GroupedErrors `json:"error_summary"`
	Message        string        `json:"message"`
	DetectedAt     time.Time     `json:"detected_at"`
}

// SummaryKey is the uniqueness key of a ValidationSummary.
type SummaryKey struct {
	PartnerID      string
	Filename       string
	ValidationDate string
}

func (s ValidationSummary) Key() SummaryKey {
	return SummaryKey{
		PartnerID:      s.PartnerID,
		Filename:       s.Filename,
		ValidationDate: s.ValidationDate.Format("2006-01-02"),
	}
}
