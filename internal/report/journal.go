package report

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/grachmannico95/branch-ingest/internal/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SessionSummary closes one batch run in the journal.
type SessionSummary struct {
	TotalFiles     int
	ProcessedFiles int
	FailedFiles    int
	TotalRows      int
	TotalErrors    int
	Categories     map[domain.Category]int
	Elapsed        time.Duration
}

// Journal appends JSON lines to csv_validation_YYYY-MM-DD.json in its
// directory. Safe for concurrent use.
type Journal struct {
	mu        sync.Mutex
	path      string
	sessionID string
	started   time.Time
	now       func() time.Time
}

func NewJournal(dir, sessionID string, now func() time.Time) (*Journal, error) {
	if now == nil {
		now = time.Now
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}

	started := now()
	return &Journal{
		path:      filepath.Join(dir, fmt.Sprintf("csv_validation_%s.json", started.Format("2006-01-02"))),
		sessionID: sessionID,
		started:   started,
		now:       now,
	}, nil
}

func (j *Journal) Path() string {
	return j.path
}

func (j *Journal) SessionID() string {
	return j.sessionID
}

// RecordFile appends one per-file summary record.
func (j *Journal) RecordFile(s domain.ValidationSummary) error {
	record := JSONSummary(s)
	record["type"] = "file"
	record["session_id"] = j.sessionID
	record["timestamp"] = j.now().Format(time.RFC3339)
	return j.append(record)
}

// RecordSession appends the closing record of a run.
func (j *Journal) RecordSession(s SessionSummary) error {
	seconds := s.Elapsed.Seconds()
	rowsPerSecond := 0.0
	if seconds > 0 {
		rowsPerSecond = Round2(float64(s.TotalRows) / seconds)
	}

	categories := map[string]int{}
	for c, n := range s.Categories {
		categories[string(c)] = n
	}

	end := j.now()
	return j.append(map[string]interface{}{
		"type":                    "session_summary",
		"session_id":              j.sessionID,
		"timestamp":               end.Format(time.RFC3339),
		"session_start":           j.started.Format(time.RFC3339),
		"session_end":             end.Format(time.RFC3339),
		"total_files":             s.TotalFiles,
		"processed_files":         s.ProcessedFiles,
		"failed_files":            s.FailedFiles,
		"total_rows":              s.TotalRows,
		"total_errors":            s.TotalErrors,
		"category_stats":          categories,
		"processing_time_seconds": Round2(seconds),
		"rows_per_second":         rowsPerSecond,
	})
}

func (j *Journal) append(record map[string]interface{}) error {
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode journal record: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if _, err := w.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write journal: %w", err)
	}
	return w.Flush()
}

// ReadJournal loads every record of a journal file.
func ReadJournal(path string) ([]map[string]interface{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []map[string]interface{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var rec map[string]interface{}
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("decode journal line: %w", err)
		}
		records = append(records, rec)
	}
	return records, scanner.Err()
}
