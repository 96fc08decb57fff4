package pipeline

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/grachmannico95/branch-ingest/internal/domain"
)

const (
	minLatencyMicros = 1
	maxLatencyMicros = int64(time.Hour / time.Microsecond)
	latencySigFigs   = 3
)

// Stats is shared by all workers of one pool and guarded by Pool.mu.
type Stats struct {
	TotalFiles     int
	ProcessedFiles int
	FailedFiles    int
	ProcessedRows  int
	ErrorsFound    int
	Categories     map[domain.Category]int
	StartTime      time.Time
	EndTime        time.Time

	latency *hdrhistogram.Histogram
}

func newStats() Stats {
	return Stats{
		Categories: make(map[domain.Category]int),
		latency:    hdrhistogram.New(minLatencyMicros, maxLatencyMicros, latencySigFigs),
	}
}

func (s *Stats) observe(d time.Duration) {
	v := d.Microseconds()
	if v < minLatencyMicros {
		v = minLatencyMicros
	}
	if v > maxLatencyMicros {
		v = maxLatencyMicros
	}
	_ = s.latency.RecordValue(v)
}

// StatsSnapshot is a point-in-time copy of Stats safe to read without the
// pool lock.
type StatsSnapshot struct {
	TotalFiles     int
	ProcessedFiles int
	FailedFiles    int
	ProcessedRows  int
	ErrorsFound    int
	Categories     map[domain.Category]int
	StartTime      time.Time
	EndTime        time.Time
	LatencyP50     time.Duration
	LatencyP95     time.Duration
	LatencyP99     time.Duration
	LatencyMax     time.Duration
}

func (s *Stats) snapshot() StatsSnapshot {
	categories := make(map[domain.Category]int, len(s.Categories))
	for k, v := range s.Categories {
		categories[k] = v
	}

	snap := StatsSnapshot{
		TotalFiles:     s.TotalFiles,
		ProcessedFiles: s.ProcessedFiles,
		FailedFiles:    s.FailedFiles,
		ProcessedRows:  s.ProcessedRows,
		ErrorsFound:    s.ErrorsFound,
		Categories:     categories,
		StartTime:      s.StartTime,
		EndTime:        s.EndTime,
	}
	if s.latency.TotalCount() > 0 {
		snap.LatencyP50 = micros(s.latency.ValueAtQuantile(50))
		snap.LatencyP95 = micros(s.latency.ValueAtQuantile(95))
		snap.LatencyP99 = micros(s.latency.ValueAtQuantile(99))
		snap.LatencyMax = micros(s.latency.Max())
	}
	return snap
}

func micros(v int64) time.Duration {
	return time.Duration(v) * time.Microsecond
}

// Elapsed is measured up to EndTime, or up to now while the pool runs.
func (s StatsSnapshot) Elapsed() time.Duration {
	if s.StartTime.IsZero() {
		return 0
	}
	end := s.EndTime
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(s.StartTime)
}

func (s StatsSnapshot) RowsPerSecond() float64 {
	secs := s.Elapsed().Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(s.ProcessedRows) / secs
}
