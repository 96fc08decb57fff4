package report

import (
	"math"

	"github.com/grachmannico95/branch-ingest/internal/domain"
)

// AccuracyRate is the share of rows without errors, where errors counts
// occurrences. A file with no data rows scores 100 unless it failed before any
// row was read (bad header, unreadable source), which scores 0.
func AccuracyRate(totalRows, errorCount int) float64 {
	if totalRows <= 0 {
		if errorCount > 0 {
			return 0
		}
		return 100
	}
	rate := float64(totalRows-errorCount) / float64(totalRows) * 100
	return math.Max(0, math.Min(100, rate))
}

// Round2 rounds to two decimals for storage and display.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// StoredRate is the two-decimal rate that is persisted and categorized. A
// file with any error never rounds up to 100.
func StoredRate(rate float64) float64 {
	rounded := Round2(rate)
	if rounded == 100 && rate < 100 {
		return 99.99
	}
	return rounded
}

func CategoryOf(rate float64) domain.Category {
	switch {
	case rate == 100:
		return domain.CategoryPerfect
	case rate >= 80:
		return domain.CategoryGood
	case rate >= 50:
		return domain.CategoryMedium
	default:
		return domain.CategoryCritical
	}
}

func categorySymbol(c domain.Category) string {
	switch c {
	case domain.CategoryPerfect:
		return "OK"
	case domain.CategoryGood:
		return "GOOD"
	case domain.CategoryMedium:
		return "WARN"
	default:
		return "ERROR"
	}
}
