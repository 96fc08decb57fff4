package report

import (
	"fmt"
	"time"

	"github.com/grachmannico95/branch-ingest/internal/domain"
	"github.com/grachmannico95/branch-ingest/internal/validator"
)

// Summarize turns a validation result into the persisted per-file summary.
func Summarize(partnerID, filename string, date time.Time, result validator.Result, detectedAt time.Time) domain.ValidationSummary {
	errorCount := result.ErrorCount()
	// category, stored value and message all use the same rounded rate
	rate := StoredRate(AccuracyRate(result.TotalRows, errorCount))
	grouped := Group(result.Errors)

	return domain.ValidationSummary{
		PartnerID:      partnerID,
		Filename:       filename,
		ValidationDate: date,
		TotalRows:      result.TotalRows,
		ErrorCount:     errorCount,
		AccuracyRate:   rate,
		Category:       CategoryOf(rate),
		Errors:         grouped,
		Message: FormatMessage(MessageInput{
			Filename:     filename,
			TotalRows:    result.TotalRows,
			ErrorCount:   errorCount,
			AccuracyRate: rate,
			Errors:       grouped,
		}),
		DetectedAt: detectedAt,
	}
}

// JSONSummary is the machine-readable record written to the validation journal.
func JSONSummary(s domain.ValidationSummary) map[string]interface{} {
	errs := s.Errors
	if errs == nil {
		errs = domain.GroupedErrors{}
	}
	return map[string]interface{}{
		"filename":        s.Filename,
		"partner_id":      s.PartnerID,
		"validation_date": s.ValidationDate.Format("2006-01-02"),
		"total_rows":      s.TotalRows,
		"error_count":     s.ErrorCount,
		"accuracy_rate":   s.AccuracyRate,
		"error_summary":   errs,
		"category":        string(s.Category),
	}
}

// ConsoleLine is the one-line status printed per processed file.
func ConsoleLine(s domain.ValidationSummary) string {
	return fmt.Sprintf("[%s] %s: %d rows, %d errors (%.1f%% - %s)",
		categorySymbol(s.Category), s.Filename, s.TotalRows, s.ErrorCount, s.AccuracyRate, s.Category)
}
