package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metrics for uploads and batch validation.
var (
	UploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partner_uploads_total",
			Help: "Total number of archive uploads by outcome",
		},
		[]string{"status"},
	)

	UploadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "partner_upload_duration_seconds",
			Help:    "Duration of archive ingestion from request to transfer log",
			Buckets: prometheus.DefBuckets,
		},
	)

	UploadedFilesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "partner_uploaded_csv_files_total",
			Help: "Total number of CSV files written to storage",
		},
	)

	FilesValidatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "csv_files_validated_total",
			Help: "Total number of CSV files validated by category",
		},
		[]string{"category"},
	)

	FilesFailedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "csv_files_failed_total",
			Help: "Total number of CSV files the batch could not process",
		},
	)

	RowsValidatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "csv_rows_validated_total",
			Help: "Total number of data rows validated",
		},
	)

	RowErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "csv_row_errors_total",
			Help: "Total number of row errors by kind",
		},
		[]string{"kind"},
	)

	FileValidationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "csv_file_validation_duration_seconds",
			Help:    "Duration of a single file validation",
			Buckets: prometheus.DefBuckets,
		},
	)
)

var registerOnce sync.Once

// Register registers all Prometheus metrics with the default registry. Calls
// after the first are no-ops.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(UploadsTotal)
		prometheus.MustRegister(UploadDuration)
		prometheus.MustRegister(UploadedFilesTotal)
		prometheus.MustRegister(FilesValidatedTotal)
		prometheus.MustRegister(FilesFailedTotal)
		prometheus.MustRegister(RowsValidatedTotal)
		prometheus.MustRegister(RowErrorsTotal)
		prometheus.MustRegister(FileValidationDuration)
	})
}
