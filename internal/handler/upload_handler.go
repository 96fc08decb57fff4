package handler

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/grachmannico95/branch-ingest/internal/domain"
	"github.com/grachmannico95/branch-ingest/internal/service"
	"github.com/grachmannico95/branch-ingest/pkg/logger"
	"github.com/grachmannico95/branch-ingest/pkg/redact"
)

const (
	HeaderPartnerID = "X-Partner-ID"
	HeaderSignature = "X-Signature"
	HeaderTimestamp = "X-Timestamp"
	formFieldFile   = "file"
)

type UploadHandler struct {
	service service.IngestionService
	logger  *logger.Logger
}

func NewUploadHandler(service service.IngestionService, log *logger.Logger) *UploadHandler {
	return &UploadHandler{
		service: service,
		logger:  log,
	}
}

// Upload accepts one signed ZIP archive per request. Other methods get 405
// with the same JSON envelope as every other rejection.
func (h *UploadHandler) Upload(c echo.Context) error {
	ctx := c.Request().Context()

	if c.Request().Method != http.MethodPost {
		return c.JSON(http.StatusMethodNotAllowed, errorBody("method not allowed"))
	}

	req := c.Request()
	env := domain.UploadEnvelope{
		PartnerID:  req.Header.Get(HeaderPartnerID),
		Signature:  req.Header.Get(HeaderSignature),
		Timestamp:  req.Header.Get(HeaderTimestamp),
		RemoteAddr: c.RealIP(),
	}

	// A missing file is reported by the service so the attempt is still logged.
	file, err := c.FormFile(formFieldFile)
	var he *echo.HTTPError
	if errors.As(err, &he) && he.Code == http.StatusRequestEntityTooLarge {
		return c.JSON(http.StatusRequestEntityTooLarge, errorBody("request body too large"))
	}
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		h.logger.Warn(ctx, "Failed to read multipart form",
			"error", redact.Error(err),
		)
	}

	var src multipart.File
	if file != nil {
		src, err = file.Open()
		if err != nil {
			h.logger.Error(ctx, "Failed to open uploaded file",
				"error", redact.Error(err),
			)
			return c.JSON(http.StatusInternalServerError, errorBody(domain.MessageUnexpected))
		}
		defer src.Close()

		env.Filename = file.Filename
		env.Archive = src
	}

	result, err := h.service.Ingest(ctx, env)
	if err != nil {
		ie := domain.AsIngestError(err)
		return c.JSON(StatusFor(ie.Type), errorBody(redact.String(ie.PublicMessage())))
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":    "success",
		"message":   result.Message,
		"folder":    result.Folder,
		"csv_count": result.CSVCount,
	})
}

// StatusFor maps an ingestion failure kind to its HTTP status.
func StatusFor(t domain.ErrorType) int {
	switch t {
	case domain.ErrorTypeAuth:
		return http.StatusForbidden
	case domain.ErrorTypeFormat:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func errorBody(message string) map[string]string {
	return map[string]string{
		"status":  "error",
		"message": message,
	}
}
