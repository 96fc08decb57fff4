package domain

import (
	"errors"
	"fmt"
)

var (
	ErrCredentialNotFound = errors.New("credential not found")
	ErrSummaryNotFound    = errors.New("validation summary not found")
	ErrObjectNotFound     = errors.New("object not found")
	ErrPoolStopped        = errors.New("worker pool stopped")
	ErrRunLocked          = errors.New("another validation run holds the lock for this date")
)

// ErrorType classifies ingestion failures for status mapping.
type ErrorType string

const (
	ErrorTypeAuth       ErrorType = "AUTH"
	ErrorTypeFormat     ErrorType = "FORMAT"
	ErrorTypeStorage    ErrorType = "STORAGE"
	ErrorTypeUnexpected ErrorType = "UNEXPECTED"
)

// Generic messages shown to callers for the kinds that must not leak detail.
const (
	MessageInvalidPartner = "invalid or inactive partner"
	MessageStorageFailure = "failed to store uploaded files"
	MessageUnexpected     = "internal server error"
)

// IngestError is a terminal failure of an upload attempt. Message is safe to
// show to the caller for FORMAT errors only; Err keeps the internal cause.
type IngestError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *IngestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *IngestError) Unwrap() error {
	return e.Err
}

// PublicMessage is what the HTTP layer may echo back.
func (e *IngestError) PublicMessage() string {
	switch e.Type {
	case ErrorTypeAuth:
		return MessageInvalidPartner
	case ErrorTypeFormat:
		return e.Message
	case ErrorTypeStorage:
		return MessageStorageFailure
	default:
		return MessageUnexpected
	}
}

func NewAuthError(cause error) *IngestError {
	return &IngestError{Type: ErrorTypeAuth, Message: MessageInvalidPartner, Err: cause}
}

func NewFormatError(format string, args ...interface{}) *IngestError {
	return &IngestError{Type: ErrorTypeFormat, Message: fmt.Sprintf(format, args...)}
}

func NewStorageError(message string, cause error) *IngestError {
	return &IngestError{Type: ErrorTypeStorage, Message: message, Err: cause}
}

func NewUnexpectedError(cause error) *IngestError {
	return &IngestError{Type: ErrorTypeUnexpected, Message: "unexpected failure", Err: cause}
}

// AsIngestError converts any error into an IngestError, treating unknown
// errors as unexpected.
func AsIngestError(err error) *IngestError {
	if err == nil {
		return nil
	}
	var ie *IngestError
	if errors.As(err, &ie) {
		return ie
	}
	return NewUnexpectedError(err)
}
