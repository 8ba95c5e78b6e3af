package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target carries the same code and message, so a sentinel
// still matches after Wrap attaches a cause.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// Wrap returns a copy of the error with cause attached.
func (e *DomainError) Wrap(cause error) *DomainError {
	return &DomainError{Code: e.Code, Message: e.Message, Err: cause}
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeAlreadyExists    = "ALREADY_EXISTS"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
)

// Pipeline error codes
const (
	ErrCodeDuplicateContent     = "DUPLICATE_CONTENT"
	ErrCodeParseFailure         = "PARSE_FAILURE"
	ErrCodeEmbedTransient       = "EMBED_TRANSIENT"
	ErrCodeEmbedFatal           = "EMBED_FATAL"
	ErrCodeStorageFailure       = "STORAGE_FAILURE"
	ErrCodeDiscoveryFailure     = "DISCOVERY_FAILURE"
	ErrCodeOrchestrationTimeout = "ORCHESTRATION_TIMEOUT"
)

// Validation errors
var (
	ErrInvalidDocumentStatus = NewDomainError(ErrCodeValidation, "invalid document status")
	ErrInvalidJobType        = NewDomainError(ErrCodeValidation, "invalid job type")
	ErrInvalidJobStatus      = NewDomainError(ErrCodeValidation, "invalid job status")
	ErrMissingRequiredField  = NewDomainError(ErrCodeValidation, "missing required field")
	ErrInvalidRetention      = NewDomainError(ErrCodeValidation, "retention days must not be negative")
	ErrInvalidConcurrency    = NewDomainError(ErrCodeValidation, "concurrency must be at least 1")
	ErrInvalidCursor         = NewDomainError(ErrCodeValidation, "invalid cursor")
)

// Not found errors
var (
	ErrDocumentNotFound = NewDomainError(ErrCodeNotFound, "document not found")
	ErrJobNotFound      = NewDomainError(ErrCodeNotFound, "ingestion job not found")
)

// Already exists errors
var (
	ErrDuplicateContent = NewDomainError(ErrCodeDuplicateContent, "document with identical content already exists")
)

// Authorization errors
var (
	ErrInvalidAdminToken = NewDomainError(ErrCodeUnauthorized, "invalid admin token")
)

// Operation errors
var (
	ErrDocumentDeleted = NewDomainError(ErrCodeInvalidOperation, "document is deleted")
)

// Pipeline errors. EmbedTransient is the only retryable kind.
var (
	ErrParseFailure         = NewDomainError(ErrCodeParseFailure, "failed to parse document")
	ErrUnsupportedFileType  = NewDomainError(ErrCodeParseFailure, "unsupported file type")
	ErrEmbedTransient       = NewDomainError(ErrCodeEmbedTransient, "embedding temporarily unavailable")
	ErrEmbedFatal           = NewDomainError(ErrCodeEmbedFatal, "embedding failed")
	ErrStorageFailure       = NewDomainError(ErrCodeStorageFailure, "storage operation failed")
	ErrDiscoveryFailure     = NewDomainError(ErrCodeDiscoveryFailure, "failed to list remote files")
	ErrOrchestrationTimeout = NewDomainError(ErrCodeOrchestrationTimeout, "item exceeded its time budget")
)
