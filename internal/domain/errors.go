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
	ErrCodeRateLimited      = "RATE_LIMITED"
	ErrCodeUnavailable      = "UNAVAILABLE"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
)

// Validation errors
var (
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrEmptyChunkContent    = NewDomainError(ErrCodeValidation, "chunk content cannot be empty")
	ErrEmbeddingTooLong     = NewDomainError(ErrCodeValidation, "embedding exceeds schema dimensionality")
	ErrEmptyQuery           = NewDomainError(ErrCodeValidation, "query cannot be empty")
)

// Not found errors
var (
	ErrDocumentNotFound = NewDomainError(ErrCodeNotFound, "document not found")
)

// Operation errors
var (
	ErrZeroVector = NewDomainError(ErrCodeInvalidOperation, "cosine search over an all-zero embedding is undefined")
)

// Availability errors
var (
	ErrRateLimited      = NewDomainError(ErrCodeRateLimited, "rate limit exceeded")
	ErrStoreUnavailable = NewDomainError(ErrCodeUnavailable, "document store unavailable")
)
