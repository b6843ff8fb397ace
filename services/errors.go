package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeValidation  ErrorType = "validation"
	ErrorTypeUnavailable ErrorType = "unavailable"
	ErrorTypeExternal    ErrorType = "external"
	ErrorTypeInternal    ErrorType = "internal"
	ErrorTypeIngestion   ErrorType = "ingestion"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type && (t.Message == "" || e.Message == t.Message)
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// Domain error variables. Match them with errors.Is; wrapped copies keep the
// sentinel's type and message.
var (
	// Validation Errors
	ErrInvalidTopK   = NewDomainError(ErrorTypeValidation, "top_k is out of range", nil)
	ErrEmptyQuery    = NewDomainError(ErrorTypeValidation, "query cannot be empty", nil)
	ErrNoDocuments   = NewDomainError(ErrorTypeValidation, "at least one document is required", nil)
	ErrEmptyDocument = NewDomainError(ErrorTypeValidation, "document is empty after normalization", nil)

	// Generative model errors
	ErrLLMNotConfigured = NewDomainError(ErrorTypeUnavailable, "LLM endpoint not configured; set LLM_BASE_URL to enable chat", nil)
	ErrLLMUnreachable   = NewDomainError(ErrorTypeExternal, "LLM endpoint unreachable", nil)
	ErrLLMFailure       = NewDomainError(ErrorTypeInternal, "LLM request failed", nil)

	// Ingestion Errors
	ErrIngestion = NewDomainError(ErrorTypeIngestion, "ingestion failed", nil)
)

// Error type checking helper functions

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return GetErrorType(err) == ErrorTypeValidation
}

// IsUnavailableError checks if an error reports a missing optional dependency
func IsUnavailableError(err error) bool {
	return GetErrorType(err) == ErrorTypeUnavailable
}

// IsExternalError checks if an error is an unreachable external service
func IsExternalError(err error) bool {
	return GetErrorType(err) == ErrorTypeExternal
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	return GetErrorType(err) == ErrorTypeInternal
}

// IsIngestionError checks if an error came from a failed ingestion batch
func IsIngestionError(err error) bool {
	return GetErrorType(err) == ErrorTypeIngestion
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// Wrap returns a copy of sentinel carrying err as its cause.
func Wrap(sentinel *DomainError, err error) *DomainError {
	return NewDomainError(sentinel.Type, sentinel.Message, err)
}
