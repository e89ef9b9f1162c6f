package domain

import "fmt"

// DomainError represents a domain-specific error with a code and message
type DomainError struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Error codes
const (
	ErrCodeUnreachable  = "UNREACHABLE"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeServer       = "SERVER_ERROR"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// Error constructors

// NewUnreachableError creates an error signaling the upstream could not be
// reached (transport failure, timeout, or 404 route). Callers treat this as
// the trigger for degraded-mode fallback.
func NewUnreachableError(err error) error {
	return &DomainError{
		Code:    ErrCodeUnreachable,
		Message: "Upstream backend is unreachable",
		Err:     err,
	}
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError() error {
	return &DomainError{
		Code:    ErrCodeUnauthorized,
		Message: "Authentication required",
	}
}

// NewValidationError creates a new validation error
func NewValidationError(msg string) error {
	return &DomainError{
		Code:    ErrCodeValidation,
		Message: msg,
	}
}

// NewUpstreamValidationError wraps an upstream 4xx rejection, preserving the
// original status code and response body message.
func NewUpstreamValidationError(status int, msg string) error {
	if msg == "" {
		msg = "Upstream rejected the request"
	}
	return &DomainError{
		Code:    ErrCodeValidation,
		Message: msg,
		Status:  status,
	}
}

// NewServerError wraps an upstream 5xx response
func NewServerError(status int, msg string) error {
	if msg == "" {
		msg = "Upstream server error"
	}
	return &DomainError{
		Code:    ErrCodeServer,
		Message: msg,
		Status:  status,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource string) error {
	return &DomainError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// NewBadRequestError creates a new bad request error
func NewBadRequestError(msg string) error {
	return &DomainError{
		Code:    ErrCodeBadRequest,
		Message: msg,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(err error) error {
	return &DomainError{
		Code:    ErrCodeInternal,
		Message: "An internal error occurred",
		Err:     err,
	}
}

// Helper functions to check error types

// IsUnreachable checks if the error is a degraded-mode trigger
func IsUnreachable(err error) bool {
	if de, ok := err.(*DomainError); ok {
		return de.Code == ErrCodeUnreachable
	}
	return false
}

// IsUnauthorized checks if the error is an unauthorized error
func IsUnauthorized(err error) bool {
	if de, ok := err.(*DomainError); ok {
		return de.Code == ErrCodeUnauthorized
	}
	return false
}

// IsValidation checks if the error is a validation error
func IsValidation(err error) bool {
	if de, ok := err.(*DomainError); ok {
		return de.Code == ErrCodeValidation
	}
	return false
}

// IsServer checks if the error is an upstream server error
func IsServer(err error) bool {
	if de, ok := err.(*DomainError); ok {
		return de.Code == ErrCodeServer
	}
	return false
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	if de, ok := err.(*DomainError); ok {
		return de.Code == ErrCodeNotFound
	}
	return false
}

// IsBadRequest checks if the error is a bad request error
func IsBadRequest(err error) bool {
	if de, ok := err.(*DomainError); ok {
		return de.Code == ErrCodeBadRequest
	}
	return false
}

// GetErrorCode extracts the error code from a domain error
func GetErrorCode(err error) string {
	if de, ok := err.(*DomainError); ok {
		return de.Code
	}
	return ErrCodeInternal
}
