package shared

import "errors"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError with the same code
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound        = NewDomainError("NOT_FOUND", "Resource not found")
	ErrInvalidInput    = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrUnauthorized    = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrForbidden       = NewDomainError("FORBIDDEN", "Access to this resource is forbidden")
	ErrInvalidState    = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrRefreshRequired = NewDomainError("REFRESH_REQUIRED", "The order changed on the server, please refresh and retry")
	ErrRetryable       = NewDomainError("RETRYABLE", "Could not reach the server, check your connection and retry")
	ErrRequestInFlight = NewDomainError("REQUEST_IN_FLIGHT", "Another update for this order is still in progress")
	ErrSessionRequired = NewDomainError("SESSION_REQUIRED", "Please log in to continue")
)

// CodeOf returns the DomainError code carried by err, or an empty string
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsValidation reports whether err was raised locally before any request was dispatched
func IsValidation(err error) bool {
	code := CodeOf(err)
	if code == "" {
		return false
	}
	switch code {
	case ErrRefreshRequired.Code, ErrRetryable.Code, ErrUnauthorized.Code, ErrForbidden.Code, ErrSessionRequired.Code:
		return false
	}
	return true
}
