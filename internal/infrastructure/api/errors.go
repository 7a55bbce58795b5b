package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed call the way callers need to react to it
type Kind string

const (
	KindTransport    Kind = "transport"    // no response: network, DNS, timeout
	KindUnauthorized Kind = "unauthorized" // 401, session is no longer valid
	KindForbidden    Kind = "forbidden"    // 403
	KindNotFound     Kind = "not_found"    // 404
	KindConflict     Kind = "conflict"     // 409, server state moved on
	KindValidation   Kind = "validation"   // other 4xx or success=false
	KindServer       Kind = "server"       // 5xx
)

// Error is a failed backend call
type Error struct {
	Kind       Kind
	StatusCode int
	Message    string
	RequestID  string
	cause      error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the transport-level cause, if any
func (e *Error) Unwrap() error {
	return e.cause
}

// Retryable reports whether the same request may succeed if sent again
// unchanged. The client itself never retries.
func (e *Error) Retryable() bool {
	return e.Kind == KindTransport || e.Kind == KindServer
}

// KindOf returns the Kind of err, or an empty Kind when err is not an *Error
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

// IsKind reports whether err is an *Error of the given kind
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindConflict
	case status >= 500:
		return KindServer
	default:
		return KindValidation
	}
}

func transportError(err error) *Error {
	return &Error{
		Kind:    KindTransport,
		Message: "could not reach the server",
		cause:   err,
	}
}
