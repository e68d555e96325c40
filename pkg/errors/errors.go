package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is the API error contract: a stable machine code, the HTTP
// status it maps to, a human message, and an optional wrapped cause
// that never leaves the server.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New builds an Error without a cause.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap builds an Error carrying the underlying cause.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Shared sentinels. Compare with errors.Is, customise with Clone.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrPreconditionFailed = New("PRECONDITION_FAILED", http.StatusPreconditionFailed, "precondition failed")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")
	ErrServiceUnavailable = New("SERVICE_UNAVAILABLE", http.StatusServiceUnavailable, "service unavailable")

	// Selection flow sentinels.
	ErrWindowClosed     = New("ENROLLMENT_WINDOW_CLOSED", http.StatusPreconditionFailed, "enrollment window is not active")
	ErrCreditLimit      = New("CREDIT_LIMIT_EXCEEDED", http.StatusUnprocessableEntity, "credit limit exceeded")
	ErrEmptySelection   = New("EMPTY_SELECTION", http.StatusPreconditionFailed, "no courses selected")
	ErrAlreadyCommitted = New("ALREADY_COMMITTED", http.StatusConflict, "selection already committed")
	ErrStaleRevision    = New("STALE_REVISION", http.StatusConflict, "selection changed by a newer request")
)

// FromError coerces any error into the API contract. Unknown errors
// become ErrInternal with the cause attached.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone copies a sentinel so the message can be overridden without
// mutating the shared instance.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
