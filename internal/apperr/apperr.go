// Package apperr provides typed application errors that map onto HTTP statuses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation   Kind = "validation"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindUnavailable  Kind = "unavailable"
	KindInternal     Kind = "internal"
)

// Error is a categorized error. Two errors with the same Code match under errors.Is.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details any
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WithDetails returns a copy carrying details for the response body.
func (e *Error) WithDetails(d any) *Error {
	c := *e
	c.Details = d
	return &c
}

// Wrap returns a copy of e with cause attached.
func (e *Error) Wrap(cause error) *Error {
	c := *e
	c.Cause = cause
	return &c
}

func New(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

func Validation(msg string) *Error { return New(KindValidation, "invalid_request", msg) }
func NotFound(msg string) *Error   { return New(KindNotFound, "not_found", msg) }
func Forbidden(msg string) *Error  { return New(KindForbidden, "forbidden", msg) }
func Conflict(code, msg string) *Error {
	return New(KindConflict, code, msg)
}
func Internal(msg string, cause error) *Error {
	return &Error{Kind: KindInternal, Code: "internal_error", Message: msg, Cause: cause}
}
func Unavailable(msg string, cause error) *Error {
	return &Error{Kind: KindUnavailable, Code: "unavailable", Message: msg, Cause: cause}
}

var (
	ErrNotFound           = NotFound("resource not found")
	ErrForbidden          = Forbidden("not allowed")
	ErrUnauthorized       = New(KindUnauthorized, "unauthorized", "authentication required")
	ErrInvalidCredentials = New(KindUnauthorized, "invalid_credentials", "invalid credentials")
	ErrDuplicate          = Conflict("duplicate", "resource already exists")
	ErrInsufficientHours  = Conflict("insufficient_hours", "not enough hours available")
	ErrBookingOverlap     = Conflict("booking_overlap", "trainer already booked for that time")
	ErrInvalidTransition  = Conflict("invalid_status", "operation not allowed in current status")
	ErrLockExpired        = Conflict("lock_expired", "booking hold has expired")
	ErrUserHasHistory     = Conflict("user_has_history", "user has bookings, payments or ledger entries")
	ErrInvalidSignature   = New(KindValidation, "invalid_signature", "webhook signature verification failed")
	ErrGatewayUnavailable = New(KindUnavailable, "gateway_unavailable", "payment provider unavailable")
)

// As converts any error into an *Error, treating unknown errors as internal.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal("internal error", err)
}
