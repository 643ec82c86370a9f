package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies business-rule failures so handlers can map them to HTTP
// statuses without string matching.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindDuplicate
	KindConflict
	KindInvalidOtp
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindInvalidState
)

// Error carries a kind plus a user-facing message. Wrapped causes stay
// available for logging but are never serialized to clients.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) *Error {
	return newError(KindValidation, format, args...)
}

func Duplicate(format string, args ...interface{}) *Error {
	return newError(KindDuplicate, format, args...)
}

func Conflict(format string, args ...interface{}) *Error {
	return newError(KindConflict, format, args...)
}

func InvalidOtp(format string, args ...interface{}) *Error {
	return newError(KindInvalidOtp, format, args...)
}

func Authentication(format string, args ...interface{}) *Error {
	return newError(KindAuthentication, format, args...)
}

func Authorization(format string, args ...interface{}) *Error {
	return newError(KindAuthorization, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return newError(KindNotFound, format, args...)
}

func InvalidState(format string, args ...interface{}) *Error {
	return newError(KindInvalidState, format, args...)
}

// Internal wraps an unexpected failure. The cause is kept for logs; clients
// only ever see the generic message.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal server error", Err: err}
}

// KindOf extracts the kind from an error chain, defaulting to KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Status maps an error to the HTTP status code handlers should return.
func Status(err error) int {
	switch KindOf(err) {
	case KindValidation, KindInvalidOtp:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindDuplicate, KindConflict, KindInvalidState:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-safe message for err. Internal errors collapse
// to a generic message so details never leak.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Kind != KindInternal {
		return appErr.Message
	}
	return "internal server error"
}
