// Package apperr defines the error kinds surfaced by clipshare operations.
//
// Every failure carries a Kind, which decides the HTTP status, and a single
// human-readable Reason, which is the only text shown to clients. The wrapped
// cause is kept for logs.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies a failure.
type Kind string

const (
	// KindValidation covers bad sizes, durations, time ranges, ID lists and byte ranges.
	KindValidation Kind = "ValidationError"
	// KindNotFound covers unknown assets and files missing at stream time.
	KindNotFound Kind = "NotFound"
	// KindUnauthorized covers bad or expired share tokens.
	KindUnauthorized Kind = "Unauthorized"
	// KindProcessingFailed covers transcoder probe/trim/merge failures.
	KindProcessingFailed Kind = "ProcessingFailed"
	// KindTimeout is a processing failure caused by a transcoder deadline.
	KindTimeout Kind = "Timeout"
	// KindInternal is anything unclassified (database errors and the like).
	KindInternal Kind = "InternalError"
)

// Error is a classified failure.
type Error struct {
	Kind   Kind
	Reason string
	// Detail optionally narrows Kind, e.g. "FileTooLarge".
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetail sets Detail and returns e.
func (e *Error) WithDetail(detail string) *Error {
	e.Detail = detail
	return e
}

// DetailOf returns the Detail of the first *Error in err's chain.
func DetailOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Detail
	}
	return ""
}

// New creates an Error without an underlying cause.
func New(kind Kind, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

// Wrap creates an Error around cause.
func Wrap(kind Kind, reason string, cause error) *Error {
	return &Error{Kind: kind, Reason: reason, Err: cause}
}

// Validation is shorthand for New(KindValidation, reason).
func Validation(reason string) *Error {
	return New(KindValidation, reason)
}

// NotFound is shorthand for New(KindNotFound, reason).
func NotFound(reason string) *Error {
	return New(KindNotFound, reason)
}

// Unauthorized is shorthand for New(KindUnauthorized, reason).
func Unauthorized(reason string) *Error {
	return New(KindUnauthorized, reason)
}

// KindOf returns the Kind of the first *Error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// ReasonOf returns the client-facing reason for err. Unclassified errors
// get a generic message so internals never leak.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return "Internal server error"
}

// HTTPStatus maps a Kind to its response status.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
