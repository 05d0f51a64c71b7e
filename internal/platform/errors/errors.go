// Package errors defines the typed application errors shared by every
// service and their mapping onto HTTP responses.
package errors

import (
	stderrors "errors"
	"net/http"
	"strings"
)

// Kind classifies a failure for consistent transport mapping.
type Kind string

const (
	KindUnknown      Kind = "unknown"
	KindInvalidInput Kind = "invalid_input"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindLocked       Kind = "locked"
	KindRateLimited  Kind = "rate_limited"
	KindUnavailable  Kind = "unavailable"
)

// Error is a typed application failure. Key is the catalog key used to
// render a localized message; Message is for logs.
type Error struct {
	Kind    Kind
	Key     string
	Message string
	Cause   error
}

// Error renders the internal message.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes the cause for errors.Is and errors.As.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// New builds a typed error. Package-level sentinels are declared with New
// and compared with errors.Is by identity.
func New(kind Kind, key, message string) *Error {
	return &Error{Kind: kind, Key: strings.TrimSpace(key), Message: message}
}

// Wrap builds a typed error around cause.
func Wrap(kind Kind, key, message string, cause error) *Error {
	return &Error{Kind: kind, Key: strings.TrimSpace(key), Message: message, Cause: cause}
}

// KindOf returns the kind of the first typed error in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if !stderrors.As(err, &appErr) {
		return KindUnknown
	}
	return appErr.Kind
}

// LocalizationKey returns the catalog key of the first typed error in the
// chain, or "" when none carries one.
func LocalizationKey(err error) string {
	var appErr *Error
	if !stderrors.As(err, &appErr) {
		return ""
	}
	return appErr.Key
}

// HTTPStatus maps err to an HTTP status code.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch KindOf(err) {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindLocked:
		return http.StatusLocked
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
