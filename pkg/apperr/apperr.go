// Package apperr defines the application error taxonomy. Errors are built on
// cockroachdb/errors marks so callers classify outcomes with errors.Is and the
// HTTP layer maps them to status codes in one place.
package apperr

import (
	"net/http"

	"github.com/cockroachdb/errors"
)

// Sentinel errors. Every failure surfaced by a repository or handler is marked
// with exactly one of these.
var (
	ErrNotFound      = errors.New("resource not found")
	ErrAuthorization = errors.New("not authorized")
	ErrQuotaExceeded = errors.New("quota exceeded")
	ErrValidation    = errors.New("validation failed")
	ErrInvalidState  = errors.New("invalid state")
	ErrExpired       = errors.New("expired")
)

var statusCodes = map[error]int{
	ErrNotFound:      http.StatusNotFound,
	ErrAuthorization: http.StatusForbidden,
	ErrQuotaExceeded: http.StatusBadRequest,
	ErrValidation:    http.StatusBadRequest,
	ErrInvalidState:  http.StatusConflict,
	ErrExpired:       http.StatusGone,
}

// NotFound returns a NotFound error with the given message.
func NotFound(msg string) error { return errors.Mark(errors.New(msg), ErrNotFound) }

// Authorization returns an Authorization error with the given message.
func Authorization(msg string) error { return errors.Mark(errors.New(msg), ErrAuthorization) }

// QuotaExceeded returns a QuotaExceeded error with the given message.
func QuotaExceeded(msg string) error { return errors.Mark(errors.New(msg), ErrQuotaExceeded) }

// Validation returns a Validation error with the given message.
func Validation(msg string) error { return errors.Mark(errors.New(msg), ErrValidation) }

// InvalidState returns an InvalidState error with the given message.
func InvalidState(msg string) error { return errors.Mark(errors.New(msg), ErrInvalidState) }

// Expired returns an Expired error with the given message.
func Expired(msg string) error { return errors.Mark(errors.New(msg), ErrExpired) }

// Wrap marks err with the given sentinel, keeping the original cause.
func Wrap(err error, sentinel error, msg string) error {
	return errors.Mark(errors.WithMessage(err, msg), sentinel)
}

// StatusCode returns the HTTP status for err, or 500 for unclassified errors.
func StatusCode(err error) int {
	for sentinel, code := range statusCodes {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return http.StatusInternalServerError
}

// IsNotFound reports whether err is a NotFound error.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsAuthorization reports whether err is an Authorization error.
func IsAuthorization(err error) bool { return errors.Is(err, ErrAuthorization) }

// IsQuotaExceeded reports whether err is a QuotaExceeded error.
func IsQuotaExceeded(err error) bool { return errors.Is(err, ErrQuotaExceeded) }

// IsValidation reports whether err is a Validation error.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsInvalidState reports whether err is an InvalidState error.
func IsInvalidState(err error) bool { return errors.Is(err, ErrInvalidState) }

// IsExpired reports whether err is an Expired error.
func IsExpired(err error) bool { return errors.Is(err, ErrExpired) }
