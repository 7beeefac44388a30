// Package errors defines the error taxonomy shared by the repository,
// service and API layers. Callers dispatch on the Kind of an error, never
// on its message text.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind classifies an error so callers can switch on it.
type Kind int

const (
	// KindUnknown is the zero value for errors that carry no kind.
	KindUnknown Kind = iota

	// KindValidation marks malformed user input (URL, short code, validity).
	KindValidation

	// KindConflict marks a short code collision on creation or update.
	KindConflict

	// KindNotFound marks an unknown or already deleted short code.
	KindNotFound

	// KindExpired marks a short code that exists no longer: valid once,
	// now past its expiry.
	KindExpired

	// KindExhausted marks short code generation giving up after the
	// retry bound.
	KindExhausted
)

// String returns the kind's name for logs.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindExpired:
		return "expired"
	case KindExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// HTTPStatus maps the kind to the HTTP status code the API layer answers with.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindExpired:
		return http.StatusGone
	case KindExhausted:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Error is a kinded error. It optionally wraps an underlying cause.
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

// New builds an error of the given kind.
func New(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

// Newf builds an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, message string, err error) error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Validationf builds a KindValidation error.
func Validationf(format string, args ...any) error {
	return Newf(KindValidation, format, args...)
}

// Conflictf builds a KindConflict error.
func Conflictf(format string, args ...any) error {
	return Newf(KindConflict, format, args...)
}

// NotFoundf builds a KindNotFound error.
func NotFoundf(format string, args ...any) error {
	return Newf(KindNotFound, format, args...)
}

// Expiredf builds a KindExpired error.
func Expiredf(format string, args ...any) error {
	return Newf(KindExpired, format, args...)
}

// Exhaustedf builds a KindExhausted error.
func Exhaustedf(format string, args ...any) error {
	return Newf(KindExhausted, format, args...)
}

// KindOf extracts the kind from err, unwrapping as needed.
// Returns KindUnknown for nil or unkinded errors.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsValidation reports whether err carries KindValidation.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsConflict reports whether err carries KindConflict.
func IsConflict(err error) bool { return KindOf(err) == KindConflict }

// IsNotFound reports whether err carries KindNotFound.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsExpired reports whether err carries KindExpired.
func IsExpired(err error) bool { return KindOf(err) == KindExpired }

// IsExhausted reports whether err carries KindExhausted.
func IsExhausted(err error) bool { return KindOf(err) == KindExhausted }
