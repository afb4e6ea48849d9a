// internal/errs/errs.go
//
// Application error taxonomy.
//
// Context
// -------
// Every component returns *Error values so the HTTP layer can map a
// failure to a status code and a `{success:false, error:"..."}` body
// without string matching.  Validation and ownership failures are
// terminal, never retried.  Storage failures on critical paths surface
// as Internal; the rate limiter is the one caller allowed to swallow
// them (it fails open).
//
// Notes
// -----
// • Kind maps 1:1 to an HTTP status, see Status().
// • Oxford commas, two spaces after periods.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an Error for status mapping and logging.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindRateLimited  Kind = "rate_limited"
	KindUpstream     Kind = "upstream"
	KindTimeout      Kind = "upstream_timeout"
	KindInternal     Kind = "internal"
)

// Error carries a Kind plus a user-safe message.  Wrapped causes stay
// internal; Error() never leaks them to API clients.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.cause }

// Status returns the HTTP status code for the error's Kind.
func (e *Error) Status() int {
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
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUpstream:
		return http.StatusBadGateway
	case KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func newf(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error { return newf(KindValidation, format, args...) }

func Unauthorized(format string, args ...any) *Error {
	return newf(KindUnauthorized, format, args...)
}

func Forbidden(format string, args ...any) *Error { return newf(KindForbidden, format, args...) }

func NotFound(format string, args ...any) *Error { return newf(KindNotFound, format, args...) }

func Conflict(format string, args ...any) *Error { return newf(KindConflict, format, args...) }

func RateLimited(format string, args ...any) *Error { return newf(KindRateLimited, format, args...) }

func Upstream(format string, args ...any) *Error { return newf(KindUpstream, format, args...) }

func Timeout(format string, args ...any) *Error { return newf(KindTimeout, format, args...) }

// Internal wraps an unexpected failure.  The cause is retained for logs;
// clients only ever see the generic message.
func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", cause: cause}
}

// From converts any error into an *Error, passing *Error through and
// wrapping everything else as Internal.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}

// IsKind reports whether err is an *Error of the given Kind.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}
