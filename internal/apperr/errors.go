package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the category of an application error. Handlers map kinds to HTTP statuses.
type Kind string

const (
	KindInternal          Kind = "internal"
	KindConfiguration     Kind = "configuration"
	KindValidation        Kind = "validation"
	KindAuthentication    Kind = "authentication"
	KindForbidden         Kind = "forbidden"
	KindInvalidState      Kind = "invalid_state"
	KindInvalidTransition Kind = "invalid_transition"
	KindNotFound          Kind = "not_found"
	KindGateway           Kind = "gateway"
	KindSignature         Kind = "signature_verification"
	KindLimitExceeded     Kind = "limit_exceeded"
)

// Error is a structured error carrying a Kind, the operation that failed and a
// message that is safe to show to a user. Err holds the underlying cause, which is
// logged but never rendered.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind, so callers can write
// errors.Is(err, &apperr.Error{Kind: apperr.KindNotFound}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// LimitExceededError is returned by the entitlement guard when a free-tier account
// is at or over the limit for a resource.
type LimitExceededError struct {
	Resource string
	Limit    int
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("free plan limit of %d %s reached", e.Limit, e.Resource)
}

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Configuration(format string, args ...any) *Error { return newf(KindConfiguration, format, args...) }
func Validation(format string, args ...any) *Error { return newf(KindValidation, format, args...) }
func Authentication(format string, args ...any) *Error {
	return newf(KindAuthentication, format, args...)
}
func Forbidden(format string, args ...any) *Error { return newf(KindForbidden, format, args...) }
func NotFound(format string, args ...any) *Error { return newf(KindNotFound, format, args...) }
func InvalidState(format string, args ...any) *Error { return newf(KindInvalidState, format, args...) }
func InvalidTransition(format string, args ...any) *Error {
	return newf(KindInvalidTransition, format, args...)
}

// Gateway wraps a failed billing gateway call. The message is generic on purpose;
// processor detail stays in the wrapped cause.
func Gateway(op string, err error) *Error {
	return &Error{Kind: KindGateway, Op: op, Message: "billing provider request failed", Err: err}
}

// Signature wraps a webhook signature verification failure.
func Signature(err error) *Error {
	return &Error{Kind: KindSignature, Message: "invalid webhook signature", Err: err}
}

// Internal wraps an unexpected failure such as a database error.
func Internal(op string, err error) *Error {
	return &Error{Kind: KindInternal, Op: op, Message: "internal error", Err: err}
}

// KindOf returns the Kind of err, or KindInternal for errors not produced here.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var le *LimitExceededError
	if errors.As(err, &le) {
		return KindLimitExceeded
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// HTTPStatus maps err to the status code the API responds with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindInvalidState, KindInvalidTransition, KindSignature:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindForbidden, KindLimitExceeded:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message to render for err.
func PublicMessage(err error) string {
	var le *LimitExceededError
	if errors.As(err, &le) {
		return le.Error()
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	return "internal error"
}
