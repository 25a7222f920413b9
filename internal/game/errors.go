package game

import "errors"

// Error kinds. Every domain failure wraps exactly one of these so callers can
// classify it with errors.Is without knowing the concrete reason.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// Error is a domain failure with a machine-checkable reason code.
// Reason codes are snake_case and stable; clients switch on them.
type Error struct {
	kind   error
	Reason string
}

// Error returns the reason code.
func (e *Error) Error() string {
	return e.Reason
}

// Unwrap exposes the kind sentinel.
func (e *Error) Unwrap() error {
	return e.kind
}

// Validation creates a validation failure.
func Validation(reason string) *Error {
	return &Error{kind: ErrValidation, Reason: reason}
}

// NotFound creates a not-found failure.
func NotFound(reason string) *Error {
	return &Error{kind: ErrNotFound, Reason: reason}
}

// Forbidden creates a failure for an actor who may not perform the operation.
func Forbidden(reason string) *Error {
	return &Error{kind: ErrForbidden, Reason: reason}
}

// Unauthorized creates an authentication failure.
func Unauthorized(reason string) *Error {
	return &Error{kind: ErrUnauthorized, Reason: reason}
}

// Reason extracts the reason code from err, or "" if err is not a domain failure.
func Reason(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}
