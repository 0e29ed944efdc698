// Package apperr defines the error kinds every operation boundary maps to:
// validation and authorization failures are rejected before any external
// call, not-found surfaces to the caller, and dependency failures wrap
// errors from the stores or the LLM endpoint.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for boundary handling.
type Kind int

const (
	// KindValidation marks malformed or incomplete input.
	KindValidation Kind = iota
	// KindAuthorization marks a missing or insufficient credential.
	KindAuthorization
	// KindNotFound marks a missing referenced record.
	KindNotFound
	// KindDependency marks an external store or AI provider failure.
	KindDependency
)

// Error carries a kind, a caller-facing message, and an optional cause.
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

func (e *Error) Unwrap() error { return e.Err }

// Validation creates a validation error with a formatted message.
func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Authorization creates an authorization error.
func Authorization(msg string) error {
	return &Error{Kind: KindAuthorization, Message: msg}
}

// NotFound creates a not-found error for the named record.
func NotFound(what string) error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

// Dependency wraps an external-service failure.
func Dependency(msg string, err error) error {
	return &Error{Kind: KindDependency, Message: msg, Err: err}
}

// KindOf returns the kind of err, or KindDependency if err carries none.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindDependency
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return is(err, KindValidation) }

// IsAuthorization reports whether err is an authorization error.
func IsAuthorization(err error) bool { return is(err, KindAuthorization) }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return is(err, KindNotFound) }

func is(err error, k Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == k
}
