// Package apperr defines the error taxonomy shared by services and the HTTP
// error handler.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies a failure for callers and for HTTP status mapping.
type Kind string

const (
	KindNotFound           Kind = "not_found"
	KindInvalidCredentials Kind = "invalid_credentials"
	KindDeliveryFailure    Kind = "delivery_failure"
	KindValidation         Kind = "validation"
	KindUnexpected         Kind = "unexpected"
	KindUnauthorized       Kind = "unauthorized"
	KindForbidden          Kind = "forbidden"
)

// Error is a classified failure carrying a user-facing message.
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

// New builds an Error without an underlying cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error around an underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// NotFound, Validation and friends are shorthands for New.
func NotFound(message string) *Error           { return New(KindNotFound, message) }
func Validation(message string) *Error         { return New(KindValidation, message) }
func InvalidCredentials(message string) *Error { return New(KindInvalidCredentials, message) }

// Unexpected wraps an unclassified failure.
func Unexpected(err error) *Error {
	return Wrap(KindUnexpected, "Something went wrong", err)
}

// KindOf reports the kind of err, or KindUnexpected when err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}

// Status maps a kind to its HTTP status code.
func Status(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidCredentials, KindUnauthorized:
		return http.StatusUnauthorized
	case KindDeliveryFailure:
		return http.StatusBadGateway
	case KindValidation:
		return http.StatusBadRequest
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
