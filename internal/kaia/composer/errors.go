package composer

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes user-visible failures. HTTP and other transports map
// these onto their own status codes.
type ErrorKind string

const (
	// KindEmptyInput means the utterance was empty or whitespace.
	KindEmptyInput ErrorKind = "empty_input"

	// KindProviderUnavailable means every model backend failed. The reply is
	// degraded to a canned response; this kind annotates it.
	KindProviderUnavailable ErrorKind = "provider_unavailable"

	// KindMalformedExpression means a calculation was requested but the
	// expression could not be parsed. The turn falls through to the next
	// response stage; this kind annotates the reply.
	KindMalformedExpression ErrorKind = "malformed_expression"

	// KindClassificationFailure means the pattern library misbehaved while
	// classifying. User input alone can never trigger it.
	KindClassificationFailure ErrorKind = "internal_classification_failure"
)

// Error is a user-visible processing failure with a stable kind.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("composer: %s: %s", e.Kind, e.Message)
}

// AsError extracts a *Error from err, or wraps err as an internal failure.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindClassificationFailure, Message: err.Error()}
}
