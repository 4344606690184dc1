package common

import (
	"errors"
	"fmt"
)

// Kind classifies an application failure. Every failure surfaced to a caller
// is one of these; handlers map kinds to HTTP status codes.
type Kind int

const (
	// KindInvalidInput marks a malformed request (bad media type, bad body).
	KindInvalidInput Kind = iota
	// KindNotRecognized means the classifier returned no usable species name.
	// This is an expected outcome, not a transport failure.
	KindNotRecognized
	// KindRecordNotFound means a species name had no matching reference
	// record. The attempted name is carried for diagnostics.
	KindRecordNotFound
	// KindUpstreamUnavailable marks a transport or service-side failure from
	// an external provider. Kept distinct from NotRecognized/RecordNotFound
	// so provider outages are observable as such.
	KindUpstreamUnavailable
	// KindCollectionFull rejects an add beyond the per-user entry limit.
	KindCollectionFull
	// KindDuplicateEntry rejects an add of a species already collected.
	KindDuplicateEntry
	// KindNotFound covers ownership/existence check failures. Deliberately
	// not a "forbidden": other users' entries must not be leaked.
	KindNotFound
	// KindUnauthorized covers missing or invalid credentials/tokens.
	KindUnauthorized
)

// Error is a typed application error with a caller-safe message. Internal
// diagnostic detail stays in the wrapped cause and is never forwarded.
type Error struct {
	Kind    Kind
	Message string
	// Name holds the attempted species slug for RecordNotFound.
	Name string
	// Cause is internal detail, logged but never returned to callers.
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func WrapError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// AsAppError extracts a typed application error from an error chain.
func AsAppError(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsKind reports whether err is an application error of the given kind.
func IsKind(err error, kind Kind) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Kind == kind
}
