// Package apperr defines the typed error taxonomy shared by all stores and
// handlers. Every business-rule failure carries a stable machine-readable
// code plus a human-readable message.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for HTTP status mapping.
type Kind int

const (
	// KindUnexpected is an infrastructure failure (store, network). Logged
	// with context and surfaced generically.
	KindUnexpected Kind = iota
	// KindNotFound means the referenced entity does not exist.
	KindNotFound
	// KindInvalidState means a liveness/activity/completion precondition failed.
	KindInvalidState
	// KindConflict means a uniqueness invariant was violated.
	KindConflict
	// KindForbidden means an authorization gate refused the caller.
	KindForbidden
	// KindValidation means the input was malformed or missing.
	KindValidation
)

// Stable machine-readable codes.
const (
	CodeSpaceNotFound       = "SPACE_NOT_FOUND"
	CodeSessionNotFound     = "SESSION_NOT_FOUND"
	CodeParticipantNotFound = "PARTICIPANT_NOT_FOUND"
	CodeRecordingNotFound   = "RECORDING_NOT_FOUND"
	CodeUserNotFound        = "USER_NOT_FOUND"

	CodeSpaceNotLive             = "SPACE_NOT_LIVE"
	CodeSessionNotActive         = "SESSION_NOT_ACTIVE"
	CodeParticipantAlreadyLeft   = "PARTICIPANT_ALREADY_LEFT"
	CodeRecordingAlreadyComplete = "RECORDING_ALREADY_COMPLETE"
	CodeCannotChangeHostRole     = "CANNOT_CHANGE_HOST_ROLE"
	CodeCannotKickHost           = "CANNOT_KICK_HOST"

	CodeJoinCodeTaken          = "JOIN_CODE_TAKEN"
	CodeRecordingAlreadyActive = "RECORDING_ALREADY_ACTIVE"

	CodeForbidden        = "FORBIDDEN"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeInternal         = "INTERNAL"
)

// Error is a typed application error.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	// Err is the wrapped cause, if any (set for Unexpected).
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error { return e.Err }

// NotFound creates a NotFound error.
func NotFound(code, message string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message}
}

// InvalidState creates an InvalidState error.
func InvalidState(code, message string) *Error {
	return &Error{Kind: KindInvalidState, Code: code, Message: message}
}

// Conflict creates a Conflict error.
func Conflict(code, message string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message}
}

// Forbidden creates a Forbidden error.
func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Code: CodeForbidden, Message: message}
}

// Validation creates a Validation error.
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Code: CodeValidationFailed, Message: message}
}

// Unexpected wraps an infrastructure failure.
func Unexpected(err error) *Error {
	return &Error{Kind: KindUnexpected, Code: CodeInternal, Message: "internal error", Err: err}
}

// KindOf returns the Kind of err, or KindUnexpected for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}

// CodeOf returns the machine code of err, or CodeInternal for untyped errors.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, k Kind) bool {
	return KindOf(err) == k
}
