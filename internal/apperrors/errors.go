// Package apperrors defines the error kinds shared by the store, repository,
// aggregation and HTTP layers. Every error carries a kind, the operation that
// produced it, and whether a caller may retry it.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the HTTP boundary.
type Kind string

const (
	KindNotFound       Kind = "NOT_FOUND"
	KindValidation     Kind = "VALIDATION"
	KindConflict       Kind = "CONFLICT"
	KindInfrastructure Kind = "INFRASTRUCTURE"
	KindAggregation    Kind = "AGGREGATION"
)

// Error is the structured error type used across the service.
type Error struct {
	Kind      Kind
	Op        string
	Message   string
	Cause     error
	Retryable bool
}

func (e *Error) Error() string {
	prefix := string(e.Kind)
	if e.Op != "" {
		prefix = fmt.Sprintf("%s %s", e.Kind, e.Op)
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", prefix, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrValidation)
// works regardless of op or message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

var (
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrValidation     = &Error{Kind: KindValidation}
	ErrConflict       = &Error{Kind: KindConflict}
	ErrInfrastructure = &Error{Kind: KindInfrastructure}
	ErrAggregation    = &Error{Kind: KindAggregation}
)

func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Retryable: kind == KindInfrastructure}
}

func Wrap(kind Kind, op, message string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Cause: cause, Retryable: kind == KindInfrastructure}
}

func NotFound(op, message string) *Error {
	return New(KindNotFound, op, message)
}

func Validation(op, message string) *Error {
	return New(KindValidation, op, message)
}

func Conflict(op, message string) *Error {
	return New(KindConflict, op, message)
}

// Infrastructure wraps a store or transport failure. These are never retried
// here; the flag is for whoever sits above the HTTP boundary.
func Infrastructure(op string, cause error) *Error {
	return Wrap(KindInfrastructure, op, "store unavailable", cause)
}

// Aggregation wraps a failure hit while tallying. It stays retryable when the
// underlying cause was.
func Aggregation(op string, cause error) *Error {
	return &Error{
		Kind:      KindAggregation,
		Op:        op,
		Message:   "aggregation failed",
		Cause:     cause,
		Retryable: IsRetryable(cause),
	}
}

// KindOf returns the kind of the first *Error in the chain, or "" when there is none.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

func IsRetryable(err error) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Retryable
	}
	return false
}
