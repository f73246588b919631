package model

import (
	"errors"
	"fmt"
)

// Kind is a stable machine-readable failure class.
type Kind string

const (
	KindInternal              Kind = "internal"
	KindInvalidInput          Kind = "invalid_input"
	KindConflict              Kind = "conflict"
	KindUnauthorized          Kind = "unauthorized"
	KindNotFound              Kind = "not_found"
	KindDependencyUnavailable Kind = "dependency_unavailable"
	KindForbidden             Kind = "forbidden"
	KindRateLimited           Kind = "rate_limited"
)

// Error is a classified domain failure. Message is safe to show to callers.
type Error struct {
	Kind    Kind
	Message string
	// Field names the offending input or unique column, when known.
	Field string
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

var (
	// ErrNotFound is returned by stores when no matching row exists.
	ErrNotFound = &Error{Kind: KindNotFound, Message: "account not found"}
	// ErrInvalidToken is returned for any bad, expired or mistyped token.
	ErrInvalidToken = &Error{Kind: KindUnauthorized, Message: "invalid or expired token"}
)

// NewInvalidInput reports malformed input on field.
func NewInvalidInput(field, message string) error {
	return &Error{Kind: KindInvalidInput, Field: field, Message: message}
}

// NewConflict reports that field is already held by another live account.
func NewConflict(field string, err error) error {
	return &Error{Kind: KindConflict, Field: field, Message: fmt.Sprintf("%s is already taken", field), Err: err}
}

func NewUnauthorized(message string) error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

func NewForbidden(message string) error {
	return &Error{Kind: KindForbidden, Message: message}
}

func NewNotFound(message string) error {
	return &Error{Kind: KindNotFound, Message: message}
}

func NewRateLimited(message string) error {
	return &Error{Kind: KindRateLimited, Message: message}
}

// NewDependencyUnavailable wraps a storage or gateway failure.
func NewDependencyUnavailable(message string, err error) error {
	return &Error{Kind: KindDependencyUnavailable, Message: message, Err: err}
}

// KindOf classifies err. Errors that carry no *Error are internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
