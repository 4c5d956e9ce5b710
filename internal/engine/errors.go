package engine

import (
	"errors"
	"fmt"
)

// Error is returned by engine operations that reject their input.
//
// The state is unchanged whenever an *Error is returned.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op is the operation that failed, e.g. "DeleteFeature".
	Op string

	// ID is the entity the operation was about, if any.
	ID string

	// Message is a human-readable description.
	Message string
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeNotFound indicates a referenced entity does not exist.
	ErrCodeNotFound ErrorCode = "not_found"

	// ErrCodeInvalid indicates the request would break a table invariant.
	ErrCodeInvalid ErrorCode = "invalid"
)

// Sentinels for errors.Is matching against an *Error's code.
var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid")
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s: %s: %s (id=%s)", e.Op, e.Code, e.Message, e.ID)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, e.Message)
}

// Is reports whether target is the sentinel for e's code.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Code == ErrCodeNotFound
	case ErrInvalid:
		return e.Code == ErrCodeInvalid
	}
	return false
}

// IsNotFound returns true if the error is a not-found error.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == ErrCodeNotFound
	}
	return false
}

// IsInvalid returns true if the error is an invalid-request error.
// Uses errors.As to handle wrapped errors.
func IsInvalid(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == ErrCodeInvalid
	}
	return false
}

func notFound(op, id, format string, args ...any) *Error {
	return &Error{Code: ErrCodeNotFound, Op: op, ID: id, Message: fmt.Sprintf(format, args...)}
}

func invalid(op, id, format string, args ...any) *Error {
	return &Error{Code: ErrCodeInvalid, Op: op, ID: id, Message: fmt.Sprintf(format, args...)}
}
