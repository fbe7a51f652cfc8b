// Package domainerrors provides coded errors for business-rule failures.
//
// Services return these so the transport layer can map failures to stable
// response codes without string matching. Store-boundary facts (row absent,
// stock exhausted) live in pkg/platform/sentinel; services translate them
// into coded errors here.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

const (
	// CodeBadRequest marks a structurally invalid request.
	CodeBadRequest Code = "bad_request"
	// CodeInvalidInput marks caller-supplied data that fails field-level checks.
	CodeInvalidInput Code = "invalid_input"
	// CodeValidation marks a business-rule violation (empty cart, non-positive
	// quantity, ownership mismatch).
	CodeValidation Code = "validation_failed"
	// CodeUnauthorized marks a missing or unverifiable credential.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden marks an authenticated caller without permission.
	CodeForbidden Code = "forbidden"
	// CodeNotFound marks an absent entity.
	CodeNotFound Code = "not_found"
	// CodeConflict marks a concurrent mutation that invalidated an assumption;
	// callers may retry.
	CodeConflict Code = "conflict"
	// CodeInternal marks unexpected infrastructure failure. The message is
	// logged, never shown to callers.
	CodeInternal Code = "internal"
)

// Error carries a code, a caller-safe message, and an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a coded error with a caller-safe message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf builds a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// CodeOf returns the code carried by err, or CodeInternal when err is not a
// domain error. Unknown failures stay opaque at the boundary.
func CodeOf(err error) Code {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return CodeInternal
}

// MessageOf returns the caller-safe message, or a generic one for unknown
// failures.
func MessageOf(err error) string {
	var domainErr *Error
	if errors.As(err, &domainErr) && domainErr.Code != CodeInternal {
		return domainErr.Message
	}
	return "internal error"
}
