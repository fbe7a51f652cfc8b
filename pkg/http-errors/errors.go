// Package httperrors maps domain error codes to HTTP statuses and the JSON
// error envelope used by every handler.
package httperrors

import (
	"net/http"

	dErrors "marketplace/pkg/domain-errors"
)

// Code is the stable error identifier written in response bodies.
type Code string

const (
	CodeInvalidRequest Code = "invalid_request"
	CodeInvalidInput   Code = "invalid_input"
	CodeValidation     Code = "validation_failed"
	CodeUnauthorized   Code = "unauthorized"
	CodeForbidden      Code = "forbidden"
	CodeNotFound       Code = "not_found"
	CodeConflict       Code = "conflict"
	CodeInternal       Code = "internal_error"
)

// Error is a transport-level error carrying an envelope code.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string { return string(e.Code) + ": " + e.Message }

// New builds a transport error for request-shape failures detected before any
// service call.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// FromDomain converts a domain error code into the envelope code.
func FromDomain(code dErrors.Code) Code {
	switch code {
	case dErrors.CodeBadRequest:
		return CodeInvalidRequest
	case dErrors.CodeInvalidInput:
		return CodeInvalidInput
	case dErrors.CodeValidation:
		return CodeValidation
	case dErrors.CodeUnauthorized:
		return CodeUnauthorized
	case dErrors.CodeForbidden:
		return CodeForbidden
	case dErrors.CodeNotFound:
		return CodeNotFound
	case dErrors.CodeConflict:
		return CodeConflict
	default:
		return CodeInternal
	}
}

// ToHTTPStatus maps an envelope code to its status line.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidRequest, CodeInvalidInput, CodeValidation:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
