package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an application error. Codes are stable identifiers returned
// to API clients; messages and details are free-form.
type Code string

const (
	CodeInvalidTransition   Code = "INVALID_TRANSITION"
	CodeConcurrencyConflict Code = "CONCURRENCY_CONFLICT"
	CodeSequenceAllocation  Code = "SEQUENCE_ALLOCATION_FAILURE"
	CodeNotFound            Code = "NOT_FOUND"
	CodeConflict            Code = "CONFLICT"
	CodeUnauthorized        Code = "UNAUTHORIZED"
	CodeInvalidInput        Code = "INVALID_INPUT"
	CodeInternal            Code = "INTERNAL"
)

// Error is a typed application error with optional structured details so a
// caller can render an actionable message (current status, attempted action,
// required role) instead of a generic failure.
type Error struct {
	Code    Code
	Message string
	Details map[string]interface{}
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// WithDetail attaches a structured detail field and returns the error for chaining.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates an error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an error with a code and formatted message.
func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates an underlying error with a code and message.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// NotFound creates a NOT_FOUND error for a resource.
func NotFound(resource, id string) *Error {
	e := Newf(CodeNotFound, "%s not found", resource)
	return e.WithDetail("resource", resource).WithDetail("id", id)
}

// InvalidInput creates an INVALID_INPUT error for a specific field.
func InvalidInput(field, message string) *Error {
	return Newf(CodeInvalidInput, "%s: %s", field, message).WithDetail("field", field)
}

// CodeOf extracts the Code from an error chain, or CodeInternal for
// unclassified errors.
func CodeOf(err error) Code {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}

// IsCode reports whether the error chain carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// DetailsOf extracts structured details from an error chain, or nil.
func DetailsOf(err error) map[string]interface{} {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Details
	}
	return nil
}

// HTTPStatus maps an error code to the HTTP status the API layer responds with.
func HTTPStatus(code Code) int {
	switch code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidTransition, CodeConflict, CodeConcurrencyConflict:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusForbidden
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeSequenceAllocation:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
