// Package apperrors defines the error taxonomy shared by the store,
// lifecycle, and API layers.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable error code.
type Code string

const (
	// CodeValidation marks malformed input to a write operation: empty
	// required field, field over its length limit, value outside an
	// enumeration, or an unresolved foreign reference.
	CodeValidation Code = "VALIDATION"
	// CodeNotFound marks a reference to an issue/project/user id that
	// does not exist in the store.
	CodeNotFound Code = "NOT_FOUND"
	// CodeAdvisoryUnavailable marks a failure contacting the advisory
	// service. It is internal only: the advisor converts it to a
	// fallback value and never surfaces it to callers.
	CodeAdvisoryUnavailable Code = "ADVISORY_UNAVAILABLE"
	// CodeInternal marks everything else.
	CodeInternal Code = "INTERNAL"
)

// AppError carries a code plus a human-readable message.
type AppError struct {
	Code    Code
	Message string
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// HTTPStatus returns the HTTP status for the error code.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeAdvisoryUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Validation creates a VALIDATION error.
func Validation(format string, a ...any) *AppError {
	return &AppError{Code: CodeValidation, Message: fmt.Sprintf(format, a...)}
}

// NotFound creates a NOT_FOUND error.
func NotFound(format string, a ...any) *AppError {
	return &AppError{Code: CodeNotFound, Message: fmt.Sprintf(format, a...)}
}

// AdvisoryUnavailable creates an ADVISORY_UNAVAILABLE error.
func AdvisoryUnavailable(format string, a ...any) *AppError {
	return &AppError{Code: CodeAdvisoryUnavailable, Message: fmt.Sprintf(format, a...)}
}

// IsValidation reports whether err is (or wraps) a VALIDATION error.
func IsValidation(err error) bool { return hasCode(err, CodeValidation) }

// IsNotFound reports whether err is (or wraps) a NOT_FOUND error.
func IsNotFound(err error) bool { return hasCode(err, CodeNotFound) }

func hasCode(err error, code Code) bool {
	var ae *AppError
	return errors.As(err, &ae) && ae.Code == code
}

// StatusFor returns the HTTP status to report for an arbitrary error.
func StatusFor(err error) int {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.HTTPStatus()
	}
	return http.StatusInternalServerError
}
