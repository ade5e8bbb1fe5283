// Package domainerrors defines coded errors shared by services and transports.
//
// Services return *Error values carrying a Code; transports translate the code
// into a status (see pkg/platform/httputil). Infrastructure facts live in
// pkg/platform/sentinel and are translated at the service boundary.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for callers and transports.
type Code string

// Generic codes.
const (
	CodeInternal           Code = "internal_error"
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_error"
	CodeInvalidInput       Code = "invalid_input"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeTimeout            Code = "timeout"
	CodeUnavailable        Code = "unavailable"
	CodeRateLimited        Code = "rate_limited"
	CodeInvariantViolation Code = "invariant_violation"
)

// Registry codes.
const (
	CodeBatchAlreadyExists            Code = "batch_already_exists"
	CodeBatchNotFound                 Code = "batch_not_found"
	CodeFacilityNotFound              Code = "facility_not_found"
	CodeInvalidParameters             Code = "invalid_parameters"
	CodeLabNotAuthorized              Code = "lab_not_authorized"
	CodeQualityStandardsNotMet        Code = "quality_standards_not_met"
	CodeTelemetryVerificationRequired Code = "telemetry_verification_required"
	CodeRegistryError                 Code = "registry_error"
	CodeDeviceNotAuthorized           Code = "device_not_authorized"
	CodeFacilityAlreadyExists         Code = "facility_already_exists"
	CodeDeviceAlreadyExists           Code = "device_already_exists"
	CodeDeviceNotFound                Code = "device_not_found"
)

// Error is a coded error with an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// New creates a coded error.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by code, and by message when the target carries one.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	if t.Code != e.Code {
		return false
	}
	return t.Message == "" || t.Message == e.Message
}

// CodeOf returns the code of the outermost *Error in the chain.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}

// HasCode reports whether any *Error in the chain carries code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Err
	}
	return false
}

// Is reports whether err carries the code of target.
func Is(err error, target Code) bool {
	return HasCode(err, target)
}
