package service

import (
	"errors"

	dErrors "harvestcert/pkg/domain-errors"
	"harvestcert/pkg/platform/sentinel"
)

// Targets for errors.Is. Errors returned by the service carry a message;
// these match on code alone.
var (
	ErrUnauthorized                  = dErrors.New(dErrors.CodeUnauthorized, "")
	ErrBatchAlreadyExists            = dErrors.New(dErrors.CodeBatchAlreadyExists, "")
	ErrBatchNotFound                 = dErrors.New(dErrors.CodeBatchNotFound, "")
	ErrFacilityNotFound              = dErrors.New(dErrors.CodeFacilityNotFound, "")
	ErrInvalidParameters             = dErrors.New(dErrors.CodeInvalidParameters, "")
	ErrLabNotAuthorized              = dErrors.New(dErrors.CodeLabNotAuthorized, "")
	ErrQualityStandardsNotMet        = dErrors.New(dErrors.CodeQualityStandardsNotMet, "")
	ErrTelemetryVerificationRequired = dErrors.New(dErrors.CodeTelemetryVerificationRequired, "")
	ErrRegistryError                 = dErrors.New(dErrors.CodeRegistryError, "")
	ErrDeviceNotAuthorized           = dErrors.New(dErrors.CodeDeviceNotAuthorized, "")
)

// failAfterCommit wraps an error that is reported only after the
// transaction's writes are committed.
type failAfterCommit struct {
	err error
}

func (f *failAfterCommit) Error() string { return f.err.Error() }
func (f *failAfterCommit) Unwrap() error { return f.err }

func commitThenFail(err error) error {
	return &failAfterCommit{err: err}
}

// translate turns infrastructure errors into coded errors.
func translate(err error, op string) error {
	if err == nil {
		return nil
	}
	if _, ok := dErrors.CodeOf(err); ok {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, op+": concurrent registry update")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, op+": store unavailable")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, op)
	}
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if code, ok := dErrors.CodeOf(err); ok {
		return string(code)
	}
	return string(dErrors.CodeInternal)
}
