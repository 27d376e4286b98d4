package files

import (
	"fmt"

	errors "github.com/Laisky/errors/v2"
)

// ErrorCode identifies a machine-stable file error code.
type ErrorCode string

const (
	ErrCodeNotAuthenticated    ErrorCode = "NOT_AUTHENTICATED"
	ErrCodePermissionDenied    ErrorCode = "PERMISSION_DENIED"
	ErrCodeNotFound            ErrorCode = "NOT_FOUND"
	ErrCodeValidation          ErrorCode = "VALIDATION_FAILURE"
	ErrCodeConflict            ErrorCode = "CONFLICT"
	ErrCodeStoreWrite          ErrorCode = "STORE_WRITE_FAILURE"
	ErrCodeCompensationFailure ErrorCode = "COMPENSATION_FAILURE"
)

// Error captures a typed file error with retryability metadata.
type Error struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Cause     error
}

// Error returns the error message.
func (e *Error) Error() string {
	if e == nil {
		return "file error: <nil>"
	}
	msg := e.Message
	if msg == "" {
		msg = fmt.Sprintf("file error: %s", e.Code)
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes the underlying store error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewError constructs a typed file error.
func NewError(code ErrorCode, message string, retryable bool) *Error {
	return &Error{Code: code, Message: message, Retryable: retryable}
}

// storeWriteError wraps a failed blob or metadata write. The cause is kept verbatim.
func storeWriteError(message string, cause error) *Error {
	return &Error{Code: ErrCodeStoreWrite, Message: message, Retryable: true, Cause: cause}
}

// CompensationError reports a failed rollback alongside the failure that triggered it.
type CompensationError struct {
	Original     error
	Compensation error
	BlobID       string
}

// Error returns both failures.
func (e *CompensationError) Error() string {
	return fmt.Sprintf("compensating delete of blob %q failed: %v (original failure: %v)",
		e.BlobID, e.Compensation, e.Original)
}

// Unwrap exposes both causes to errors.Is and errors.As.
func (e *CompensationError) Unwrap() []error {
	return []error{e.Original, e.Compensation}
}

// AsError extracts a typed file error from the error chain.
// A CompensationError always surfaces as COMPENSATION_FAILURE.
func AsError(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var comp *CompensationError
	if errors.As(err, &comp) {
		return &Error{Code: ErrCodeCompensationFailure, Message: comp.Error(), Cause: comp}, true
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed, true
	}
	return nil, false
}

// IsCode reports whether the error chain contains the given code.
func IsCode(err error, code ErrorCode) bool {
	if typed, ok := AsError(err); ok {
		return typed.Code == code
	}
	return false
}
