package gps

import (
	"context"
	"errors"
	"fmt"
)

// ErrorCode is the taxonomy every provider failure is classified into at
// the adapter boundary. All codes are recoverable; callers observe the
// session's current error rather than catching panics or raw platform
// failures.
type ErrorCode string

const (
	CodeNotSupported        ErrorCode = "not_supported"
	CodePermissionDenied    ErrorCode = "permission_denied"
	CodePositionUnavailable ErrorCode = "position_unavailable"
	CodeTimeout             ErrorCode = "timeout"
	CodeUnknown             ErrorCode = "unknown"
)

// Error is a classified GPS failure.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds a classified error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError classifies an underlying cause.
func WrapError(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf extracts the taxonomy code from an error chain. Unclassified
// errors map to CodeUnknown; context deadline expiry maps to CodeTimeout.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var gpsErr *Error
	if errors.As(err, &gpsErr) {
		return gpsErr.Code
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CodeTimeout
	}
	return CodeUnknown
}

// Classify wraps err as a *Error if it is not one already, deriving the
// code with CodeOf.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var gpsErr *Error
	if errors.As(err, &gpsErr) {
		return gpsErr
	}
	return &Error{Code: CodeOf(err), Message: err.Error(), Cause: err}
}
