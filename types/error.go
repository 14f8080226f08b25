package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the library.
type ErrorCode string

// Programming error codes
const (
	ErrCodeAlreadyRunning ErrorCode = "ALREADY_RUNNING"
	ErrCodeResponseSent   ErrorCode = "RESPONSE_SENT"
)

// System and I/O error codes
const (
	ErrCodeSystem           ErrorCode = "SYSTEM_ERROR"
	ErrCodeIO               ErrorCode = "IO_ERROR"
	ErrCodeTimeout          ErrorCode = "TIMEOUT"
	ErrCodeDispatchRejected ErrorCode = "DISPATCH_REJECTED"
	ErrCodeRateLimited      ErrorCode = "RATE_LIMITED"
)

// Sentinels for errors.Is matching. Comparison is by code, so any *Error
// carrying the same code matches regardless of message or cause.
var (
	ErrAlreadyRunning = NewError(ErrCodeAlreadyRunning, "server is already running")
	ErrResponseSent   = NewError(ErrCodeResponseSent, "response already sent")
	ErrTimeout        = NewError(ErrCodeTimeout, "operation timed out").WithRetryable(true)
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
	Cause     error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// NewSystemError wraps an OS-level failure (socket, bind, listen, accept).
func NewSystemError(op string, cause error) *Error {
	return NewError(ErrCodeSystem, op+" failed").WithCause(cause)
}

// NewIOError wraps an output sink failure.
func NewIOError(message string, cause error) *Error {
	return NewError(ErrCodeIO, message).WithCause(cause)
}

// NewTimeoutError creates a retryable timeout error.
func NewTimeoutError(message string, cause error) *Error {
	return NewError(ErrCodeTimeout, message).WithCause(cause).WithRetryable(true)
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if AsError(err, &e) {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if AsError(err, &e) {
		return e.Code
	}
	return ""
}

// IsErrorCode reports whether err carries the given code anywhere in its chain.
func IsErrorCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}

// AsError finds the first *Error in err's tree, including errors joined
// with errors.Join.
func AsError(err error, target **Error) bool {
	return errors.As(err, target)
}
