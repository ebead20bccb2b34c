package v4l2

import "fmt"

// ErrorCode classifies a capture failure.
type ErrorCode string

// ErrorCode constants for device and session errors.
const (
	ErrCodeOpen              ErrorCode = "OPEN_FAILED"
	ErrCodeUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"
	ErrCodeControl           ErrorCode = "CONTROL_FAILED"
	ErrCodeMapping           ErrorCode = "MAPPING_FAILED"
	ErrCodeInvalidState      ErrorCode = "INVALID_STATE"
	ErrCodeInvalidConfig     ErrorCode = "INVALID_CONFIG"
)

// Sentinels for errors.Is. They match any *Error with the same code.
var (
	ErrOpen              = &Error{Code: ErrCodeOpen}
	ErrUnsupportedFormat = &Error{Code: ErrCodeUnsupportedFormat}
	ErrControl           = &Error{Code: ErrCodeControl}
	ErrMapping           = &Error{Code: ErrCodeMapping}
	ErrInvalidState      = &Error{Code: ErrCodeInvalidState}
	ErrInvalidConfig     = &Error{Code: ErrCodeInvalidConfig}
)

// Error is the error type returned by every device and session operation.
// Op names the failing operation (for example "VIDIOC_DQBUF"); Cause holds the
// errno or lower-level error when there is one.
type Error struct {
	Code    ErrorCode `json:"code"`
	Op      string    `json:"op,omitempty"`
	Message string    `json:"message"`
	Cause   error     `json:"cause,omitempty"`
}

// NewError creates an error without an underlying cause.
func NewError(code ErrorCode, op, message string) *Error {
	return &Error{Code: code, Op: op, Message: message}
}

// NewErrorWithCause creates an error wrapping cause.
func NewErrorWithCause(code ErrorCode, op, message string, cause error) *Error {
	return &Error{Code: code, Op: op, Message: message, Cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		if msg == "" {
			msg = e.Op
		} else {
			msg = e.Op + ": " + msg
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, msg)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the sentinel for e's code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Message == "" && t.Cause == nil && t.Code == e.Code
}

// HasCode checks if the error matches a specific code.
func (e *Error) HasCode(code ErrorCode) bool {
	return e.Code == code
}

func controlError(op string, cause error) *Error {
	return NewErrorWithCause(ErrCodeControl, op, "", cause)
}
