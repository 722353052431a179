package errors

import (
	"fmt"
	"runtime"
	"strings"
)

// Error codes for the remote collaborators this client talks to.
const (
	CodeUnknown  = 0
	CodeStore    = 1000 // remote record store read/write failure
	CodeFeed     = 2000 // change feed subscribe/transport failure
	CodeStorage  = 3000 // object storage upload failure
	CodeAlertAPI = 4000 // public alert API failure
	CodeGeo      = 5000 // geolocation unavailable or denied
)

// Error is a coded error with a captured stack trace.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
	Stack   string `json:"stack,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Message != "" {
		if e.Err != nil {
			return e.Message + ": " + e.Err.Error()
		}
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements the errors.Wrapper interface
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new error
func New(message string) *Error {
	return &Error{Message: message, Stack: captureStack()}
}

// Errorf creates a new formatted error
func Errorf(format string, args ...interface{}) *Error {
	return &Error{Message: fmt.Sprintf(format, args...), Stack: captureStack()}
}

// WithCode creates a new error with a code
func WithCode(code int, message string) *Error {
	return &Error{Code: code, Message: message, Stack: captureStack()}
}

// Wrap wraps an error with a message, returning nil for a nil cause
func Wrap(err error, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Message: message, Err: err, Stack: captureStack()}
}

// Wrapf wraps an error with a formatted message
func Wrapf(err error, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{Message: fmt.Sprintf(format, args...), Err: err, Stack: captureStack()}
}

// WrapCode wraps an error with a code and message
func WrapCode(code int, err error, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err, Stack: captureStack()}
}

// GetCode returns the error code, CodeUnknown for foreign errors
func GetCode(err error) int {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return CodeUnknown
}

// GetMessage returns the error message
func GetMessage(err error) string {
	if e, ok := err.(*Error); ok {
		return e.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// Cause returns the innermost wrapped error
func Cause(err error) error {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Err != nil {
			err = e.Err
		} else {
			return err
		}
	}
	return err
}

// captureStack captures the current stack trace
func captureStack() string {
	buf := make([]byte, 1024)
	n := runtime.Stack(buf, false)
	stack := string(buf[:n])

	// drop the frames for captureStack and the constructor itself
	lines := strings.Split(stack, "\n")
	if len(lines) > 6 {
		stack = strings.Join(lines[6:], "\n")
	}
	return strings.TrimSpace(stack)
}
