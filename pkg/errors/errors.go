// Package errors provides the classified error values returned by every
// driftfs operation. Callers always receive either a well-typed success value
// or an *Error carrying one of the codes below; "found nothing" results are
// never conflated with failures.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode classifies a driftfs failure.
type ErrorCode string

const (
	// ErrCodeInvalidPath means path normalization rejected the input.
	ErrCodeInvalidPath ErrorCode = "INVALID_PATH"

	// ErrCodeInvalidConfig means an option mapping contained an unrecognized
	// or malformed key in strict mode.
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"

	// ErrCodeInvalidArgument means a requested metadata key is not a
	// recognized attribute name.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"

	// ErrCodeFileNotFound means the operation required an existing entry and
	// none exists.
	ErrCodeFileNotFound ErrorCode = "FILE_NOT_FOUND"

	// ErrCodeFileExists means the operation required absence and an entry
	// already exists.
	ErrCodeFileExists ErrorCode = "FILE_EXISTS"

	// ErrCodeMethodNotFound means a dispatched plugin name has no registered
	// handler.
	ErrCodeMethodNotFound ErrorCode = "METHOD_NOT_FOUND"

	// ErrCodeUnsupported means the bound backend cannot perform the
	// requested capability.
	ErrCodeUnsupported ErrorCode = "UNSUPPORTED"

	// ErrCodeAdapterFailure wraps a backend-specific failure without
	// reinterpreting it; the original error is carried as the cause.
	ErrCodeAdapterFailure ErrorCode = "ADAPTER_FAILURE"
)

// Error is the structured error type returned by driftfs operations.
type Error struct {
	Code    ErrorCode `json:"code"`
	Op      string    `json:"operation,omitempty"`
	Path    string    `json:"path,omitempty"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Path != "":
		return fmt.Sprintf("[%s] %s: %s: %s", e.Op, e.Code, e.Path, e.Message)
	case e.Op != "":
		return fmt.Sprintf("[%s] %s: %s", e.Op, e.Code, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// Unwrap returns the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error by code.
func (e *Error) Is(target error) bool {
	var t *Error
	if stderrors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// New creates an error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an error with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// InvalidPath reports a rejected raw path.
func InvalidPath(raw, reason string) *Error {
	return &Error{Code: ErrCodeInvalidPath, Path: raw, Message: reason}
}

// InvalidConfig reports an unrecognized or malformed option.
func InvalidConfig(key, reason string) *Error {
	return &Error{Code: ErrCodeInvalidConfig, Message: fmt.Sprintf("option %q: %s", key, reason)}
}

// InvalidArgument reports an unrecognized metadata attribute name.
func InvalidArgument(reason string) *Error {
	return &Error{Code: ErrCodeInvalidArgument, Message: reason}
}

// FileNotFound reports a missing entry.
func FileNotFound(op, path string) *Error {
	return &Error{Code: ErrCodeFileNotFound, Op: op, Path: path, Message: "no such file or directory"}
}

// FileExists reports a destination that already holds an entry.
func FileExists(op, path string) *Error {
	return &Error{Code: ErrCodeFileExists, Op: op, Path: path, Message: "destination already exists"}
}

// MethodNotFound reports a plugin dispatch with no registered handler.
func MethodNotFound(name string) *Error {
	return &Error{Code: ErrCodeMethodNotFound, Message: fmt.Sprintf("no plugin registered for %q", name)}
}

// Unsupported reports a capability the bound backend lacks.
func Unsupported(op, reason string) *Error {
	return &Error{Code: ErrCodeUnsupported, Op: op, Message: reason}
}

// WrapAdapter wraps a backend failure, preserving it as the cause. If cause
// is already a classified *Error it is returned unchanged so adapter-level
// classifications (for example FILE_NOT_FOUND) survive the facade boundary.
func WrapAdapter(op, path string, cause error) *Error {
	var e *Error
	if stderrors.As(cause, &e) {
		return e
	}
	return &Error{
		Code:    ErrCodeAdapterFailure,
		Op:      op,
		Path:    path,
		Message: cause.Error(),
		Cause:   cause,
	}
}

// CodeOf returns the classification of err, or an empty code for foreign
// errors.
func CodeOf(err error) ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsNotFound reports whether err is classified FILE_NOT_FOUND.
func IsNotFound(err error) bool { return CodeOf(err) == ErrCodeFileNotFound }

// IsExists reports whether err is classified FILE_EXISTS.
func IsExists(err error) bool { return CodeOf(err) == ErrCodeFileExists }

// IsInvalidPath reports whether err is classified INVALID_PATH.
func IsInvalidPath(err error) bool { return CodeOf(err) == ErrCodeInvalidPath }

// IsInvalidConfig reports whether err is classified INVALID_CONFIG.
func IsInvalidConfig(err error) bool { return CodeOf(err) == ErrCodeInvalidConfig }

// IsMethodNotFound reports whether err is classified METHOD_NOT_FOUND.
func IsMethodNotFound(err error) bool { return CodeOf(err) == ErrCodeMethodNotFound }

// IsUnsupported reports whether err is classified UNSUPPORTED.
func IsUnsupported(err error) bool { return CodeOf(err) == ErrCodeUnsupported }
