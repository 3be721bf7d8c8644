package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown      ErrorCode = "UNKNOWN"
	ErrInternal     ErrorCode = "INTERNAL"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	ErrNotFound     ErrorCode = "NOT_FOUND"
	ErrPermission   ErrorCode = "PERMISSION"

	// Input errors
	ErrManifestNotFound ErrorCode = "MANIFEST_NOT_FOUND"
	ErrManifestInvalid  ErrorCode = "MANIFEST_INVALID"
	ErrConfigNotFound   ErrorCode = "CONFIG_NOT_FOUND"
	ErrConfigLoad       ErrorCode = "CONFIG_LOAD"
	ErrConfigInvalid    ErrorCode = "CONFIG_INVALID"

	// Acquisition errors
	ErrDownloadFailed ErrorCode = "DOWNLOAD_FAILED"
	ErrExtractFailed  ErrorCode = "EXTRACT_FAILED"

	// Bootstrap errors
	ErrFileWrite ErrorCode = "FILE_WRITE"
	ErrFileCopy  ErrorCode = "FILE_COPY"
	ErrDatabase  ErrorCode = "DATABASE"

	// Install errors
	ErrInstallFailed ErrorCode = "INSTALL_FAILED"
	ErrAuthFailed    ErrorCode = "AUTH_FAILED"

	// Target system errors
	ErrBridge          ErrorCode = "BRIDGE"
	ErrAPIRequest      ErrorCode = "API_REQUEST"
	ErrTemplateInvalid ErrorCode = "TEMPLATE_INVALID"
)

// Tier classifies how far an error propagates through the pipeline.
type Tier int

const (
	// TierItem errors are scoped to one entry of a list; the loop continues.
	TierItem Tier = iota
	// TierFatal errors abort the remaining pipeline.
	TierFatal
)

func (t Tier) String() string {
	if t == TierFatal {
		return "fatal"
	}
	return "item"
}

// Error represents a structured error with code and details
type Error struct {
	Code    ErrorCode
	Tier    Tier
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *Error) Is(target error) bool {
	var targetErr *Error
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new item-tier Error with the given code and message
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new Error with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with an Error
func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	e := New(code, message)
	e.Wrapped = err
	return e
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// Fatal marks the error as aborting the pipeline.
func (e *Error) Fatal() *Error {
	e.Tier = TierFatal
	return e
}

// WithDetail adds a detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not an Error
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrUnknown
}

// IsFatal reports whether any Error in the chain is fatal-tier.
func IsFatal(err error) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Tier == TierFatal {
			return true
		}
		err = e.Wrapped
	}
	return false
}

// Message renders err for operators: the messages of the chain without
// error codes.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	if e.Wrapped == nil {
		return e.Message
	}
	return e.Message + ": " + Message(e.Wrapped)
}
