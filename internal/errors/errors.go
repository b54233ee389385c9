// Package errors provides coded errors for yapi.
//
// Codes separate failures that abort a run (platform probing, interpreter
// resolution) from failures that only abort the current queue item.
//
//	err := errors.New(errors.ErrCodeNameExtraction, "package name could not be extracted")
//	if errors.Is(err, errors.ErrCodeNameExtraction) {
//	    // ...
//	}
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Run-level errors.
const (
	ErrCodeUnsupportedPlatform Code = "UNSUPPORTED_PLATFORM"
	ErrCodeInvalidOSVersion    Code = "INVALID_OS_VERSION"
	ErrCodeInterpreter         Code = "INTERPRETER"
)

// Per-subtask errors.
const (
	ErrCodeInvalidRequest Code = "INVALID_REQUEST"
	ErrCodeInstaller      Code = "INSTALLER_FAILED"
	ErrCodeNameExtraction Code = "NAME_EXTRACTION"
	ErrCodeMetadataQuery  Code = "METADATA_QUERY"
	ErrCodeFilesystem     Code = "FILESYSTEM"
	ErrCodeDefinition     Code = "DEFINITION"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	for err != nil {
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// GetCode extracts the outermost error code from an error, if available.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Fatal reports whether err must abort the whole run.
func Fatal(err error) bool {
	switch GetCode(err) {
	case ErrCodeUnsupportedPlatform, ErrCodeInvalidOSVersion, ErrCodeInterpreter:
		return true
	}
	return false
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %s", e.Message, UserMessage(e.Cause))
		}
		return e.Message
	}
	return err.Error()
}
