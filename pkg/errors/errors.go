// Package errors provides structured error types for pixl.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the core, CLI and HTTP API
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation and format failures
//   - NOT_FOUND: Resource not found
//   - INTERNAL_*: Unexpected internal errors
//
// I/O errors from the storage layer are not converted into coded errors;
// they are returned to the caller as-is.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidFormat, "invalid magic number")
//	if errors.Is(err, errors.ErrCodeInvalidFormat) {
//	    // Handle corrupt file
//	}
//
//	// Out-of-range drawing carries the offending coordinates
//	err := errors.InvalidCoordinates(x, y, width, height)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation and format errors
	ErrCodeInvalidInput       Code = "INVALID_INPUT"
	ErrCodeInvalidFormat      Code = "INVALID_FORMAT"
	ErrCodeInvalidCoordinates Code = "INVALID_COORDINATES"
	ErrCodeInvalidPath        Code = "INVALID_PATH"
	ErrCodeInvalidColor       Code = "INVALID_COLOR"
	ErrCodeInvalidDimensions  Code = "INVALID_DIMENSIONS"
	ErrCodeInvalidFilename    Code = "INVALID_FILENAME"

	// Resource not found errors
	ErrCodeNotFound Code = "NOT_FOUND"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
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

// coder is implemented by error types that carry their own code.
type coder interface {
	error
	Code() Code
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error or a typed error
// (such as *CoordinatesError) with a matching code. The outermost coded
// error wins.
func Is(err error, code Code) bool {
	return GetCode(err) == code
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if no coded error is in the chain.
func GetCode(err error) Code {
	for err != nil {
		switch e := err.(type) {
		case *Error:
			return e.Code
		case coder:
			return e.Code()
		}
		err = errors.Unwrap(err)
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// CoordinatesError reports an access outside a frame or outside the frame
// list of a book.
type CoordinatesError struct {
	X, Y          uint16
	Width, Height uint16
}

// InvalidCoordinates returns a *CoordinatesError for the given point and
// image size.
func InvalidCoordinates(x, y, width, height uint16) *CoordinatesError {
	return &CoordinatesError{X: x, Y: y, Width: width, Height: height}
}

// Error implements the error interface.
func (e *CoordinatesError) Error() string {
	return fmt.Sprintf("invalid coordinates: x=%d, y=%d for image size %dx%d", e.X, e.Y, e.Width, e.Height)
}

// Code returns the error code for this error type.
func (e *CoordinatesError) Code() Code {
	return ErrCodeInvalidCoordinates
}
