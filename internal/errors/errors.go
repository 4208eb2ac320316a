package errors

import (
	"fmt"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   appErr,
		}
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// GetCode returns the error code if it's an AppError, otherwise returns "UNKNOWN"
func GetCode(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return "UNKNOWN"
}

// Predefined error codes
const (
	CodeSchemaError   = "SCHEMA_ERROR"
	CodeMappingError  = "MAPPING_ERROR"
	CodeJoinError     = "JOIN_ERROR"
	CodeConfigInvalid = "CONFIG_INVALID"
	CodeIOError       = "IO_ERROR"
	CodeDatabaseError = "DATABASE_ERROR"
	CodeInternalError = "INTERNAL_ERROR"
)

// SchemaError signals a required column or row is missing or malformed.
// Fatal for the stage that raised it.
func SchemaError(message string) *AppError {
	return New(CodeSchemaError, message)
}

// SchemaErrorf creates a SchemaError with a formatted message
func SchemaErrorf(format string, args ...interface{}) *AppError {
	return SchemaError(fmt.Sprintf(format, args...))
}

// MappingError signals identifier resolution fell below acceptable coverage.
// The unresolved fraction belongs in the message so the operator sees it.
func MappingError(message string) *AppError {
	return New(CodeMappingError, message)
}

// MappingErrorf creates a MappingError with a formatted message
func MappingErrorf(format string, args ...interface{}) *AppError {
	return MappingError(fmt.Sprintf(format, args...))
}

// JoinError signals the join anchor table is empty or malformed
func JoinError(message string) *AppError {
	return New(CodeJoinError, message)
}

// ConfigInvalid signals an invalid or missing configuration value
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

// IOError wraps a filesystem failure
func IOError(message string, cause error) *AppError {
	return &AppError{
		Code:    CodeIOError,
		Message: message,
		Cause:   cause,
	}
}

// DatabaseError wraps a warehouse persistence failure
func DatabaseError(message string, cause error) *AppError {
	return &AppError{
		Code:    CodeDatabaseError,
		Message: message,
		Cause:   cause,
	}
}
