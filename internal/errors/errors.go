package errors

import (
	"errors"
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

// Newf creates a new AppError with a formatted message
func Newf(code, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
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

// GetCode returns the error code if it's an AppError, otherwise returns "UNKNOWN"
func GetCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

// IsCode reports whether err carries the given error code
func IsCode(err error, code string) bool {
	return GetCode(err) == code
}

// Predefined error codes
const (
	CodeSchemaError    = "SCHEMA_ERROR"
	CodeDataQuality    = "DATA_QUALITY_ERROR"
	CodeParameterError = "PARAMETER_ERROR"
	CodeNoMetadata     = "NO_METADATA_ERROR"
	CodeShapeError     = "SHAPE_ERROR"
	CodeArtifactError  = "ARTIFACT_ERROR"
	CodeIngestError    = "INGEST_ERROR"
	CodeConfigInvalid  = "CONFIG_INVALID"
	CodeInternalError  = "INTERNAL_ERROR"
	CodeLedgerError    = "LEDGER_ERROR"
)

// Common error constructors

// SchemaError reports a malformed or insufficient column layout
func SchemaError(format string, args ...interface{}) *AppError {
	return Newf(CodeSchemaError, format, args...)
}

// DataQualityError reports missing values in a dataset
func DataQualityError(format string, args ...interface{}) *AppError {
	return Newf(CodeDataQuality, format, args...)
}

// ParameterError reports a bad hyperparameter, scaler or filter selection
func ParameterError(format string, args ...interface{}) *AppError {
	return Newf(CodeParameterError, format, args...)
}

// NoMetadataError reports an artifact without a metadata history
func NoMetadataError(path string) *AppError {
	return Newf(CodeNoMetadata, "no metadata found in artifact %s", path)
}

// ShapeError reports an inference row that does not match the expected feature width
func ShapeError(format string, args ...interface{}) *AppError {
	return Newf(CodeShapeError, format, args...)
}

// ConfigInvalid reports an invalid configuration value
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}
