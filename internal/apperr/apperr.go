package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes surfaced at the request boundary.
const (
	CodeSchema        = "SCHEMA_ERROR"
	CodeParse         = "PARSE_ERROR"
	CodeModelLoad     = "MODEL_LOAD_ERROR"
	CodeInference     = "INFERENCE_ERROR"
	CodeConfigInvalid = "CONFIG_INVALID"
	CodeNotFound      = "NOT_FOUND"
	CodeInternal      = "INTERNAL_ERROR"
)

// AppError is a coded application error.
type AppError struct {
	Code    string
	Message string
	Cause   error

	// Missing lists the absent required columns of a SCHEMA_ERROR.
	Missing []string
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

// New creates an AppError with the given code.
func New(code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Newf creates an AppError with a formatted message.
func Newf(code, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches a code and message to err. A nil err stays nil.
func Wrap(err error, code, message string) error {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, code, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// SchemaError reports required columns absent from an upload.
func SchemaError(missing []string) *AppError {
	return &AppError{
		Code:    CodeSchema,
		Message: "Missing required columns: " + strings.Join(missing, ", "),
		Missing: append([]string(nil), missing...),
	}
}

// ParseError reports a malformed upload.
func ParseError(format string, args ...interface{}) *AppError {
	return Newf(CodeParse, format, args...)
}

// ModelLoadError reports a missing or corrupt model artifact.
func ModelLoadError(err error, path string) error {
	return Wrapf(err, CodeModelLoad, "failed to load model %s", path)
}

// InferenceError reports a failure inside the classifier call.
func InferenceError(format string, args ...interface{}) *AppError {
	return Newf(CodeInference, format, args...)
}

// ConfigInvalid reports a bad configuration value.
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

// NotFound reports a missing resource.
func NotFound(resource string) *AppError {
	return Newf(CodeNotFound, "%s not found", resource)
}

// CodeOf returns the code of the outermost AppError in err's chain, or
// CodeInternal when there is none.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code string) bool {
	return err != nil && CodeOf(err) == code
}

// MissingColumns returns the missing column names of a schema error, or nil.
func MissingColumns(err error) []string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code == CodeSchema {
		return appErr.Missing
	}
	return nil
}
