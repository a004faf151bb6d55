package errors

import "errors"

// Codes shared between the domain and transport layers.
const (
	CodeInvalidInput       = "invalid_input"
	CodeInvalidRange       = "invalid_range"
	CodeSyncInProgress     = "sync_in_progress"
	CodePlatformInitFailed = "platform_init_failed"
	CodeStorageError       = "storage_error"
	CodeCanceled           = "canceled"
	CodeInvalidToken       = "invalid_token"
)

// AppError encodes domain specific error details.
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Wrap produces a new AppError instance.
func Wrap(code, message string, err error) error {
	if err == nil {
		return &AppError{Code: code, Message: message}
	}
	return &AppError{Code: code, Message: message, Err: err}
}

// IsCode helps handler differentiate failures.
func IsCode(err error, code string) bool {
	return Code(err) == code
}

// Code returns the outermost AppError code, or an empty string.
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
