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

	// Input loading errors
	ErrConfigLoad   ErrorCode = "CONFIG_LOAD"
	ErrConfigParse  ErrorCode = "CONFIG_PARSE"
	ErrStorageLoad  ErrorCode = "STORAGE_LOAD"
	ErrStorageParse ErrorCode = "STORAGE_PARSE"

	// Render errors
	ErrRenderIncomplete ErrorCode = "RENDER_INCOMPLETE"

	// Pipeline phase errors, one per hard stop in the install sequence
	ErrKeyfileCreate ErrorCode = "KEYFILE_CREATE"
	ErrCryptsetup    ErrorCode = "CRYPTSETUP"
	ErrHardwareScan  ErrorCode = "HARDWARE_SCAN"
	ErrUnfreeEval    ErrorCode = "UNFREE_EVAL"
	ErrConfigWrite   ErrorCode = "CONFIG_WRITE"
	ErrInstallRun    ErrorCode = "INSTALL_RUN"
)

// InstallError is a structured error with a stable code and the two-part
// human-readable (title, detail) message the host installer displays.
type InstallError struct {
	Code    ErrorCode
	Title   string
	Detail  string
	Wrapped error
}

// Error implements the error interface
func (e *InstallError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %s: %v", e.Code, e.Title, e.Detail, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Title, e.Detail)
}

// Unwrap implements the errors.Unwrap interface
func (e *InstallError) Unwrap() error {
	return e.Wrapped
}

// Is matches two InstallErrors by code
func (e *InstallError) Is(target error) bool {
	var targetErr *InstallError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new InstallError with the given code and message pair
func New(code ErrorCode, title, detail string) *InstallError {
	return &InstallError{
		Code:   code,
		Title:  title,
		Detail: detail,
	}
}

// Newf creates a new InstallError with a formatted detail message
func Newf(code ErrorCode, title, format string, args ...interface{}) *InstallError {
	return &InstallError{
		Code:   code,
		Title:  title,
		Detail: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with an InstallError
func Wrap(err error, code ErrorCode, title, detail string) *InstallError {
	if err == nil {
		return nil
	}
	return &InstallError{
		Code:    code,
		Title:   title,
		Detail:  detail,
		Wrapped: err,
	}
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var instErr *InstallError
	if errors.As(err, &instErr) {
		return instErr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not an InstallError
func GetErrorCode(err error) ErrorCode {
	var instErr *InstallError
	if errors.As(err, &instErr) {
		return instErr.Code
	}
	return ErrUnknown
}

// Pair returns the (title, detail) pair reported to the host installer.
// For errors outside the documented failure surface the error text itself
// becomes the detail.
func Pair(err error) (string, string) {
	var instErr *InstallError
	if errors.As(err, &instErr) {
		return instErr.Title, instErr.Detail
	}
	return "Installation failed", err.Error()
}
