package shared

import "errors"

var (
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// ErrorCode classifies recoverable failures surfaced to API clients.
type ErrorCode string

// Failure classes. Every role/user mutation failure maps to one of these so
// the HTTP layer never has to guess a status from free text.
const (
	CodeUnauthorized     ErrorCode = "unauthorized"
	CodeValidation       ErrorCode = "validation_error"
	CodeNotFound         ErrorCode = "not_found"
	CodeConflict         ErrorCode = "conflict"
	CodeForbidden        ErrorCode = "forbidden"
	CodeDependencyExists ErrorCode = "dependency_exists"
	CodeInternal         ErrorCode = "internal"
)

// Error is a coded, user-presentable failure. The message is safe to show
// verbatim in the back office UI.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// NewError constructs a coded error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Unauthorized builds a CodeUnauthorized error.
func Unauthorized(message string) *Error {
	return NewError(CodeUnauthorized, message)
}

// ValidationError builds a CodeValidation error.
func ValidationError(message string) *Error {
	return NewError(CodeValidation, message)
}

// NotFound builds a CodeNotFound error.
func NotFound(message string) *Error {
	return NewError(CodeNotFound, message)
}

// Conflict builds a CodeConflict error.
func Conflict(message string) *Error {
	return NewError(CodeConflict, message)
}

// Forbidden builds a CodeForbidden error.
func Forbidden(message string) *Error {
	return NewError(CodeForbidden, message)
}

// DependencyExists builds a CodeDependencyExists error.
func DependencyExists(message string) *Error {
	return NewError(CodeDependencyExists, message)
}

// CodeOf extracts the error code, defaulting to CodeInternal for anything
// that is not a coded error (store failures, context cancellation, ...).
func CodeOf(err error) ErrorCode {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return CodeInternal
}

// AsCoded normalizes any error into a coded error. Non-coded errors become
// CodeInternal carrying the underlying message so callers never crash on an
// unexpected store failure.
func AsCoded(err error) *Error {
	if err == nil {
		return nil
	}
	var coded *Error
	if errors.As(err, &coded) {
		return coded
	}
	return NewError(CodeInternal, err.Error())
}
