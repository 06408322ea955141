package errors

import stderrors "errors"

// Error is the domain error type carried across component boundaries.
type Error struct {
	Code    Code   // Machine-readable reason
	Message string // Human-readable message, safe to return to clients
	Cause   error  // Wrapped underlying error, never returned to clients
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf returns the code of the first *Error in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Sentinels for errors.Is comparisons. Matching is by code, so wrapped or
// re-messaged errors with the same code compare equal.
var (
	ErrMissingCredential    = New(CodeMissingCredential, "access token required")
	ErrInvalidCredential    = New(CodeInvalidCredential, "invalid token")
	ErrExpiredCredential    = New(CodeExpiredCredential, "token expired")
	ErrMissingSubject       = New(CodeMissingSubject, "token has no subject")
	ErrInvalidSignature     = New(CodeInvalidSignature, "invalid webhook signature")
	ErrUnauthenticated      = New(CodeUnauthenticated, "authentication required")
	ErrUnknownIdentity      = New(CodeUnknownIdentity, "user not found")
	ErrAccountDeactivated   = New(CodeAccountDeactivated, "user account is deactivated")
	ErrInsufficientRole     = New(CodeInsufficientRole, "insufficient permissions")
	ErrNgoNotVerified       = New(CodeNgoNotVerified, "NGO verification required")
	ErrDuplicateExternalID  = New(CodeDuplicateExternalID, "user already exists")
	ErrDuplicateEmail       = New(CodeDuplicateEmail, "email already registered")
	ErrVersionConflict      = New(CodeVersionConflict, "record was modified concurrently")
	ErrNotFound             = New(CodeNotFound, "not found")
	ErrInvalidArgument      = New(CodeInvalidArgument, "invalid argument")
	ErrDirectoryUnavailable = New(CodeDirectoryUnavailable, "user directory unavailable")
	ErrConfiguration        = New(CodeConfiguration, "server configuration error")
)
