// Package errors defines the machine-readable failure taxonomy shared by the
// gateway, the directory, and the identity event pipeline.
package errors

import "net/http"

// Code is a machine-readable reason string returned to clients.
type Code string

const (
	CodeInternal Code = "internal"

	// Credential errors
	CodeMissingCredential Code = "missing_credential"
	CodeInvalidCredential Code = "invalid_credential"
	CodeExpiredCredential Code = "expired_credential"
	CodeMissingSubject    Code = "missing_subject"
	CodeInvalidSignature  Code = "invalid_signature"

	// Identity errors
	CodeUnauthenticated    Code = "unauthenticated"
	CodeUnknownIdentity    Code = "unknown_identity"
	CodeAccountDeactivated Code = "account_deactivated"

	// Authorization errors
	CodeInsufficientRole Code = "insufficient_role"
	CodeNgoNotVerified   Code = "ngo_not_verified"

	// Directory errors
	CodeDuplicateExternalID  Code = "duplicate_external_id"
	CodeDuplicateEmail       Code = "duplicate_email"
	CodeVersionConflict      Code = "version_conflict"
	CodeNotFound             Code = "not_found"
	CodeInvalidArgument      Code = "invalid_argument"
	CodeDirectoryUnavailable Code = "directory_unavailable"

	CodeConfiguration Code = "configuration_error"
)

// HTTPStatus maps the code to the status the HTTP edge responds with.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeMissingCredential, CodeInvalidCredential, CodeExpiredCredential,
		CodeMissingSubject, CodeInvalidSignature, CodeUnauthenticated, CodeUnknownIdentity:
		return http.StatusUnauthorized
	case CodeAccountDeactivated, CodeInsufficientRole, CodeNgoNotVerified:
		return http.StatusForbidden
	case CodeDuplicateExternalID, CodeDuplicateEmail, CodeVersionConflict:
		return http.StatusConflict
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeDirectoryUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
