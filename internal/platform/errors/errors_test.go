package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestIs_MatchesByCode(t *testing.T) {
	err := Wrap(CodeDirectoryUnavailable, "lookup timed out", stderrors.New("deadline"))
	if !stderrors.Is(err, ErrDirectoryUnavailable) {
		t.Fatal("wrapped error with same code should match sentinel")
	}
	if stderrors.Is(err, ErrNotFound) {
		t.Fatal("different code must not match")
	}
	wrapped := fmt.Errorf("outer: %w", err)
	if !stderrors.Is(wrapped, ErrDirectoryUnavailable) {
		t.Fatal("fmt-wrapped error should still match")
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(fmt.Errorf("x: %w", ErrNgoNotVerified)); got != CodeNgoNotVerified {
		t.Errorf("CodeOf = %q, want %q", got, CodeNgoNotVerified)
	}
	if got := CodeOf(stderrors.New("plain")); got != CodeInternal {
		t.Errorf("CodeOf plain = %q, want %q", got, CodeInternal)
	}
}

func TestHTTPStatus(t *testing.T) {
	testCases := []struct {
		code Code
		want int
	}{
		{CodeMissingCredential, http.StatusUnauthorized},
		{CodeInvalidCredential, http.StatusUnauthorized},
		{CodeExpiredCredential, http.StatusUnauthorized},
		{CodeUnknownIdentity, http.StatusUnauthorized},
		{CodeAccountDeactivated, http.StatusForbidden},
		{CodeInsufficientRole, http.StatusForbidden},
		{CodeNgoNotVerified, http.StatusForbidden},
		{CodeDuplicateEmail, http.StatusConflict},
		{CodeDirectoryUnavailable, http.StatusServiceUnavailable},
		{CodeConfiguration, http.StatusInternalServerError},
	}
	for _, tc := range testCases {
		t.Run(string(tc.code), func(t *testing.T) {
			if got := tc.code.HTTPStatus(); got != tc.want {
				t.Errorf("HTTPStatus = %d, want %d", got, tc.want)
			}
		})
	}
}
