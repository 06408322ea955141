package security

import (
	"os"
	"strings"

	apperrors "givebridge/backend/internal/platform/errors"
)

// filePrefix marks a secret value that names a file to read instead of holding the secret inline.
const filePrefix = "file:"

// LoadSecret returns the key material for s. s is either the secret itself or
// "file:<path>", in which case the file contents (trailing newline trimmed) are used.
// An empty secret is a configuration error.
func LoadSecret(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, apperrors.New(apperrors.CodeConfiguration, "signing secret is empty")
	}
	if !strings.HasPrefix(s, filePrefix) {
		return []byte(s), nil
	}
	b, err := os.ReadFile(strings.TrimPrefix(s, filePrefix))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfiguration, "read signing secret", err)
	}
	b = []byte(strings.TrimRight(string(b), "\r\n"))
	if len(b) == 0 {
		return nil, apperrors.New(apperrors.CodeConfiguration, "signing secret file is empty")
	}
	return b, nil
}
