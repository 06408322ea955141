package security

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TestSecret is the shared secret used by NewTestSigner and NewTestVerifier.
// For unit tests only. Do not use in production.
const TestSecret = "sk_test_givebridge_shared_secret"

// TestSigner mints provider-style HS256 credentials for tests.
type TestSigner struct {
	secret []byte
	nowF   func() time.Time
}

// NewTestSigner returns a signer using TestSecret and the wall clock.
// For unit tests only. Callers must not use in production.
func NewTestSigner() *TestSigner {
	return &TestSigner{secret: []byte(TestSecret), nowF: time.Now}
}

// NewTestVerifier returns a Verifier that accepts credentials from NewTestSigner.
func NewTestVerifier() *Verifier {
	v, _ := NewVerifier([]byte(TestSecret))
	return v
}

// Sign returns a credential for subject that expires after ttl (negative ttl yields an expired token).
func (s *TestSigner) Sign(subject string, ttl time.Duration) (string, error) {
	now := s.nowF()
	return s.SignClaims(jwt.MapClaims{
		"sub": subject,
		"sid": "sess_test",
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	})
}

// SignClaims signs arbitrary claims with HS256.
func (s *TestSigner) SignClaims(claims jwt.MapClaims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}
