package security

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "givebridge/backend/internal/platform/errors"
)

// signingMethod is the only algorithm accepted on provider credentials.
var signingMethod = jwt.SigningMethodHS256

// Claim is the verified content of a provider credential.
type Claim struct {
	// Subject is the provider's external id for the user.
	Subject   string
	SessionID string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// providerClaims are the claims the identity provider puts in its session tokens.
// Older tokens carry the user id in user_id instead of sub.
type providerClaims struct {
	jwt.RegisteredClaims
	UserID    string `json:"user_id,omitempty"`
	SessionID string `json:"sid,omitempty"`
}

// Verifier checks provider-issued bearer credentials against a shared secret.
// It is safe for concurrent use.
type Verifier struct {
	secret []byte
	leeway time.Duration
	nowF   func() time.Time
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithLeeway tolerates clock skew of d on exp, nbf and iat.
func WithLeeway(d time.Duration) VerifierOption {
	return func(v *Verifier) { v.leeway = d }
}

// WithClock replaces the wall clock used for expiry checks.
func WithClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) { v.nowF = now }
}

// NewVerifier returns a Verifier for secret. An empty secret is a configuration error.
func NewVerifier(secret []byte, opts ...VerifierOption) (*Verifier, error) {
	if len(secret) == 0 {
		return nil, apperrors.New(apperrors.CodeConfiguration, "identity provider secret is not configured")
	}
	v := &Verifier{
		secret: append([]byte(nil), secret...),
		nowF:   time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Verify validates credential and returns its claim. Errors are
// ErrInvalidCredential (malformed, bad signature, wrong algorithm),
// ErrExpiredCredential, or ErrMissingSubject.
func (v *Verifier) Verify(credential string) (Claim, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return Claim{}, apperrors.ErrInvalidCredential
	}
	token, err := jwt.ParseWithClaims(credential, &providerClaims{}, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithTimeFunc(v.nowF),
		jwt.WithLeeway(v.leeway),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claim{}, apperrors.Wrap(apperrors.CodeExpiredCredential, "token expired", err)
		}
		return Claim{}, apperrors.Wrap(apperrors.CodeInvalidCredential, "invalid token", err)
	}
	claims, ok := token.Claims.(*providerClaims)
	if !ok || !token.Valid {
		return Claim{}, apperrors.ErrInvalidCredential
	}

	subject := claims.Subject
	if subject == "" {
		subject = claims.UserID
	}
	if subject == "" {
		return Claim{}, apperrors.ErrMissingSubject
	}

	out := Claim{Subject: subject, SessionID: claims.SessionID}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
