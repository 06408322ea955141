// Package middleware authenticates HTTP requests against provider credentials and the user directory.
package middleware

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	apperrors "givebridge/backend/internal/platform/errors"
	"givebridge/backend/internal/security"
	"givebridge/backend/internal/user/domain"
	"givebridge/backend/internal/user/repository"
)

const bearerPrefix = "bearer "

// ClaimVerifier verifies a bearer credential. *security.Verifier implements it.
type ClaimVerifier interface {
	Verify(credential string) (security.Claim, error)
}

// Gateway turns an Authorization header into an active directory record.
type Gateway struct {
	verifier      ClaimVerifier
	dir           repository.Repository
	logger        *zap.Logger
	touchInterval time.Duration
	nowF          func() time.Time

	mu        sync.Mutex
	lastTouch map[string]time.Time
	touching  map[string]struct{}
	lastSweep time.Time
}

// NewGateway returns a Gateway. touchInterval throttles last-activity writes per
// record; zero writes on every request.
func NewGateway(verifier ClaimVerifier, dir repository.Repository, touchInterval time.Duration, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		verifier:      verifier,
		dir:           dir,
		logger:        logger,
		touchInterval: touchInterval,
		nowF:          func() time.Time { return time.Now().UTC() },
		lastTouch:     make(map[string]time.Time),
		touching:      make(map[string]struct{}),
	}
}

// ExtractBearer returns the credential from an Authorization header value.
// The scheme match is case-insensitive. A missing or non-bearer header is ErrMissingCredential.
func ExtractBearer(header string) (string, error) {
	v := strings.TrimSpace(header)
	if len(v) < len(bearerPrefix) || !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return "", apperrors.ErrMissingCredential
	}
	token := strings.TrimSpace(v[len(bearerPrefix):])
	if token == "" {
		return "", apperrors.ErrMissingCredential
	}
	return token, nil
}

// VerifyHeader checks the credential only, without consulting the directory.
// Used by provisioning, where the record may not exist yet.
func (g *Gateway) VerifyHeader(header string) (security.Claim, error) {
	token, err := ExtractBearer(header)
	if err != nil {
		return security.Claim{}, err
	}
	return g.verifier.Verify(token)
}

// Authenticate verifies header, resolves the subject in the directory and
// rejects unknown or deactivated identities. Activity is stamped best-effort.
func (g *Gateway) Authenticate(ctx context.Context, header string) (*domain.IdentityRecord, error) {
	claim, err := g.VerifyHeader(header)
	if err != nil {
		return nil, err
	}
	rec, err := g.dir.GetByExternalID(ctx, claim.Subject)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, apperrors.ErrUnknownIdentity
	}
	if !rec.Active {
		return nil, apperrors.ErrAccountDeactivated
	}
	g.touch(ctx, rec)
	return rec, nil
}

// OptionalAuthenticate is Authenticate with every failure degraded to anonymous (nil).
func (g *Gateway) OptionalAuthenticate(ctx context.Context, header string) *domain.IdentityRecord {
	if strings.TrimSpace(header) == "" {
		return nil
	}
	rec, err := g.Authenticate(ctx, header)
	if err != nil {
		g.logger.Debug("gateway: optional auth degraded to anonymous", zap.String("code", string(apperrors.CodeOf(err))))
		return nil
	}
	return rec
}

// touch stamps last activity at most once per touchInterval per record. Only a
// successful write starts the interval; failures are logged and retried on the next request.
func (g *Gateway) touch(ctx context.Context, rec *domain.IdentityRecord) {
	now := g.nowF()
	g.mu.Lock()
	last, seen := g.lastTouch[rec.ID]
	_, inFlight := g.touching[rec.ID]
	due := !inFlight && (!seen || now.Sub(last) >= g.touchInterval)
	if due {
		g.touching[rec.ID] = struct{}{}
	}
	g.mu.Unlock()
	if !due {
		return
	}

	err := g.dir.TouchLogin(ctx, rec.ID, now, false)

	g.mu.Lock()
	delete(g.touching, rec.ID)
	if err == nil && g.touchInterval > 0 {
		g.lastTouch[rec.ID] = now
	}
	if now.Sub(g.lastSweep) >= g.touchInterval {
		g.sweepLocked(now)
	}
	g.mu.Unlock()

	if err != nil {
		g.logger.Warn("gateway: activity stamp failed", zap.String("user_id", rec.ID), zap.Error(err))
		return
	}
	rec.LastActivity = now
}

// sweepLocked drops throttle entries whose interval has elapsed.
func (g *Gateway) sweepLocked(now time.Time) {
	for id, last := range g.lastTouch {
		if now.Sub(last) >= g.touchInterval {
			delete(g.lastTouch, id)
		}
	}
	g.lastSweep = now
}
