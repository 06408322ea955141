package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "givebridge/backend/internal/platform/errors"
	"givebridge/backend/internal/telemetry"
	telemetrydomain "givebridge/backend/internal/telemetry/domain"
	"givebridge/backend/internal/user/domain"
	"givebridge/backend/internal/user/repository"
)

// maxUpdateAttempts bounds the read-modify-write loop against concurrent writers.
const maxUpdateAttempts = 5

// Not-found errors returned to clients. Inactive records are reported as missing.
var (
	ErrUserNotFound = apperrors.New(apperrors.CodeNotFound, "user not found")
	ErrNGONotFound  = apperrors.New(apperrors.CodeNotFound, "NGO not found")
)

// SignupInput is the explicit provisioning request for the caller's verified external id.
type SignupInput struct {
	Email     string
	FirstName string
	LastName  string
	Role      domain.Role
	// Attributes optionally seeds the role payload; it must match Role.
	Attributes domain.RoleAttributes
}

// AccountService implements provisioning, self-service, and administrative directory operations.
type AccountService struct {
	dir     repository.Repository
	emitter telemetry.EventEmitter
	logger  *zap.Logger
	nowF    func() time.Time
}

// NewAccountService returns an AccountService. emitter and logger may be nil.
func NewAccountService(dir repository.Repository, emitter telemetry.EventEmitter, logger *zap.Logger) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{
		dir:     dir,
		emitter: emitter,
		logger:  logger,
		nowF:    func() time.Time { return time.Now().UTC() },
	}
}

// Signup provisions a record for externalID. created is false when an
// identical-role record already exists for externalID (the provider's created
// event got there first, or the request is a retry). A record for externalID
// with a different role is ErrDuplicateExternalID; an email owned by another
// record is ErrDuplicateEmail.
func (s *AccountService) Signup(ctx context.Context, externalID string, in SignupInput) (rec *domain.IdentityRecord, created bool, err error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, false, apperrors.ErrMissingSubject
	}
	if existing, err := s.dir.GetByExternalID(ctx, externalID); err != nil {
		return nil, false, err
	} else if existing != nil {
		return s.existingSignup(existing, in.Role)
	}

	now := s.nowF()
	rec = &domain.IdentityRecord{
		ID:         uuid.New().String(),
		ExternalID: externalID,
		Email:      in.Email,
		Name:       domain.Name{First: strings.TrimSpace(in.FirstName), Last: strings.TrimSpace(in.LastName)},
		Role:       in.Role,
		Active:     true,
		Attributes: in.Attributes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if ngo, ok := rec.Attributes.(domain.NGOAttributes); ok {
		ngo.Verified = false
		rec.Attributes = ngo
	}
	if err := rec.Validate(); err != nil {
		return nil, false, err
	}
	if err := s.dir.Create(ctx, rec); err != nil {
		if errors.Is(err, apperrors.ErrDuplicateExternalID) {
			// Lost the race with the created event.
			existing, getErr := s.dir.GetByExternalID(ctx, externalID)
			if getErr != nil {
				return nil, false, getErr
			}
			if existing != nil {
				return s.existingSignup(existing, in.Role)
			}
		}
		return nil, false, err
	}
	if err := s.dir.TouchLogin(ctx, rec.ID, now, false); err != nil {
		s.logger.Warn("account: activity stamp failed", zap.String("user_id", rec.ID), zap.Error(err))
	} else {
		rec.LastActivity = now
	}
	s.emit(telemetrydomain.EventCreated, telemetrydomain.SourceSignup, rec, "")
	return rec, true, nil
}

func (s *AccountService) existingSignup(existing *domain.IdentityRecord, role domain.Role) (*domain.IdentityRecord, bool, error) {
	if existing.Role != role || !existing.Active {
		return nil, false, apperrors.ErrDuplicateExternalID
	}
	return existing, false, nil
}

// Signin stamps last login for an authenticated record and returns the refreshed record.
func (s *AccountService) Signin(ctx context.Context, rec *domain.IdentityRecord) (*domain.IdentityRecord, error) {
	now := s.nowF()
	if err := s.dir.TouchLogin(ctx, rec.ID, now, true); err != nil {
		return nil, err
	}
	out := rec.Clone()
	out.LastLogin = now
	out.LastActivity = now
	s.emit(telemetrydomain.EventSignedIn, telemetrydomain.SourceSelfService, out, "")
	return out, nil
}

// UpdateProfile applies a self-service patch. Email and email verification are
// managed by the identity provider and are stripped from the patch.
func (s *AccountService) UpdateProfile(ctx context.Context, id string, patch domain.Patch) (*domain.IdentityRecord, error) {
	patch.Email = nil
	patch.EmailVerified = nil
	return s.update(ctx, id, patch, telemetrydomain.SourceSelfService)
}

// SetEmailVerified sets the caller's email verification flag.
func (s *AccountService) SetEmailVerified(ctx context.Context, id string, verified bool) (*domain.IdentityRecord, error) {
	return s.update(ctx, id, domain.Patch{EmailVerified: &verified}, telemetrydomain.SourceSelfService)
}

func (s *AccountService) update(ctx context.Context, id string, patch domain.Patch, source telemetrydomain.Source) (*domain.IdentityRecord, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		cur, err := s.dir.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if cur == nil {
			return nil, ErrUserNotFound
		}
		next, err := s.dir.Update(ctx, id, cur.Version, patch)
		if errors.Is(err, apperrors.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if next.Version != cur.Version {
			s.emit(telemetrydomain.EventUpdated, source, next, "")
		}
		return next, nil
	}
	return nil, apperrors.ErrVersionConflict
}

// DeleteAccount soft-deletes the caller's record. Repeating it is a no-op.
func (s *AccountService) DeleteAccount(ctx context.Context, id string) error {
	rec, err := s.dir.Deactivate(ctx, id)
	if err != nil {
		return err
	}
	s.emit(telemetrydomain.EventDeactivated, telemetrydomain.SourceSelfService, rec, "account deleted by owner")
	return nil
}

// GetUser returns an active record by id.
func (s *AccountService) GetUser(ctx context.Context, id string) (*domain.IdentityRecord, error) {
	rec, err := s.dir.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil || !rec.Active {
		return nil, ErrUserNotFound
	}
	return rec, nil
}

// GetNGO returns an active NGO record by id.
func (s *AccountService) GetNGO(ctx context.Context, id string) (*domain.IdentityRecord, error) {
	rec, err := s.dir.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil || !rec.Active || rec.Role != domain.RoleNGO {
		return nil, ErrNGONotFound
	}
	return rec, nil
}

// VerifyNGO sets the vetting flag of an NGO record. It is the only path that changes the flag.
func (s *AccountService) VerifyNGO(ctx context.Context, id string, verified bool) (*domain.IdentityRecord, error) {
	rec, err := s.dir.SetNGOVerified(ctx, id, verified)
	if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrInvalidArgument) {
		return nil, ErrNGONotFound
	}
	if err != nil {
		return nil, err
	}
	reason := "verified"
	if !verified {
		reason = "unverified"
	}
	s.emit(telemetrydomain.EventNGOVerified, telemetrydomain.SourceAdmin, rec, reason)
	return rec, nil
}

// SetStatus activates or deactivates a record.
func (s *AccountService) SetStatus(ctx context.Context, id string, active bool) (*domain.IdentityRecord, error) {
	rec, err := s.dir.SetActive(ctx, id, active)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	t := telemetrydomain.EventDeactivated
	if active {
		t = telemetrydomain.EventReactivated
	}
	s.emit(t, telemetrydomain.SourceAdmin, rec, "")
	return rec, nil
}

func (s *AccountService) emit(t telemetrydomain.EventType, source telemetrydomain.Source, rec *domain.IdentityRecord, reason string) {
	if s.emitter == nil || rec == nil {
		return
	}
	telemetry.EmitAsync(s.emitter, s.logger, &telemetrydomain.DirectoryEvent{
		Type:       t,
		Source:     source,
		UserID:     rec.ID,
		ExternalID: rec.ExternalID,
		Role:       string(rec.Role),
		Reason:     reason,
		Version:    rec.Version,
		OccurredAt: s.nowF(),
	})
}
