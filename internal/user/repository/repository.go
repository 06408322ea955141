package repository

import (
	"context"
	"time"

	"givebridge/backend/internal/user/domain"
)

// Repository is the user directory: identity records keyed by id, external id, and email.
//
// Lookups return (nil, nil) when no record matches; errors are reserved for
// store failures. Mutations of a missing record return apperrors.ErrNotFound.
// Every returned record is a copy the caller may modify freely.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.IdentityRecord, error)
	GetByExternalID(ctx context.Context, externalID string) (*domain.IdentityRecord, error)
	GetByEmail(ctx context.Context, email string) (*domain.IdentityRecord, error)
	// Create inserts r (ID must be set) and sets r.Version. Fails with
	// ErrDuplicateExternalID or ErrDuplicateEmail; at most one concurrent create per key wins.
	Create(ctx context.Context, r *domain.IdentityRecord) error
	// Update applies patch if the stored version equals expectedVersion, else ErrVersionConflict.
	// A patch that changes nothing returns the current record without a write.
	Update(ctx context.Context, id string, expectedVersion int64, patch domain.Patch) (*domain.IdentityRecord, error)
	// Deactivate marks the record inactive. Deactivating an inactive record is a no-op success.
	Deactivate(ctx context.Context, id string) (*domain.IdentityRecord, error)
	// SetActive sets the active flag (administrative reactivation or deactivation).
	SetActive(ctx context.Context, id string, active bool) (*domain.IdentityRecord, error)
	// SetNGOVerified sets the NGO vetting flag. Fails with ErrInvalidArgument for non-NGO records.
	SetNGOVerified(ctx context.Context, id string, verified bool) (*domain.IdentityRecord, error)
	// TouchLogin stamps last activity, and last login when login is true.
	TouchLogin(ctx context.Context, id string, at time.Time, login bool) error
}
