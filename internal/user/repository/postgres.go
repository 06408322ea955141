package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	apperrors "givebridge/backend/internal/platform/errors"
	"givebridge/backend/internal/user/domain"
)

const (
	constraintExternalID = "identities_external_id_key"
	constraintEmail      = "identities_email_key"
)

// maxWriteAttempts bounds the read-compare-write loop for administrative mutations.
const maxWriteAttempts = 3

const selectIdentity = `SELECT id, external_id, email, first_name, last_name, role, email_verified, active,
	profile, role_attributes, last_login, last_activity, created_at, updated_at, provider_updated_at, version
FROM identities`

type PostgresRepository struct {
	db   *sql.DB
	nowF func() time.Time
}

// NewPostgresRepository returns a directory that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db, nowF: func() time.Time { return time.Now().UTC() }}
}

// GetByID returns the record for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.IdentityRecord, error) {
	return r.getOne(ctx, selectIdentity+` WHERE id = $1`, id)
}

// GetByExternalID returns the record for the identity-provider id, or nil if not found.
func (r *PostgresRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.IdentityRecord, error) {
	return r.getOne(ctx, selectIdentity+` WHERE external_id = $1`, externalID)
}

// GetByEmail returns the record for email, or nil if not found. Emails are stored lowercased.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.IdentityRecord, error) {
	return r.getOne(ctx, selectIdentity+` WHERE email = $1`, domain.NormalizeEmail(email))
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg string) (*domain.IdentityRecord, error) {
	rec, err := scanIdentity(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

// Create persists the record. Both unique constraints are enforced by the
// database, so concurrent creates for the same key have exactly one winner.
func (r *PostgresRepository) Create(ctx context.Context, rec *domain.IdentityRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	if rec.ID == "" {
		return apperrors.New(apperrors.CodeInvalidArgument, "id is required")
	}
	profile, err := encodeProfile(rec.Profile)
	if err != nil {
		return err
	}
	attrs, err := encodeAttributes(rec.Attributes)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO identities (
	id, external_id, email, first_name, last_name, role, email_verified, active,
	profile, role_attributes, last_login, last_activity, created_at, updated_at, provider_updated_at, version
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, 1)`,
		rec.ID, rec.ExternalID, rec.Email, rec.Name.First, rec.Name.Last, string(rec.Role),
		rec.EmailVerified, rec.Active, profile, attrs,
		nullTime(rec.LastLogin), nullTime(rec.LastActivity), rec.CreatedAt.UTC(), rec.UpdatedAt.UTC(),
		nullTime(rec.ProviderUpdatedAt),
	)
	if err != nil {
		return mapConstraintError(err)
	}
	rec.Version = 1
	return nil
}

// Update applies patch when expectedVersion matches; the conditional UPDATE is the compare-and-set.
func (r *PostgresRepository) Update(ctx context.Context, id string, expectedVersion int64, patch domain.Patch) (*domain.IdentityRecord, error) {
	return r.mutate(ctx, id, false, func(cur *domain.IdentityRecord) (bool, error) {
		if cur.Version != expectedVersion {
			return false, apperrors.ErrVersionConflict
		}
		return cur.Apply(patch, r.nowF())
	})
}

// Deactivate marks the record inactive; already-inactive records are returned unchanged.
func (r *PostgresRepository) Deactivate(ctx context.Context, id string) (*domain.IdentityRecord, error) {
	return r.SetActive(ctx, id, false)
}

// SetActive sets the active flag, retrying on concurrent modification.
func (r *PostgresRepository) SetActive(ctx context.Context, id string, active bool) (*domain.IdentityRecord, error) {
	return r.mutate(ctx, id, true, func(cur *domain.IdentityRecord) (bool, error) {
		return cur.SetActive(active, r.nowF()), nil
	})
}

// SetNGOVerified sets the NGO vetting flag, retrying on concurrent modification.
func (r *PostgresRepository) SetNGOVerified(ctx context.Context, id string, verified bool) (*domain.IdentityRecord, error) {
	return r.mutate(ctx, id, true, func(cur *domain.IdentityRecord) (bool, error) {
		return cur.SetNGOVerified(verified, r.nowF())
	})
}

// TouchLogin stamps activity timestamps without bumping the version.
func (r *PostgresRepository) TouchLogin(ctx context.Context, id string, at time.Time, login bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE identities
SET last_activity = $2,
    last_login = CASE WHEN $3 THEN $2 ELSE last_login END
WHERE id = $1`, id, at.UTC(), login)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) mutate(ctx context.Context, id string, retry bool, fn func(cur *domain.IdentityRecord) (bool, error)) (*domain.IdentityRecord, error) {
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		cur, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if cur == nil {
			return nil, apperrors.ErrNotFound
		}
		expected := cur.Version
		changed, err := fn(cur)
		if err != nil {
			return nil, err
		}
		if !changed {
			return cur, nil
		}
		err = r.writeIfVersion(ctx, cur, expected)
		if errors.Is(err, apperrors.ErrVersionConflict) && retry {
			continue
		}
		if err != nil {
			return nil, err
		}
		cur.Version = expected + 1
		return cur, nil
	}
	return nil, apperrors.ErrVersionConflict
}

// writeIfVersion stores the mutable columns of rec only if the row still has version expected.
func (r *PostgresRepository) writeIfVersion(ctx context.Context, rec *domain.IdentityRecord, expected int64) error {
	profile, err := encodeProfile(rec.Profile)
	if err != nil {
		return err
	}
	attrs, err := encodeAttributes(rec.Attributes)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `UPDATE identities
SET email = $2, first_name = $3, last_name = $4, email_verified = $5, active = $6,
    profile = $7, role_attributes = $8, updated_at = $9, provider_updated_at = $10,
    version = version + 1
WHERE id = $1 AND version = $11`,
		rec.ID, rec.Email, rec.Name.First, rec.Name.Last, rec.EmailVerified, rec.Active,
		profile, attrs, rec.UpdatedAt.UTC(), nullTime(rec.ProviderUpdatedAt), expected,
	)
	if err != nil {
		return mapConstraintError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.ErrVersionConflict
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner) (*domain.IdentityRecord, error) {
	var (
		rec                     domain.IdentityRecord
		role                    string
		profile, attrs          []byte
		lastLogin, lastActivity sql.NullTime
		providerUpdatedAt       sql.NullTime
	)
	err := row.Scan(
		&rec.ID, &rec.ExternalID, &rec.Email, &rec.Name.First, &rec.Name.Last, &role,
		&rec.EmailVerified, &rec.Active, &profile, &attrs, &lastLogin, &lastActivity,
		&rec.CreatedAt, &rec.UpdatedAt, &providerUpdatedAt, &rec.Version,
	)
	if err != nil {
		return nil, err
	}
	rec.Role = domain.Role(role)
	if rec.Profile, err = decodeProfile(profile); err != nil {
		return nil, err
	}
	if rec.Attributes, err = decodeAttributes(rec.Role, attrs); err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		rec.LastLogin = lastLogin.Time.UTC()
	}
	if lastActivity.Valid {
		rec.LastActivity = lastActivity.Time.UTC()
	}
	if providerUpdatedAt.Valid {
		rec.ProviderUpdatedAt = providerUpdatedAt.Time.UTC()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return &rec, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t.UTC(), Valid: !t.IsZero()}
}

func mapConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return err
	}
	switch pgErr.ConstraintName {
	case constraintExternalID:
		return apperrors.ErrDuplicateExternalID
	case constraintEmail:
		return apperrors.ErrDuplicateEmail
	default:
		return apperrors.Wrap(apperrors.CodeInvalidArgument, "id already in use", err)
	}
}

var _ Repository = (*PostgresRepository)(nil)
