package repository

import (
	"context"
	"time"

	"github.com/hashicorp/go-memdb"

	apperrors "givebridge/backend/internal/platform/errors"
	"givebridge/backend/internal/user/domain"
)

const identitiesTable = "identities"

const (
	indexID         = "id"
	indexExternalID = "external_id"
	indexEmail      = "email"
)

func identitySchema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			identitiesTable: {
				Name: identitiesTable,
				Indexes: map[string]*memdb.IndexSchema{
					indexID: {
						Name:    indexID,
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ID"},
					},
					indexExternalID: {
						Name:    indexExternalID,
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ExternalID"},
					},
					indexEmail: {
						Name:    indexEmail,
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Email", Lowercase: true},
					},
				},
			},
		},
	}
}

// MemoryRepository is an in-process directory backed by go-memdb. Write
// transactions are serialized by memdb, so uniqueness checks and the insert
// that follows them are atomic; an aborted transaction leaves no trace.
type MemoryRepository struct {
	db   *memdb.MemDB
	nowF func() time.Time
}

// NewMemoryRepository returns an empty in-memory directory.
func NewMemoryRepository() (*MemoryRepository, error) {
	db, err := memdb.NewMemDB(identitySchema())
	if err != nil {
		return nil, err
	}
	return &MemoryRepository{db: db, nowF: func() time.Time { return time.Now().UTC() }}, nil
}

func (r *MemoryRepository) get(index, value string) (*domain.IdentityRecord, error) {
	txn := r.db.Txn(false)
	defer txn.Abort()
	raw, err := txn.First(identitiesTable, index, value)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	return raw.(*domain.IdentityRecord).Clone(), nil
}

// GetByID returns the record with the local id, or nil if not found.
func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.IdentityRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.get(indexID, id)
}

// GetByExternalID returns the record for the identity-provider id, or nil if not found.
func (r *MemoryRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.IdentityRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.get(indexExternalID, externalID)
}

// GetByEmail returns the record for email (case-insensitive), or nil if not found.
func (r *MemoryRepository) GetByEmail(ctx context.Context, email string) (*domain.IdentityRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.get(indexEmail, domain.NormalizeEmail(email))
}

// Create inserts the record after checking both uniqueness keys in the same write transaction.
func (r *MemoryRepository) Create(ctx context.Context, rec *domain.IdentityRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := rec.Validate(); err != nil {
		return err
	}
	if rec.ID == "" {
		return apperrors.New(apperrors.CodeInvalidArgument, "id is required")
	}
	txn := r.db.Txn(true)
	defer txn.Abort()

	if existing, err := txn.First(identitiesTable, indexExternalID, rec.ExternalID); err != nil {
		return err
	} else if existing != nil {
		return apperrors.ErrDuplicateExternalID
	}
	if existing, err := txn.First(identitiesTable, indexEmail, rec.Email); err != nil {
		return err
	} else if existing != nil {
		return apperrors.ErrDuplicateEmail
	}
	if existing, err := txn.First(identitiesTable, indexID, rec.ID); err != nil {
		return err
	} else if existing != nil {
		return apperrors.New(apperrors.CodeInvalidArgument, "id already in use")
	}

	stored := rec.Clone()
	stored.Version = 1
	if err := txn.Insert(identitiesTable, stored); err != nil {
		return err
	}
	txn.Commit()
	rec.Version = 1
	return nil
}

// mutate runs fn on a copy of the current record inside a write transaction
// and stores the result if fn reports a change.
func (r *MemoryRepository) mutate(ctx context.Context, id string, fn func(cur *domain.IdentityRecord) (bool, error)) (*domain.IdentityRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	txn := r.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(identitiesTable, indexID, id)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, apperrors.ErrNotFound
	}
	cur := raw.(*domain.IdentityRecord).Clone()
	prevEmail := cur.Email
	changed, err := fn(cur)
	if err != nil {
		return nil, err
	}
	if !changed {
		return cur, nil
	}
	if cur.Email != prevEmail {
		other, err := txn.First(identitiesTable, indexEmail, cur.Email)
		if err != nil {
			return nil, err
		}
		if other != nil && other.(*domain.IdentityRecord).ID != cur.ID {
			return nil, apperrors.ErrDuplicateEmail
		}
	}
	cur.Version++
	if err := txn.Insert(identitiesTable, cur); err != nil {
		return nil, err
	}
	txn.Commit()
	return cur.Clone(), nil
}

// Update applies patch when expectedVersion matches the stored version.
func (r *MemoryRepository) Update(ctx context.Context, id string, expectedVersion int64, patch domain.Patch) (*domain.IdentityRecord, error) {
	return r.mutate(ctx, id, func(cur *domain.IdentityRecord) (bool, error) {
		if cur.Version != expectedVersion {
			return false, apperrors.ErrVersionConflict
		}
		return cur.Apply(patch, r.nowF())
	})
}

// Deactivate marks the record inactive; already-inactive records are returned unchanged.
func (r *MemoryRepository) Deactivate(ctx context.Context, id string) (*domain.IdentityRecord, error) {
	return r.SetActive(ctx, id, false)
}

// SetActive sets the active flag.
func (r *MemoryRepository) SetActive(ctx context.Context, id string, active bool) (*domain.IdentityRecord, error) {
	return r.mutate(ctx, id, func(cur *domain.IdentityRecord) (bool, error) {
		return cur.SetActive(active, r.nowF()), nil
	})
}

// SetNGOVerified sets the NGO vetting flag.
func (r *MemoryRepository) SetNGOVerified(ctx context.Context, id string, verified bool) (*domain.IdentityRecord, error) {
	return r.mutate(ctx, id, func(cur *domain.IdentityRecord) (bool, error) {
		return cur.SetNGOVerified(verified, r.nowF())
	})
}

// TouchLogin stamps activity timestamps. It does not bump the record version.
func (r *MemoryRepository) TouchLogin(ctx context.Context, id string, at time.Time, login bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	txn := r.db.Txn(true)
	defer txn.Abort()
	raw, err := txn.First(identitiesTable, indexID, id)
	if err != nil {
		return err
	}
	if raw == nil {
		return apperrors.ErrNotFound
	}
	cur := raw.(*domain.IdentityRecord).Clone()
	cur.LastActivity = at
	if login {
		cur.LastLogin = at
	}
	if err := txn.Insert(identitiesTable, cur); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

var _ Repository = (*MemoryRepository)(nil)
