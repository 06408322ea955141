package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	apperrors "givebridge/backend/internal/platform/errors"
	"givebridge/backend/internal/user/domain"
)

func newTestRecord(id, externalID, email string, role domain.Role) *domain.IdentityRecord {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &domain.IdentityRecord{
		ID:         id,
		ExternalID: externalID,
		Email:      email,
		Name:       domain.Name{First: "Ann", Last: "Lee"},
		Role:       role,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func newMemory(t *testing.T) *MemoryRepository {
	t.Helper()
	repo, err := NewMemoryRepository()
	if err != nil {
		t.Fatalf("NewMemoryRepository: %v", err)
	}
	return repo
}

func TestMemoryRepository_CreateAndLookup(t *testing.T) {
	repo := newMemory(t)
	ctx := context.Background()
	rec := newTestRecord("u1", "ext_1", "Ann@Example.com", domain.RoleDonor)

	if err := repo.Create(ctx, rec); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.Version != 1 {
		t.Errorf("version = %d, want 1", rec.Version)
	}

	byExt, err := repo.GetByExternalID(ctx, "ext_1")
	if err != nil || byExt == nil {
		t.Fatalf("GetByExternalID: %v, %v", byExt, err)
	}
	if byExt.Email != "ann@example.com" {
		t.Errorf("email = %q, want lowercased", byExt.Email)
	}
	if _, ok := byExt.Donor(); !ok {
		t.Error("donor record should carry default donor attributes")
	}

	byEmail, err := repo.GetByEmail(ctx, "ANN@example.com")
	if err != nil || byEmail == nil || byEmail.ID != "u1" {
		t.Fatalf("GetByEmail: %v, %v", byEmail, err)
	}
}

func TestMemoryRepository_GetMissingReturnsNil(t *testing.T) {
	repo := newMemory(t)
	rec, err := repo.GetByID(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if rec != nil {
		t.Errorf("rec = %+v, want nil", rec)
	}
}

func TestMemoryRepository_CreateDuplicates(t *testing.T) {
	repo := newMemory(t)
	ctx := context.Background()
	if err := repo.Create(ctx, newTestRecord("u1", "ext_1", "a@example.com", domain.RoleDonor)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	err := repo.Create(ctx, newTestRecord("u2", "ext_1", "b@example.com", domain.RoleDonor))
	if !errors.Is(err, apperrors.ErrDuplicateExternalID) {
		t.Errorf("same external id: err = %v, want DuplicateExternalID", err)
	}
	err = repo.Create(ctx, newTestRecord("u3", "ext_3", "A@EXAMPLE.COM", domain.RoleDonor))
	if !errors.Is(err, apperrors.ErrDuplicateEmail) {
		t.Errorf("same email: err = %v, want DuplicateEmail", err)
	}
	if rec, _ := repo.GetByID(ctx, "u3"); rec != nil {
		t.Error("failed create must leave no record")
	}
}

func TestMemoryRepository_ConcurrentCreateHasOneWinner(t *testing.T) {
	repo := newMemory(t)
	ctx := context.Background()

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := newTestRecord(string(rune('a'+i)), "ext_race", "race@example.com", domain.RoleDonor)
			errs[i] = repo.Create(ctx, rec)
		}(i)
	}
	wg.Wait()

	var ok, dup int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, apperrors.ErrDuplicateExternalID):
			dup++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || dup != n-1 {
		t.Errorf("ok = %d, dup = %d; want 1 and %d", ok, dup, n-1)
	}
}

func TestMemoryRepository_UpdateVersionConflict(t *testing.T) {
	repo := newMemory(t)
	ctx := context.Background()
	if err := repo.Create(ctx, newTestRecord("u1", "ext_1", "a@example.com", domain.RoleDonor)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	first := "Beth"
	updated, err := repo.Update(ctx, "u1", 1, domain.Patch{FirstName: &first})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Version != 2 || updated.Name.First != "Beth" {
		t.Errorf("updated = %+v", updated)
	}

	second := "Cara"
	_, err = repo.Update(ctx, "u1", 1, domain.Patch{FirstName: &second})
	if !errors.Is(err, apperrors.ErrVersionConflict) {
		t.Errorf("stale update: err = %v, want VersionConflict", err)
	}
	cur, _ := repo.GetByID(ctx, "u1")
	if cur.Name.First != "Beth" {
		t.Errorf("first name = %q, stale update must not apply", cur.Name.First)
	}
}

func TestMemoryRepository_NoopUpdateKeepsVersion(t *testing.T) {
	repo := newMemory(t)
	ctx := context.Background()
	if err := repo.Create(ctx, newTestRecord("u1", "ext_1", "a@example.com", domain.RoleDonor)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	same := "Ann"
	rec, err := repo.Update(ctx, "u1", 1, domain.Patch{FirstName: &same})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if rec.Version != 1 {
		t.Errorf("version = %d, want 1 for no-op patch", rec.Version)
	}
}

func TestMemoryRepository_UpdateEmailCollision(t *testing.T) {
	repo := newMemory(t)
	ctx := context.Background()
	_ = repo.Create(ctx, newTestRecord("u1", "ext_1", "a@example.com", domain.RoleDonor))
	_ = repo.Create(ctx, newTestRecord("u2", "ext_2", "b@example.com", domain.RoleDonor))

	email := "A@example.com"
	_, err := repo.Update(ctx, "u2", 1, domain.Patch{Email: &email})
	if !errors.Is(err, apperrors.ErrDuplicateEmail) {
		t.Errorf("err = %v, want DuplicateEmail", err)
	}
}

func TestMemoryRepository_UpdateMissing(t *testing.T) {
	repo := newMemory(t)
	_, err := repo.Update(context.Background(), "missing", 1, domain.Patch{})
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("err = %v, want NotFound", err)
	}
}

func TestMemoryRepository_DeactivateIdempotent(t *testing.T) {
	repo := newMemory(t)
	ctx := context.Background()
	_ = repo.Create(ctx, newTestRecord("u1", "ext_1", "a@example.com", domain.RoleDonor))

	first, err := repo.Deactivate(ctx, "u1")
	if err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if first.Active {
		t.Error("record should be inactive")
	}
	second, err := repo.Deactivate(ctx, "u1")
	if err != nil {
		t.Fatalf("second Deactivate: %v", err)
	}
	if second.Version != first.Version {
		t.Errorf("version moved from %d to %d on repeated deactivate", first.Version, second.Version)
	}
}

func TestMemoryRepository_SetNGOVerified(t *testing.T) {
	repo := newMemory(t)
	ctx := context.Background()
	_ = repo.Create(ctx, newTestRecord("n1", "ext_n", "ngo@example.com", domain.RoleNGO))
	_ = repo.Create(ctx, newTestRecord("d1", "ext_d", "donor@example.com", domain.RoleDonor))

	rec, err := repo.SetNGOVerified(ctx, "n1", true)
	if err != nil {
		t.Fatalf("SetNGOVerified: %v", err)
	}
	if !rec.IsVerifiedNGO() {
		t.Error("ngo should be verified")
	}
	if _, err := repo.SetNGOVerified(ctx, "d1", true); !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Errorf("donor verify: err = %v, want InvalidArgument", err)
	}
}

func TestMemoryRepository_TouchLoginKeepsVersion(t *testing.T) {
	repo := newMemory(t)
	ctx := context.Background()
	_ = repo.Create(ctx, newTestRecord("u1", "ext_1", "a@example.com", domain.RoleDonor))
	at := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)

	if err := repo.TouchLogin(ctx, "u1", at, true); err != nil {
		t.Fatalf("TouchLogin: %v", err)
	}
	rec, _ := repo.GetByID(ctx, "u1")
	if !rec.LastLogin.Equal(at) || !rec.LastActivity.Equal(at) {
		t.Errorf("last login/activity = %v/%v, want %v", rec.LastLogin, rec.LastActivity, at)
	}
	if rec.Version != 1 {
		t.Errorf("version = %d, want 1", rec.Version)
	}
	if err := repo.TouchLogin(ctx, "missing", at, false); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("missing: err = %v, want NotFound", err)
	}
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	repo := newMemory(t)
	ctx := context.Background()
	_ = repo.Create(ctx, newTestRecord("u1", "ext_1", "a@example.com", domain.RoleDonor))

	rec, _ := repo.GetByID(ctx, "u1")
	rec.Active = false
	again, _ := repo.GetByID(ctx, "u1")
	if !again.Active {
		t.Error("mutating a returned record must not affect the store")
	}
}
