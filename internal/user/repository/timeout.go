package repository

import (
	"context"
	"errors"
	"time"

	apperrors "givebridge/backend/internal/platform/errors"
	"givebridge/backend/internal/user/domain"
)

// TimeoutRepository bounds every directory call. A call that exceeds the
// timeout, or fails with a store error that is not a domain error, surfaces
// as ErrDirectoryUnavailable. Domain errors pass through unchanged.
type TimeoutRepository struct {
	next    Repository
	timeout time.Duration
}

// WithTimeout wraps next. A non-positive timeout disables the deadline but
// still maps store failures to ErrDirectoryUnavailable.
func WithTimeout(next Repository, timeout time.Duration) *TimeoutRepository {
	return &TimeoutRepository{next: next, timeout: timeout}
}

type result[T any] struct {
	v   T
	err error
}

func call[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	ch := make(chan result[T], 1)
	go func() {
		v, err := fn(ctx)
		ch <- result[T]{v: v, err: err}
	}()
	var zero T
	select {
	case <-ctx.Done():
		return zero, apperrors.Wrap(apperrors.CodeDirectoryUnavailable, "directory call timed out", ctx.Err())
	case res := <-ch:
		if res.err != nil {
			return zero, classify(res.err)
		}
		return res.v, nil
	}
}

func classify(err error) error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.Wrap(apperrors.CodeDirectoryUnavailable, "directory unavailable", err)
}

func (t *TimeoutRepository) GetByID(ctx context.Context, id string) (*domain.IdentityRecord, error) {
	return call(ctx, t.timeout, func(ctx context.Context) (*domain.IdentityRecord, error) {
		return t.next.GetByID(ctx, id)
	})
}

func (t *TimeoutRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.IdentityRecord, error) {
	return call(ctx, t.timeout, func(ctx context.Context) (*domain.IdentityRecord, error) {
		return t.next.GetByExternalID(ctx, externalID)
	})
}

func (t *TimeoutRepository) GetByEmail(ctx context.Context, email string) (*domain.IdentityRecord, error) {
	return call(ctx, t.timeout, func(ctx context.Context) (*domain.IdentityRecord, error) {
		return t.next.GetByEmail(ctx, email)
	})
}

func (t *TimeoutRepository) Create(ctx context.Context, r *domain.IdentityRecord) error {
	_, err := call(ctx, t.timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, t.next.Create(ctx, r)
	})
	return err
}

func (t *TimeoutRepository) Update(ctx context.Context, id string, expectedVersion int64, patch domain.Patch) (*domain.IdentityRecord, error) {
	return call(ctx, t.timeout, func(ctx context.Context) (*domain.IdentityRecord, error) {
		return t.next.Update(ctx, id, expectedVersion, patch)
	})
}

func (t *TimeoutRepository) Deactivate(ctx context.Context, id string) (*domain.IdentityRecord, error) {
	return call(ctx, t.timeout, func(ctx context.Context) (*domain.IdentityRecord, error) {
		return t.next.Deactivate(ctx, id)
	})
}

func (t *TimeoutRepository) SetActive(ctx context.Context, id string, active bool) (*domain.IdentityRecord, error) {
	return call(ctx, t.timeout, func(ctx context.Context) (*domain.IdentityRecord, error) {
		return t.next.SetActive(ctx, id, active)
	})
}

func (t *TimeoutRepository) SetNGOVerified(ctx context.Context, id string, verified bool) (*domain.IdentityRecord, error) {
	return call(ctx, t.timeout, func(ctx context.Context) (*domain.IdentityRecord, error) {
		return t.next.SetNGOVerified(ctx, id, verified)
	})
}

func (t *TimeoutRepository) TouchLogin(ctx context.Context, id string, at time.Time, login bool) error {
	_, err := call(ctx, t.timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, t.next.TouchLogin(ctx, id, at, login)
	})
	return err
}

var _ Repository = (*TimeoutRepository)(nil)
