// Package rbac holds the attribute checks that run after authentication and before a protected operation.
package rbac

import (
	apperrors "givebridge/backend/internal/platform/errors"
	"givebridge/backend/internal/user/domain"
)

// Decision is the outcome of an authorization check. Err is nil exactly when Allowed is true.
type Decision struct {
	Allowed bool
	Err     error
}

func allow() Decision { return Decision{Allowed: true} }

func deny(err error) Decision { return Decision{Err: err} }

// RequireRole allows the identity when its role is one of roles.
// A nil identity is denied with ErrUnauthenticated.
func RequireRole(identity *domain.IdentityRecord, roles ...domain.Role) Decision {
	if identity == nil {
		return deny(apperrors.ErrUnauthenticated)
	}
	for _, r := range roles {
		if identity.Role == r {
			return allow()
		}
	}
	return deny(apperrors.ErrInsufficientRole)
}
