package rbac

import (
	apperrors "givebridge/backend/internal/platform/errors"
	"givebridge/backend/internal/user/domain"
)

// Admins is the set of external ids allowed to perform administrative actions.
type Admins map[string]struct{}

// NewAdmins builds the allowlist. Empty ids are skipped.
func NewAdmins(externalIDs ...string) Admins {
	a := make(Admins, len(externalIDs))
	for _, id := range externalIDs {
		if id != "" {
			a[id] = struct{}{}
		}
	}
	return a
}

// RequireAdmin allows identities whose external id is on the allowlist.
func (a Admins) RequireAdmin(identity *domain.IdentityRecord) Decision {
	if identity == nil {
		return deny(apperrors.ErrUnauthenticated)
	}
	if _, ok := a[identity.ExternalID]; !ok {
		return deny(apperrors.New(apperrors.CodeInsufficientRole, "administrator access required"))
	}
	return allow()
}
