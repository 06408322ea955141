package rbac

import (
	apperrors "givebridge/backend/internal/platform/errors"
	"givebridge/backend/internal/user/domain"
)

// RequireVerifiedNGO allows NGO identities whose organization has been vetted.
// Non-NGO identities get ErrInsufficientRole; unvetted NGOs get ErrNgoNotVerified.
func RequireVerifiedNGO(identity *domain.IdentityRecord) Decision {
	if d := RequireRole(identity, domain.RoleNGO); !d.Allowed {
		return d
	}
	if !identity.IsVerifiedNGO() {
		return deny(apperrors.ErrNgoNotVerified)
	}
	return allow()
}
