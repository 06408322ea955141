package rbac

import (
	"github.com/gin-gonic/gin"

	"givebridge/backend/internal/server/middleware"
	"givebridge/backend/internal/user/domain"
)

// Role guards a route to the given roles. Must run after middleware.RequireAuth.
func Role(roles ...domain.Role) gin.HandlerFunc {
	return guard(func(identity *domain.IdentityRecord) Decision {
		return RequireRole(identity, roles...)
	})
}

// VerifiedNGO guards a route to vetted NGO accounts.
func VerifiedNGO() gin.HandlerFunc {
	return guard(RequireVerifiedNGO)
}

// Admin guards a route to the administrator allowlist.
func Admin(admins Admins) gin.HandlerFunc {
	return guard(admins.RequireAdmin)
}

func guard(check func(*domain.IdentityRecord) Decision) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d := check(middleware.Identity(c)); !d.Allowed {
			middleware.AbortWithError(c, d.Err)
			return
		}
		c.Next()
	}
}
