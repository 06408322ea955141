package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "givebridge/backend/internal/platform/errors"
	"givebridge/backend/internal/user/domain"
)

// ErrorBody is the failure envelope of every API response.
type ErrorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// AbortWithError writes err as a failure body with the status for its code and stops the chain.
// Causes are never exposed; errors without a code become internal errors.
func AbortWithError(c *gin.Context, err error) {
	code := apperrors.CodeOf(err)
	msg := "internal server error"
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	if code == apperrors.CodeConfiguration {
		msg = "server configuration error"
	}
	c.AbortWithStatusJSON(code.HTTPStatus(), ErrorBody{Success: false, Error: string(code), Message: msg})
}

// RequireAuth rejects requests that do not carry a credential for an active directory record.
func RequireAuth(g *Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := g.Authenticate(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), rec))
		c.Next()
	}
}

// OptionalAuth attaches the identity when one can be established and otherwise continues anonymously.
func OptionalAuth(g *Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rec := g.OptionalAuthenticate(c.Request.Context(), c.GetHeader("Authorization")); rec != nil {
			c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), rec))
		}
		c.Next()
	}
}

// RequireCredential verifies the bearer credential without requiring a directory record.
func RequireCredential(g *Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		claim, err := g.VerifyHeader(c.GetHeader("Authorization"))
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.Request = c.Request.WithContext(WithClaim(c.Request.Context(), claim))
		c.Next()
	}
}

// Identity returns the record attached by RequireAuth or OptionalAuth, or nil.
func Identity(c *gin.Context) *domain.IdentityRecord {
	rec, _ := IdentityFromContext(c.Request.Context())
	return rec
}

// NotFound writes the failure body for unmatched routes.
func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, ErrorBody{Success: false, Error: string(apperrors.CodeNotFound), Message: "route not found"})
}
