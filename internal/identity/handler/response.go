// Package handler exposes the directory over HTTP: provisioning and self-service
// under /api/auth, public and administrative user operations under /api/users,
// and the identity provider's lifecycle webhook.
package handler

import (
	"github.com/gin-gonic/gin"

	apperrors "givebridge/backend/internal/platform/errors"
	"givebridge/backend/internal/server/middleware"
)

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func ok(c *gin.Context, status int, message string, data any) {
	c.JSON(status, envelope{Success: true, Message: message, Data: data})
}

// bindJSON decodes the body into dst and aborts with invalid_argument on failure.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		middleware.AbortWithError(c, apperrors.Wrap(apperrors.CodeInvalidArgument, "invalid request body", err))
		return false
	}
	return true
}
