package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"givebridge/backend/internal/identity/service"
	apperrors "givebridge/backend/internal/platform/errors"
	"givebridge/backend/internal/server/middleware"
	"givebridge/backend/internal/user/domain"
)

// AuthHandler serves provisioning and self-service account routes.
type AuthHandler struct {
	svc     *service.AccountService
	gateway *middleware.Gateway
	nowF    func() time.Time
}

// NewAuthHandler returns an AuthHandler.
func NewAuthHandler(svc *service.AccountService, gateway *middleware.Gateway) *AuthHandler {
	return &AuthHandler{svc: svc, gateway: gateway, nowF: func() time.Time { return time.Now().UTC() }}
}

// RegisterRoutes mounts the account routes on rg (normally /api/auth).
func (h *AuthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/signup", middleware.RequireCredential(h.gateway), h.signup)

	authed := rg.Group("", middleware.RequireAuth(h.gateway))
	authed.POST("/signin", h.signin)
	authed.GET("/profile", h.getProfile)
	authed.PUT("/profile", h.updateProfile)
	authed.PUT("/verify-email", h.verifyEmail)
	authed.DELETE("/account", h.deleteAccount)
}

func (h *AuthHandler) signup(c *gin.Context) {
	claim, _ := middleware.ClaimFromContext(c.Request.Context())
	var req signupRequest
	if !bindJSON(c, &req) {
		return
	}
	role, valid := domain.ParseRole(req.UserType)
	if !valid {
		middleware.AbortWithError(c, apperrors.New(apperrors.CodeInvalidArgument, "userType must be donor or ngo"))
		return
	}
	attrs, err := req.attributes(role, h.nowF())
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	rec, created, err := h.svc.Signup(c.Request.Context(), claim.Subject, service.SignupInput{
		Email:      req.Email,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Role:       role,
		Attributes: attrs,
	})
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	if !created {
		ok(c, http.StatusOK, "User already provisioned", toUserDTO(rec, viewOwner))
		return
	}
	ok(c, http.StatusCreated, "User created successfully", toUserDTO(rec, viewOwner))
}

func (h *AuthHandler) signin(c *gin.Context) {
	rec, err := h.svc.Signin(c.Request.Context(), middleware.Identity(c))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	ok(c, http.StatusOK, "Sign in successful", toUserDTO(rec, viewOwner))
}

func (h *AuthHandler) getProfile(c *gin.Context) {
	ok(c, http.StatusOK, "", toUserDTO(middleware.Identity(c), viewOwner))
}

func (h *AuthHandler) updateProfile(c *gin.Context) {
	var req updateProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	patch, err := req.patch(h.nowF())
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	rec, err := h.svc.UpdateProfile(c.Request.Context(), middleware.Identity(c).ID, patch)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	ok(c, http.StatusOK, "Profile updated successfully", toUserDTO(rec, viewOwner))
}

func (h *AuthHandler) verifyEmail(c *gin.Context) {
	var req verifyEmailRequest
	if !bindJSON(c, &req) {
		return
	}
	rec, err := h.svc.SetEmailVerified(c.Request.Context(), middleware.Identity(c).ID, *req.EmailVerified)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	ok(c, http.StatusOK, "Email verification status updated", gin.H{"emailVerified": rec.EmailVerified})
}

func (h *AuthHandler) deleteAccount(c *gin.Context) {
	if err := h.svc.DeleteAccount(c.Request.Context(), middleware.Identity(c).ID); err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	ok(c, http.StatusOK, "Account deleted successfully", nil)
}
