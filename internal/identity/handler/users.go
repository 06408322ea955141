package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"givebridge/backend/internal/identity/service"
	"givebridge/backend/internal/platform/rbac"
	"givebridge/backend/internal/server/middleware"
)

// UsersHandler serves public lookups and administrative actions on other users.
type UsersHandler struct {
	svc     *service.AccountService
	gateway *middleware.Gateway
	admins  rbac.Admins
}

// NewUsersHandler returns a UsersHandler. admins is the administrator allowlist.
func NewUsersHandler(svc *service.AccountService, gateway *middleware.Gateway, admins rbac.Admins) *UsersHandler {
	return &UsersHandler{svc: svc, gateway: gateway, admins: admins}
}

// RegisterRoutes mounts the user routes on rg (normally /api/users).
func (h *UsersHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/ngos/:id", middleware.OptionalAuth(h.gateway), h.getNGO)
	rg.GET("/:id", middleware.RequireAuth(h.gateway), h.getUser)

	admin := rg.Group("", middleware.RequireAuth(h.gateway), rbac.Admin(h.admins))
	admin.PUT("/ngos/:id/verify", h.verifyNGO)
	admin.PUT("/:id/status", h.setStatus)
}

// RegisterNGORoutes mounts operations reserved for vetted NGOs on rg (normally /api/ngo).
func (h *UsersHandler) RegisterNGORoutes(rg *gin.RouterGroup) {
	rg.GET("/dashboard", middleware.RequireAuth(h.gateway), rbac.VerifiedNGO(), h.dashboard)
}

func (h *UsersHandler) getNGO(c *gin.Context) {
	rec, err := h.svc.GetNGO(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	v := viewPublic
	if caller := middleware.Identity(c); caller != nil && caller.ID == rec.ID {
		v = viewOwner
	}
	ok(c, http.StatusOK, "", toUserDTO(rec, v))
}

func (h *UsersHandler) getUser(c *gin.Context) {
	rec, err := h.svc.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	ok(c, http.StatusOK, "", toUserDTO(rec, viewPublic))
}

func (h *UsersHandler) verifyNGO(c *gin.Context) {
	var req verifyNGORequest
	if !bindJSON(c, &req) {
		return
	}
	rec, err := h.svc.VerifyNGO(c.Request.Context(), c.Param("id"), *req.Verified)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	ngo, _ := rec.NGO()
	msg := "NGO verified successfully"
	if !ngo.Verified {
		msg = "NGO unverified successfully"
	}
	ok(c, http.StatusOK, msg, gin.H{
		"id":               rec.ID,
		"organizationName": ngo.OrganizationName,
		"verified":         ngo.Verified,
	})
}

func (h *UsersHandler) setStatus(c *gin.Context) {
	var req statusRequest
	if !bindJSON(c, &req) {
		return
	}
	rec, err := h.svc.SetStatus(c.Request.Context(), c.Param("id"), *req.IsActive)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	msg := "User activated successfully"
	if !rec.Active {
		msg = "User deactivated successfully"
	}
	ok(c, http.StatusOK, msg, gin.H{
		"id":        rec.ID,
		"firstName": rec.Name.First,
		"lastName":  rec.Name.Last,
		"isActive":  rec.Active,
	})
}

func (h *UsersHandler) dashboard(c *gin.Context) {
	rec := middleware.Identity(c)
	ngo, _ := rec.NGO()
	ok(c, http.StatusOK, "", gin.H{
		"id":               rec.ID,
		"organizationName": ngo.OrganizationName,
		"category":         ngo.Category,
		"verified":         ngo.Verified,
		"documents":        len(ngo.Documents),
	})
}
