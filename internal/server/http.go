// Package server assembles the HTTP router and the gRPC server from the service handlers.
package server

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	healthhandler "givebridge/backend/internal/health/handler"
	identityhandler "givebridge/backend/internal/identity/handler"
	"givebridge/backend/internal/server/middleware"
)

// HTTPDeps holds the handlers mounted on the HTTP router.
type HTTPDeps struct {
	ServiceName string
	Logger      *zap.Logger
	Health      *healthhandler.Server
	Auth        *identityhandler.AuthHandler
	Webhook     *identityhandler.WebhookHandler
	Users       *identityhandler.UsersHandler
}

// NewRouter returns the API router:
//
//	/healthz, /readyz       probes
//	/api/auth/...           provisioning, self-service, lifecycle webhook
//	/api/users/...          public lookups and admin actions
//	/api/ngo/...            verified-NGO operations
func NewRouter(deps HTTPDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(deps.ServiceName))
	r.Use(middleware.AccessLog(deps.Logger, map[string]bool{"/healthz": true, "/readyz": true}))
	r.NoRoute(middleware.NotFound)

	r.GET("/healthz", deps.Health.Liveness)
	r.GET("/readyz", deps.Health.Readiness)

	api := r.Group("/api")
	auth := api.Group("/auth")
	deps.Auth.RegisterRoutes(auth)
	deps.Webhook.RegisterRoutes(auth)
	deps.Users.RegisterRoutes(api.Group("/users"))
	deps.Users.RegisterNGORoutes(api.Group("/ngo"))
	return r
}
