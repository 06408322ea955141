package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// pingTimeout bounds a readiness probe's directory ping.
const pingTimeout = 2 * time.Second

// Pinger is used for readiness (e.g. *sql.DB). Nil means the directory is in process and always ready.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Server implements grpc.health.v1.Health. The empty service name and the API
// service name report readiness of the directory store.
type Server struct {
	healthpb.UnimplementedHealthServer
	pinger  Pinger
	service string
	logger  *zap.Logger
}

// NewServer returns a health server. service is the name clients may query in
// addition to the empty overall name. pinger and logger may be nil.
func NewServer(pinger Pinger, service string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{pinger: pinger, service: service, logger: logger}
}

// Check pings the directory. A failed ping is NOT_SERVING, not an RPC error.
func (s *Server) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	if name := req.GetService(); name != "" && name != s.service {
		return nil, status.Error(codes.NotFound, "unknown service")
	}
	return &healthpb.HealthCheckResponse{Status: s.status(ctx)}, nil
}

func (s *Server) status(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	if s.pinger == nil {
		return healthpb.HealthCheckResponse_SERVING
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := s.pinger.PingContext(ctx); err != nil {
		s.logger.Warn("health: directory ping failed", zap.Error(err))
		return healthpb.HealthCheckResponse_NOT_SERVING
	}
	return healthpb.HealthCheckResponse_SERVING
}

// Liveness answers /healthz. It never touches the directory.
func (s *Server) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "status": "ok"})
}

// Readiness answers /readyz with the same verdict as Check.
func (s *Server) Readiness(c *gin.Context) {
	if s.status(c.Request.Context()) != healthpb.HealthCheckResponse_SERVING {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "directory_unavailable", "message": "user directory unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "status": "ready"})
}
