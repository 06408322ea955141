package server

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	healthhandler "givebridge/backend/internal/health/handler"
)

// Deps holds the gRPC service implementations.
type Deps struct {
	// Health answers grpc.health.v1 probes. Required.
	Health *healthhandler.Server
	// Reflection registers the reflection service. Set outside production only.
	Reflection bool
}

// NewGRPCServer returns a server instrumented with the global OTel providers.
func NewGRPCServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{grpc.StatsHandler(otelgrpc.NewServerHandler())}, opts...)
	return grpc.NewServer(opts...)
}

// RegisterServices registers the gRPC services with s.
//
//   - grpc.health.v1.Health → internal/health/handler
//   - grpc.reflection       → only when deps.Reflection is set
func RegisterServices(s interface {
	grpc.ServiceRegistrar
	GetServiceInfo() map[string]grpc.ServiceInfo
}, deps Deps) {
	healthpb.RegisterHealthServer(s, deps.Health)
	if deps.Reflection {
		reflection.Register(s)
	}
}
