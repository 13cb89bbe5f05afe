package grpc

import (
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// NewServer creates a gRPC server exposing the health service.
// Reflection is enabled for grpcurl testing.
func NewServer(checker *HealthChecker, opts ...grpc.ServerOption) *grpc.Server {
	srv := grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(srv, checker.Server())
	reflection.Register(srv)
	return srv
}
