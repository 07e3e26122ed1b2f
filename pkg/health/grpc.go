package health

import (
	"fmt"
	"net"

	"companion-chat/backend/pkg/logger"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// GRPCServer exposes the checker through the standard grpc.health.v1
// protocol so orchestrators that probe over gRPC see the same status.
type GRPCServer struct {
	server *grpc.Server
	health *grpchealth.Server
	log    *logger.Logger
}

// NewGRPCServer wires a gRPC health service to checker
func NewGRPCServer(checker *Checker, serviceName string, log *logger.Logger) *GRPCServer {
	hs := grpchealth.NewServer()
	s := grpc.NewServer()
	healthpb.RegisterHealthServer(s, hs)

	g := &GRPCServer{server: s, health: hs, log: log}
	g.set(serviceName, checker.IsSystemHealthy())
	checker.OnChange(func(healthy bool) {
		g.set(serviceName, healthy)
	})
	return g
}

func (g *GRPCServer) set(serviceName string, healthy bool) {
	status := healthpb.HealthCheckResponse_SERVING
	if !healthy {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	g.health.SetServingStatus("", status)
	g.health.SetServingStatus(serviceName, status)
}

// Serve listens on addr and blocks until Stop is called
func (g *GRPCServer) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen for grpc health: %w", err)
	}
	g.log.Info("gRPC health server listening", "addr", addr)
	return g.server.Serve(lis)
}

// Stop shuts the server down gracefully
func (g *GRPCServer) Stop() {
	g.health.Shutdown()
	g.server.GracefulStop()
}
