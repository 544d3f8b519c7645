package server

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/GoSim-25-26J-441/psweep/pkg/logger"
)

// ServiceName is the health-check service name of the sweep daemon
const ServiceName = "psweep.v1.Sweep"

// GRPCServer wraps a gRPC server that only carries health and reflection.
type GRPCServer struct {
	Server *grpc.Server
	health *health.Server
}

// NewGRPCServer creates the server and marks both the overall and the
// sweep service SERVING.
func NewGRPCServer(opts ...grpc.ServerOption) *GRPCServer {
	srv := grpc.NewServer(opts...)
	h := health.NewServer()
	healthpb.RegisterHealthServer(srv, h)
	reflection.Register(srv)

	h.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	h.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return &GRPCServer{Server: srv, health: h}
}

// Health returns the health service implementation
func (g *GRPCServer) Health() healthpb.HealthServer {
	return g.health
}

// SetServing toggles the sweep service status
func (g *GRPCServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	g.health.SetServingStatus(ServiceName, status)
	logger.Debug("health status changed", "service", ServiceName, "status", status.String())
}

// GracefulStop reports NOT_SERVING to watchers, then drains the server
func (g *GRPCServer) GracefulStop() {
	g.health.Shutdown()
	g.Server.GracefulStop()
}
