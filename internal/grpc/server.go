package grpc

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name probes ask about. The empty name
// reports the same status.
const ServiceName = "storefront"

// Check reports whether one dependency is usable.
type Check func(ctx context.Context) error

// Server exposes grpc.health.v1 and reflection. Health is SERVING while every
// registered check passes.
type Server struct {
	server *grpc.Server
	health *health.Server
	checks map[string]Check
	log    *slog.Logger

	mu     sync.Mutex
	status healthpb.HealthCheckResponse_ServingStatus
}

func NewServer(checks map[string]Check, log *slog.Logger) *Server {
	s := &Server{
		server: grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler())),
		health: health.NewServer(),
		checks: checks,
		log:    log,
	}
	healthpb.RegisterHealthServer(s.server, s.health)
	reflection.Register(s.server)
	s.setStatus(healthpb.HealthCheckResponse_SERVING)
	return s
}

// Serve blocks until the listener fails or Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	return s.server.Serve(lis)
}

// Probe runs every check once and publishes the combined status.
func (s *Server) Probe(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			s.log.Warn("health check failed", "check", name, "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.setStatus(status)
	return status
}

// RunProbes calls Probe every interval until ctx is done.
func (s *Server) RunProbes(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			probeCtx, cancel := context.WithTimeout(ctx, interval)
			s.Probe(probeCtx)
			cancel()
		}
	}
}

// Stop marks the server NOT_SERVING so probes drain traffic, then stops gracefully.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.server.GracefulStop()
}

func (s *Server) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if status != s.status {
		s.log.Info("health status changed", "status", status.String())
	}
	s.status = status
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}
