package grpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Readiness reports whether the process can serve inference.
type Readiness interface {
	Loaded() bool
}

// HealthServer exposes grpc.health.v1.Health for one service name.
type HealthServer struct {
	srv     *grpc.Server
	health  *health.Server
	service string
}

// NewHealthServer creates the gRPC server with health and reflection registered.
func NewHealthServer(service string) *HealthServer {
	srv := grpc.NewServer()
	hs := health.NewServer()

	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	hs.SetServingStatus(service, healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	return &HealthServer{srv: srv, health: hs, service: service}
}

// Update publishes the readiness of r.
func (s *HealthServer) Update(r Readiness) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if r.Loaded() {
		status = healthpb.HealthCheckResponse_SERVING
	}

	s.health.SetServingStatus(s.service, status)
	s.health.SetServingStatus("", status)
}

// Check answers a health check without going over the network.
func (s *HealthServer) Check(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := s.health.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}

// Run serves on addr until ctx is done.
func (s *HealthServer) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *HealthServer) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("gRPC health server listening", "addr", ln.Addr().String(), "service", s.service)
		errCh <- s.srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.health.Shutdown()
	s.srv.GracefulStop()
	return nil
}
