// Package admin serves the gRPC health service on the admin port.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	grpc3 "github.com/mama165/sdk-go/grpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Service is the name the chat core reports under, next to the overall ("") status.
const Service = "sendify.chat"

// Pinger is a dependency whose reachability drives the serving status.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthServer struct {
	log      *slog.Logger
	addr     string
	pinger   Pinger
	interval time.Duration
	health   *health.Server
}

// NewHealthServer probes pinger every interval. A nil pinger is always serving.
func NewHealthServer(log *slog.Logger, addr string, pinger Pinger, interval time.Duration) *HealthServer {
	return &HealthServer{
		log:      log,
		addr:     addr,
		pinger:   pinger,
		interval: interval,
		health:   health.NewServer(),
	}
}

func (s *HealthServer) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	server := grpc.NewServer(grpc.ChainUnaryInterceptor(grpc3.UnaryLoggingInterceptor(s.log)))
	healthpb.RegisterHealthServer(server, s.health)

	errChan := make(chan error, 1)
	go func() {
		s.log.Info("Starting gRPC health server", "address", s.addr)
		if err := server.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errChan <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	s.Probe(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.health.Shutdown()
			server.GracefulStop()
			return nil
		case err := <-errChan:
			server.Stop()
			return err
		case <-ticker.C:
			s.Probe(ctx)
		}
	}
}

// Probe pings the dependency once and updates the serving status.
func (s *HealthServer) Probe(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	if s.pinger != nil {
		pingCtx, cancel := context.WithTimeout(ctx, s.interval)
		defer cancel()
		if err := s.pinger.Ping(pingCtx); err != nil {
			s.log.Warn("Relay unreachable", "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(Service, status)
}

// Status is the current status of service.
func (s *HealthServer) Status(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := s.health.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}
