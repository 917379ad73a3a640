package admin

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type fakePinger struct{ err error }

func (p *fakePinger) Ping(context.Context) error { return p.err }

func TestHealthServer_Probe_Follows_Relay(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	pinger := &fakePinger{}
	server := NewHealthServer(logs.GetLoggerFromLevel(slog.LevelDebug), ":0", pinger, time.Second)

	// Given a reachable relay
	server.Probe(ctx)
	status, err := server.Status(ctx, Service)
	req.NoError(err)
	req.Equal(healthpb.HealthCheckResponse_SERVING, status)

	// When the relay goes away
	pinger.err = errors.New("redis: connection refused")
	server.Probe(ctx)

	// Then the service reports not serving
	status, err = server.Status(ctx, "")
	req.NoError(err)
	req.Equal(healthpb.HealthCheckResponse_NOT_SERVING, status)
}

func TestHealthServer_Without_Relay_Is_Serving(t *testing.T) {
	req := require.New(t)
	server := NewHealthServer(logs.GetLoggerFromLevel(slog.LevelDebug), ":0", nil, time.Second)

	server.Probe(context.Background())

	status, err := server.Status(context.Background(), Service)
	req.NoError(err)
	req.Equal(healthpb.HealthCheckResponse_SERVING, status)
}

func TestHealthServer_Run_Serves_Grpc(t *testing.T) {
	req := require.New(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	req.NoError(err)
	addr := ln.Addr().String()
	req.NoError(ln.Close())

	server := NewHealthServer(logs.GetLoggerFromLevel(slog.LevelDebug), addr, nil, 50*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Run(ctx) }()

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	req.NoError(err)
	defer conn.Close()
	client := healthpb.NewHealthClient(conn)

	req.Eventually(func() bool {
		callCtx, callCancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer callCancel()
		resp, err := client.Check(callCtx, &healthpb.HealthCheckRequest{Service: Service})
		return err == nil && resp.GetStatus() == healthpb.HealthCheckResponse_SERVING
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	req.NoError(<-done)
}
