// Package grpc hosts the gRPC health surface of background processes and the
// client helpers that probe it.
package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthServer is a gRPC server that only exposes the standard health
// service, instrumented with OpenTelemetry.
type HealthServer struct {
	server *gogrpc.Server
	health *health.Server
}

// NewHealthServer reports the overall status "" and every named service as
// SERVING.
func NewHealthServer(services ...string) *HealthServer {
	server := gogrpc.NewServer(gogrpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	for _, service := range services {
		healthServer.SetServingStatus(service, grpc_health_v1.HealthCheckResponse_SERVING)
	}
	return &HealthServer{server: server, health: healthServer}
}

// SetServing flips one service between SERVING and NOT_SERVING.
func (s *HealthServer) SetServing(service string, serving bool) {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(service, status)
}

// Serve accepts connections on listener until ctx ends, then marks every
// service NOT_SERVING and stops gracefully.
func (s *HealthServer) Serve(ctx context.Context, listener net.Listener) error {
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.server.Serve(listener)
	}()
	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}
	s.health.Shutdown()
	s.server.GracefulStop()
	if err := <-serveErr; err != nil && !errors.Is(err, gogrpc.ErrServerStopped) {
		return err
	}
	return nil
}

// ClientOptions returns the dial options used for in-cluster health probes.
func ClientOptions() []gogrpc.DialOption {
	return []gogrpc.DialOption{
		gogrpc.WithTransportCredentials(insecure.NewCredentials()),
		gogrpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	}
}

// Probe performs one health check of service at addr and fails unless it
// reports SERVING.
func Probe(ctx context.Context, addr, service string, timeout time.Duration) error {
	conn, err := gogrpc.NewClient(addr, ClientOptions()...)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	response, err := grpc_health_v1.NewHealthClient(conn).Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: service})
	if err != nil {
		return fmt.Errorf("check health of %s: %w", addr, err)
	}
	if status := response.GetStatus(); status != grpc_health_v1.HealthCheckResponse_SERVING {
		return fmt.Errorf("health of %s is %s", addr, status)
	}
	return nil
}

// WaitForHealth blocks until the gRPC health check reports SERVING or the context ends.
func WaitForHealth(ctx context.Context, conn *gogrpc.ClientConn, service string, logf func(string, ...any)) error {
	if conn == nil {
		return fmt.Errorf("gRPC connection is not configured")
	}

	healthClient := grpc_health_v1.NewHealthClient(conn)
	backoff := 50 * time.Millisecond
	for {
		callCtx, cancel := context.WithTimeout(ctx, time.Second)
		response, err := healthClient.Check(callCtx, &grpc_health_v1.HealthCheckRequest{Service: service})
		cancel()
		if err == nil && response.GetStatus() == grpc_health_v1.HealthCheckResponse_SERVING {
			return nil
		}
		if logf != nil {
			if err != nil {
				logf("waiting for gRPC health: %v", err)
			} else {
				logf("waiting for gRPC health: status %s", response.GetStatus().String())
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for gRPC health: %w", ctx.Err())
		case <-time.After(backoff):
		}
		if backoff < time.Second {
			backoff = min(2*backoff, time.Second)
		}
	}
}
