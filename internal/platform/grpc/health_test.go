package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	gogrpc "google.golang.org/grpc"
)

func startHealthServer(t *testing.T, services ...string) (*HealthServer, string, context.CancelFunc) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	server := NewHealthServer(services...)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.Serve(ctx, listener)
	}()
	stop := func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("serve: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("health server did not stop")
		}
	}
	t.Cleanup(stop)
	return server, listener.Addr().String(), cancel
}

func dialHealthServer(t *testing.T, addr string) *gogrpc.ClientConn {
	t.Helper()

	conn, err := gogrpc.NewClient(addr, ClientOptions()...)
	if err != nil {
		t.Fatalf("dial health server: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestProbeReportsServingServices(t *testing.T) {
	t.Parallel()

	server, addr, _ := startHealthServer(t, "worker.runtime")
	ctx := context.Background()
	if err := Probe(ctx, addr, "", time.Second); err != nil {
		t.Fatalf("probe overall: %v", err)
	}
	if err := Probe(ctx, addr, "worker.runtime", time.Second); err != nil {
		t.Fatalf("probe worker.runtime: %v", err)
	}

	server.SetServing("worker.runtime", false)
	if err := Probe(ctx, addr, "worker.runtime", time.Second); err == nil {
		t.Fatal("expected probe error for NOT_SERVING service")
	}
	if err := Probe(ctx, addr, "unknown", time.Second); err == nil {
		t.Fatal("expected probe error for unknown service")
	}
}

func TestWaitForHealthTransitionsToServing(t *testing.T) {
	t.Parallel()

	server, addr, _ := startHealthServer(t, "worker.runtime")
	server.SetServing("worker.runtime", false)
	conn := dialHealthServer(t, addr)

	go func() {
		time.Sleep(150 * time.Millisecond)
		server.SetServing("worker.runtime", true)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := WaitForHealth(ctx, conn, "worker.runtime", nil); err != nil {
		t.Fatalf("wait for health after transition: %v", err)
	}
}

func TestWaitForHealthRespectsContext(t *testing.T) {
	t.Parallel()

	server, addr, _ := startHealthServer(t)
	server.SetServing("", false)
	conn := dialHealthServer(t, addr)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if err := WaitForHealth(ctx, conn, "", nil); err == nil {
		t.Fatal("expected context error, got nil")
	}
}

func TestServeStopsWhenContextEnds(t *testing.T) {
	t.Parallel()

	_, addr, cancel := startHealthServer(t)
	if err := Probe(context.Background(), addr, "", time.Second); err != nil {
		t.Fatalf("probe before stop: %v", err)
	}
	cancel()
	ctx, stop := context.WithTimeout(context.Background(), 2*time.Second)
	defer stop()
	for {
		if err := Probe(ctx, addr, "", 100*time.Millisecond); err != nil {
			return
		}
		if ctx.Err() != nil {
			t.Fatal("server kept serving after context ended")
		}
		time.Sleep(20 * time.Millisecond)
	}
}
