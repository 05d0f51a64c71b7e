package worker

import (
	"context"
	"flag"
	"net"
	"testing"
	"time"

	platformgrpc "github.com/doosr/doosr/internal/platform/grpc"
	workerapp "github.com/doosr/doosr/internal/services/worker/app"
)

func TestParseConfigParsesDefaultsAndFlags(t *testing.T) {
	t.Setenv("DOOSR_WORKER_PORT", "9099")
	t.Setenv("DOOSR_WORKER_TIME_ZONE", "America/New_York")

	cfg, err := ParseConfig(flag.NewFlagSet("worker", flag.ContinueOnError), []string{"-max-attempts", "3", "-prune-spec", "*/15 * * * *"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 9099 {
		t.Fatalf("Port = %d, want 9099", cfg.Port)
	}
	if cfg.MaxAttempts != 3 {
		t.Fatalf("MaxAttempts = %d, want 3", cfg.MaxAttempts)
	}
	if cfg.PruneSpec != "*/15 * * * *" {
		t.Fatalf("PruneSpec = %q, want %q", cfg.PruneSpec, "*/15 * * * *")
	}
	if cfg.RolloverSpec != workerapp.DefaultRolloverSpec {
		t.Fatalf("RolloverSpec = %q, want %q", cfg.RolloverSpec, workerapp.DefaultRolloverSpec)
	}
	if cfg.NotificationsDBPath != "data/notifications.db" {
		t.Fatalf("NotificationsDBPath = %q, want %q", cfg.NotificationsDBPath, "data/notifications.db")
	}

	runtime, err := cfg.RuntimeConfig()
	if err != nil {
		t.Fatalf("runtime config: %v", err)
	}
	if runtime.Location.String() != "America/New_York" {
		t.Fatalf("Location = %v, want America/New_York", runtime.Location)
	}
	if runtime.Dispatcher.MaxAttempts != 3 || runtime.Dispatcher.LeaseDuration != 30*time.Second {
		t.Fatalf("Dispatcher = %+v, want max attempts 3 and 30s lease", runtime.Dispatcher)
	}
}

func TestRuntimeConfigRejectsUnknownTimeZone(t *testing.T) {
	t.Parallel()

	if _, err := (Config{TimeZone: "Mars/Olympus"}).RuntimeConfig(); err == nil {
		t.Fatal("expected error for unknown time zone")
	}
}

func TestRunHealthcheck(t *testing.T) {
	t.Parallel()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	health := platformgrpc.NewHealthServer(workerapp.HealthService)
	go func() { _ = health.Serve(ctx, listener) }()

	port := listener.Addr().(*net.TCPAddr).Port
	if err := Run(context.Background(), Config{Healthcheck: true, Port: port, HealthTimeout: 2 * time.Second}); err != nil {
		t.Fatalf("healthcheck: %v", err)
	}

	cancel()
	time.Sleep(50 * time.Millisecond)
	if err := Run(context.Background(), Config{Healthcheck: true, Port: port, HealthTimeout: 200 * time.Millisecond}); err == nil {
		t.Fatal("expected healthcheck failure after shutdown")
	}
}
