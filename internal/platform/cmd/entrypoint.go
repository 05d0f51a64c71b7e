// Package cmd holds the startup plumbing shared by every doosr process.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/doosr/doosr/internal/platform/config"
	"github.com/doosr/doosr/internal/platform/otel"
)

const defaultOTelShutdownTimeout = 5 * time.Second

// Process names used for telemetry resources and log prefixes.
const (
	ServiceServer = "server"
	ServiceWorker = "worker"
	ServiceMCP    = "mcp"
)

// RunOptions controls shared entrypoint behavior.
type RunOptions struct {
	// ShutdownTimeout bounds the telemetry flush on exit.
	ShutdownTimeout time.Duration
}

// ParseConfig loads environment defaults into cfg.
func ParseConfig[T any](cfg *T) error {
	if cfg == nil {
		return errors.New("config target is required")
	}
	return config.ParseEnv(cfg)
}

// ParseArgs parses command-line flags.
func ParseArgs(fs *flag.FlagSet, args []string) error {
	if fs == nil {
		return errors.New("flag parser is required")
	}
	if args == nil {
		args = []string{}
	}
	return fs.Parse(args)
}

// LogPrefix returns the bracketed log prefix for a process name.
func LogPrefix(service string) string {
	name := strings.ToUpper(strings.TrimSpace(service))
	if name == "" {
		name = "DOOSR"
	}
	return "[" + name + "] "
}

// RunWithTelemetry configures tracing and executes a process run loop.
func RunWithTelemetry(ctx context.Context, service string, run func(context.Context) error) error {
	return RunWithTelemetryAndOptions(ctx, service, RunOptions{}, run)
}

// RunWithTelemetryAndOptions configures tracing and executes a process run loop.
func RunWithTelemetryAndOptions(ctx context.Context, service string, options RunOptions, run func(context.Context) error) error {
	service = strings.TrimSpace(service)
	if service == "" {
		return fmt.Errorf("service name is required")
	}
	if run == nil {
		return fmt.Errorf("run function is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	shutdown, err := otel.Setup(ctx, "doosr-"+service)
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	defer func() {
		timeout := options.ShutdownTimeout
		if timeout <= 0 {
			timeout = defaultOTelShutdownTimeout
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Printf("%s otel shutdown: %v", service, err)
		}
	}()
	return run(ctx)
}
