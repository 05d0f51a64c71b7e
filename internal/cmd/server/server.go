// Package server parses server command flags and runs the web process.
package server

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	entrypoint "github.com/doosr/doosr/internal/platform/cmd"
	"github.com/doosr/doosr/internal/platform/timeouts"
	workerapp "github.com/doosr/doosr/internal/services/worker/app"
	"golang.org/x/sync/errgroup"
)

// Config holds server command configuration.
type Config struct {
	HTTPAddr            string `env:"DOOSR_HTTP_ADDR"             envDefault:"localhost:8080"`
	AuthDBPath          string `env:"DOOSR_AUTH_DB_PATH"          envDefault:"data/auth.db"`
	PlannerDBPath       string `env:"DOOSR_PLANNER_DB_PATH"       envDefault:"data/planner.db"`
	JournalDBPath       string `env:"DOOSR_JOURNAL_DB_PATH"       envDefault:"data/journal.db"`
	AccountingDBPath    string `env:"DOOSR_ACCOUNTING_DB_PATH"    envDefault:"data/accounting.db"`
	NotificationsDBPath string `env:"DOOSR_NOTIFICATIONS_DB_PATH" envDefault:"data/notifications.db"`
	WorkerDBPath        string `env:"DOOSR_WORKER_DB_PATH"        envDefault:"data/worker.db"`

	SessionSecret       string        `env:"DOOSR_SESSION_SECRET"`
	SessionTTL          time.Duration `env:"DOOSR_SESSION_TTL"           envDefault:"720h"`
	JournalKeyTTL       time.Duration `env:"DOOSR_JOURNAL_KEY_TTL"       envDefault:"30m"`
	SweepInterval       time.Duration `env:"DOOSR_SWEEP_INTERVAL"        envDefault:"1m"`
	TrustForwardedProto bool          `env:"DOOSR_TRUST_FORWARDED_PROTO"`
	LoginRateEvery      time.Duration `env:"DOOSR_LOGIN_RATE_EVERY"      envDefault:"6s"`
	LoginRateBurst      int           `env:"DOOSR_LOGIN_RATE_BURST"      envDefault:"5"`

	// EmbedWorker runs the background jobs in this process and publishes
	// their changes to live clients.
	EmbedWorker    bool   `env:"DOOSR_EMBED_WORKER"`
	WorkerTimeZone string `env:"DOOSR_WORKER_TIME_ZONE" envDefault:"UTC"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.AuthDBPath, "auth-db-path", cfg.AuthDBPath, "The auth SQLite database path")
	fs.StringVar(&cfg.PlannerDBPath, "planner-db-path", cfg.PlannerDBPath, "The planner SQLite database path")
	fs.StringVar(&cfg.JournalDBPath, "journal-db-path", cfg.JournalDBPath, "The journal SQLite database path")
	fs.StringVar(&cfg.AccountingDBPath, "accounting-db-path", cfg.AccountingDBPath, "The accounting SQLite database path")
	fs.StringVar(&cfg.NotificationsDBPath, "notifications-db-path", cfg.NotificationsDBPath, "The notifications SQLite database path")
	fs.StringVar(&cfg.WorkerDBPath, "worker-db-path", cfg.WorkerDBPath, "The worker SQLite database path")
	fs.DurationVar(&cfg.SessionTTL, "session-ttl", cfg.SessionTTL, "Session token lifetime")
	fs.DurationVar(&cfg.JournalKeyTTL, "journal-key-ttl", cfg.JournalKeyTTL, "Idle lifetime of unlocked journal keys")
	fs.BoolVar(&cfg.TrustForwardedProto, "trust-forwarded-proto", cfg.TrustForwardedProto, "Honor X-Forwarded-Proto from a reverse proxy")
	fs.BoolVar(&cfg.EmbedWorker, "embed-worker", cfg.EmbedWorker, "Run background jobs inside the server")
	fs.StringVar(&cfg.WorkerTimeZone, "worker-time-zone", cfg.WorkerTimeZone, "Time zone embedded cron schedules run in")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run serves the web process until ctx ends.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceServer, func(ctx context.Context) error {
		listener, err := net.Listen("tcp", cfg.HTTPAddr)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", cfg.HTTPAddr, err)
		}
		return serve(ctx, cfg, listener)
	})
}

func serve(ctx context.Context, cfg Config, listener net.Listener) error {
	stack, err := newStack(ctx, cfg)
	if err != nil {
		_ = listener.Close()
		return err
	}
	defer stack.Close()

	var runtime workerapp.RuntimeConfig
	if cfg.EmbedWorker {
		if runtime, err = stack.workerRuntime(cfg); err != nil {
			_ = listener.Close()
			return err
		}
	}

	httpServer := &http.Server{
		Handler:           stack.handler,
		ReadHeaderTimeout: timeouts.ReadHeader,
	}
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Printf("server listening at %v", listener.Addr())
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		stack.sweep(groupCtx, cfg.SweepInterval)
		return nil
	})
	if cfg.EmbedWorker {
		group.Go(func() error {
			return workerapp.Run(groupCtx, runtime)
		})
	}
	return group.Wait()
}
