// Package worker parses worker command flags and launches the worker runtime.
package worker

import (
	"context"
	"flag"
	"fmt"
	"time"

	entrypoint "github.com/doosr/doosr/internal/platform/cmd"
	platformgrpc "github.com/doosr/doosr/internal/platform/grpc"
	notificationsdomain "github.com/doosr/doosr/internal/services/notifications/domain"
	workerapp "github.com/doosr/doosr/internal/services/worker/app"
)

// Config holds worker command configuration.
type Config struct {
	Port                int    `env:"DOOSR_WORKER_PORT"          envDefault:"8089"`
	AuthDBPath          string `env:"DOOSR_AUTH_DB_PATH"          envDefault:"data/auth.db"`
	PlannerDBPath       string `env:"DOOSR_PLANNER_DB_PATH"       envDefault:"data/planner.db"`
	JournalDBPath       string `env:"DOOSR_JOURNAL_DB_PATH"       envDefault:"data/journal.db"`
	AccountingDBPath    string `env:"DOOSR_ACCOUNTING_DB_PATH"    envDefault:"data/accounting.db"`
	NotificationsDBPath string `env:"DOOSR_NOTIFICATIONS_DB_PATH" envDefault:"data/notifications.db"`
	WorkerDBPath        string `env:"DOOSR_WORKER_DB_PATH"        envDefault:"data/worker.db"`

	PollInterval  time.Duration `env:"DOOSR_WORKER_POLL_INTERVAL"   envDefault:"5s"`
	BatchSize     int           `env:"DOOSR_WORKER_BATCH_SIZE"      envDefault:"50"`
	LeaseTTL      time.Duration `env:"DOOSR_WORKER_LEASE_TTL"       envDefault:"30s"`
	MaxAttempts   int           `env:"DOOSR_WORKER_MAX_ATTEMPTS"    envDefault:"8"`
	RetryBackoff  time.Duration `env:"DOOSR_WORKER_RETRY_BACKOFF"   envDefault:"5s"`
	RetryMaxDelay time.Duration `env:"DOOSR_WORKER_RETRY_MAX_DELAY" envDefault:"1h"`
	PushWebhook   bool          `env:"DOOSR_PUSH_WEBHOOK"`

	RolloverSpec string `env:"DOOSR_WORKER_ROLLOVER_SPEC" envDefault:"5 0 * * *"`
	PromptSpec   string `env:"DOOSR_WORKER_PROMPT_SPEC"   envDefault:"0 20 * * *"`
	OverdueSpec  string `env:"DOOSR_WORKER_OVERDUE_SPEC"  envDefault:"0 9 * * *"`
	PruneSpec    string `env:"DOOSR_WORKER_PRUNE_SPEC"    envDefault:"@hourly"`
	TimeZone     string `env:"DOOSR_WORKER_TIME_ZONE"     envDefault:"UTC"`

	// Healthcheck probes a running worker and exits instead of serving.
	Healthcheck   bool
	HealthTimeout time.Duration `env:"DOOSR_WORKER_HEALTH_TIMEOUT" envDefault:"3s"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The worker health gRPC server port")
	fs.StringVar(&cfg.AuthDBPath, "auth-db-path", cfg.AuthDBPath, "The auth SQLite database path")
	fs.StringVar(&cfg.PlannerDBPath, "planner-db-path", cfg.PlannerDBPath, "The planner SQLite database path")
	fs.StringVar(&cfg.JournalDBPath, "journal-db-path", cfg.JournalDBPath, "The journal SQLite database path")
	fs.StringVar(&cfg.AccountingDBPath, "accounting-db-path", cfg.AccountingDBPath, "The accounting SQLite database path")
	fs.StringVar(&cfg.NotificationsDBPath, "notifications-db-path", cfg.NotificationsDBPath, "The notifications SQLite database path")
	fs.StringVar(&cfg.WorkerDBPath, "db-path", cfg.WorkerDBPath, "The worker SQLite database path")
	fs.DurationVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "Push delivery poll interval")
	fs.IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "Push deliveries leased per pass")
	fs.DurationVar(&cfg.LeaseTTL, "lease-ttl", cfg.LeaseTTL, "Push delivery lease duration")
	fs.IntVar(&cfg.MaxAttempts, "max-attempts", cfg.MaxAttempts, "Maximum delivery attempts before dead-letter")
	fs.DurationVar(&cfg.RetryBackoff, "retry-backoff", cfg.RetryBackoff, "Base retry backoff delay")
	fs.DurationVar(&cfg.RetryMaxDelay, "retry-max-delay", cfg.RetryMaxDelay, "Maximum retry delay")
	fs.BoolVar(&cfg.PushWebhook, "push-webhook", cfg.PushWebhook, "Post push messages to subscription endpoints instead of logging them")
	fs.StringVar(&cfg.RolloverSpec, "rollover-spec", cfg.RolloverSpec, "Cron schedule of the day rollover")
	fs.StringVar(&cfg.PromptSpec, "prompt-spec", cfg.PromptSpec, "Cron schedule of the journal prompt")
	fs.StringVar(&cfg.OverdueSpec, "overdue-spec", cfg.OverdueSpec, "Cron schedule of the overdue invoice scan")
	fs.StringVar(&cfg.PruneSpec, "prune-spec", cfg.PruneSpec, "Cron schedule of expired session pruning")
	fs.StringVar(&cfg.TimeZone, "time-zone", cfg.TimeZone, "Time zone cron schedules run in")
	fs.BoolVar(&cfg.Healthcheck, "healthcheck", cfg.Healthcheck, "Probe the worker health endpoint and exit")
	fs.DurationVar(&cfg.HealthTimeout, "health-timeout", cfg.HealthTimeout, "Health probe timeout")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// RuntimeConfig converts cfg for the worker runtime.
func (cfg Config) RuntimeConfig() (workerapp.RuntimeConfig, error) {
	location, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return workerapp.RuntimeConfig{}, fmt.Errorf("load time zone %q: %w", cfg.TimeZone, err)
	}
	return workerapp.RuntimeConfig{
		Port:                cfg.Port,
		AuthDBPath:          cfg.AuthDBPath,
		PlannerDBPath:       cfg.PlannerDBPath,
		JournalDBPath:       cfg.JournalDBPath,
		AccountingDBPath:    cfg.AccountingDBPath,
		NotificationsDBPath: cfg.NotificationsDBPath,
		WorkerDBPath:        cfg.WorkerDBPath,
		PollInterval:        cfg.PollInterval,
		Dispatcher: notificationsdomain.DispatcherConfig{
			BatchSize:     cfg.BatchSize,
			LeaseDuration: cfg.LeaseTTL,
			RetryBase:     cfg.RetryBackoff,
			RetryMax:      cfg.RetryMaxDelay,
			MaxAttempts:   cfg.MaxAttempts,
		},
		PushWebhook:  cfg.PushWebhook,
		RolloverSpec: cfg.RolloverSpec,
		PromptSpec:   cfg.PromptSpec,
		OverdueSpec:  cfg.OverdueSpec,
		PruneSpec:    cfg.PruneSpec,
		Location:     location,
	}, nil
}

// Run starts the worker runtime, or probes a running one when
// cfg.Healthcheck is set.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Healthcheck {
		addr := fmt.Sprintf("127.0.0.1:%d", cfg.Port)
		return platformgrpc.Probe(ctx, addr, workerapp.HealthService, cfg.HealthTimeout)
	}
	runtime, err := cfg.RuntimeConfig()
	if err != nil {
		return err
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceWorker, func(ctx context.Context) error {
		return workerapp.Run(ctx, runtime)
	})
}
