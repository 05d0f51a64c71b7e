// Package app composes and runs the background worker process.
package app

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	platformgrpc "github.com/doosr/doosr/internal/platform/grpc"
	"github.com/doosr/doosr/internal/platform/timeouts"
	accountingdomain "github.com/doosr/doosr/internal/services/accounting/domain"
	accountingsqlite "github.com/doosr/doosr/internal/services/accounting/storage/sqlite"
	authdomain "github.com/doosr/doosr/internal/services/auth/domain"
	authsqlite "github.com/doosr/doosr/internal/services/auth/storage/sqlite"
	journaldomain "github.com/doosr/doosr/internal/services/journal/domain"
	journalsqlite "github.com/doosr/doosr/internal/services/journal/storage/sqlite"
	notificationsdomain "github.com/doosr/doosr/internal/services/notifications/domain"
	"github.com/doosr/doosr/internal/services/notifications/push"
	notificationssqlite "github.com/doosr/doosr/internal/services/notifications/storage/sqlite"
	plannerdomain "github.com/doosr/doosr/internal/services/planner/domain"
	plannersqlite "github.com/doosr/doosr/internal/services/planner/storage/sqlite"
	workerdomain "github.com/doosr/doosr/internal/services/worker/domain"
	workersqlite "github.com/doosr/doosr/internal/services/worker/storage/sqlite"
	"golang.org/x/sync/errgroup"
)

// HealthService is the gRPC health service name the worker reports.
const HealthService = "worker.runtime"

// Default cron expressions.
const (
	DefaultRolloverSpec = "5 0 * * *"
	DefaultPromptSpec   = "0 20 * * *"
	DefaultOverdueSpec  = "0 9 * * *"
	DefaultPruneSpec    = "@hourly"
)

const defaultWorkerPort = 8089

// RuntimeConfig controls worker startup, dependencies, and loop behavior.
type RuntimeConfig struct {
	// Port serves gRPC health; zero uses the default and a negative port
	// disables the health server.
	Port int

	AuthDBPath          string
	PlannerDBPath       string
	JournalDBPath       string
	AccountingDBPath    string
	NotificationsDBPath string
	WorkerDBPath        string

	PollInterval time.Duration
	Dispatcher   notificationsdomain.DispatcherConfig
	// PushWebhook posts push messages to subscription endpoints; otherwise
	// they are only logged.
	PushWebhook bool

	RolloverSpec string
	PromptSpec   string
	OverdueSpec  string
	PruneSpec    string
	Location     *time.Location

	// Publisher receives live updates when the worker runs inside the
	// server process.
	Publisher Publisher
}

// Publisher receives change notifications for live updates.
type Publisher interface {
	Publish(userID, channel, event string, data any)
}

func (c RuntimeConfig) normalized() RuntimeConfig {
	if c.Port == 0 {
		c.Port = defaultWorkerPort
	}
	if c.RolloverSpec == "" {
		c.RolloverSpec = DefaultRolloverSpec
	}
	if c.PromptSpec == "" {
		c.PromptSpec = DefaultPromptSpec
	}
	if c.OverdueSpec == "" {
		c.OverdueSpec = DefaultOverdueSpec
	}
	if c.PruneSpec == "" {
		c.PruneSpec = DefaultPruneSpec
	}
	return c
}

type closer interface{ Close() error }

// Run opens every store the jobs read, starts the gRPC health server and
// runs the worker loop until ctx ends.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	cfg = cfg.normalized()

	var closers []closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				log.Printf("close store: %v", err)
			}
		}
	}()

	authStore, err := authsqlite.Open(ctx, cfg.AuthDBPath)
	if err != nil {
		return fmt.Errorf("open auth store: %w", err)
	}
	closers = append(closers, authStore)
	plannerStore, err := plannersqlite.Open(ctx, cfg.PlannerDBPath)
	if err != nil {
		return fmt.Errorf("open planner store: %w", err)
	}
	closers = append(closers, plannerStore)
	journalStore, err := journalsqlite.Open(ctx, cfg.JournalDBPath)
	if err != nil {
		return fmt.Errorf("open journal store: %w", err)
	}
	closers = append(closers, journalStore)
	accountingStore, err := accountingsqlite.Open(ctx, cfg.AccountingDBPath)
	if err != nil {
		return fmt.Errorf("open accounting store: %w", err)
	}
	closers = append(closers, accountingStore)
	notificationsStore, err := notificationssqlite.Open(ctx, cfg.NotificationsDBPath)
	if err != nil {
		return fmt.Errorf("open notifications store: %w", err)
	}
	closers = append(closers, notificationsStore)
	workerStore, err := workersqlite.Open(ctx, cfg.WorkerDBPath)
	if err != nil {
		return fmt.Errorf("open worker store: %w", err)
	}
	closers = append(closers, workerStore)

	// Session tokens are never issued here, so the auth service runs
	// without an issuer.
	users := authdomain.NewService(authStore, nil)
	var (
		notificationOpts []notificationsdomain.Option
		plannerOpts      []plannerdomain.Option
	)
	if cfg.Publisher != nil {
		notificationOpts = append(notificationOpts, notificationsdomain.WithPublisher(cfg.Publisher))
		plannerOpts = append(plannerOpts, plannerdomain.WithPublisher(cfg.Publisher))
	}
	notifications := notificationsdomain.NewService(notificationsStore, notificationOpts...)

	var sender push.Sender = push.LogSender{Logger: log.Default()}
	if cfg.PushWebhook {
		sender = push.NewWebhookSender(&http.Client{Timeout: timeouts.WebhookSend})
	}
	dispatcher := notificationsdomain.NewDispatcher(notificationsStore, sender, users.Locale, cfg.Dispatcher)

	jobs := []ScheduledJob{
		{Spec: cfg.RolloverSpec, Job: workerdomain.RolloverJob{Users: users, Planner: plannerdomain.NewService(plannerStore, plannerOpts...), Notifier: notifications}},
		{Spec: cfg.PromptSpec, Job: workerdomain.PromptJob{Users: users, Prompts: journaldomain.NewService(journalStore, nil), Notifier: notifications}},
		{Spec: cfg.OverdueSpec, Job: workerdomain.OverdueJob{Users: users, Invoices: accountingdomain.NewService(accountingStore), Notifier: notifications}},
		{Spec: cfg.PruneSpec, Job: workerdomain.PruneJob{Sessions: users}},
	}
	worker, err := New(dispatcher, workerStore, jobs, Config{
		PollInterval: cfg.PollInterval,
		Location:     cfg.Location,
		Logger:       log.Default(),
	})
	if err != nil {
		return err
	}

	group, groupCtx := errgroup.WithContext(ctx)
	if cfg.Port > 0 {
		listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
		if err != nil {
			return fmt.Errorf("listen on worker port %d: %w", cfg.Port, err)
		}
		health := platformgrpc.NewHealthServer(HealthService)
		log.Printf("worker health server listening at %v", listener.Addr())
		group.Go(func() error {
			return health.Serve(groupCtx, listener)
		})
	}
	group.Go(func() error {
		return worker.Run(groupCtx)
	})
	return group.Wait()
}
