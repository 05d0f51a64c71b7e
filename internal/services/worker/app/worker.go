package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	notificationsdomain "github.com/doosr/doosr/internal/services/notifications/domain"
	workerdomain "github.com/doosr/doosr/internal/services/worker/domain"
	"github.com/doosr/doosr/internal/services/worker/storage"
	"github.com/robfig/cron/v3"
)

const (
	defaultPollInterval = 5 * time.Second
	maxLastErrorLength  = 1000
)

// Dispatcher delivers due push notifications.
type Dispatcher interface {
	RunOnce(ctx context.Context, now time.Time) (notificationsdomain.DispatchStats, error)
}

// ScheduledJob binds a job to a standard five-field cron expression or a
// descriptor such as "@hourly".
type ScheduledJob struct {
	Spec string
	Job  workerdomain.Job
}

// Config controls loop behavior.
type Config struct {
	PollInterval time.Duration
	// Location is the time zone cron expressions are evaluated in.
	Location *time.Location
	Logger   *log.Logger
	Clock    func() time.Time
}

func (c Config) normalized() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	if c.Logger == nil {
		c.Logger = log.Default()
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	return c
}

type entry struct {
	schedule cron.Schedule
	job      workerdomain.Job
}

// Worker runs the push dispatcher on a fixed interval and the scheduled
// jobs on their cron schedules, recording every job run.
type Worker struct {
	dispatcher Dispatcher
	runs       storage.RunStore
	entries    []entry
	config     Config
}

// New validates every cron expression up front.
func New(dispatcher Dispatcher, runs storage.RunStore, jobs []ScheduledJob, config Config) (*Worker, error) {
	w := &Worker{dispatcher: dispatcher, runs: runs, config: config.normalized()}
	for _, scheduled := range jobs {
		if scheduled.Job == nil {
			return nil, fmt.Errorf("scheduled job with spec %q has no job", scheduled.Spec)
		}
		schedule, err := cron.ParseStandard(strings.TrimSpace(scheduled.Spec))
		if err != nil {
			return nil, fmt.Errorf("parse %s schedule %q: %w", scheduled.Job.Name(), scheduled.Spec, err)
		}
		w.entries = append(w.entries, entry{schedule: schedule, job: scheduled.Job})
	}
	return w, nil
}

// Run catches up on schedules missed while the worker was down, then
// dispatches and schedules until ctx ends. It returns nil on cancellation.
func (w *Worker) Run(ctx context.Context) error {
	w.catchUp(ctx)

	cronLogger := cron.PrintfLogger(w.config.Logger)
	scheduler := cron.New(
		cron.WithLocation(w.config.Location),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	for _, e := range w.entries {
		job := e.job
		scheduler.Schedule(e.schedule, cron.FuncJob(func() {
			w.RunJob(ctx, job)
		}))
	}
	scheduler.Start()
	defer func() {
		<-scheduler.Stop().Done()
	}()

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()
	for {
		w.DispatchOnce(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// DispatchOnce runs one dispatcher pass. Failures are logged; the next tick
// retries.
func (w *Worker) DispatchOnce(ctx context.Context) {
	if w.dispatcher == nil {
		return
	}
	stats, err := w.dispatcher.RunOnce(ctx, w.config.Clock())
	if err != nil && !errors.Is(err, context.Canceled) {
		w.config.Logger.Printf("dispatch push: %v", err)
	}
	if stats.Leased > 0 {
		w.config.Logger.Printf("dispatch leased=%d delivered=%d retried=%d dead=%d skipped=%d removed=%d",
			stats.Leased, stats.Delivered, stats.Retried, stats.Dead, stats.Skipped, stats.Removed)
	}
}

// RunJob executes job once and records the outcome in the run ledger.
func (w *Worker) RunJob(ctx context.Context, job workerdomain.Job) storage.RunRecord {
	started := w.config.Clock().UTC()
	result, err := job.Run(ctx, started)
	record := storage.RunRecord{
		Job:        job.Name(),
		Outcome:    storage.OutcomeSucceeded,
		Processed:  result.Processed,
		Notified:   result.Notified,
		Skipped:    result.Skipped,
		StartedAt:  started,
		FinishedAt: w.config.Clock().UTC(),
	}
	if err != nil {
		record.Outcome = storage.OutcomeFailed
		record.LastError = truncate(err.Error(), maxLastErrorLength)
	}
	w.config.Logger.Printf("job=%s outcome=%s processed=%d notified=%d skipped=%d latency=%s",
		record.Job, record.Outcome, record.Processed, record.Notified, record.Skipped, record.FinishedAt.Sub(record.StartedAt))
	if err != nil {
		w.config.Logger.Printf("job=%s error: %v", record.Job, err)
	}
	if w.runs != nil {
		if recordErr := w.runs.RecordRun(context.WithoutCancel(ctx), record); recordErr != nil {
			w.config.Logger.Printf("record %s run: %v", record.Job, recordErr)
		}
	}
	return record
}

// catchUp runs every job whose last successful run predates a scheduled
// fire time that has already passed. Jobs that never succeeded wait for
// their first scheduled time.
func (w *Worker) catchUp(ctx context.Context) {
	if w.runs == nil {
		return
	}
	now := w.config.Clock().In(w.config.Location)
	for _, e := range w.entries {
		if ctx.Err() != nil {
			return
		}
		last, err := w.runs.LastSuccess(ctx, e.job.Name())
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			w.config.Logger.Printf("load last %s run: %v", e.job.Name(), err)
			continue
		}
		if next := e.schedule.Next(last.StartedAt.In(w.config.Location)); !next.After(now) {
			w.config.Logger.Printf("job=%s missed run at %s, catching up", e.job.Name(), next.Format(time.RFC3339))
			w.RunJob(ctx, e.job)
		}
	}
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit]
}
