// Package domain implements the scheduled jobs the worker runs: day
// rollover, the evening journal prompt and overdue invoice reminders.
package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/doosr/doosr/internal/platform/i18n"
	accountingdomain "github.com/doosr/doosr/internal/services/accounting/domain"
	"github.com/doosr/doosr/internal/services/accounting/money"
	authdomain "github.com/doosr/doosr/internal/services/auth/domain"
	journaldomain "github.com/doosr/doosr/internal/services/journal/domain"
	notificationsdomain "github.com/doosr/doosr/internal/services/notifications/domain"
	"github.com/doosr/doosr/internal/services/notifications/render"
	"golang.org/x/text/language"
)

const dateLayout = "2006-01-02"

// Job names recorded in the run ledger.
const (
	JobRollover = "rollover"
	JobPrompt   = "journal_prompt"
	JobOverdue  = "invoice_overdue"
	JobPrune    = "session_prune"
)

// Notification sources attached to the intents each job creates.
const (
	SourcePlanner    = "planner"
	SourceJournal    = "journal"
	SourceAccounting = "accounting"
)

// Notifier creates notification intents.
type Notifier interface {
	CreateIntent(ctx context.Context, input notificationsdomain.CreateIntentInput) (notificationsdomain.Notification, error)
}

// Users lists accounts and their preferences.
type Users interface {
	ListUserIDs(ctx context.Context) ([]string, error)
	User(ctx context.Context, userID string) (authdomain.User, error)
}

// Planner moves unfinished items between days.
type Planner interface {
	Rollover(ctx context.Context, userID, from, to string) (int, error)
}

// Prompts picks the journal prompt of a date.
type Prompts interface {
	PromptForDate(ctx context.Context, userID, date string) (journaldomain.Prompt, error)
}

// Invoices lists overdue invoices across users.
type Invoices interface {
	ListOverdue(ctx context.Context, now time.Time) ([]accountingdomain.Invoice, error)
}

// Result summarizes one job run.
type Result struct {
	Processed int
	Notified  int
	Skipped   int
}

// Job is one scheduled unit of work.
type Job interface {
	Name() string
	Run(ctx context.Context, now time.Time) (Result, error)
}

// RolloverJob moves each user's unfinished items from yesterday to today,
// where both dates are civil dates in the user's time zone.
type RolloverJob struct {
	Users    Users
	Planner  Planner
	Notifier Notifier
}

// Name implements Job.
func (RolloverJob) Name() string { return JobRollover }

// Run implements Job. One user's failure does not stop the others.
func (j RolloverJob) Run(ctx context.Context, now time.Time) (Result, error) {
	if j.Users == nil || j.Planner == nil {
		return Result{}, fmt.Errorf("rollover job is not configured")
	}
	return forEachUser(ctx, j.Users, func(ctx context.Context, user authdomain.User, result *Result) error {
		today := now.In(user.Location())
		from := today.AddDate(0, 0, -1).Format(dateLayout)
		to := today.Format(dateLayout)
		moved, err := j.Planner.Rollover(ctx, user.ID, from, to)
		if err != nil {
			return err
		}
		if moved == 0 || j.Notifier == nil {
			result.Skipped++
			return nil
		}
		if err := notify(ctx, j.Notifier, user.ID, render.TypeDayRollover, SourcePlanner, "day-rollover:"+to,
			render.DayRolloverPayload{From: from, To: to, Count: moved}); err != nil {
			return err
		}
		result.Notified++
		return nil
	})
}

// PromptJob sends each user the journal prompt of their current date. Users
// without active prompts are skipped.
type PromptJob struct {
	Users    Users
	Prompts  Prompts
	Notifier Notifier
}

// Name implements Job.
func (PromptJob) Name() string { return JobPrompt }

// Run implements Job.
func (j PromptJob) Run(ctx context.Context, now time.Time) (Result, error) {
	if j.Users == nil || j.Prompts == nil || j.Notifier == nil {
		return Result{}, fmt.Errorf("prompt job is not configured")
	}
	return forEachUser(ctx, j.Users, func(ctx context.Context, user authdomain.User, result *Result) error {
		date := now.In(user.Location()).Format(dateLayout)
		prompt, err := j.Prompts.PromptForDate(ctx, user.ID, date)
		if errors.Is(err, journaldomain.ErrNoPrompts) {
			result.Skipped++
			return nil
		}
		if err != nil {
			return err
		}
		if err := notify(ctx, j.Notifier, user.ID, render.TypeJournalPrompt, SourceJournal, "journal-prompt:"+date,
			render.JournalPromptPayload{Date: date, Prompt: prompt.Text}); err != nil {
			return err
		}
		result.Notified++
		return nil
	})
}

// OverdueJob reminds invoice owners about sent invoices past their due date.
// The dedupe key is the invoice id, so each invoice is reminded once.
type OverdueJob struct {
	Users    Users
	Invoices Invoices
	Notifier Notifier
}

// Name implements Job.
func (OverdueJob) Name() string { return JobOverdue }

// Run implements Job.
func (j OverdueJob) Run(ctx context.Context, now time.Time) (Result, error) {
	if j.Invoices == nil || j.Notifier == nil {
		return Result{}, fmt.Errorf("overdue job is not configured")
	}
	invoices, err := j.Invoices.ListOverdue(ctx, now)
	if err != nil {
		return Result{}, fmt.Errorf("list overdue invoices: %w", err)
	}
	var (
		result Result
		errs   []error
	)
	for _, invoice := range invoices {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		result.Processed++
		payload := render.InvoiceOverduePayload{
			InvoiceID: invoice.ID,
			Number:    invoice.Number,
			DueDate:   invoice.DueDate,
			Amount:    money.Format(invoice.Totals.Total, invoice.Currency, j.tag(ctx, invoice.UserID)),
		}
		if err := notify(ctx, j.Notifier, invoice.UserID, render.TypeInvoiceOverdue, SourceAccounting, "invoice-overdue:"+invoice.ID, payload); err != nil {
			errs = append(errs, fmt.Errorf("invoice %s: %w", invoice.ID, err))
			continue
		}
		result.Notified++
	}
	return result, errors.Join(errs...)
}

func (j OverdueJob) tag(ctx context.Context, userID string) language.Tag {
	if j.Users == nil {
		return i18n.DefaultTag()
	}
	user, err := j.Users.User(ctx, userID)
	if err != nil {
		return i18n.DefaultTag()
	}
	tag, _ := i18n.ParseTag(user.Locale)
	return tag
}

// Sessions removes expired sign-in sessions.
type Sessions interface {
	PruneSessions(ctx context.Context) (int64, error)
}

// PruneJob deletes expired sessions.
type PruneJob struct {
	Sessions Sessions
}

// Name implements Job.
func (PruneJob) Name() string { return JobPrune }

// Run implements Job.
func (j PruneJob) Run(ctx context.Context, _ time.Time) (Result, error) {
	if j.Sessions == nil {
		return Result{}, fmt.Errorf("prune job is not configured")
	}
	removed, err := j.Sessions.PruneSessions(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("prune sessions: %w", err)
	}
	return Result{Processed: int(removed)}, nil
}

func forEachUser(ctx context.Context, users Users, fn func(context.Context, authdomain.User, *Result) error) (Result, error) {
	ids, err := users.ListUserIDs(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list users: %w", err)
	}
	var (
		result Result
		errs   []error
	)
	for _, userID := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		user, err := users.User(ctx, userID)
		if err != nil {
			errs = append(errs, fmt.Errorf("user %s: %w", userID, err))
			continue
		}
		result.Processed++
		if err := fn(ctx, user, &result); err != nil {
			errs = append(errs, fmt.Errorf("user %s: %w", userID, err))
		}
	}
	return result, errors.Join(errs...)
}

func notify(ctx context.Context, notifier Notifier, userID, messageType, source, dedupeKey string, payload any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", messageType, err)
	}
	_, err = notifier.CreateIntent(ctx, notificationsdomain.CreateIntentInput{
		RecipientUserID: userID,
		MessageType:     messageType,
		PayloadJSON:     string(encoded),
		DedupeKey:       dedupeKey,
		Source:          source,
	})
	return err
}
