package domain

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/doosr/doosr/internal/services/notifications/push"
	"github.com/doosr/doosr/internal/services/notifications/storage"
	"golang.org/x/text/language"
)

type fakeSender struct {
	mu       sync.Mutex
	errs     map[string]error
	messages map[string][]push.Message
}

func newFakeSender() *fakeSender {
	return &fakeSender{errs: map[string]error{}, messages: map[string][]push.Message{}}
}

func (f *fakeSender) Send(_ context.Context, subscription storage.PushSubscription, message push.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[subscription.Endpoint]; err != nil {
		return err
	}
	f.messages[subscription.Endpoint] = append(f.messages[subscription.Endpoint], message)
	return nil
}

func (f *fakeSender) sent(endpoint string) []push.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]push.Message(nil), f.messages[endpoint]...)
}

func createPrompt(t *testing.T, svc *Service, userID string) Notification {
	t.Helper()
	created, err := svc.CreateIntent(context.Background(), CreateIntentInput{
		RecipientUserID: userID,
		MessageType:     MessageTypeJournalPrompt,
		PayloadJSON:     `{"date":"2026-09-17","prompt":"What went well?"}`,
		DedupeKey:       "journal-prompt:2026-09-17",
	})
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}
	return created
}

func subscribe(t *testing.T, svc *Service, userID, endpoint string) {
	t.Helper()
	if _, err := svc.Subscribe(context.Background(), userID, SubscribeInput{Endpoint: endpoint}); err != nil {
		t.Fatalf("subscribe %s: %v", endpoint, err)
	}
}

func TestRunOnceDeliversAndRemovesGoneSubscriptions(t *testing.T) {
	t.Parallel()
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	subscribe(t, svc, "u1", "https://push.example.test/live")
	subscribe(t, svc, "u1", "https://push.example.test/gone")
	created := createPrompt(t, svc, "u1")

	sender := newFakeSender()
	sender.errs["https://push.example.test/gone"] = push.ErrSubscriptionGone
	dispatcher := NewDispatcher(store, sender, nil, DispatcherConfig{})

	stats, err := dispatcher.RunOnce(ctx, testNow)
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if stats != (DispatchStats{Leased: 1, Delivered: 1, Removed: 1}) {
		t.Fatalf("stats = %+v", stats)
	}
	messages := sender.sent("https://push.example.test/live")
	if len(messages) != 1 {
		t.Fatalf("sent %d messages, want 1", len(messages))
	}
	if got := messages[0]; got.Title != "Journal prompt for 2026-09-17" || got.Body != "What went well?" || got.URL != "/journal" || got.NotificationID != created.ID {
		t.Fatalf("message = %+v", got)
	}
	subs, err := svc.ListSubscriptions(ctx, "u1")
	if err != nil {
		t.Fatalf("list subscriptions: %v", err)
	}
	if len(subs) != 1 || subs[0].Endpoint != "https://push.example.test/live" {
		t.Fatalf("subscriptions = %+v", subs)
	}
	delivery, err := store.GetDelivery(ctx, created.ID, storage.DeliveryChannelPush)
	if err != nil {
		t.Fatalf("get delivery: %v", err)
	}
	if delivery.Status != storage.DeliveryStatusDelivered || delivery.AttemptCount != 1 {
		t.Fatalf("delivery = %+v", delivery)
	}

	again, err := dispatcher.RunOnce(ctx, testNow.Add(time.Hour))
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if again.Leased != 0 {
		t.Fatalf("second run leased %d, want 0", again.Leased)
	}
}

func TestRunOnceRetriesWithBackoffThenDies(t *testing.T) {
	t.Parallel()
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	subscribe(t, svc, "u1", "https://push.example.test/flaky")
	created := createPrompt(t, svc, "u1")

	sender := newFakeSender()
	sender.errs["https://push.example.test/flaky"] = errors.New("push endpoint returned 500")
	dispatcher := NewDispatcher(store, sender, nil, DispatcherConfig{RetryBase: time.Minute, RetryMax: time.Hour, MaxAttempts: 2})

	stats, err := dispatcher.RunOnce(ctx, testNow)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if stats.Retried != 1 {
		t.Fatalf("first run stats = %+v, want one retry", stats)
	}
	delivery, err := store.GetDelivery(ctx, created.ID, storage.DeliveryChannelPush)
	if err != nil {
		t.Fatalf("get delivery: %v", err)
	}
	if delivery.Status != storage.DeliveryStatusFailed || delivery.AttemptCount != 1 || !delivery.NextAttemptAt.Equal(testNow.Add(time.Minute)) {
		t.Fatalf("retried delivery = %+v", delivery)
	}
	if delivery.LastError != "push endpoint returned 500" {
		t.Fatalf("LastError = %q", delivery.LastError)
	}

	early, err := dispatcher.RunOnce(ctx, testNow.Add(30*time.Second))
	if err != nil {
		t.Fatalf("early run: %v", err)
	}
	if early.Leased != 0 {
		t.Fatalf("early run leased %d, want 0", early.Leased)
	}

	final, err := dispatcher.RunOnce(ctx, testNow.Add(time.Minute))
	if err != nil {
		t.Fatalf("final run: %v", err)
	}
	if final.Dead != 1 {
		t.Fatalf("final run stats = %+v, want dead", final)
	}
	delivery, err = store.GetDelivery(ctx, created.ID, storage.DeliveryChannelPush)
	if err != nil {
		t.Fatalf("get delivery: %v", err)
	}
	if delivery.Status != storage.DeliveryStatusDead || delivery.AttemptCount != 2 {
		t.Fatalf("dead delivery = %+v", delivery)
	}
}

func TestRunOnceSkipsWhenSubscriptionsWereRemoved(t *testing.T) {
	t.Parallel()
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	subscribe(t, svc, "u1", "https://push.example.test/a")
	created := createPrompt(t, svc, "u1")
	if err := svc.Unsubscribe(ctx, "u1", "https://push.example.test/a"); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}

	stats, err := NewDispatcher(store, newFakeSender(), nil, DispatcherConfig{}).RunOnce(ctx, testNow)
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if stats.Skipped != 1 {
		t.Fatalf("stats = %+v, want skipped", stats)
	}
	delivery, err := store.GetDelivery(ctx, created.ID, storage.DeliveryChannelPush)
	if err != nil {
		t.Fatalf("get delivery: %v", err)
	}
	if delivery.Status != storage.DeliveryStatusSkipped {
		t.Fatalf("status = %q, want skipped", delivery.Status)
	}
}

func TestRunOnceRendersInRecipientLanguage(t *testing.T) {
	t.Parallel()
	svc, store, _ := newTestService(t)
	subscribe(t, svc, "u1", "https://push.example.test/pt")
	createPrompt(t, svc, "u1")

	sender := newFakeSender()
	resolver := func(_ context.Context, userID string) language.Tag {
		if userID == "u1" {
			return language.BrazilianPortuguese
		}
		return language.AmericanEnglish
	}
	if _, err := NewDispatcher(store, sender, resolver, DispatcherConfig{}).RunOnce(context.Background(), testNow); err != nil {
		t.Fatalf("run once: %v", err)
	}
	messages := sender.sent("https://push.example.test/pt")
	if len(messages) != 1 || messages[0].Title != "Pergunta do diário para 2026-09-17" {
		t.Fatalf("messages = %+v", messages)
	}
}

func TestRetryDelayDoublesUpToMax(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(nil, nil, nil, DispatcherConfig{RetryBase: time.Second, RetryMax: 5 * time.Second})
	want := map[int]time.Duration{0: time.Second, 1: time.Second, 2: 2 * time.Second, 3: 4 * time.Second, 4: 5 * time.Second, 40: 5 * time.Second}
	for attempt, delay := range want {
		if got := d.retryDelay(attempt); got != delay {
			t.Fatalf("retryDelay(%d) = %v, want %v", attempt, got, delay)
		}
	}
	if _, err := d.RunOnce(context.Background(), testNow); !errors.Is(err, ErrStoreNotConfigured) {
		t.Fatalf("RunOnce without store err = %v, want ErrStoreNotConfigured", err)
	}
}
