package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	notificationsdomain "github.com/doosr/doosr/internal/services/notifications/domain"
	"github.com/doosr/doosr/internal/services/notifications/storage/sqlite"
	module "github.com/doosr/doosr/internal/services/web/module"
	"github.com/doosr/doosr/internal/services/web/platform/modulehandler"
	"github.com/doosr/doosr/internal/services/web/platform/requestmeta"
	"github.com/doosr/doosr/internal/services/web/platform/webctx"
	"golang.org/x/text/language"
)

var testNow = time.Date(2026, 9, 17, 20, 0, 0, 0, time.UTC)

func sequenceIDs() func() (string, error) {
	n := 0
	return func() (string, error) {
		n++
		return fmt.Sprintf("id-%03d", n), nil
	}
}

type fixture struct {
	service *notificationsdomain.Service
	handler http.Handler
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "notifications.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	clock := func() time.Time { return testNow }
	service := notificationsdomain.NewService(store, notificationsdomain.WithClock(clock), notificationsdomain.WithIDGenerator(sequenceIDs()))
	mount, err := New(service, modulehandler.NewBase(requestmeta.SchemePolicy{}, nil)).WithClock(func() time.Time { return testNow.Add(5 * time.Minute) }).Mount()
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	return fixture{service: service, handler: mount.Handler}
}

func (f fixture) do(req *http.Request) *httptest.ResponseRecorder {
	viewer := module.Viewer{UserID: "u1", SessionID: "s1", Lang: language.AmericanEnglish}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req.WithContext(webctx.WithViewer(req.Context(), viewer)))
	return rec
}

func (f fixture) seed(t *testing.T, userID, messageType, payload, source string) notificationsdomain.Notification {
	t.Helper()
	n, err := f.service.CreateIntent(context.Background(), notificationsdomain.CreateIntentInput{
		RecipientUserID: userID, MessageType: messageType, PayloadJSON: payload, Source: source,
	})
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}
	return n
}

func jsonRequest(method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	req.Header.Set("Accept", "application/json")
	return req
}

func TestInboxRendersLocalizedCopy(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	prompt := f.seed(t, "u1", notificationsdomain.MessageTypeJournalPrompt, `{"date":"2026-09-17","prompt":"What went well?"}`, "journal")
	f.seed(t, "u1", notificationsdomain.MessageTypeSystemWelcome, `{"display_name":"Ana"}`, "system")
	f.seed(t, "u2", notificationsdomain.MessageTypeSystemWelcome, `{}`, "system")

	rec := f.do(jsonRequest(http.MethodGet, "/notifications/"))
	if rec.Code != http.StatusOK {
		t.Fatalf("inbox status = %d", rec.Code)
	}
	var inbox inboxPayload
	if err := json.NewDecoder(rec.Body).Decode(&inbox); err != nil {
		t.Fatalf("decode inbox: %v", err)
	}
	if len(inbox.Notifications) != 2 || inbox.Unread != 2 {
		t.Fatalf("inbox = %+v, want two unread notifications", inbox)
	}
	var found notificationSummary
	for _, item := range inbox.Notifications {
		if item.ID == prompt.ID {
			found = item
		}
	}
	if found.Title != "Journal prompt for 2026-09-17" || found.Body != "Today's question: What went well?" || found.URL != "/journal" {
		t.Fatalf("prompt summary = %+v", found)
	}

	html := f.do(httptest.NewRequest(http.MethodGet, "/notifications/", nil)).Body.String()
	for _, want := range []string{"Hi Ana, plan your first day to get started.", `class="notification unread"`, `action="/notifications/` + prompt.ID + `/read"`, "5 minutes ago"} {
		if !strings.Contains(html, want) {
			t.Fatalf("inbox page missing %q", want)
		}
	}
}

func TestMarkReadRedirectsToTarget(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	prompt := f.seed(t, "u1", notificationsdomain.MessageTypeJournalPrompt, `{"date":"2026-09-17","prompt":"What went well?"}`, "journal")
	other := f.seed(t, "u2", notificationsdomain.MessageTypeSystemWelcome, `{}`, "system")

	badge := httptest.NewRequest(http.MethodGet, "/notifications/unread", nil)
	badge.Header.Set("HX-Request", "true")
	if got := f.do(badge).Body.String(); got != "Notifications (1)" {
		t.Fatalf("badge = %q, want %q", got, "Notifications (1)")
	}

	rec := f.do(httptest.NewRequest(http.MethodPost, "/notifications/"+prompt.ID+"/read", nil))
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/journal" {
		t.Fatalf("read = %d %q, want 303 /journal", rec.Code, rec.Header().Get("Location"))
	}

	rec = f.do(jsonRequest(http.MethodGet, "/notifications/unread"))
	var unread unreadPayload
	if err := json.NewDecoder(rec.Body).Decode(&unread); err != nil || unread.Unread != 0 {
		t.Fatalf("unread = %+v (%v), want 0", unread, err)
	}
	badge = httptest.NewRequest(http.MethodGet, "/notifications/unread", nil)
	badge.Header.Set("HX-Request", "true")
	if got := f.do(badge).Body.String(); got != "Notifications" {
		t.Fatalf("badge = %q, want %q", got, "Notifications")
	}

	if rec := f.do(jsonRequest(http.MethodPost, "/notifications/"+other.ID+"/read")); rec.Code != http.StatusNotFound {
		t.Fatalf("reading another user's notification status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestPushSubscriptions(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	subscribe := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/notifications/subscriptions", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "Firefox")
		return f.do(req)
	}

	const endpoint = "https://push.example.test/abc"
	rec := subscribe(`{"endpoint":"` + endpoint + `","expirationTime":null,"keys":{"p256dh":"key","auth":"secret"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("subscribe status = %d body %s", rec.Code, rec.Body.String())
	}
	var created subscriptionSummary
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode subscription: %v", err)
	}
	if created.Endpoint != endpoint || created.UserAgent != "Firefox" {
		t.Fatalf("subscription = %+v", created)
	}

	invalid := map[string]string{
		"plain http":    `{"endpoint":"http://push.example.test/abc","keys":{"p256dh":"key","auth":"secret"}}`,
		"missing keys":  `{"endpoint":"` + endpoint + `"}`,
		"unknown field": `{"endpoint":"` + endpoint + `","keys":{"p256dh":"key","auth":"secret"},"extra":1}`,
		"not json":      `endpoint=` + endpoint,
	}
	for name, body := range invalid {
		if rec := subscribe(body); rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want %d", name, rec.Code, http.StatusBadRequest)
		}
	}

	var listed []subscriptionSummary
	if err := json.NewDecoder(f.do(jsonRequest(http.MethodGet, "/notifications/subscriptions")).Body).Decode(&listed); err != nil || len(listed) != 1 {
		t.Fatalf("subscriptions = %+v (%v), want one", listed, err)
	}

	rec = f.do(httptest.NewRequest(http.MethodDelete, "/notifications/subscriptions/"+url.PathEscape(endpoint), nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("unsubscribe by endpoint status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if rec := f.do(httptest.NewRequest(http.MethodDelete, "/notifications/subscriptions/"+created.ID, nil)); rec.Code != http.StatusNotFound {
		t.Fatalf("second unsubscribe status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	form := url.Values{"endpoint": {endpoint}, "p256dh": {"key"}, "auth": {"secret"}}
	req := httptest.NewRequest(http.MethodPost, "/notifications/subscriptions", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if rec := f.do(req); rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/notifications/subscriptions" {
		t.Fatalf("form subscribe = %d %q", rec.Code, rec.Header().Get("Location"))
	}
	page := f.do(httptest.NewRequest(http.MethodGet, "/notifications/subscriptions", nil)).Body.String()
	if !strings.Contains(page, "/remove") || !strings.Contains(page, endpoint) {
		t.Fatalf("subscriptions page does not list the endpoint")
	}
}
