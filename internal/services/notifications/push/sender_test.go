package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/doosr/doosr/internal/services/notifications/storage"
)

func TestWebhookSenderPostsJSON(t *testing.T) {
	t.Parallel()

	var (
		gotTTL  string
		gotBody webhookBody
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTTL = r.Header.Get("TTL")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	sender := NewWebhookSender(server.Client())
	sub := storage.PushSubscription{ID: "s-1", UserID: "u-1", Endpoint: server.URL, P256DH: "key", Auth: "secret"}
	msg := Message{NotificationID: "n-1", Type: "journal.prompt", Title: "Journal", Body: "What went well?", TTL: time.Hour}
	if err := sender.Send(context.Background(), sub, msg); err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotTTL != "3600" {
		t.Fatalf("TTL header = %q, want %q", gotTTL, "3600")
	}
	if gotBody.Title != "Journal" || gotBody.Keys.P256DH != "key" || gotBody.Keys.Auth != "secret" {
		t.Fatalf("body = %+v", gotBody)
	}
}

func TestWebhookSenderStatusMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status   int
		wantGone bool
		wantErr  bool
	}{
		{status: http.StatusOK},
		{status: http.StatusNotFound, wantGone: true, wantErr: true},
		{status: http.StatusGone, wantGone: true, wantErr: true},
		{status: http.StatusTooManyRequests, wantErr: true},
		{status: http.StatusInternalServerError, wantErr: true},
	}
	for _, tc := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tc.status)
		}))
		err := NewWebhookSender(server.Client()).Send(context.Background(), storage.PushSubscription{Endpoint: server.URL}, Message{})
		server.Close()
		if (err != nil) != tc.wantErr {
			t.Fatalf("status %d: err = %v, wantErr %v", tc.status, err, tc.wantErr)
		}
		if errors.Is(err, ErrSubscriptionGone) != tc.wantGone {
			t.Fatalf("status %d: gone = %v, want %v", tc.status, errors.Is(err, ErrSubscriptionGone), tc.wantGone)
		}
	}
}

func TestLogSender(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	sender := LogSender{Logger: log.New(&buf, "", 0)}
	if err := sender.Send(context.Background(), storage.PushSubscription{ID: "s-1", UserID: "u-1"}, Message{NotificationID: "n-1", Type: "day.rollover", Title: "Moved"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := buf.String(); !strings.Contains(got, "notification=n-1") || !strings.Contains(got, `title="Moved"`) {
		t.Fatalf("log = %q", got)
	}
}
