package server

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	return Config{
		AuthDBPath:          filepath.Join(dir, "auth.db"),
		PlannerDBPath:       filepath.Join(dir, "planner.db"),
		JournalDBPath:       filepath.Join(dir, "journal.db"),
		AccountingDBPath:    filepath.Join(dir, "accounting.db"),
		NotificationsDBPath: filepath.Join(dir, "notifications.db"),
		WorkerDBPath:        filepath.Join(dir, "worker.db"),
		SessionSecret:       testSecret,
		LoginRateEvery:      time.Second,
		LoginRateBurst:      5,
		WorkerTimeZone:      "UTC",
	}
}

func TestParseConfigReadsEnvThenFlags(t *testing.T) {
	t.Setenv("DOOSR_SESSION_SECRET", testSecret)
	t.Setenv("DOOSR_HTTP_ADDR", "127.0.0.1:9000")

	cfg, err := ParseConfig(flag.NewFlagSet("server", flag.ContinueOnError), []string{"-embed-worker", "-http-addr", ":8181"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != ":8181" {
		t.Fatalf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8181")
	}
	if cfg.SessionSecret != testSecret {
		t.Fatalf("SessionSecret = %q, want env value", cfg.SessionSecret)
	}
	if !cfg.EmbedWorker {
		t.Fatal("EmbedWorker = false, want true")
	}
	if cfg.SessionTTL != 720*time.Hour {
		t.Fatalf("SessionTTL = %v, want 720h", cfg.SessionTTL)
	}
	if cfg.JournalDBPath != "data/journal.db" {
		t.Fatalf("JournalDBPath = %q, want %q", cfg.JournalDBPath, "data/journal.db")
	}
}

func TestNewStackRequiresSessionSecret(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.SessionSecret = "  "
	if _, err := newStack(context.Background(), cfg); !errors.Is(err, ErrSessionSecretRequired) {
		t.Fatalf("newStack err = %v, want %v", err, ErrSessionSecretRequired)
	}
	cfg.SessionSecret = "short"
	if _, err := newStack(context.Background(), cfg); err == nil {
		t.Fatal("expected error for short session secret")
	}
}

func TestWorkerRuntimeEmbedsWithoutHealthPort(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	stack, err := newStack(context.Background(), cfg)
	if err != nil {
		t.Fatalf("new stack: %v", err)
	}
	defer stack.Close()

	runtime, err := stack.workerRuntime(cfg)
	if err != nil {
		t.Fatalf("worker runtime: %v", err)
	}
	if runtime.Port >= 0 {
		t.Fatalf("Port = %d, want negative", runtime.Port)
	}
	if runtime.Publisher == nil {
		t.Fatal("Publisher = nil, want live hub")
	}
	if runtime.WorkerDBPath != cfg.WorkerDBPath {
		t.Fatalf("WorkerDBPath = %q, want %q", runtime.WorkerDBPath, cfg.WorkerDBPath)
	}

	cfg.WorkerTimeZone = "Nowhere/Special"
	if _, err := stack.workerRuntime(cfg); err == nil {
		t.Fatal("expected error for unknown time zone")
	}
}

func TestAuthenticateRequiresSessionCookie(t *testing.T) {
	t.Parallel()

	stack, err := newStack(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("new stack: %v", err)
	}
	defer stack.Close()

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	if _, ok := stack.authenticate(req); ok {
		t.Fatal("authenticate without cookie = ok, want rejected")
	}
	req.AddCookie(&http.Cookie{Name: "doosr_session", Value: "forged"})
	if _, ok := stack.authenticate(req); ok {
		t.Fatal("authenticate with forged cookie = ok, want rejected")
	}
}

func TestServeRegistersAndGreetsNewUsers(t *testing.T) {
	t.Parallel()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	base := "http://" + listener.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, testConfig(t), listener) }()
	defer func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("serve: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("serve did not stop")
		}
	}()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	client := &http.Client{
		Jar:     jar,
		Timeout: 5 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	waitHealthy(t, client, base)

	form := url.Values{
		"email":        {"ada@example.com"},
		"password":     {"correct horse battery"},
		"display_name": {"Ada"},
		"locale":       {"en-US"},
		"time_zone":    {"America/New_York"},
	}
	req, err := http.NewRequest(http.MethodPost, base+"/auth/register", strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Origin", base)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("register status = %d, want %d", resp.StatusCode, http.StatusSeeOther)
	}

	req, err = http.NewRequest(http.MethodGet, base+"/notifications/unread", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err = client.Do(req)
	if err != nil {
		t.Fatalf("unread: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unread status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var payload struct {
		Unread int `json:"unread"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode unread: %v", err)
	}
	if payload.Unread != 1 {
		t.Fatalf("unread = %d, want 1 welcome notification", payload.Unread)
	}
}

func TestServeRejectsCrossOriginPosts(t *testing.T) {
	t.Parallel()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	base := "http://" + listener.Addr().String()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, testConfig(t), listener) }()
	defer func() {
		cancel()
		<-done
	}()

	client := &http.Client{Timeout: 5 * time.Second}
	waitHealthy(t, client, base)

	req, err := http.NewRequest(http.MethodPost, base+"/auth/login", strings.NewReader("email=a%40b.c"))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Origin", "https://evil.example")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusForbidden)
	}
}

func waitHealthy(t *testing.T, client *http.Client, base string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := client.Get(base + "/up")
		if err == nil {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK && string(body) == "ok" {
				return
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("server did not become healthy")
}
