package mcp

import (
	"context"
	"flag"
	"path/filepath"
	"strings"
	"testing"
	"time"

	authdomain "github.com/doosr/doosr/internal/services/auth/domain"
	authsqlite "github.com/doosr/doosr/internal/services/auth/storage/sqlite"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func TestParseConfigReadsEnvThenFlags(t *testing.T) {
	t.Setenv("DOOSR_MCP_USER_ID", "env-user")
	t.Setenv("DOOSR_PLANNER_DB_PATH", "/var/lib/doosr/planner.db")

	cfg, err := ParseConfig(flag.NewFlagSet("mcp", flag.ContinueOnError), []string{"-user", "flag-user"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.UserID != "flag-user" {
		t.Fatalf("UserID = %q, want %q", cfg.UserID, "flag-user")
	}
	if cfg.PlannerDBPath != "/var/lib/doosr/planner.db" {
		t.Fatalf("PlannerDBPath = %q, want %q", cfg.PlannerDBPath, "/var/lib/doosr/planner.db")
	}
	if cfg.AuthDBPath != "data/auth.db" {
		t.Fatalf("AuthDBPath = %q, want %q", cfg.AuthDBPath, "data/auth.db")
	}
}

func testConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	return Config{
		AuthDBPath:    filepath.Join(dir, "auth.db"),
		PlannerDBPath: filepath.Join(dir, "planner.db"),
		JournalDBPath: filepath.Join(dir, "journal.db"),
	}
}

func TestRunRequiresKnownUser(t *testing.T) {
	t.Parallel()

	if err := run(context.Background(), Config{}, nil); err == nil || !strings.Contains(err.Error(), "user id is required") {
		t.Fatalf("run err = %v, want user id error", err)
	}
	cfg := testConfig(t)
	cfg.UserID = "ghost"
	if err := run(context.Background(), cfg, nil); err == nil || !strings.Contains(err.Error(), "load user ghost") {
		t.Fatalf("run err = %v, want unknown user error", err)
	}
}

func TestRunServesToolsForUser(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	store, err := authsqlite.Open(context.Background(), cfg.AuthDBPath)
	if err != nil {
		t.Fatalf("open auth store: %v", err)
	}
	user, err := authdomain.NewService(store, nil, authdomain.WithBcryptCost(4)).Register(context.Background(), authdomain.RegisterInput{
		Email:    "ada@example.com",
		Password: "correct horse battery",
		TimeZone: "America/Sao_Paulo",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close auth store: %v", err)
	}
	cfg.UserID = user.ID

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	runErr := make(chan error, 1)
	go func() {
		runErr <- run(ctx, cfg, serverTransport)
	}()

	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "v0.0.1"}, nil)
	connectCtx, connectCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer connectCancel()
	session, err := client.Connect(connectCtx, clientTransport, nil)
	if err != nil {
		t.Fatalf("connect client: %v", err)
	}
	defer session.Close()

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "fixed_date",
		Arguments: map[string]any{"date": "2026-09-04"},
	})
	if err != nil {
		t.Fatalf("call fixed_date: %v", err)
	}
	content, ok := result.StructuredContent.(map[string]any)
	if result.IsError || !ok || content["fixed"] != "Sol 1, 2026" {
		t.Fatalf("fixed_date = %#v, want Sol 1, 2026", result.StructuredContent)
	}

	cancel()
	select {
	case err := <-runErr:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop after cancel")
	}
}
