// Package mcp parses MCP command flags and serves the planner tools over
// stdio for one user.
package mcp

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/doosr/doosr/internal/cmd/compose"
	entrypoint "github.com/doosr/doosr/internal/platform/cmd"
	authdomain "github.com/doosr/doosr/internal/services/auth/domain"
	authsqlite "github.com/doosr/doosr/internal/services/auth/storage/sqlite"
	journaldomain "github.com/doosr/doosr/internal/services/journal/domain"
	journalsqlite "github.com/doosr/doosr/internal/services/journal/storage/sqlite"
	"github.com/doosr/doosr/internal/services/mcp/domain"
	"github.com/doosr/doosr/internal/services/mcp/service"
	plannerdomain "github.com/doosr/doosr/internal/services/planner/domain"
	plannersqlite "github.com/doosr/doosr/internal/services/planner/storage/sqlite"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Config holds MCP command configuration.
type Config struct {
	AuthDBPath    string `env:"DOOSR_AUTH_DB_PATH"    envDefault:"data/auth.db"`
	PlannerDBPath string `env:"DOOSR_PLANNER_DB_PATH" envDefault:"data/planner.db"`
	JournalDBPath string `env:"DOOSR_JOURNAL_DB_PATH" envDefault:"data/journal.db"`
	UserID        string `env:"DOOSR_MCP_USER_ID"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.AuthDBPath, "auth-db-path", cfg.AuthDBPath, "The auth SQLite database path")
	fs.StringVar(&cfg.PlannerDBPath, "planner-db-path", cfg.PlannerDBPath, "The planner SQLite database path")
	fs.StringVar(&cfg.JournalDBPath, "journal-db-path", cfg.JournalDBPath, "The journal SQLite database path")
	fs.StringVar(&cfg.UserID, "user", cfg.UserID, "The user id every tool acts for")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run serves MCP over stdio until the client disconnects or ctx ends.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceMCP, func(ctx context.Context) error {
		return run(ctx, cfg, &mcp.StdioTransport{})
	})
}

func run(ctx context.Context, cfg Config, transport mcp.Transport) error {
	userID := strings.TrimSpace(cfg.UserID)
	if userID == "" {
		return fmt.Errorf("user id is required")
	}

	authStore, err := authsqlite.Open(ctx, cfg.AuthDBPath)
	if err != nil {
		return fmt.Errorf("open auth store: %w", err)
	}
	defer closeStore("auth", authStore)
	plannerStore, err := plannersqlite.Open(ctx, cfg.PlannerDBPath)
	if err != nil {
		return fmt.Errorf("open planner store: %w", err)
	}
	defer closeStore("planner", plannerStore)
	journalStore, err := journalsqlite.Open(ctx, cfg.JournalDBPath)
	if err != nil {
		return fmt.Errorf("open journal store: %w", err)
	}
	defer closeStore("journal", journalStore)

	user, err := authdomain.NewService(authStore, nil).User(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user %s: %w", userID, err)
	}

	planner := plannerdomain.NewService(plannerStore)
	journals := journaldomain.NewService(journalStore, nil, journaldomain.WithOutline(compose.Outline{Planner: planner}))
	planner.SetJournals(compose.Source{Journals: journals})

	server, err := service.New(planner, domain.Scope{UserID: user.ID, Location: user.Location()})
	if err != nil {
		return err
	}
	log.Printf("serving MCP for user %s in %s", user.ID, user.Location())
	return server.Serve(ctx, transport)
}

type closer interface{ Close() error }

func closeStore(name string, store closer) {
	if err := store.Close(); err != nil {
		log.Printf("close %s store: %v", name, err)
	}
}
