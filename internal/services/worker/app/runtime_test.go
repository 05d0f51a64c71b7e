package app

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func runtimeConfig(t *testing.T) RuntimeConfig {
	t.Helper()
	dir := t.TempDir()
	return RuntimeConfig{
		Port:                -1,
		AuthDBPath:          filepath.Join(dir, "auth.db"),
		PlannerDBPath:       filepath.Join(dir, "planner.db"),
		JournalDBPath:       filepath.Join(dir, "journal.db"),
		AccountingDBPath:    filepath.Join(dir, "accounting.db"),
		NotificationsDBPath: filepath.Join(dir, "notifications.db"),
		WorkerDBPath:        filepath.Join(dir, "worker.db"),
		PollInterval:        20 * time.Millisecond,
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := Run(ctx, runtimeConfig(t)); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestRunRejectsBadSchedule(t *testing.T) {
	t.Parallel()

	cfg := runtimeConfig(t)
	cfg.PromptSpec = "every evening"
	err := Run(context.Background(), cfg)
	if err == nil || !strings.Contains(err.Error(), "journal_prompt") {
		t.Fatalf("run err = %v, want journal_prompt schedule error", err)
	}
}

func TestRuntimeConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg := RuntimeConfig{}.normalized()
	if cfg.Port != defaultWorkerPort || cfg.RolloverSpec != DefaultRolloverSpec || cfg.PruneSpec != DefaultPruneSpec {
		t.Fatalf("normalized = %+v, want defaults", cfg)
	}
	if disabled := (RuntimeConfig{Port: -1}).normalized(); disabled.Port != -1 {
		t.Fatalf("Port = %d, want -1", disabled.Port)
	}
}
