package cli

import (
	"budgetwise/internal/backend"
	"budgetwise/internal/config"
	"budgetwise/internal/core"
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_InvalidBackend(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DATA_BACKEND", "sheets")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestReminderLog_OpensSQLiteForOtherBackends(t *testing.T) {
	cfg := config.Defaults()
	cfg.SQLiteDBPath = filepath.Join(t.TempDir(), "reminders.db")

	logStore, cleanup, err := ReminderLog(&backend.BackendResult{}, cfg)
	if err != nil {
		t.Fatalf("reminder log: %v", err)
	}
	defer cleanup()

	ctx := context.Background()
	due := core.NewDate(2025, 3, 10)
	if err := logStore.RecordReminder(ctx, 1, due, time.Now()); err != nil {
		t.Fatalf("record: %v", err)
	}
	if ok, err := logStore.HasReminder(ctx, 1, due); err != nil || !ok {
		t.Fatalf("expected reminder recorded, got %v %v", ok, err)
	}
}

func TestSetupLogger_JSON(t *testing.T) {
	cfg := config.Defaults()
	cfg.LogFormat = "json"
	logger := SetupLogger(cfg, "test")
	if logger.Component() != "test" {
		t.Fatalf("unexpected component %q", logger.Component())
	}
}
