// Package cli provides common initialization shared by the budgetwise
// binaries: environment, logging, configuration, backends and shutdown.
package cli

import (
	"budgetwise/internal/backend"
	"budgetwise/internal/config"
	"budgetwise/internal/export"
	"budgetwise/internal/log"
	"budgetwise/internal/services"
	"budgetwise/internal/storage"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from config and makes it the default.
func SetupLogger(cfg *config.Config, component string) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Component: component,
		JSON:      strings.EqualFold(cfg.LogFormat, "json"),
	})
	log.SetDefault(logger)
	return logger
}

// LoadConfig loads and validates configuration.
func LoadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoad loads env, config and logger, exiting on invalid configuration.
func MustLoad(component string) (*config.Config, *log.Logger) {
	LoadEnvFile()
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	return cfg, SetupLogger(cfg, component)
}

// CreateBackend opens the configured data backend.
func CreateBackend(ctx context.Context, cfg *config.Config, logger *log.Logger) (*backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	return backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).CreateBackend(ctx, bcfg)
}

// ReminderLog returns the backend's own reminder log or opens the SQLite
// database at cfg.SQLiteDBPath for it. The returned cleanup is never nil.
func ReminderLog(res *backend.BackendResult, cfg *config.Config) (services.ReminderLog, func() error, error) {
	if res.Reminders != nil {
		return res.Reminders, func() error { return nil }, nil
	}
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open reminder log: %w", err)
	}
	return repo, repo.Close, nil
}

// SheetsCredentials collects the Google credentials from config.
func SheetsCredentials(cfg *config.Config) export.SheetsCredentials {
	return export.SheetsCredentials{
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
		OAuthClientFile:    cfg.GoogleOAuthClientFile,
		OAuthTokenFile:     cfg.GoogleOAuthTokenFile,
	}
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
