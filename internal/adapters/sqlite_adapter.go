package adapters

import (
	"budgetwise/internal/core"
	"budgetwise/internal/ports"
	"budgetwise/internal/services"
	"budgetwise/internal/storage"
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Mirror is the source a local copy is refreshed from.
type Mirror interface {
	ports.BillReader
	ports.InvestmentReader
}

// SQLiteAdapter exposes the SQLite mirror as a ports.Backend. The summary is
// computed locally the same way the remote API computes it.
type SQLiteAdapter struct {
	storage *storage.SQLiteRepository
}

func NewSQLiteAdapter(storage *storage.SQLiteRepository) *SQLiteAdapter {
	return &SQLiteAdapter{storage: storage}
}

func (a *SQLiteAdapter) ListBills(ctx context.Context) ([]core.Bill, []core.IntegrityIssue, error) {
	return a.storage.ListBills(ctx)
}

func (a *SQLiteAdapter) PayBill(ctx context.Context, id int64) (core.Bill, error) {
	return a.storage.PayBill(ctx, id)
}

func (a *SQLiteAdapter) ListInvestments(ctx context.Context) ([]core.Investment, []core.IntegrityIssue, error) {
	investments, issues, err := a.storage.ListInvestments(ctx)
	if err != nil {
		return nil, nil, err
	}
	return services.DeriveAll(investments), issues, nil
}

func (a *SQLiteAdapter) GetSummary(ctx context.Context) (core.PortfolioSummary, error) {
	investments, _, err := a.storage.ListInvestments(ctx)
	if err != nil {
		return core.PortfolioSummary{}, fmt.Errorf("summary: %w", err)
	}
	return services.RecomputeSummary(investments), nil
}

func (a *SQLiteAdapter) UpdatePrice(ctx context.Context, id int64, price float64) (core.Investment, error) {
	inv, err := a.storage.UpdatePrice(ctx, id, price)
	if err != nil {
		return core.Investment{}, err
	}
	return services.Derive(inv), nil
}

// HasReminder and RecordReminder make the adapter usable as a reminder log.
func (a *SQLiteAdapter) HasReminder(ctx context.Context, billID int64, due core.Date) (bool, error) {
	return a.storage.HasReminder(ctx, billID, due)
}

func (a *SQLiteAdapter) RecordReminder(ctx context.Context, billID int64, due core.Date, sentAt time.Time) error {
	return a.storage.RecordReminder(ctx, billID, due, sentAt)
}

// PruneReminders forgets reminders for due dates before the given day.
func (a *SQLiteAdapter) PruneReminders(ctx context.Context, before core.Date) (int64, error) {
	return a.storage.PruneReminders(ctx, before)
}

// SyncResult reports what a mirror refresh copied.
type SyncResult struct {
	Bills       int
	Investments int
	Issues      []core.IntegrityIssue
}

// SyncFrom replaces the local mirror with the current contents of src. Bills
// are written only after both lists were fetched, so a failing source leaves
// the mirror untouched.
func (a *SQLiteAdapter) SyncFrom(ctx context.Context, src Mirror) (SyncResult, error) {
	bills, billIssues, err := src.ListBills(ctx)
	if err != nil {
		return SyncResult{}, fmt.Errorf("fetch bills: %w", err)
	}
	investments, invIssues, err := src.ListInvestments(ctx)
	if err != nil {
		return SyncResult{}, fmt.Errorf("fetch investments: %w", err)
	}

	if err := a.storage.ReplaceBills(ctx, bills); err != nil {
		return SyncResult{}, err
	}
	if err := a.storage.ReplaceInvestments(ctx, investments); err != nil {
		return SyncResult{}, err
	}

	result := SyncResult{
		Bills:       len(bills),
		Investments: len(investments),
		Issues:      append(billIssues, invIssues...),
	}
	slog.InfoContext(ctx, "Local mirror refreshed",
		"bills", result.Bills,
		"investments", result.Investments,
		"issues", len(result.Issues))
	return result, nil
}

// Close releases the database.
func (a *SQLiteAdapter) Close() error {
	return a.storage.Close()
}

// Ping reports whether the database is reachable.
func (a *SQLiteAdapter) Ping(ctx context.Context) error {
	return a.storage.Ping(ctx)
}
