package storage

import (
	"budgetwise/internal/core"
	"budgetwise/internal/ports"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the local mirror of bills and holdings plus the log of
// reminders already sent.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite serialises writers; one connection avoids SQLITE_BUSY under load.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("SQLite store ready", "path", dbPath, "schema_version", version)

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const billColumns = `id, name, amount, category, recurrence, COALESCE(due_date, ''), COALESCE(next_due_date, ''), status, auto_reminder, notes`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBillRecord(s rowScanner) (core.BillRecord, error) {
	var (
		rec    core.BillRecord
		amount string
	)
	err := s.Scan(&rec.ID, &rec.Name, &amount, &rec.Category, &rec.Recurrence,
		&rec.DueDate, &rec.NextDueDate, &rec.Status, &rec.AutoReminder, &rec.Notes)
	rec.Amount = json.Number(amount)
	return rec, err
}

// ListBills returns bills in mirror order. Rows that no longer decode are
// reported as integrity issues.
func (r *SQLiteRepository) ListBills(ctx context.Context) ([]core.Bill, []core.IntegrityIssue, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+billColumns+` FROM bills ORDER BY position, id`)
	if err != nil {
		return nil, nil, fmt.Errorf("query bills: %w", err)
	}
	defer rows.Close()

	var records []core.BillRecord
	for rows.Next() {
		rec, err := scanBillRecord(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("scan bill: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate bills: %w", err)
	}

	bills, issues := core.DecodeBills(records)
	for _, issue := range issues {
		slog.WarnContext(ctx, "Skipping malformed bill row", "bill_id", issue.ID, "field", issue.Field, "reason", issue.Reason)
	}
	return bills, issues, nil
}

// ReplaceBills swaps the mirrored bills for the given list in one transaction.
func (r *SQLiteRepository) ReplaceBills(ctx context.Context, bills []core.Bill) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM bills`); err != nil {
			return fmt.Errorf("clear bills: %w", err)
		}
		for i, b := range bills {
			if err := insertBill(ctx, tx, b, i); err != nil {
				return err
			}
		}
		slog.InfoContext(ctx, "Bills mirrored to SQLite", "count", len(bills))
		return nil
	})
}

func insertBill(ctx context.Context, tx *sql.Tx, b core.Bill, position int) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO bills (id, name, amount, category, recurrence, due_date, next_due_date, status, auto_reminder, notes, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Name, core.FormatAmount(b.Amount), b.Category, string(b.Recurrence),
		nullDate(b.DueDate), nullDate(b.NextDueDate), string(b.Status), b.AutoReminder, b.Notes, position)
	if err != nil {
		return fmt.Errorf("insert bill %d: %w", b.ID, err)
	}
	return nil
}

// PayBill applies the payment transition and persists it.
func (r *SQLiteRepository) PayBill(ctx context.Context, id int64) (core.Bill, error) {
	var paid core.Bill
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		rec, err := scanBillRecord(tx.QueryRowContext(ctx, `SELECT `+billColumns+` FROM bills WHERE id = ?`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("bill %d: %w", id, ports.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("load bill %d: %w", id, err)
		}
		b, err := rec.Bill()
		if err != nil {
			return fmt.Errorf("bill %d is malformed: %w", id, err)
		}

		paid = b.Paid()
		_, err = tx.ExecContext(ctx, `
			UPDATE bills SET next_due_date = ?, status = ?, updated_at = ?
			WHERE id = ?`,
			nullDate(paid.NextDueDate), string(paid.Status), time.Now().UTC().Format(time.RFC3339), id)
		if err != nil {
			return fmt.Errorf("update bill %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return core.Bill{}, err
	}

	slog.InfoContext(ctx, "Bill marked as paid",
		"bill_id", id,
		"status", paid.Status,
		"next_due_date", paid.NextDueDate.String())
	return paid, nil
}

const investmentColumns = `id, name, symbol, type, quantity, buy_price, current_price, total_invested, COALESCE(purchase_date, ''), notes`

func scanInvestmentRecord(s rowScanner) (core.InvestmentRecord, error) {
	var (
		rec             core.InvestmentRecord
		price, invested float64
	)
	err := s.Scan(&rec.ID, &rec.Name, &rec.Symbol, &rec.Type, &rec.Quantity, &rec.BuyPrice,
		&price, &invested, &rec.PurchaseDate, &rec.Notes)
	rec.CurrentPrice = &price
	rec.TotalInvested = &invested
	return rec, err
}

func (r *SQLiteRepository) ListInvestments(ctx context.Context) ([]core.Investment, []core.IntegrityIssue, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+investmentColumns+` FROM investments ORDER BY position, id`)
	if err != nil {
		return nil, nil, fmt.Errorf("query investments: %w", err)
	}
	defer rows.Close()

	var records []core.InvestmentRecord
	for rows.Next() {
		rec, err := scanInvestmentRecord(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("scan investment: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate investments: %w", err)
	}

	investments, issues := core.DecodeInvestments(records)
	for _, issue := range issues {
		slog.WarnContext(ctx, "Skipping malformed investment row", "investment_id", issue.ID, "field", issue.Field, "reason", issue.Reason)
	}
	return investments, issues, nil
}

// ReplaceInvestments swaps the mirrored holdings for the given list.
func (r *SQLiteRepository) ReplaceInvestments(ctx context.Context, investments []core.Investment) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM investments`); err != nil {
			return fmt.Errorf("clear investments: %w", err)
		}
		for i, inv := range investments {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO investments (id, name, symbol, type, quantity, buy_price, current_price, total_invested, purchase_date, notes, position)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				inv.ID, inv.Name, inv.Symbol, string(inv.Type), inv.Quantity, inv.BuyPrice,
				inv.CurrentPrice, inv.TotalInvested, nullDate(inv.PurchaseDate), inv.Notes, i)
			if err != nil {
				return fmt.Errorf("insert investment %d: %w", inv.ID, err)
			}
		}
		slog.InfoContext(ctx, "Investments mirrored to SQLite", "count", len(investments))
		return nil
	})
}

// UpdatePrice sets a holding's current price and returns the stored row.
func (r *SQLiteRepository) UpdatePrice(ctx context.Context, id int64, price float64) (core.Investment, error) {
	if !core.IsFinite(price) || price < 0 {
		return core.Investment{}, core.ErrInvalidPrice
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE investments SET current_price = ?, updated_at = ? WHERE id = ?`,
		price, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return core.Investment{}, fmt.Errorf("update price for %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Investment{}, fmt.Errorf("investment %d: %w", id, ports.ErrNotFound)
	}

	rec, err := scanInvestmentRecord(r.db.QueryRowContext(ctx, `SELECT `+investmentColumns+` FROM investments WHERE id = ?`, id))
	if err != nil {
		return core.Investment{}, fmt.Errorf("reload investment %d: %w", id, err)
	}
	slog.InfoContext(ctx, "Investment price updated", "investment_id", id, "price", price)
	return rec.Investment()
}

// HasReminder reports whether a reminder for this occurrence was already sent.
func (r *SQLiteRepository) HasReminder(ctx context.Context, billID int64, due core.Date) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reminders_sent WHERE bill_id = ? AND due_date = ?`,
		billID, due.String()).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check reminder for bill %d: %w", billID, err)
	}
	return n > 0, nil
}

// RecordReminder stores a sent reminder. Recording the same occurrence twice is a no-op.
func (r *SQLiteRepository) RecordReminder(ctx context.Context, billID int64, due core.Date, sentAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO reminders_sent (bill_id, due_date, sent_at) VALUES (?, ?, ?)`,
		billID, due.String(), sentAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("record reminder for bill %d: %w", billID, err)
	}
	return nil
}

// PruneReminders deletes reminder rows for due dates before the cutoff.
func (r *SQLiteRepository) PruneReminders(ctx context.Context, before core.Date) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reminders_sent WHERE due_date < ?`, before.String())
	if err != nil {
		return 0, fmt.Errorf("prune reminders: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (r *SQLiteRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func nullDate(d core.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.String()
}
