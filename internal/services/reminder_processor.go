package services

import (
	"budgetwise/internal/core"
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ReminderLog remembers which (bill, due date) pairs were already announced.
type ReminderLog interface {
	HasReminder(ctx context.Context, billID int64, due core.Date) (bool, error)
	RecordReminder(ctx context.Context, billID int64, due core.Date, sentAt time.Time) error
}

// ReminderNotifier delivers a reminder, typically by publishing to a queue.
type ReminderNotifier interface {
	PublishBillReminder(ctx context.Context, bill core.Bill, due core.Date, daysUntilDue int) error
}

// ReminderProcessor announces upcoming bills that opted in to reminders.
type ReminderProcessor struct {
	calendar *BillCalendar
	log      ReminderLog
	notifier ReminderNotifier
	leadDays int
}

// NewReminderProcessor creates a new reminder processor
func NewReminderProcessor(calendar *BillCalendar, log ReminderLog, notifier ReminderNotifier, leadDays int) *ReminderProcessor {
	return &ReminderProcessor{
		calendar: calendar,
		log:      log,
		notifier: notifier,
		leadDays: leadDays,
	}
}

// ProcessDueReminders refreshes the bill list and sends one reminder per
// upcoming occurrence within the lead window. Per-bill failures are logged
// and skipped.
func (p *ReminderProcessor) ProcessDueReminders(ctx context.Context, now time.Time) (int, error) {
	if p.calendar == nil || p.log == nil || p.notifier == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	if err := p.calendar.Refresh(ctx); err != nil {
		return 0, fmt.Errorf("refresh bills: %w", err)
	}

	today := core.DateOf(now)
	upcoming := p.calendar.Upcoming(today, p.leadDays)

	slog.InfoContext(ctx, "Processing bill reminders",
		"upcoming", len(upcoming),
		"processing_date", today.String(),
		"lead_days", p.leadDays)

	sent := 0
	for _, u := range upcoming {
		bill := u.Bill
		if !bill.AutoReminder || bill.Status == core.StatusPaid {
			continue
		}

		done, err := p.log.HasReminder(ctx, bill.ID, u.Date)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to check reminder log",
				"bill_id", bill.ID,
				"error", err)
			continue
		}
		if done {
			continue
		}

		if err := p.notifier.PublishBillReminder(ctx, bill, u.Date, u.DaysUntilDue); err != nil {
			slog.ErrorContext(ctx, "Failed to publish bill reminder",
				"bill_id", bill.ID,
				"due_date", u.Date.String(),
				"error", err)
			continue
		}

		if err := p.log.RecordReminder(ctx, bill.ID, u.Date, now); err != nil {
			slog.ErrorContext(ctx, "Failed to record reminder",
				"bill_id", bill.ID,
				"error", err)
			// Continue anyway - reminder was published
		}

		sent++
		slog.InfoContext(ctx, "Sent bill reminder",
			"bill_id", bill.ID,
			"name", bill.Name,
			"amount", core.FormatAmount(bill.Amount),
			"due_date", u.Date.String(),
			"projected", u.Projected)
	}

	slog.InfoContext(ctx, "Bill reminder processing complete",
		"sent", sent,
		"total_checked", len(upcoming))

	return sent, nil
}
