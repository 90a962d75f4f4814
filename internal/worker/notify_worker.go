package worker

import (
	"budgetwise/internal/amqp"
	"budgetwise/internal/notify"
	"context"
	"fmt"
	"log/slog"
)

// Mailer delivers bill e-mails.
type Mailer interface {
	SendReminder(ctx context.Context, r notify.Reminder) error
	SendPaymentConfirmation(ctx context.Context, p notify.Payment) error
}

// NotifyWorker turns bill events from the queue into e-mails.
type NotifyWorker struct {
	mailer        Mailer
	notifyPayment bool
}

// NewNotifyWorker creates a worker. Payment receipts are only mailed when
// notifyPayment is set; otherwise paid events are just logged.
func NewNotifyWorker(mailer Mailer, notifyPayment bool) *NotifyWorker {
	return &NotifyWorker{mailer: mailer, notifyPayment: notifyPayment}
}

// HandleBillReminder processes a single reminder message from AMQP
func (w *NotifyWorker) HandleBillReminder(ctx context.Context, msg *amqp.BillReminderMessage) error {
	slog.InfoContext(ctx, "Processing bill reminder",
		"bill_id", msg.BillID,
		"due_date", msg.DueDate,
		"days_until_due", msg.DaysUntilDue)

	if w.mailer == nil {
		slog.WarnContext(ctx, "No mailer configured, dropping reminder", "bill_id", msg.BillID)
		return nil
	}

	err := w.mailer.SendReminder(ctx, notify.Reminder{
		BillID:       msg.BillID,
		Name:         msg.Name,
		Amount:       msg.Amount,
		Category:     msg.Category,
		DueDate:      msg.DueDate,
		DaysUntilDue: msg.DaysUntilDue,
	})
	if err != nil {
		return fmt.Errorf("send reminder for bill %d: %w", msg.BillID, err)
	}
	return nil
}

// HandleBillPaid processes a payment event from AMQP
func (w *NotifyWorker) HandleBillPaid(ctx context.Context, msg *amqp.BillPaidMessage) error {
	slog.InfoContext(ctx, "Bill payment recorded",
		"bill_id", msg.BillID,
		"status", msg.Status,
		"next_due_date", msg.NextDueDate,
		"timestamp", msg.Timestamp)

	if !w.notifyPayment || w.mailer == nil {
		return nil
	}
	err := w.mailer.SendPaymentConfirmation(ctx, notify.Payment{
		BillID:      msg.BillID,
		Name:        msg.Name,
		Amount:      msg.Amount,
		Status:      msg.Status,
		NextDueDate: msg.NextDueDate,
	})
	if err != nil {
		return fmt.Errorf("send payment confirmation for bill %d: %w", msg.BillID, err)
	}
	return nil
}
