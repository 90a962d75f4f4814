package services

import (
	"budgetwise/internal/core"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

type memoryReminderLog struct {
	mu   sync.Mutex
	sent map[string]time.Time
}

func (l *memoryReminderLog) key(id int64, due core.Date) string {
	return fmt.Sprintf("%d@%s", id, due)
}

func (l *memoryReminderLog) HasReminder(ctx context.Context, billID int64, due core.Date) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.sent[l.key(billID, due)]
	return ok, nil
}

func (l *memoryReminderLog) RecordReminder(ctx context.Context, billID int64, due core.Date, sentAt time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sent == nil {
		l.sent = map[string]time.Time{}
	}
	l.sent[l.key(billID, due)] = sentAt
	return nil
}

type recordingNotifier struct {
	calls []int64
}

func (n *recordingNotifier) PublishBillReminder(ctx context.Context, bill core.Bill, due core.Date, daysUntilDue int) error {
	n.calls = append(n.calls, bill.ID)
	return nil
}

func TestReminderProcessor_ProcessDueReminders(t *testing.T) {
	reminded := bill(1, core.Monthly, core.NewDate(2025, 1, 12), "40")
	reminded.AutoReminder = true
	silent := bill(2, core.Monthly, core.NewDate(2025, 1, 12), "40")
	paid := bill(3, core.Monthly, core.NewDate(2025, 1, 12), "40")
	paid.AutoReminder = true
	paid.Status = core.StatusPaid
	later := bill(4, core.Monthly, core.NewDate(2025, 1, 20), "40")
	later.AutoReminder = true

	backend := &fakeBackend{bills: []core.Bill{reminded, silent, paid, later}}
	cal := NewBillCalendar(backend, nil, nil)
	log := &memoryReminderLog{}
	notifier := &recordingNotifier{}
	proc := NewReminderProcessor(cal, log, notifier, 3)

	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	sent, err := proc.ProcessDueReminders(context.Background(), now)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if sent != 1 || len(notifier.calls) != 1 || notifier.calls[0] != 1 {
		t.Fatalf("expected one reminder for bill 1, got %d %v", sent, notifier.calls)
	}

	sent, err = proc.ProcessDueReminders(context.Background(), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if sent != 0 {
		t.Fatalf("reminders must not be repeated, sent %d", sent)
	}
}

func TestReminderProcessor_SkipsPaidPeriods(t *testing.T) {
	b := bill(1, core.Monthly, core.NewDate(2024, 1, 15), "30")
	b.AutoReminder = true
	b.NextDueDate = core.NewDate(2024, 3, 15)

	backend := &fakeBackend{bills: []core.Bill{b}}
	notifier := &recordingNotifier{}
	proc := NewReminderProcessor(NewBillCalendar(backend, nil, nil), &memoryReminderLog{}, notifier, 7)

	sent, err := proc.ProcessDueReminders(context.Background(), time.Date(2024, 2, 10, 9, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if sent != 0 || len(notifier.calls) != 0 {
		t.Fatalf("no reminder expected for a paid period, sent %d %v", sent, notifier.calls)
	}

	sent, err = proc.ProcessDueReminders(context.Background(), time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if sent != 1 {
		t.Fatalf("expected reminder for the march due date, sent %d", sent)
	}
}

func TestReminderProcessor_RefreshFailure(t *testing.T) {
	backend := &fakeBackend{failBills: true}
	proc := NewReminderProcessor(NewBillCalendar(backend, nil, nil), &memoryReminderLog{}, &recordingNotifier{}, 3)
	if _, err := proc.ProcessDueReminders(context.Background(), time.Now()); err == nil {
		t.Fatal("expected refresh error")
	}
}

func TestReminderProcessor_NotInitialized(t *testing.T) {
	proc := NewReminderProcessor(nil, nil, nil, 3)
	if _, err := proc.ProcessDueReminders(context.Background(), time.Now()); err == nil {
		t.Fatal("expected initialization error")
	}
}
