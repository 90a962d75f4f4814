package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// ReminderRunner is the reminder job.
type ReminderRunner interface {
	ProcessDueReminders(ctx context.Context, now time.Time) (int, error)
}

// ReportExporter is the scheduled export job.
type ReportExporter interface {
	Export(ctx context.Context, year int) error
}

// Scheduler runs the periodic bill jobs on cron expressions with a seconds field.
type Scheduler struct {
	cron      *cron.Cron
	ctx       context.Context
	reminders ReminderRunner
	exporter  ReportExporter
	now       func() time.Time
}

func NewScheduler(ctx context.Context, reminders ReminderRunner, exporter ReportExporter) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		ctx:       ctx,
		reminders: reminders,
		exporter:  exporter,
		now:       time.Now,
	}
}

// Register adds the jobs whose expression is non-empty and whose runner is set.
func (s *Scheduler) Register(reminderCron, exportCron string) error {
	if reminderCron != "" && s.reminders != nil {
		if _, err := s.cron.AddFunc(reminderCron, s.RunReminders); err != nil {
			return fmt.Errorf("register reminder job: %w", err)
		}
		slog.Info("Reminder job scheduled", "cron", reminderCron)
	}
	if exportCron != "" && s.exporter != nil {
		if _, err := s.cron.AddFunc(exportCron, s.RunExport); err != nil {
			return fmt.Errorf("register export job: %w", err)
		}
		slog.Info("Export job scheduled", "cron", exportCron)
	}
	return nil
}

// Jobs returns the number of registered jobs.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("Scheduler started", "jobs", s.Jobs())
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	slog.Info("Scheduler stopped")
}

// RunReminders publishes reminders for bills due within the lead window.
func (s *Scheduler) RunReminders() {
	if s.ctx.Err() != nil {
		return
	}
	start := s.now()
	count, err := s.reminders.ProcessDueReminders(s.ctx, start)
	if err != nil {
		slog.ErrorContext(s.ctx, "Reminder processing failed", "error", err)
		return
	}
	slog.InfoContext(s.ctx, "Reminder processing complete",
		"reminders_sent", count,
		"duration_ms", time.Since(start).Milliseconds())
}

// RunExport writes the report for the current year.
func (s *Scheduler) RunExport() {
	if s.ctx.Err() != nil {
		return
	}
	year := s.now().Year()
	if err := s.exporter.Export(s.ctx, year); err != nil {
		slog.ErrorContext(s.ctx, "Scheduled export failed", "year", year, "error", err)
		return
	}
	slog.InfoContext(s.ctx, "Scheduled export complete", "year", year)
}
