package main

import (
	"budgetwise/internal/cli"
	"budgetwise/internal/core"
	"budgetwise/internal/export"
	"budgetwise/internal/log"
	"budgetwise/internal/services"
	"budgetwise/internal/worker"
	"context"
	"os"
)

const reminderRetentionDays = 90

type reminderPruner interface {
	PruneReminders(ctx context.Context, before core.Date) (int64, error)
}

func main() {
	cfg, logger := cli.MustLoad(log.ComponentScheduler)
	logger.Info("Starting budget-worker")

	ctx, stop := cli.SignalContext()
	defer stop()

	res, err := cli.CreateBackend(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err)
		os.Exit(1)
	}
	defer res.Close()

	calendar := services.NewBillCalendar(res.Backend, res.Backend, res.Publisher)
	portfolio := services.NewPortfolioService(res.Backend, res.Backend, nil, nil)
	defer portfolio.Close()

	var reminders worker.ReminderRunner
	if cfg.ReminderCron != "" {
		notifier, ok := res.Publisher.(services.ReminderNotifier)
		if !ok {
			logger.Warn("Reminder job disabled: AMQP is not available")
		} else {
			reminderLog, closeLog, err := cli.ReminderLog(res, cfg)
			if err != nil {
				logger.Error("Failed to open reminder log", "error", err)
				os.Exit(1)
			}
			defer closeLog()
			if pruner, ok := reminderLog.(reminderPruner); ok {
				if n, err := pruner.PruneReminders(ctx, core.Today().AddDays(-reminderRetentionDays)); err != nil {
					logger.Warn("Reminder log pruning failed", "error", err)
				} else if n > 0 {
					logger.Info("Pruned old reminder entries", "count", n)
				}
			}
			reminders = services.NewReminderProcessor(calendar, reminderLog, notifier, cfg.ReminderLeadDays)
		}
	}

	var exporter worker.ReportExporter
	if cfg.ExportCron != "" {
		writer, err := export.NewSheetsWriter(ctx, cfg.GoogleSpreadsheetID, cli.SheetsCredentials(cfg))
		if err != nil {
			logger.Error("Failed to initialize Google Sheets export", "error", err)
			os.Exit(1)
		}
		exporter = export.NewService(calendar, portfolio, writer)
	}

	scheduler := worker.NewScheduler(ctx, reminders, exporter)
	if err := scheduler.Register(cfg.ReminderCron, cfg.ExportCron); err != nil {
		logger.Error("Failed to register jobs", "error", err)
		os.Exit(1)
	}
	if scheduler.Jobs() == 0 {
		logger.Warn("No jobs configured, exiting")
		return
	}

	if reminders != nil {
		// catch up on anything missed while the worker was down
		scheduler.RunReminders()
	}
	scheduler.Start()
	<-ctx.Done()
	scheduler.Stop()
	logger.Info("Worker shutdown complete")
}
