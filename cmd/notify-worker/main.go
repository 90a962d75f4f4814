package main

import (
	"budgetwise/internal/amqp"
	"budgetwise/internal/cli"
	"budgetwise/internal/log"
	"budgetwise/internal/notify"
	"budgetwise/internal/worker"
	"context"
	"errors"
	"os"
	"strings"
)

func main() {
	cfg, logger := cli.MustLoad(log.ComponentWorker)
	logger.Info("Starting notify-worker")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for notify-worker")
		os.Exit(1)
	}

	var mailer worker.Mailer
	if cfg.EmailEnabled() {
		sender, err := notify.NewSender(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			To:       splitRecipients(cfg.ReminderEmailTo),
		})
		if err != nil {
			logger.Error("Invalid SMTP configuration", "error", err)
			os.Exit(1)
		}
		mailer = sender
	} else {
		logger.Warn("SMTP not configured, reminders will only be logged")
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, stop := cli.SignalContext()
	defer stop()

	handler := worker.NewNotifyWorker(mailer, cfg.NotifyPayments)
	if err := client.Consume(ctx, handler); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

func splitRecipients(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
