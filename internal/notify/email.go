// Package notify sends bill e-mails over SMTP.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/jordan-wright/email"
)

// SMTPConfig holds the mail server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

// Reminder describes one upcoming bill occurrence.
type Reminder struct {
	BillID       int64
	Name         string
	Amount       string
	Category     string
	DueDate      string
	DaysUntilDue int
}

// Payment describes a recorded bill payment.
type Payment struct {
	BillID      int64
	Name        string
	Amount      string
	Status      string
	NextDueDate string
}

// Sender handles sending emails via SMTP
type Sender struct {
	cfg  SMTPConfig
	send func(e *email.Email) error
}

// NewSender creates a new email sender
func NewSender(cfg SMTPConfig) (*Sender, error) {
	if cfg.Host == "" || cfg.From == "" || len(cfg.To) == 0 {
		return nil, errors.New("smtp host, sender and at least one recipient are required")
	}
	s := &Sender{cfg: cfg}
	s.send = s.sendSMTP
	return s, nil
}

func (s *Sender) sendSMTP(e *email.Email) error {
	addr := s.cfg.Host + ":" + strconv.Itoa(s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	return e.Send(addr, auth)
}

// SendReminder mails a reminder for an upcoming bill.
func (s *Sender) SendReminder(ctx context.Context, r Reminder) error {
	e := s.newEmail(reminderSubject(r))

	var body strings.Builder
	fmt.Fprintf(&body, "Hello,\n\n")
	fmt.Fprintf(&body, "%s (%s) is due on %s.\n", r.Name, r.Amount, r.DueDate)
	if r.Category != "" {
		fmt.Fprintf(&body, "Category: %s\n", r.Category)
	}
	body.WriteString("\nYou are receiving this because automatic reminders are enabled for this bill.\n")
	e.Text = []byte(body.String())

	return s.deliver(ctx, e, "bill_id", r.BillID)
}

// SendPaymentConfirmation mails a receipt for a recorded payment.
func (s *Sender) SendPaymentConfirmation(ctx context.Context, p Payment) error {
	e := s.newEmail(fmt.Sprintf("Payment recorded: %s", p.Name))

	var body strings.Builder
	fmt.Fprintf(&body, "Hello,\n\nA payment of %s for %s was recorded.\n", p.Amount, p.Name)
	if p.NextDueDate != "" && p.Status != "PAID" {
		fmt.Fprintf(&body, "The next payment is due on %s.\n", p.NextDueDate)
	}
	e.Text = []byte(body.String())

	return s.deliver(ctx, e, "bill_id", p.BillID)
}

func (s *Sender) newEmail(subject string) *email.Email {
	e := email.NewEmail()
	e.From = s.cfg.From
	e.To = append([]string(nil), s.cfg.To...)
	e.Subject = subject
	return e
}

func (s *Sender) deliver(ctx context.Context, e *email.Email, args ...any) error {
	if err := s.send(e); err != nil {
		slog.ErrorContext(ctx, "Failed to send email", append(args, "subject", e.Subject, "error", err)...)
		return fmt.Errorf("send email: %w", err)
	}
	slog.InfoContext(ctx, "Email sent", append(args, "subject", e.Subject, "recipients", len(e.To))...)
	return nil
}

func reminderSubject(r Reminder) string {
	switch {
	case r.DaysUntilDue <= 0:
		return fmt.Sprintf("Bill due today: %s", r.Name)
	case r.DaysUntilDue == 1:
		return fmt.Sprintf("Bill due tomorrow: %s", r.Name)
	default:
		return fmt.Sprintf("Bill due in %d days: %s", r.DaysUntilDue, r.Name)
	}
}
