// Package mailer delivers transactional account mail over SMTP.
package mailer

import (
	"context"
	"fmt"
	"log/slog"

	"gopkg.in/gomail.v2"
)

// Message is a fully rendered outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a message to a single recipient.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig carries the SMTP transport settings.
type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// SMTPSender implements Sender over plain SMTP.
type SMTPSender struct {
	cfg    SMTPConfig
	logger *slog.Logger
}

// NewSMTPSender constructs an SMTPSender.
func NewSMTPSender(cfg SMTPConfig, logger *slog.Logger) *SMTPSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &SMTPSender{cfg: cfg, logger: logger}
}

// Send delivers msg. With no SMTP host configured the send degrades to a
// logged skip so development without a mail server keeps working.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if s.cfg.Host == "" {
		s.logger.Warn("smtp not configured, skipping mail", slog.String("to", msg.To), slog.String("subject", msg.Subject))
		return nil
	}
	if msg.To == "" {
		return fmt.Errorf("mailer: empty recipient")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.User, s.cfg.Pass)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("mailer: send: %w", err)
	}

	s.logger.Info("mail sent", slog.String("to", msg.To), slog.String("subject", msg.Subject))
	return nil
}

var _ Sender = (*SMTPSender)(nil)
