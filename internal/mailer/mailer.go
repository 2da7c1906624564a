// Package mailer sends applicant-facing email.
package mailer

import (
	"fmt"
	"net/smtp"

	"go.uber.org/zap"

	"recruitflow/pkg/config"
)

// Mailer delivers one message to one recipient.
type Mailer interface {
	Send(to, subject, body string) error
}

// NewFromConfig picks the SMTP mailer when enabled, otherwise the log mailer.
func NewFromConfig(cfg config.SMTPConfig, logger *zap.Logger) Mailer {
	if cfg.Enabled {
		return &SMTPMailer{
			addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			from: cfg.From,
		}
	}
	return &LogMailer{logger: logger}
}

// LogMailer writes messages to the log instead of delivering them. Used in
// development and tests.
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(to, subject, body string) error {
	m.logger.Info("Mail (log only)",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}

// SMTPMailer delivers messages over plain SMTP.
type SMTPMailer struct {
	addr string
	from string
}

func NewSMTPMailer(addr, from string) *SMTPMailer {
	return &SMTPMailer{addr: addr, from: from}
}

func (m *SMTPMailer) Send(to, subject, body string) error {
	msg := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n%s",
		m.from, to, subject, body,
	)

	if err := smtp.SendMail(m.addr, nil, m.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}

	return nil
}
