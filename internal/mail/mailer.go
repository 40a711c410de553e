// Package mail delivers transactional email. Delivery failures are surfaced
// to callers so flows like password reset can roll back.
package mail

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/marketplace-service/internal/config"
)

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer sends messages to a recipient out-of-band.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New picks the SMTP sender when a host is configured, otherwise the
// logging stub.
func New(cfg config.MailConfig, logger *zap.Logger) Mailer {
	if strings.TrimSpace(cfg.SMTPHost) != "" {
		return &SMTPMailer{cfg: cfg}
	}
	return &LogMailer{logger: logger, from: cfg.From}
}

// SMTPMailer delivers through a plain SMTP relay.
type SMTPMailer struct {
	cfg config.MailConfig
}

// Send submits the message to the configured relay.
func (m *SMTPMailer) Send(_ context.Context, msg Message) error {
	addr := net.JoinHostPort(m.cfg.SMTPHost, m.cfg.SMTPPort)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.SMTPHost)
	}

	payload := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		m.cfg.From, msg.To, msg.Subject, msg.Body)

	return smtp.SendMail(addr, auth, m.cfg.From, []string{msg.To}, []byte(payload))
}

// LogMailer records outbound mail instead of sending it, for environments
// without an SMTP relay.
type LogMailer struct {
	logger *zap.Logger
	from   string
}

// Send logs the message.
func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info("outbound email",
		zap.String("from", m.from),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject))
	return nil
}
