// Package mail sends transactional emails.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net/smtp"
	"strings"

	"eato/internal/config"

	"github.com/rs/zerolog"
)

// Message is an outbound HTML email.
type Message struct {
	To      []string
	Subject string
	HTML    string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// sendFunc matches smtp.SendMail.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer delivers messages through an SMTP relay.
type SMTPMailer struct {
	addr   string
	auth   smtp.Auth
	from   string
	sender string
	send   sendFunc
	logger zerolog.Logger
}

// NewSMTPMailer creates a mailer from configuration. Authentication is
// skipped when no username is configured.
func NewSMTPMailer(cfg config.MailConfig, logger zerolog.Logger) *SMTPMailer {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPMailer{
		addr:   cfg.Address(),
		auth:   auth,
		from:   cfg.From,
		sender: cfg.SenderName,
		send:   smtp.SendMail,
		logger: logger.With().Str("component", "smtp-mailer").Logger(),
	}
}

// Send delivers msg. The SMTP client has no context support, so ctx is only
// checked before dialling.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := m.send(m.addr, m.auth, m.from, msg.To, m.compose(msg)); err != nil {
		m.logger.Error().Err(err).Strs("to", msg.To).Str("subject", msg.Subject).Msg("failed to send email")
		return fmt.Errorf("smtp send failed: %w", err)
	}

	m.logger.Info().Strs("to", msg.To).Str("subject", msg.Subject).Msg("email sent")
	return nil
}

func (m *SMTPMailer) compose(msg Message) []byte {
	var b bytes.Buffer
	from := m.from
	if m.sender != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", m.sender), m.from)
	}
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + strings.Join(msg.To, ", ") + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", msg.Subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.HTML)
	return b.Bytes()
}

// LogMailer writes messages to the log instead of sending them. Used when
// SMTP is disabled.
type LogMailer struct {
	logger zerolog.Logger
}

// NewLogMailer creates a LogMailer.
func NewLogMailer(logger zerolog.Logger) *LogMailer {
	return &LogMailer{logger: logger.With().Str("component", "log-mailer").Logger()}
}

// Send logs msg at info level.
func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info().
		Strs("to", msg.To).
		Str("subject", msg.Subject).
		Int("body_bytes", len(msg.HTML)).
		Msg("email delivery disabled, message logged")
	return nil
}
