// Package mail delivers one-time passcodes to customers out of band.
package mail

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/commercebridge/go-shop-backend/pkg/config"
)

// Sender delivers a passcode to an email address. Callers treat delivery
// as fire-and-forget: a failed send must not fail the login flow.
type Sender interface {
	Send(ctx context.Context, to, code string) error
}

// SMTPSender sends passcode mail through an SMTP relay
type SMTPSender struct {
	cfg    config.SMTPConfig
	logger *zap.Logger
}

// NewSMTPSender creates a new SMTP-backed sender
func NewSMTPSender(cfg config.SMTPConfig, logger *zap.Logger) *SMTPSender {
	return &SMTPSender{
		cfg:    cfg,
		logger: logger.Named("smtp-sender"),
	}
}

func (s *SMTPSender) Send(ctx context.Context, to, code string) error {
	if !s.cfg.Configured() {
		return fmt.Errorf("smtp not configured")
	}

	from := s.cfg.From
	if from == "" {
		from = s.cfg.Username
	}
	fromHeader := from
	if s.cfg.FromName != "" {
		fromHeader = fmt.Sprintf("%s <%s>", s.cfg.FromName, from)
	}

	msg := buildMessage(fromHeader, to, "Your Login Code",
		fmt.Sprintf("Your login code is: %s. It expires in 5 minutes.", code))

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)

	if err := smtp.SendMail(addr, auth, from, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}

	s.logger.Debug("Passcode mail sent", zap.String("to", to))
	return nil
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body + "\r\n")
	return []byte(b.String())
}

// LogSender logs the passcode instead of sending mail. Used when SMTP is
// not configured so local development still works end to end.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a sender that only logs
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger.Named("log-sender")}
}

func (s *LogSender) Send(ctx context.Context, to, code string) error {
	s.logger.Info("Passcode generated (smtp not configured, not sent)",
		zap.String("to", to),
		zap.String("code", code),
	)
	return nil
}
