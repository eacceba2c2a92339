// internal/app/system/mailer/mailer.go
package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/waffle/pantry/email"
	"go.uber.org/zap"
)

// Email is one outgoing message. HTMLBody is optional.
type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Config holds SMTP settings. Port 465 selects implicit TLS; any other
// port uses STARTTLS.
type Config struct {
	Host     string
	Port     int
	User     string
	Pass     string
	From     string
	FromName string
	Timeout  time.Duration
}

// Enabled reports whether enough is configured to send mail.
func (c Config) Enabled() bool {
	return c.Host != "" && c.From != ""
}

// transport is the part of email.Sender the mailer drives.
type transport interface {
	Send(ctx context.Context, msg email.Message) error
}

// Mailer sends Email values over SMTP.
type Mailer struct {
	cfg       Config
	log       *zap.Logger
	transport transport
}

// New creates a Mailer. Port defaults to 587 and Timeout to 30s.
func New(cfg Config, logger *zap.Logger) *Mailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	sender := email.NewSender(email.Config{
		Host:        cfg.Host,
		Port:        cfg.Port,
		Username:    cfg.User,
		Password:    cfg.Pass,
		FromAddress: cfg.From,
		FromName:    cfg.FromName,
		UseSSL:      cfg.Port == 465,
		Timeout:     cfg.Timeout,
	})
	return &Mailer{cfg: cfg, log: logger, transport: sender}
}

// Send delivers e. It returns an error when the mailer is not configured
// or the SMTP exchange fails.
func (m *Mailer) Send(ctx context.Context, e Email) error {
	if !m.cfg.Enabled() {
		return errors.New("mailer not configured")
	}
	if e.To == "" {
		return errors.New("mailer: no recipient")
	}

	start := time.Now()
	err := m.transport.Send(ctx, email.Message{
		To:       []string{e.To},
		Subject:  e.Subject,
		TextBody: e.TextBody,
		HTMLBody: e.HTMLBody,
	})
	if err != nil {
		return fmt.Errorf("send to %s: %w", e.To, err)
	}
	m.log.Debug("mail sent",
		zap.String("to", e.To),
		zap.String("subject", e.Subject),
		zap.Duration("took", time.Since(start)))
	return nil
}
