// internal/app/bootstrap/appconfig.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/therapyrooms/internal/app/chat/lifecycle"
	"github.com/dalemusser/therapyrooms/internal/app/system/dateparse"
	"github.com/dalemusser/therapyrooms/internal/app/system/mailer"
	"github.com/dalemusser/therapyrooms/internal/app/system/timeouts"
)

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers
// the HTTP listener, logging and CORS; everything about chat rooms,
// mail and MongoDB lives here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management
	SessionKey    string // Secret key for signing session cookies
	SessionName   string // Cookie name for sessions
	SessionDomain string // Cookie domain (blank means current host)
	SessionMaxAge time.Duration

	// Email/SMTP
	MailSMTPHost string
	MailSMTPPort int
	MailSMTPUser string
	MailSMTPPass string
	MailFrom     string
	MailFromName string

	// Lifecycle notices
	NotifyEmail   string // blank sends notices to every active admin
	SiteName      string
	NotifyTimeout time.Duration

	// Chat defaults; stored chat settings override the first two
	ChatExpiryAction      string // "archive" or "delete"
	ChatDefaultExpiryDays int
	ChatTimezone          string
	ChatProvider          string // "native" or "none"
	ChatEmbedBaseURL      string

	// Enrollment requests allowed per user per minute (0 disables the limit)
	EnrollRateLimit int

	// Expiry sweep worker. Zero interval disables the in-process worker
	// (run cmd/roomsweep from cron instead).
	SweepInterval  time.Duration
	SweepOnStartup bool

	// Audit logging: "all", "db", "log" or "off"
	AuditLogChat  string
	AuditLogAdmin string

	// Request/operation timeouts (zero keeps the built-in default)
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration
	TimeoutSweep  time.Duration
}

// Lifecycle returns the chat lifecycle configuration described by c.
func (c AppConfig) Lifecycle() (lifecycle.Config, error) {
	action, err := lifecycle.NormalizeAction(c.ChatExpiryAction)
	if err != nil {
		return lifecycle.Config{}, err
	}
	loc, err := dateparse.Location(c.ChatTimezone)
	if err != nil {
		return lifecycle.Config{}, fmt.Errorf("chat_timezone: %w", err)
	}
	return lifecycle.Config{
		ExpiryAction:      action,
		DefaultExpiryDays: c.ChatDefaultExpiryDays,
		Location:          loc,
		NotifyEmail:       c.NotifyEmail,
		SiteName:          c.SiteName,
	}, nil
}

// Mail returns the SMTP settings.
func (c AppConfig) Mail() mailer.Config {
	return mailer.Config{
		Host:     c.MailSMTPHost,
		Port:     c.MailSMTPPort,
		User:     c.MailSMTPUser,
		Pass:     c.MailSMTPPass,
		From:     c.MailFrom,
		FromName: c.MailFromName,
		Timeout:  c.NotifyTimeout,
	}
}

// Timeouts returns the configured operation timeouts.
func (c AppConfig) Timeouts() timeouts.Config {
	return timeouts.Config{
		Short:  c.TimeoutShort,
		Medium: c.TimeoutMedium,
		Long:   c.TimeoutLong,
		Sweep:  c.TimeoutSweep,
	}
}
