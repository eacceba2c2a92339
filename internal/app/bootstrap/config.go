// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/therapyrooms/internal/app/system/chatprovider"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for the chat room service.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, chat_expiry_action, etc.
//   - Environment variables: THERAPYROOMS_MONGO_URI, THERAPYROOMS_CHAT_EXPIRY_ACTION, etc.
//   - Command-line flags: --mongo_uri, --chat_expiry_action, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "therapy_rooms", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "therapyrooms-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "720h", Desc: "Session cookie lifetime"},

	// Email/SMTP configuration
	{Name: "mail_smtp_host", Default: "", Desc: "SMTP server host (blank logs notices instead of mailing them)"},
	{Name: "mail_smtp_port", Default: 587, Desc: "SMTP server port (STARTTLS; 465 for implicit TLS)"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "mail_from", Default: "noreply@therapyrooms.local", Desc: "From email address"},
	{Name: "mail_from_name", Default: "Therapy Rooms", Desc: "From display name"},

	// Lifecycle notices
	{Name: "notify_email", Default: "", Desc: "Recipient of room lifecycle notices (blank means every active admin)"},
	{Name: "site_name", Default: "Therapy Rooms", Desc: "Site name used in notice subjects"},
	{Name: "notify_timeout", Default: "30s", Desc: "Per-message SMTP timeout"},

	// Chat defaults
	{Name: "chat_expiry_action", Default: "archive", Desc: "What happens to an expired room: 'archive' or 'delete'"},
	{Name: "chat_default_expiry_days", Default: 30, Desc: "Days a new room stays open when its group has no chat expiry date"},
	{Name: "chat_timezone", Default: "UTC", Desc: "IANA time zone that expiry dates are interpreted in"},
	{Name: "chat_provider", Default: chatprovider.KindNative, Desc: "Group messaging provider: 'native' or 'none'"},
	{Name: "chat_embed_base_url", Default: "http://localhost:8080/chat", Desc: "Base URL of the embeddable chat room page"},

	{Name: "enroll_rate_limit", Default: 30, Desc: "Enrollment requests allowed per user per minute (0 disables the limit)"},

	// Expiry sweep
	{Name: "sweep_interval", Default: "24h", Desc: "How often the in-process expiry sweep runs (0 disables it)"},
	{Name: "sweep_on_startup", Default: false, Desc: "Run one expiry sweep as soon as the service starts"},

	// Audit logging settings
	{Name: "audit_log_chat", Default: "all", Desc: "Chat event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Timeouts
	{Name: "timeout_short", Default: "5s", Desc: "Timeout for single-document operations"},
	{Name: "timeout_medium", Default: "10s", Desc: "Timeout for multi-step operations"},
	{Name: "timeout_long", Default: "30s", Desc: "Timeout for list and batch operations"},
	{Name: "timeout_sweep", Default: "5m", Desc: "Timeout for one expiry sweep"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, THERAPYROOMS_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "THERAPYROOMS", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),
		SessionMaxAge:    appValues.Duration("session_max_age", 30*24*time.Hour),

		// Email/SMTP
		MailSMTPHost: appValues.String("mail_smtp_host"),
		MailSMTPPort: appValues.Int("mail_smtp_port"),
		MailSMTPUser: appValues.String("mail_smtp_user"),
		MailSMTPPass: appValues.String("mail_smtp_pass"),
		MailFrom:     appValues.String("mail_from"),
		MailFromName: appValues.String("mail_from_name"),

		// Notices
		NotifyEmail:   appValues.String("notify_email"),
		SiteName:      appValues.String("site_name"),
		NotifyTimeout: appValues.Duration("notify_timeout", 30*time.Second),

		// Chat
		ChatExpiryAction:      appValues.String("chat_expiry_action"),
		ChatDefaultExpiryDays: appValues.Int("chat_default_expiry_days"),
		ChatTimezone:          appValues.String("chat_timezone"),
		ChatProvider:          strings.ToLower(strings.TrimSpace(appValues.String("chat_provider"))),
		ChatEmbedBaseURL:      appValues.String("chat_embed_base_url"),

		EnrollRateLimit: appValues.Int("enroll_rate_limit"),

		// Sweep
		SweepInterval:  appValues.Duration("sweep_interval", 24*time.Hour),
		SweepOnStartup: appValues.Bool("sweep_on_startup"),

		// Audit logging
		AuditLogChat:  strings.ToLower(appValues.String("audit_log_chat")),
		AuditLogAdmin: strings.ToLower(appValues.String("audit_log_admin")),

		// Timeouts
		TimeoutShort:  appValues.Duration("timeout_short", 0),
		TimeoutMedium: appValues.Duration("timeout_medium", 0),
		TimeoutLong:   appValues.Duration("timeout_long", 0),
		TimeoutSweep:  appValues.Duration("timeout_sweep", 0),
	}

	return coreCfg, appCfg, nil
}

var auditModes = map[string]bool{"all": true, "db": true, "log": true, "off": true}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// The MongoDB URI, chat defaults and audit modes are checked here so that
// a typo fails fast instead of surfacing on the first sweep.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if strings.TrimSpace(appCfg.MongoDatabase) == "" {
		return fmt.Errorf("mongo_database must be set")
	}

	if _, err := appCfg.Lifecycle(); err != nil {
		logger.Error("invalid chat settings", zap.Error(err))
		return err
	}
	if appCfg.ChatDefaultExpiryDays < 0 {
		return fmt.Errorf("chat_default_expiry_days must not be negative (got %d)", appCfg.ChatDefaultExpiryDays)
	}

	switch appCfg.ChatProvider {
	case chatprovider.KindNative, chatprovider.KindNone:
	default:
		return fmt.Errorf("chat_provider must be %q or %q (got %q)",
			chatprovider.KindNative, chatprovider.KindNone, appCfg.ChatProvider)
	}

	if appCfg.EnrollRateLimit < 0 {
		return fmt.Errorf("enroll_rate_limit must not be negative")
	}
	if appCfg.SweepInterval < 0 {
		return fmt.Errorf("sweep_interval must not be negative")
	}

	for key, v := range map[string]string{
		"audit_log_chat":  appCfg.AuditLogChat,
		"audit_log_admin": appCfg.AuditLogAdmin,
	} {
		if !auditModes[v] {
			return fmt.Errorf("%s must be one of all, db, log, off (got %q)", key, v)
		}
	}

	return nil
}
