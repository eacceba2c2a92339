package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/therapyrooms/internal/app/bootstrap"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

const envPrefix = "THERAPYROOMS_"

type options struct {
	app       bootstrap.AppConfig
	date      string
	actionSet bool
	verbose   bool
}

// parseArgs reads flags, then fills anything not given on the command line
// from getenv. --env-file entries are merged below the real environment.
func parseArgs(args []string, getenv func(string) string) (options, error) {
	fs := pflag.NewFlagSet("roomsweep", pflag.ContinueOnError)

	envFile := fs.String("env-file", "", "load THERAPYROOMS_* settings from this .env file")
	mongoURI := fs.String("mongo_uri", "mongodb://localhost:27017", "MongoDB connection URI")
	mongoDB := fs.String("mongo_database", "therapy_rooms", "MongoDB database name")
	action := fs.String("action", "", "override the expiry action: archive or delete")
	tz := fs.String("timezone", "UTC", "IANA time zone expiry dates are interpreted in")
	days := fs.Int("default_expiry_days", 30, "days a new room stays open when its group has no chat expiry date")
	date := fs.String("date", "", "sweep as if today were this date (default: now)")
	notifyEmail := fs.String("notify_email", "", "recipient of lifecycle notices (blank means every active admin)")
	provider := fs.String("chat_provider", "native", "group messaging provider: native or none")
	verbose := fs.BoolP("verbose", "v", false, "development logging")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	fileEnv := map[string]string{}
	if *envFile != "" {
		m, err := godotenv.Read(*envFile)
		if err != nil {
			return options{}, fmt.Errorf("--env-file: %w", err)
		}
		fileEnv = m
	}
	lookup := func(key string) (string, bool) {
		if v := getenv(envPrefix + key); v != "" {
			return v, true
		}
		v, ok := fileEnv[envPrefix+key]
		return v, ok && v != ""
	}

	str := func(flag, key string, dst *string) {
		if fs.Changed(flag) {
			return
		}
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	str("mongo_uri", "MONGO_URI", mongoURI)
	str("mongo_database", "MONGO_DATABASE", mongoDB)
	str("action", "CHAT_EXPIRY_ACTION", action)
	str("timezone", "CHAT_TIMEZONE", tz)
	str("notify_email", "NOTIFY_EMAIL", notifyEmail)
	str("chat_provider", "CHAT_PROVIDER", provider)
	if !fs.Changed("default_expiry_days") {
		if v, ok := lookup("CHAT_DEFAULT_EXPIRY_DAYS"); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return options{}, fmt.Errorf("%sCHAT_DEFAULT_EXPIRY_DAYS: %w", envPrefix, err)
			}
			*days = n
		}
	}

	get := func(key, def string) string {
		if v, ok := lookup(key); ok {
			return v
		}
		return def
	}
	port, err := strconv.Atoi(get("MAIL_SMTP_PORT", "587"))
	if err != nil {
		return options{}, fmt.Errorf("%sMAIL_SMTP_PORT: %w", envPrefix, err)
	}
	notifyTimeout, err := time.ParseDuration(get("NOTIFY_TIMEOUT", "30s"))
	if err != nil {
		return options{}, fmt.Errorf("%sNOTIFY_TIMEOUT: %w", envPrefix, err)
	}

	return options{
		app: bootstrap.AppConfig{
			MongoURI:              *mongoURI,
			MongoDatabase:         *mongoDB,
			MailSMTPHost:          get("MAIL_SMTP_HOST", ""),
			MailSMTPPort:          port,
			MailSMTPUser:          get("MAIL_SMTP_USER", ""),
			MailSMTPPass:          get("MAIL_SMTP_PASS", ""),
			MailFrom:              get("MAIL_FROM", "noreply@therapyrooms.local"),
			MailFromName:          get("MAIL_FROM_NAME", "Therapy Rooms"),
			NotifyEmail:           *notifyEmail,
			SiteName:              get("SITE_NAME", "Therapy Rooms"),
			NotifyTimeout:         notifyTimeout,
			ChatExpiryAction:      *action,
			ChatDefaultExpiryDays: *days,
			ChatTimezone:          *tz,
			ChatProvider:          strings.ToLower(strings.TrimSpace(*provider)),
			ChatEmbedBaseURL:      get("CHAT_EMBED_BASE_URL", ""),
			AuditLogChat:          strings.ToLower(get("AUDIT_LOG_CHAT", "all")),
			AuditLogAdmin:         strings.ToLower(get("AUDIT_LOG_ADMIN", "all")),
		},
		date:      *date,
		actionSet: fs.Changed("action"),
		verbose:   *verbose,
	}, nil
}
