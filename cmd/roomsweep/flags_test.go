package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestParseArgs_Defaults(t *testing.T) {
	opts, err := parseArgs(nil, env(nil))
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	a := opts.app
	if a.MongoURI != "mongodb://localhost:27017" || a.MongoDatabase != "therapy_rooms" {
		t.Errorf("mongo = %q/%q", a.MongoURI, a.MongoDatabase)
	}
	if a.ChatTimezone != "UTC" || a.ChatDefaultExpiryDays != 30 || a.ChatProvider != "native" {
		t.Errorf("chat = %+v", a)
	}
	if a.NotifyTimeout != 30*time.Second || a.MailSMTPPort != 587 {
		t.Errorf("mail = %+v", a)
	}
	if opts.actionSet || opts.date != "" {
		t.Errorf("opts = %+v", opts)
	}
}

func TestParseArgs_FlagsBeatEnv(t *testing.T) {
	e := env(map[string]string{
		"THERAPYROOMS_MONGO_DATABASE":           "from_env",
		"THERAPYROOMS_CHAT_TIMEZONE":            "Europe/London",
		"THERAPYROOMS_CHAT_DEFAULT_EXPIRY_DAYS": "14",
		"THERAPYROOMS_CHAT_EXPIRY_ACTION":       "delete",
	})
	opts, err := parseArgs([]string{"--mongo_database", "from_flag", "--date", "2026-03-01"}, e)
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	a := opts.app
	if a.MongoDatabase != "from_flag" {
		t.Errorf("database = %q, want from_flag", a.MongoDatabase)
	}
	if a.ChatTimezone != "Europe/London" || a.ChatDefaultExpiryDays != 14 {
		t.Errorf("env values not applied: %+v", a)
	}
	if a.ChatExpiryAction != "delete" || opts.actionSet {
		t.Errorf("action = %q set=%v, want env delete without override", a.ChatExpiryAction, opts.actionSet)
	}
	if opts.date != "2026-03-01" {
		t.Errorf("date = %q", opts.date)
	}
}

func TestParseArgs_ActionFlag(t *testing.T) {
	opts, err := parseArgs([]string{"--action", "archive"}, env(map[string]string{"THERAPYROOMS_CHAT_EXPIRY_ACTION": "delete"}))
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if !opts.actionSet || opts.app.ChatExpiryAction != "archive" {
		t.Errorf("opts = %+v", opts)
	}
}

func TestParseArgs_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sweep.env")
	body := "THERAPYROOMS_MONGO_URI=mongodb://db.internal:27017\nTHERAPYROOMS_MAIL_SMTP_HOST=smtp.internal\nTHERAPYROOMS_MONGO_DATABASE=file_db\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	// The real environment wins over the file.
	opts, err := parseArgs([]string{"--env-file", path}, env(map[string]string{"THERAPYROOMS_MONGO_DATABASE": "real_env"}))
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	a := opts.app
	if a.MongoURI != "mongodb://db.internal:27017" || a.MailSMTPHost != "smtp.internal" {
		t.Errorf("file values not applied: %+v", a)
	}
	if a.MongoDatabase != "real_env" {
		t.Errorf("database = %q, want real_env", a.MongoDatabase)
	}
}

func TestParseArgs_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  map[string]string
	}{
		{"unknown flag", []string{"--nope"}, nil},
		{"stray argument", []string{"extra"}, nil},
		{"missing env file", []string{"--env-file", "/does/not/exist.env"}, nil},
		{"bad days", nil, map[string]string{"THERAPYROOMS_CHAT_DEFAULT_EXPIRY_DAYS": "many"}},
		{"bad port", nil, map[string]string{"THERAPYROOMS_MAIL_SMTP_PORT": "smtp"}},
		{"bad timeout", nil, map[string]string{"THERAPYROOMS_NOTIFY_TIMEOUT": "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseArgs(tt.args, env(tt.env)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
