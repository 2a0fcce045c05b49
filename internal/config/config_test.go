package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

var envNames = []string{
	"DATABASE_URL", "LISTEN_ADDR", "BROKER_URL", "TELEGRAM_TOKEN", "REMINDER_INTERVAL",
	"REMINDER_LEAD", "AGENDA_TIME", "TIMEZONE", "LOG_LEVEL", "EVENT_CHANNELS",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range envNames {
		t.Setenv(name, "")
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("expected defaults, got %+v", cfg)
	}
	if cfg.NotifierEnabled() {
		t.Error("notifier must be off without a token")
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
database_url: /var/lib/planner/planner.db
listen: ":9000"
reminder_lead: 30m
agenda_time: "07:30"
timezone: Europe/Berlin
event_channels: [user-events]
`)
	t.Setenv("LISTEN_ADDR", "127.0.0.1:8080")
	t.Setenv("REMINDER_INTERVAL", "2m")
	t.Setenv("EVENT_CHANNELS", "user-events, meeting-events,")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DatabaseURL != "/var/lib/planner/planner.db" {
		t.Errorf("database_url from file not applied: %q", cfg.DatabaseURL)
	}
	if cfg.ListenAddr != "127.0.0.1:8080" {
		t.Errorf("env must win over the file, got %q", cfg.ListenAddr)
	}
	if cfg.ReminderLead != 30*time.Minute || cfg.ReminderInterval != 2*time.Minute {
		t.Errorf("unexpected durations lead=%v interval=%v", cfg.ReminderLead, cfg.ReminderInterval)
	}
	if cfg.AgendaTime != "07:30" {
		t.Errorf("unexpected agenda time %q", cfg.AgendaTime)
	}
	if want := []string{"user-events", "meeting-events"}; !reflect.DeepEqual(cfg.EventChannels, want) {
		t.Errorf("unexpected channels %v", cfg.EventChannels)
	}
	loc, err := cfg.Location()
	if err != nil || loc.String() != "Europe/Berlin" {
		t.Errorf("unexpected location %v, %v", loc, err)
	}
	if cfg.JobTimeout != Default().JobTimeout {
		t.Errorf("missing keys must keep defaults, got %v", cfg.JobTimeout)
	}
}

func TestLoadErrors(t *testing.T) {
	for name, tc := range map[string]struct {
		file string
		env  map[string]string
	}{
		"missing file":     {file: "-"},
		"broken yaml":      {file: "listen: [unterminated"},
		"bad duration":     {env: map[string]string{"REMINDER_LEAD": "soon"}},
		"negative":         {env: map[string]string{"REMINDER_INTERVAL": "-1m"}},
		"unknown timezone": {env: map[string]string{"TIMEZONE": "Mars/Olympus"}},
	} {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			path := ""
			switch tc.file {
			case "":
			case "-":
				path = filepath.Join(t.TempDir(), "absent.yaml")
			default:
				path = writeFile(t, tc.file)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
