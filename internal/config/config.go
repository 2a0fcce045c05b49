package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"meeting-planner/internal/events"
)

// Config keeps runtime settings for the planner.
type Config struct {
	// DatabaseURL is the SQLite file (or ":memory:").
	DatabaseURL string `yaml:"database_url"`
	ListenAddr  string `yaml:"listen"`

	// BrokerURL is a PostgreSQL connection string used for LISTEN/NOTIFY.
	// Empty means an in-process broker.
	BrokerURL     string   `yaml:"broker_url"`
	EventChannels []string `yaml:"event_channels"`
	// ResubscribeDelay is how long the listener waits before subscribing
	// again after losing its subscription.
	ResubscribeDelay time.Duration `yaml:"resubscribe_delay"`

	// TelegramToken enables the notifier when set.
	TelegramToken    string        `yaml:"telegram_token"`
	ReminderInterval time.Duration `yaml:"reminder_interval"`
	ReminderLead     time.Duration `yaml:"reminder_lead"`
	// AgendaTime is the local "HH:MM" at which daily agendas are sent.
	AgendaTime string        `yaml:"agenda_time"`
	JobTimeout time.Duration `yaml:"job_timeout"`

	Timezone string `yaml:"timezone"`
	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when nothing else is given.
func Default() *Config {
	return &Config{
		DatabaseURL:      "meeting_planner.db",
		ListenAddr:       ":8000",
		EventChannels:    []string{events.ChannelUsers, events.ChannelMeetings},
		ResubscribeDelay: 5 * time.Second,
		ReminderInterval: time.Minute,
		ReminderLead:     15 * time.Minute,
		AgendaTime:       "08:00",
		JobTimeout:       30 * time.Second,
		Timezone:         "UTC",
		LogLevel:         "info",
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (skipped when path is empty), then environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s does not exist", path)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.Normalize()

	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := map[string]*string{
		"DATABASE_URL":   &c.DatabaseURL,
		"LISTEN_ADDR":    &c.ListenAddr,
		"BROKER_URL":     &c.BrokerURL,
		"TELEGRAM_TOKEN": &c.TelegramToken,
		"AGENDA_TIME":    &c.AgendaTime,
		"TIMEZONE":       &c.Timezone,
		"LOG_LEVEL":      &c.LogLevel,
	}
	for name, dst := range str {
		if v, ok := lookup(name); ok {
			*dst = v
		}
	}

	dur := map[string]*time.Duration{
		"REMINDER_INTERVAL": &c.ReminderInterval,
		"REMINDER_LEAD":     &c.ReminderLead,
	}
	for name, dst := range dur {
		v, ok := lookup(name)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return fmt.Errorf("%s must be a positive duration, got %q", name, v)
		}
		*dst = d
	}

	if v, ok := lookup("EVENT_CHANNELS"); ok {
		c.EventChannels = splitList(v)
	}
	return nil
}

// Normalize fills in zero values so a partial file still behaves.
func (c *Config) Normalize() {
	def := Default()
	if c.DatabaseURL == "" {
		c.DatabaseURL = def.DatabaseURL
	}
	if c.ListenAddr == "" {
		c.ListenAddr = def.ListenAddr
	}
	if len(c.EventChannels) == 0 {
		c.EventChannels = def.EventChannels
	}
	if c.ResubscribeDelay <= 0 {
		c.ResubscribeDelay = def.ResubscribeDelay
	}
	if c.ReminderInterval <= 0 {
		c.ReminderInterval = def.ReminderInterval
	}
	if c.ReminderLead <= 0 {
		c.ReminderLead = def.ReminderLead
	}
	if strings.TrimSpace(c.AgendaTime) == "" {
		c.AgendaTime = def.AgendaTime
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = def.JobTimeout
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// NotifierEnabled reports whether a Telegram token is configured.
func (c *Config) NotifierEnabled() bool {
	return c.TelegramToken != ""
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
