package config

import (
	"fmt"
	"strings"
	"time"

	"keywatch/internal/logging"
	"keywatch/internal/rules"
)

// Config is the full on-disk configuration.
//
// List-typed watch settings are stored as raw comma-separated strings, the
// way the host exposes them; they are normalized into a rules.Set per event.
type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Logging   logging.Config  `json:"logging"`
	Desktop   DesktopConfig   `json:"desktop"`
	Storage   StorageConfig   `json:"storage"`
	Retention RetentionConfig `json:"retention"`
	Watch     WatchConfig     `json:"watch"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// NotifyChatID receives in-app notices (typically the operator's own
	// chat with the bot).
	NotifyChatID int64 `json:"notify_chat_id"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout"`
}

// DesktopConfig controls the freedesktop notification renderer.
type DesktopConfig struct {
	Enabled bool   `json:"enabled"`
	AppName string `json:"app_name,omitempty"`
	// RatePerSec bounds notification bursts; 0 uses the default.
	RatePerSec int `json:"rate_per_sec,omitempty"`
}

// StorageConfig controls the notification history store.
//
// Driver values: "sqlite", "file", or ""/"none" to disable persistence.
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// RetentionConfig controls the history sweep.
type RetentionConfig struct {
	// MaxAge is a Go duration string; history entries older than this are
	// pruned. Empty disables the sweep.
	MaxAge string `json:"max_age,omitempty"`
	// Schedule is a cron expression; default hourly.
	Schedule string `json:"schedule,omitempty"`
}

// WatchConfig is the raw rule-set configuration.
type WatchConfig struct {
	Keywords string `json:"keywords"`
	Mode     string `json:"mode"`

	AllowScope      string `json:"allow_scope"`
	AllowedGuilds   string `json:"allowed_guilds"`
	AllowedChannels string `json:"allowed_channels"`

	DenyScope      string `json:"deny_scope"`
	DeniedGuilds   string `json:"denied_guilds"`
	DeniedChannels string `json:"denied_channels"`

	IgnoredUsers       string `json:"ignored_users"`
	IgnoreBots         bool   `json:"ignore_bots"`
	IgnoreSelfMentions bool   `json:"ignore_self_mentions"`
}

// Rules normalizes the raw watch settings into a typed rule set.
// Absent or malformed list fields degrade to empty sets; this never fails.
func (w WatchConfig) Rules() rules.Set {
	return rules.Set{
		Keywords:           rules.ParseKeywords(w.Keywords),
		Mode:               rules.ParseMode(w.Mode),
		AllowScope:         rules.ParseScope(w.AllowScope),
		AllowedGuilds:      rules.ParseIDList(w.AllowedGuilds),
		AllowedChannels:    rules.ParseIDList(w.AllowedChannels),
		DenyScope:          rules.ParseScope(w.DenyScope),
		DeniedGuilds:       rules.ParseIDList(w.DeniedGuilds),
		DeniedChannels:     rules.ParseIDList(w.DeniedChannels),
		IgnoredUsers:       rules.ParseIDList(w.IgnoredUsers),
		IgnoreBots:         w.IgnoreBots,
		IgnoreSelfMentions: w.IgnoreSelfMentions,
	}
}

// Validate rejects configurations the process cannot start with. Watch
// settings are deliberately not validated here: a bad rule value degrades
// at parse time instead of blocking a reload.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return fmt.Errorf("telegram.token is required")
	}
	if _, err := ParseDurationField("telegram.poll_timeout", c.Telegram.PollTimeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("retention.max_age", c.Retention.MaxAge); err != nil {
		return err
	}
	return nil
}

func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}
