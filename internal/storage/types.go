package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures the notification history store.
//
// Driver values:
//   - "sqlite": SQLite database file (goose-migrated)
//   - "file": dependency-free jsonl append log
//
// If Driver is empty or "none", persistence is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Record is one fired notification. Keep it compact and schema-stable.
type Record struct {
	At        time.Time `json:"at"`
	Keyword   string    `json:"keyword"`
	GuildID   string    `json:"guild_id"`
	ChannelID string    `json:"channel_id"`
	MessageID string    `json:"message_id"`
	AuthorID  string    `json:"author_id"`
	AuthorTag string    `json:"author_tag,omitempty"`
	Content   string    `json:"content,omitempty"`
	Mode      string    `json:"mode,omitempty"`
}
