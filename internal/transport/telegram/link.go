package telegram

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// ChannelID builds the composite channel identifier for a chat and forum
// topic thread. Thread 0 (no topic) maps to the chat itself.
func ChannelID(chatID int64, threadID int) string {
	if threadID == 0 {
		return strconv.FormatInt(chatID, 10)
	}
	return strconv.FormatInt(chatID, 10) + "/" + strconv.Itoa(threadID)
}

// SplitChannelID is the inverse of ChannelID. threadID is 0 when the
// identifier has no topic part or cannot be parsed.
func SplitChannelID(channelID string) (chatID string, threadID int) {
	chatID, rest, ok := strings.Cut(channelID, "/")
	if !ok {
		return channelID, 0
	}
	threadID, _ = strconv.Atoi(rest)
	return chatID, threadID
}

// MessageLink builds a t.me deep link to a message. Private chat links use
// the internal chat ID, which is the numeric ID without the -100 prefix.
func MessageLink(guildID, channelID, messageID string) string {
	internal := strings.TrimPrefix(guildID, "-100")
	internal = strings.TrimPrefix(internal, "-")
	_, thread := SplitChannelID(channelID)
	if thread > 0 {
		return fmt.Sprintf("https://t.me/c/%s/%d/%s", internal, thread, messageID)
	}
	return fmt.Sprintf("https://t.me/c/%s/%s", internal, messageID)
}

// Navigator implements transport.Navigator by opening the message's deep
// link with the desktop's URL handler, which focuses the chat client.
type Navigator struct {
	log zerolog.Logger

	// open is swappable for tests; defaults to xdg-open.
	open func(ctx context.Context, url string) error
}

func NewNavigator(log zerolog.Logger) *Navigator {
	return &Navigator{log: log, open: xdgOpen}
}

func (n *Navigator) Navigate(ctx context.Context, guildID, channelID, messageID string) error {
	url := MessageLink(guildID, channelID, messageID)
	n.log.Debug().Str("url", url).Msg("navigating")
	return n.open(ctx, url)
}

func xdgOpen(ctx context.Context, url string) error {
	return exec.CommandContext(ctx, "xdg-open", url).Start()
}
