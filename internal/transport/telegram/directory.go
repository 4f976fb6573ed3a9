package telegram

import (
	"context"
	"strconv"

	"keywatch/internal/transport"
)

// Placeholders returned for identifiers the Bot API cannot resolve.
// Lookups never fail; the dispatcher renders with whatever comes back.
const (
	unknownGuild   = "unknown-guild"
	unknownChannel = "unknown-channel"
	unknownUser    = "unknown-user"
)

// GuildName implements transport.Directory over chat titles, with a small
// cache since titles rarely change within a process lifetime.
func (a *Adapter) GuildName(_ context.Context, guildID string) string {
	if guildID == "" {
		return unknownGuild
	}
	if name, ok := a.cachedName(guildID); ok {
		return name
	}

	id, err := strconv.ParseInt(guildID, 10, 64)
	if err != nil {
		return unknownGuild
	}
	chat, err := a.bot.ChatByID(id)
	if err != nil || chat == nil || chat.Title == "" {
		return unknownGuild
	}
	a.cacheName(guildID, chat.Title)
	return chat.Title
}

// ChannelName resolves composite channel IDs. The Bot API exposes no topic
// directory, so topic channels get a deterministic placeholder name.
func (a *Adapter) ChannelName(ctx context.Context, channelID string) string {
	if channelID == "" {
		return unknownChannel
	}
	chatID, thread := SplitChannelID(channelID)
	if thread == 0 {
		return a.GuildName(ctx, chatID)
	}
	return "topic-" + strconv.Itoa(thread)
}

func (a *Adapter) User(_ context.Context, userID string) transport.UserProfile {
	if me := a.bot.Me; me != nil && userID == strconv.FormatInt(me.ID, 10) {
		return transport.UserProfile{Username: senderName(me), IsBot: me.IsBot}
	}

	id, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return transport.UserProfile{Username: unknownUser}
	}
	chat, err := a.bot.ChatByID(id)
	if err != nil || chat == nil {
		return transport.UserProfile{Username: unknownUser}
	}
	name := chat.Username
	if name == "" {
		name = chat.FirstName
	}
	if name == "" {
		name = unknownUser
	}
	return transport.UserProfile{Username: name}
}

func (a *Adapter) cachedName(id string) (string, bool) {
	a.dirMu.Lock()
	defer a.dirMu.Unlock()
	name, ok := a.dirName[id]
	return name, ok
}

func (a *Adapter) cacheName(id, name string) {
	a.dirMu.Lock()
	a.dirName[id] = name
	a.dirMu.Unlock()
}
