package transport

import "context"

// Author identifies the sender of a message event.
//
// Discriminator is empty (or "0") for accounts the platform migrated to
// unique usernames; renderers only append it when it is still meaningful.
type Author struct {
	ID            string
	Username      string
	Discriminator string
	AvatarRef     string
	IsBot         bool
}

// MessageEvent is a single incoming chat message as delivered by a backend.
//
// All identifiers are opaque strings owned by the backend. GuildID is empty
// for direct messages. PushReplay marks mobile background replays that were
// already surfaced by the platform's native push path.
type MessageEvent struct {
	MessageID  string
	ChannelID  string
	GuildID    string
	Author     Author
	Content    string
	Mentions   []string
	PushReplay bool
}

// Mentioned reports whether userID appears in the event's explicit mentions.
func (e MessageEvent) Mentioned(userID string) bool {
	if userID == "" {
		return false
	}
	for _, id := range e.Mentions {
		if id == userID {
			return true
		}
	}
	return false
}

// EventSource delivers message events to a single consumer channel.
//
// Contract:
//   - Start registers the output channel and begins delivery.
//   - Delivery is serialized; the consumer fully handles one event before
//     the next is considered.
//   - Stop halts delivery; it must be safe to call after a failed Start.
type EventSource interface {
	Start(ctx context.Context, out chan<- MessageEvent) error
	Stop(ctx context.Context) error
}

// UserProfile is the directory view of an account.
type UserProfile struct {
	Username  string
	AvatarRef string
	IsBot     bool
}

// Directory resolves opaque identifiers to display data.
//
// Implementations return placeholder values for identifiers they cannot
// resolve; they never fail a lookup with an error.
type Directory interface {
	GuildName(ctx context.Context, guildID string) string
	ChannelName(ctx context.Context, channelID string) string
	User(ctx context.Context, userID string) UserProfile
}

// NoticeHandle refers to a rendered in-app notice so it can be dismissed.
type NoticeHandle interface {
	Dismiss(ctx context.Context) error
}

// NoticeRenderer displays a transient in-app notice with one action.
// The action callback runs when the user activates the attached action and
// receives the notice's own handle so it can dismiss it.
type NoticeRenderer interface {
	ShowNotice(ctx context.Context, text, actionLabel string, onAction func(ctx context.Context, h NoticeHandle)) (NoticeHandle, error)
}

// DesktopNotification is the payload for an OS-level notification.
type DesktopNotification struct {
	Title   string
	Body    string
	IconRef string
}

// DesktopRenderer displays a platform notification outside the client
// window. onClick runs when the user activates the notification.
type DesktopRenderer interface {
	ShowDesktop(ctx context.Context, n DesktopNotification, onClick func(ctx context.Context)) error
}

// Navigator moves the UI focus to a specific message location.
// The target is forwarded verbatim; it is not validated here.
type Navigator interface {
	Navigate(ctx context.Context, guildID, channelID, messageID string) error
}

// IdentityProvider returns the active account's identifier.
type IdentityProvider interface {
	CurrentUserID() string
}

// ViewedChannelProvider returns the channel currently displayed in the UI,
// or "" when no channel is focused.
type ViewedChannelProvider interface {
	ViewedChannelID() string
}
