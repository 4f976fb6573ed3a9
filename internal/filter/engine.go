// Package filter implements the message matching engine.
//
// Evaluate is a pure function: one message event plus one rule set in, one
// result out. It never touches shared state, so evaluating the same event
// twice against the same rule set yields the same result.
package filter

import (
	"strings"

	"keywatch/internal/rules"
	"keywatch/internal/transport"
)

// Reason names why an event was suppressed. Useful for logs and tests;
// callers must not branch on it beyond reporting.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonDirectMessage Reason = "direct_message"
	ReasonPushReplay    Reason = "push_replay"
	ReasonSelfMention   Reason = "self_mention"
	ReasonOwnMessage    Reason = "own_message"
	ReasonViewedChannel Reason = "viewed_channel"
	ReasonAllowList     Reason = "allow_list"
	ReasonDenyList      Reason = "deny_list"
	ReasonIgnoredUser   Reason = "ignored_user"
	ReasonBotAuthor     Reason = "bot_author"
	ReasonNoKeyword     Reason = "no_keyword"
)

// Result is the outcome of evaluating one event.
//
// Matched carries the first keyword (in configured order) found in the
// content plus a snapshot of the event for notification rendering.
// Suppressed results carry the reason instead.
type Result struct {
	Matched bool
	Keyword string
	Reason  Reason
	Event   transport.MessageEvent
}

func suppressed(r Reason) Result { return Result{Reason: r} }

// combinator folds the guild-hit and channel-hit bits of a scoped list
// into a single verdict.
type combinator func(guildHit, channelHit bool) bool

// Allow lists combine the joint scope disjunctively, deny lists
// conjunctively. The asymmetry is historical observed behavior and is kept
// deliberately; see DESIGN.md.
var (
	allowCombine = map[rules.Scope]combinator{
		rules.ScopeGuilds:            func(g, _ bool) bool { return g },
		rules.ScopeChannels:          func(_, c bool) bool { return c },
		rules.ScopeGuildsAndChannels: func(g, c bool) bool { return g || c },
	}
	denyCombine = map[rules.Scope]combinator{
		rules.ScopeGuilds:            func(g, _ bool) bool { return g },
		rules.ScopeChannels:          func(_, c bool) bool { return c },
		rules.ScopeGuildsAndChannels: func(g, c bool) bool { return g && c },
	}
)

// Evaluate decides whether ev should trigger a notification under rs.
//
// The suppression checks run in a fixed order; the first one that fires
// short-circuits the rest. Identifier comparisons are exact, case-sensitive
// string equality.
func Evaluate(ev transport.MessageEvent, rs rules.Set, currentUserID, viewedChannelID string) Result {
	// Direct messages carry no guild and are never matched.
	if ev.GuildID == "" {
		return suppressed(ReasonDirectMessage)
	}
	// Background replays were already surfaced by the platform's push path.
	if ev.PushReplay {
		return suppressed(ReasonPushReplay)
	}
	// The platform's own mention highlight already drew attention.
	if rs.IgnoreSelfMentions && ev.Mentioned(currentUserID) {
		return suppressed(ReasonSelfMention)
	}
	if currentUserID != "" && ev.Author.ID == currentUserID {
		return suppressed(ReasonOwnMessage)
	}
	if viewedChannelID != "" && ev.ChannelID == viewedChannelID {
		return suppressed(ReasonViewedChannel)
	}

	if combine, ok := allowCombine[rs.AllowScope]; ok {
		pass := combine(rs.AllowedGuilds.Has(ev.GuildID), rs.AllowedChannels.Has(ev.ChannelID))
		if !pass {
			return suppressed(ReasonAllowList)
		}
	}
	if combine, ok := denyCombine[rs.DenyScope]; ok {
		if combine(rs.DeniedGuilds.Has(ev.GuildID), rs.DeniedChannels.Has(ev.ChannelID)) {
			return suppressed(ReasonDenyList)
		}
	}

	if rs.IgnoredUsers.Has(ev.Author.ID) {
		return suppressed(ReasonIgnoredUser)
	}
	if rs.IgnoreBots && ev.Author.IsBot {
		return suppressed(ReasonBotAuthor)
	}

	if kw := firstKeyword(ev.Content, rs.Keywords); kw != "" {
		return Result{Matched: true, Keyword: kw, Event: ev}
	}
	return suppressed(ReasonNoKeyword)
}

// firstKeyword returns the first keyword (in list order) contained in
// content, case-insensitively, or "". Blank keywords are skipped so an
// empty entry can never trivially match every message.
func firstKeyword(content string, keywords []string) string {
	if content == "" || len(keywords) == 0 {
		return ""
	}
	lc := strings.ToLower(content)
	for _, kw := range keywords {
		kw = strings.ToLower(kw)
		if kw == "" {
			continue
		}
		if strings.Contains(lc, kw) {
			return kw
		}
	}
	return ""
}
