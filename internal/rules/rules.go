// Package rules holds the typed rule set the filter engine evaluates.
//
// A Set is rebuilt from the configuration store for every incoming event and
// is immutable for the duration of one evaluation.
package rules

import "strings"

// Mode selects which notification channels fire on a match.
type Mode int

const (
	ModeBoth Mode = iota
	ModeInApp
	ModeDesktop
)

func (m Mode) String() string {
	switch m {
	case ModeInApp:
		return "inapp"
	case ModeDesktop:
		return "desktop"
	default:
		return "both"
	}
}

// InApp reports whether the in-app notice channel is enabled.
func (m Mode) InApp() bool { return m == ModeInApp || m == ModeBoth }

// Desktop reports whether the desktop notification channel is enabled.
func (m Mode) Desktop() bool { return m == ModeDesktop || m == ModeBoth }

// ParseMode maps a config string to a Mode. Unknown values degrade to
// ModeBoth rather than erroring; a bad setting must not silence the watcher.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inapp", "in-app", "in_app":
		return ModeInApp
	case "desktop":
		return ModeDesktop
	default:
		return ModeBoth
	}
}

// Scope selects which ID sets an allow or deny list consults.
type Scope int

const (
	ScopeNone Scope = iota
	ScopeGuilds
	ScopeChannels
	ScopeGuildsAndChannels
)

func (s Scope) String() string {
	switch s {
	case ScopeGuilds:
		return "guilds"
	case ScopeChannels:
		return "channels"
	case ScopeGuildsAndChannels:
		return "guilds_and_channels"
	default:
		return "none"
	}
}

// ParseScope maps a config string to a Scope. Unknown values degrade to
// ScopeNone (list disabled).
func ParseScope(s string) Scope {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "guilds", "guild":
		return ScopeGuilds
	case "channels", "channel":
		return ScopeChannels
	case "guilds_and_channels", "both":
		return ScopeGuildsAndChannels
	default:
		return ScopeNone
	}
}

// IDSet is a set of opaque string identifiers.
type IDSet map[string]struct{}

// Has reports membership. The empty string is never a member, so an absent
// incoming field can never accidentally satisfy a list entry.
func (s IDSet) Has(id string) bool {
	if id == "" {
		return false
	}
	_, ok := s[id]
	return ok
}

// ParseIDList splits comma-separated configuration text into a normalized
// set of trimmed, non-empty identifiers. Empty input yields an empty set.
func ParseIDList(raw string) IDSet {
	out := IDSet{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out[part] = struct{}{}
	}
	return out
}

// ParseKeywords splits comma-separated keyword text into an ordered list of
// trimmed, lowercased, non-empty keywords. Order is preserved: the first
// keyword in the list that matches a message wins.
func ParseKeywords(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

// Set is the complete rule set for one evaluation.
type Set struct {
	Keywords []string
	Mode     Mode

	AllowScope      Scope
	AllowedGuilds   IDSet
	AllowedChannels IDSet

	DenyScope      Scope
	DeniedGuilds   IDSet
	DeniedChannels IDSet

	IgnoredUsers       IDSet
	IgnoreBots         bool
	IgnoreSelfMentions bool
}
