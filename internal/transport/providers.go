package transport

// FixedIdentity is an IdentityProvider with a constant user ID.
type FixedIdentity string

func (f FixedIdentity) CurrentUserID() string { return string(f) }

// FixedViewedChannel is a ViewedChannelProvider with a constant channel,
// for hosts without a focus concept ("" means nothing is viewed).
type FixedViewedChannel string

func (f FixedViewedChannel) ViewedChannelID() string { return string(f) }
