// Package notify renders notification side effects for matched messages.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"keywatch/internal/eventbus"
	"keywatch/internal/filter"
	"keywatch/internal/rules"
	"keywatch/internal/transport"
)

// Dispatcher fans a match out to the configured notification channels.
//
// The two channels are independent: a failure in one is logged and never
// blocks the other, and no error propagates to the event loop.
type Dispatcher struct {
	notices transport.NoticeRenderer
	desktop transport.DesktopRenderer
	dir     transport.Directory
	nav     transport.Navigator
	bus     eventbus.Bus
	log     zerolog.Logger
}

func NewDispatcher(
	notices transport.NoticeRenderer,
	desktop transport.DesktopRenderer,
	dir transport.Directory,
	nav transport.Navigator,
	bus eventbus.Bus,
	log zerolog.Logger,
) *Dispatcher {
	return &Dispatcher{notices: notices, desktop: desktop, dir: dir, nav: nav, bus: bus, log: log}
}

// Dispatch renders zero, one, or two notifications for res per rs.Mode.
// res must be a matched result.
func (d *Dispatcher) Dispatch(ctx context.Context, res filter.Result, rs rules.Set) {
	if !res.Matched {
		return
	}
	ev := res.Event

	if rs.Mode.InApp() && d.notices != nil {
		d.showNotice(ctx, res.Keyword, ev)
	}
	if rs.Mode.Desktop() && d.desktop != nil {
		d.showDesktop(ctx, ev)
	}
}

func (d *Dispatcher) showNotice(ctx context.Context, keyword string, ev transport.MessageEvent) {
	text := fmt.Sprintf("%s mentioned keyword %q", DisplayTag(ev.Author), keyword)
	_, err := d.notices.ShowNotice(ctx, text, "Jump", func(cctx context.Context, h transport.NoticeHandle) {
		d.navigate(cctx, ev)
		if h != nil {
			if err := h.Dismiss(cctx); err != nil {
				d.log.Debug().Err(err).Msg("notice dismiss failed")
			}
		}
	})
	if err != nil {
		d.failed(ctx, "inapp", ev, err)
	}
}

func (d *Dispatcher) showDesktop(ctx context.Context, ev transport.MessageEvent) {
	// Directory lookups return placeholders for unknown IDs, so the
	// notification always renders with whatever names are available.
	guild := d.dir.GuildName(ctx, ev.GuildID)
	channel := d.dir.ChannelName(ctx, ev.ChannelID)

	n := transport.DesktopNotification{
		Title:   fmt.Sprintf("#%s (%s)", channel, guild),
		Body:    ev.Content,
		IconRef: ev.Author.AvatarRef,
	}
	err := d.desktop.ShowDesktop(ctx, n, func(cctx context.Context) {
		d.navigate(cctx, ev)
	})
	if err != nil {
		d.failed(ctx, "desktop", ev, err)
	}
}

func (d *Dispatcher) navigate(ctx context.Context, ev transport.MessageEvent) {
	if d.nav == nil {
		return
	}
	if err := d.nav.Navigate(ctx, ev.GuildID, ev.ChannelID, ev.MessageID); err != nil {
		d.log.Warn().Err(err).
			Str("guild", ev.GuildID).Str("channel", ev.ChannelID).Str("message", ev.MessageID).
			Msg("navigation request failed")
	}
}

func (d *Dispatcher) failed(_ context.Context, channel string, ev transport.MessageEvent, err error) {
	d.log.Warn().Err(err).Str("channel", channel).Str("message", ev.MessageID).
		Msg("notification render failed")
	if d.bus != nil {
		d.bus.Publish(eventbus.Event{
			Type: eventbus.TypeNotifyFailed,
			Time: time.Now(),
			Data: map[string]string{"channel": channel, "message_id": ev.MessageID, "err": err.Error()},
		})
	}
}

// DisplayTag renders an author for notice text: the username, plus the
// legacy discriminator suffix when the account still has one.
func DisplayTag(a transport.Author) string {
	if a.Discriminator != "" && a.Discriminator != "0" && a.Discriminator != "0000" {
		return a.Username + "#" + a.Discriminator
	}
	return a.Username
}
