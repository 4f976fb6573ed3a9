// Package watcher wires the filter engine to the notification dispatcher.
package watcher

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"keywatch/internal/config"
	"keywatch/internal/eventbus"
	"keywatch/internal/filter"
	"keywatch/internal/notify"
	"keywatch/internal/rules"
	"keywatch/internal/storage"
	"keywatch/internal/transport"
)

// Watcher handles one message event at a time: snapshot the rule set from
// the live config, evaluate, and dispatch on match. It holds no per-event
// state of its own.
type Watcher struct {
	cfg      *config.Manager
	disp     *notify.Dispatcher
	store    storage.Store // nil when persistence is disabled
	bus      eventbus.Bus
	identity transport.IdentityProvider
	viewed   transport.ViewedChannelProvider
	log      zerolog.Logger
}

func New(
	cfg *config.Manager,
	disp *notify.Dispatcher,
	store storage.Store,
	bus eventbus.Bus,
	identity transport.IdentityProvider,
	viewed transport.ViewedChannelProvider,
	log zerolog.Logger,
) *Watcher {
	return &Watcher{
		cfg:      cfg,
		disp:     disp,
		store:    store,
		bus:      bus,
		identity: identity,
		viewed:   viewed,
		log:      log,
	}
}

// Run consumes events from src until ctx is done. Events are handled
// strictly one at a time, in delivery order.
func (w *Watcher) Run(ctx context.Context, src transport.EventSource) error {
	ch := make(chan transport.MessageEvent, 64)
	if err := src.Start(ctx, ch); err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = src.Stop(sctx)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			w.HandleMessage(ctx, ev)
		}
	}
}

// HandleMessage evaluates one event against the current rule set and fires
// at most one notification. It never returns an error: every failure mode
// degrades to "no notification fires".
func (w *Watcher) HandleMessage(ctx context.Context, ev transport.MessageEvent) {
	cfg := w.cfg.Get()
	if cfg == nil {
		return
	}
	rs := cfg.Watch.Rules()

	var selfID, viewedID string
	if w.identity != nil {
		selfID = w.identity.CurrentUserID()
	}
	if w.viewed != nil {
		viewedID = w.viewed.ViewedChannelID()
	}

	res := filter.Evaluate(ev, rs, selfID, viewedID)
	if !res.Matched {
		w.log.Debug().
			Str("reason", string(res.Reason)).
			Str("guild", ev.GuildID).Str("channel", ev.ChannelID).Str("message", ev.MessageID).
			Msg("message suppressed")
		w.publish(eventbus.TypeMatchSuppressed, map[string]string{
			"reason": string(res.Reason), "message_id": ev.MessageID,
		})
		return
	}

	w.log.Info().
		Str("keyword", res.Keyword).
		Str("guild", ev.GuildID).Str("channel", ev.ChannelID).Str("message", ev.MessageID).
		Str("author", ev.Author.ID).
		Msg("keyword matched")

	w.disp.Dispatch(ctx, res, rs)
	w.record(ctx, res, rs)
	w.publish(eventbus.TypeMatchFired, map[string]string{
		"keyword": res.Keyword, "message_id": ev.MessageID,
	})
}

func (w *Watcher) record(ctx context.Context, res filter.Result, rs rules.Set) {
	if w.store == nil {
		return
	}
	ev := res.Event
	err := w.store.AppendNotification(ctx, storage.Record{
		At:        time.Now(),
		Keyword:   res.Keyword,
		GuildID:   ev.GuildID,
		ChannelID: ev.ChannelID,
		MessageID: ev.MessageID,
		AuthorID:  ev.Author.ID,
		AuthorTag: notify.DisplayTag(ev.Author),
		Content:   ev.Content,
		Mode:      rs.Mode.String(),
	})
	if err != nil {
		w.log.Warn().Err(err).Msg("history append failed")
	}
}

func (w *Watcher) publish(typ string, data map[string]string) {
	if w.bus == nil {
		return
	}
	w.bus.Publish(eventbus.Event{Type: typ, Time: time.Now(), Data: data})
}
