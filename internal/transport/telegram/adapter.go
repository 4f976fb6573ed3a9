// Package telegram backs the watcher with the Telegram Bot API.
//
// Mapping onto the core's model: a supergroup chat is a guild, a forum
// topic inside it is a channel. Channel IDs are composite ("<chat>" or
// "<chat>/<thread>") so they stay unique across chats.
package telegram

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	tele "gopkg.in/telebot.v4"

	"keywatch/internal/transport"
)

type Config struct {
	Token string
	// NotifyChatID receives in-app notices.
	NotifyChatID int64
	PollTimeout  time.Duration
}

// Adapter implements transport.EventSource, transport.Directory,
// transport.NoticeRenderer, and transport.IdentityProvider over one bot.
type Adapter struct {
	cfg Config
	log zerolog.Logger
	bot *tele.Bot

	out atomic.Value // stores (chan<- transport.MessageEvent)

	runMu   sync.Mutex
	running bool

	// dropped counts events lost because the consumer lagged behind the
	// poll loop; logged on Stop instead of per event.
	dropped uint64

	notices noticeRegistry
	dirMu   sync.Mutex
	dirName map[string]string // chat id -> title cache
}

func New(cfg Config, log zerolog.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}

	a := &Adapter{cfg: cfg, log: log, bot: b, dirName: map[string]string{}}
	// Initialize atomic.Value with a stable dynamic type.
	var nilOut chan<- transport.MessageEvent
	a.out.Store(nilOut)
	a.registerHandlers()
	return a, nil
}

// CurrentUserID implements transport.IdentityProvider: the bot account is
// the watching identity.
func (a *Adapter) CurrentUserID() string {
	if a.bot.Me == nil {
		return ""
	}
	return strconv.FormatInt(a.bot.Me.ID, 10)
}

func (a *Adapter) registerHandlers() {
	a.bot.Handle(tele.OnText, func(c tele.Context) error {
		m := c.Message()
		if m == nil || m.Sender == nil || m.Chat == nil {
			return nil
		}
		a.deliver(a.eventFromMessage(m))
		return nil
	})

	a.bot.Handle(tele.OnCallback, func(c tele.Context) error {
		return a.handleCallback(c)
	})
}

func (a *Adapter) eventFromMessage(m *tele.Message) transport.MessageEvent {
	guildID := ""
	if m.Chat.Type == tele.ChatSuperGroup || m.Chat.Type == tele.ChatGroup {
		guildID = strconv.FormatInt(m.Chat.ID, 10)
	}

	ev := transport.MessageEvent{
		MessageID: strconv.Itoa(m.ID),
		ChannelID: ChannelID(m.Chat.ID, m.ThreadID),
		GuildID:   guildID,
		Author: transport.Author{
			ID:       strconv.FormatInt(m.Sender.ID, 10),
			Username: senderName(m.Sender),
			IsBot:    m.Sender.IsBot,
		},
		Content: m.Text,
	}

	for _, ent := range m.Entities {
		switch ent.Type {
		case tele.EntityTMention:
			if ent.User != nil {
				ev.Mentions = append(ev.Mentions, strconv.FormatInt(ent.User.ID, 10))
			}
		case tele.EntityMention:
			// Plain @username mentions carry no user object; resolve the
			// one identity we know, the bot itself.
			if me := a.bot.Me; me != nil && me.Username != "" {
				tag := entityText(m.Text, ent)
				if strings.EqualFold(tag, "@"+me.Username) {
					ev.Mentions = append(ev.Mentions, strconv.FormatInt(me.ID, 10))
				}
			}
		}
	}
	return ev
}

func (a *Adapter) deliver(ev transport.MessageEvent) {
	v := a.out.Load()
	out, _ := v.(chan<- transport.MessageEvent)
	if out == nil {
		return
	}
	select {
	case out <- ev:
	default:
		atomic.AddUint64(&a.dropped, 1)
	}
}

func (a *Adapter) Start(ctx context.Context, out chan<- transport.MessageEvent) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a.runMu.Lock()
	if a.running {
		a.runMu.Unlock()
		return nil
	}
	a.running = true
	a.out.Store(out)
	a.runMu.Unlock()

	go a.bot.Start()
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.Stop(sctx)
	}()
	a.log.Info().Str("comp", "telegram").Msg("event source started")
	return nil
}

func (a *Adapter) Stop(context.Context) error {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	if !a.running {
		return nil
	}
	a.running = false
	var nilOut chan<- transport.MessageEvent
	a.out.Store(nilOut)
	a.bot.Stop()
	if n := atomic.LoadUint64(&a.dropped); n > 0 {
		a.log.Warn().Uint64("dropped", n).Msg("events dropped by slow consumer")
	}
	return nil
}

// senderName prefers the unique @username and falls back to the first name.
func senderName(u *tele.User) string {
	if u.Username != "" {
		return u.Username
	}
	return u.FirstName
}

// entityText extracts the substring an entity covers. Offsets are in
// UTF-16 code units per the Bot API; plain-ASCII mentions are unaffected.
func entityText(text string, ent tele.MessageEntity) string {
	runes := []rune(text)
	if ent.Offset < 0 || ent.Offset+ent.Length > len(runes) {
		return ""
	}
	return string(runes[ent.Offset : ent.Offset+ent.Length])
}
