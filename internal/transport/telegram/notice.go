package telegram

import (
	"context"
	"strconv"
	"strings"
	"sync"

	tele "gopkg.in/telebot.v4"

	"keywatch/internal/transport"
)

const noticeUnique = "ntc"

// noticeRegistry routes callback presses back to the notice that created
// the button. Entries live until the action fires or the notice is
// dismissed.
type noticeRegistry struct {
	mu   sync.Mutex
	next int
	byID map[string]*notice
}

type notice struct {
	onAction func(ctx context.Context, h transport.NoticeHandle)
	handle   *noticeHandle
}

func (r *noticeRegistry) add(n *notice) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byID == nil {
		r.byID = map[string]*notice{}
	}
	r.next++
	id := strconv.Itoa(r.next)
	r.byID[id] = n
	return id
}

func (r *noticeRegistry) take(id string) *notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.byID[id]
	delete(r.byID, id)
	return n
}

func (r *noticeRegistry) drop(id string) {
	r.mu.Lock()
	delete(r.byID, id)
	r.mu.Unlock()
}

// noticeHandle dismisses a rendered notice by deleting its message.
type noticeHandle struct {
	a         *Adapter
	id        string
	chatID    int64
	messageID int
}

func (h *noticeHandle) Dismiss(context.Context) error {
	h.a.notices.drop(h.id)
	return h.a.bot.Delete(tele.StoredMessage{
		MessageID: strconv.Itoa(h.messageID),
		ChatID:    h.chatID,
	})
}

// ShowNotice implements transport.NoticeRenderer: the "in-app" surface of
// this backend is a message to the configured notify chat, with the action
// rendered as an inline button.
func (a *Adapter) ShowNotice(_ context.Context, text, actionLabel string, onAction func(ctx context.Context, h transport.NoticeHandle)) (transport.NoticeHandle, error) {
	n := &notice{onAction: onAction}
	id := a.notices.add(n)

	rm := &tele.ReplyMarkup{}
	btn := rm.Data(actionLabel, noticeUnique, id)
	rm.Inline(rm.Row(btn))

	msg, err := a.bot.Send(tele.ChatID(a.cfg.NotifyChatID), text, rm)
	if err != nil {
		a.notices.drop(id)
		return nil, err
	}

	h := &noticeHandle{a: a, id: id, chatID: msg.Chat.ID, messageID: msg.ID}
	n.handle = h
	return h, nil
}

func (a *Adapter) handleCallback(c tele.Context) error {
	cb := c.Callback()
	if cb == nil {
		return nil
	}
	// Data buttons arrive as "\f<unique>|<payload>".
	data := strings.TrimPrefix(cb.Data, "\f")
	unique, payload, _ := strings.Cut(data, "|")
	if unique != noticeUnique {
		return nil
	}

	n := a.notices.take(payload)
	_ = c.Respond(&tele.CallbackResponse{})
	if n == nil || n.onAction == nil {
		return nil
	}
	n.onAction(context.Background(), n.handle)
	return nil
}
