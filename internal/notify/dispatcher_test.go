package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keywatch/internal/filter"
	"keywatch/internal/rules"
	"keywatch/internal/transport"
)

type stubHandle struct{ dismissed int }

func (h *stubHandle) Dismiss(context.Context) error {
	h.dismissed++
	return nil
}

type stubNotices struct {
	calls  int
	text   string
	label  string
	action func(ctx context.Context, h transport.NoticeHandle)
	handle *stubHandle
	err    error
}

func (s *stubNotices) ShowNotice(_ context.Context, text, label string, onAction func(ctx context.Context, h transport.NoticeHandle)) (transport.NoticeHandle, error) {
	s.calls++
	s.text, s.label, s.action = text, label, onAction
	if s.err != nil {
		return nil, s.err
	}
	s.handle = &stubHandle{}
	return s.handle, nil
}

type stubDesktop struct {
	calls int
	last  transport.DesktopNotification
	click func(ctx context.Context)
	err   error
}

func (s *stubDesktop) ShowDesktop(_ context.Context, n transport.DesktopNotification, onClick func(ctx context.Context)) error {
	s.calls++
	s.last, s.click = n, onClick
	return s.err
}

type stubDirectory struct{}

func (stubDirectory) GuildName(_ context.Context, id string) string {
	if id == "G" {
		return "Work"
	}
	return "unknown-guild"
}

func (stubDirectory) ChannelName(_ context.Context, id string) string {
	if id == "C" {
		return "general"
	}
	return "unknown-channel"
}

func (stubDirectory) User(context.Context, string) transport.UserProfile {
	return transport.UserProfile{Username: "unknown-user"}
}

type navCall struct{ guild, channel, message string }

type stubNav struct {
	calls []navCall
	err   error
}

func (s *stubNav) Navigate(_ context.Context, guildID, channelID, messageID string) error {
	s.calls = append(s.calls, navCall{guildID, channelID, messageID})
	return s.err
}

func matched() filter.Result {
	return filter.Result{
		Matched: true,
		Keyword: "urgent",
		Event: transport.MessageEvent{
			MessageID: "M1",
			ChannelID: "C",
			GuildID:   "G",
			Author:    transport.Author{ID: "U2", Username: "alice", AvatarRef: "https://cdn/avatar.png"},
			Content:   "this is urgent",
		},
	}
}

func newTestDispatcher(n *stubNotices, d *stubDesktop, nav *stubNav) *Dispatcher {
	return NewDispatcher(n, d, stubDirectory{}, nav, nil, zerolog.Nop())
}

func TestDispatchModeMatrix(t *testing.T) {
	t.Parallel()
	tests := []struct {
		mode    rules.Mode
		notices int
		desktop int
	}{
		{rules.ModeInApp, 1, 0},
		{rules.ModeDesktop, 0, 1},
		{rules.ModeBoth, 1, 1},
	}
	for _, tt := range tests {
		n, d, nav := &stubNotices{}, &stubDesktop{}, &stubNav{}
		newTestDispatcher(n, d, nav).Dispatch(context.Background(), matched(), rules.Set{Mode: tt.mode})
		assert.Equal(t, tt.notices, n.calls, "mode %v notice calls", tt.mode)
		assert.Equal(t, tt.desktop, d.calls, "mode %v desktop calls", tt.mode)
	}
}

func TestDispatchIgnoresSuppressedResult(t *testing.T) {
	t.Parallel()
	n, d, nav := &stubNotices{}, &stubDesktop{}, &stubNav{}
	newTestDispatcher(n, d, nav).Dispatch(context.Background(), filter.Result{Reason: filter.ReasonNoKeyword}, rules.Set{Mode: rules.ModeBoth})
	assert.Zero(t, n.calls)
	assert.Zero(t, d.calls)
}

func TestNoticeTextAndAction(t *testing.T) {
	t.Parallel()
	n, d, nav := &stubNotices{}, &stubDesktop{}, &stubNav{}
	newTestDispatcher(n, d, nav).Dispatch(context.Background(), matched(), rules.Set{Mode: rules.ModeInApp})

	require.Equal(t, 1, n.calls)
	assert.Equal(t, `alice mentioned keyword "urgent"`, n.text)
	assert.Equal(t, "Jump", n.label)

	// The action navigates to the message and dismisses the notice.
	require.NotNil(t, n.action)
	n.action(context.Background(), n.handle)
	require.Len(t, nav.calls, 1)
	assert.Equal(t, navCall{"G", "C", "M1"}, nav.calls[0])
	assert.Equal(t, 1, n.handle.dismissed)
}

func TestDesktopPayloadAndClick(t *testing.T) {
	t.Parallel()
	n, d, nav := &stubNotices{}, &stubDesktop{}, &stubNav{}
	newTestDispatcher(n, d, nav).Dispatch(context.Background(), matched(), rules.Set{Mode: rules.ModeDesktop})

	require.Equal(t, 1, d.calls)
	assert.Equal(t, "#general (Work)", d.last.Title)
	assert.Equal(t, "this is urgent", d.last.Body)
	assert.Equal(t, "https://cdn/avatar.png", d.last.IconRef)

	require.NotNil(t, d.click)
	d.click(context.Background())
	require.Len(t, nav.calls, 1)
	assert.Equal(t, navCall{"G", "C", "M1"}, nav.calls[0])
}

func TestDesktopUsesPlaceholdersForUnknownIDs(t *testing.T) {
	t.Parallel()
	n, d, nav := &stubNotices{}, &stubDesktop{}, &stubNav{}
	res := matched()
	res.Event.GuildID = "G-missing"
	res.Event.ChannelID = "C-missing"
	newTestDispatcher(n, d, nav).Dispatch(context.Background(), res, rules.Set{Mode: rules.ModeDesktop})

	require.Equal(t, 1, d.calls)
	assert.Equal(t, "#unknown-channel (unknown-guild)", d.last.Title)
}

func TestChannelFailuresAreIndependent(t *testing.T) {
	t.Parallel()
	n := &stubNotices{err: errors.New("notice backend down")}
	d, nav := &stubDesktop{}, &stubNav{}
	newTestDispatcher(n, d, nav).Dispatch(context.Background(), matched(), rules.Set{Mode: rules.ModeBoth})
	assert.Equal(t, 1, d.calls, "desktop must still fire when the notice fails")

	n2 := &stubNotices{}
	d2 := &stubDesktop{err: errors.New("no session bus")}
	newTestDispatcher(n2, d2, nav).Dispatch(context.Background(), matched(), rules.Set{Mode: rules.ModeBoth})
	assert.Equal(t, 1, n2.calls, "notice must still fire when desktop fails")
}

func TestDisplayTag(t *testing.T) {
	t.Parallel()
	tests := []struct {
		author transport.Author
		want   string
	}{
		{transport.Author{Username: "alice"}, "alice"},
		{transport.Author{Username: "alice", Discriminator: "0"}, "alice"},
		{transport.Author{Username: "alice", Discriminator: "0000"}, "alice"},
		{transport.Author{Username: "alice", Discriminator: "1234"}, "alice#1234"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DisplayTag(tt.author))
	}
}
