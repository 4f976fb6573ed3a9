package telegram

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelID(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "-1001234", ChannelID(-1001234, 0))
	assert.Equal(t, "-1001234/77", ChannelID(-1001234, 77))
}

func TestSplitChannelID(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in     string
		chat   string
		thread int
	}{
		{"-1001234", "-1001234", 0},
		{"-1001234/77", "-1001234", 77},
		{"-1001234/notanumber", "-1001234", 0},
		{"", "", 0},
	}
	for _, tt := range tests {
		chat, thread := SplitChannelID(tt.in)
		assert.Equal(t, tt.chat, chat, "input %q", tt.in)
		assert.Equal(t, tt.thread, thread, "input %q", tt.in)
	}
}

func TestMessageLink(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		guild     string
		channel   string
		messageID string
		want      string
	}{
		{
			name:      "supergroup",
			guild:     "-1001234",
			channel:   "-1001234",
			messageID: "42",
			want:      "https://t.me/c/1234/42",
		},
		{
			name:      "forum topic",
			guild:     "-1001234",
			channel:   "-1001234/77",
			messageID: "42",
			want:      "https://t.me/c/1234/77/42",
		},
		{
			name:      "plain group without -100 prefix",
			guild:     "-567",
			channel:   "-567",
			messageID: "9",
			want:      "https://t.me/c/567/9",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MessageLink(tt.guild, tt.channel, tt.messageID))
		})
	}
}

func TestNavigatorOpensDeepLink(t *testing.T) {
	t.Parallel()
	var opened string
	nav := NewNavigator(zerolog.Nop())
	nav.open = func(_ context.Context, url string) error {
		opened = url
		return nil
	}
	require.NoError(t, nav.Navigate(context.Background(), "-1001234", "-1001234/77", "42"))
	assert.Equal(t, "https://t.me/c/1234/77/42", opened)
}
