package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "keywatch.yaml", `
telegram:
  token: "abc"
  notify_chat_id: 12345
  poll_timeout: "5s"
watch:
  keywords: "Foo, BAR"
  mode: "desktop"
  allow_scope: "guilds"
  allowed_guilds: "G1,G2"
  ignore_bots: true
`)
	mgr := NewManager(path, zerolog.Nop())
	cfg, err := mgr.Load()
	require.NoError(t, err)

	assert.Equal(t, "abc", cfg.Telegram.Token)
	assert.Equal(t, int64(12345), cfg.Telegram.NotifyChatID)

	rs := cfg.Watch.Rules()
	assert.Equal(t, []string{"foo", "bar"}, rs.Keywords)
	assert.True(t, rs.Mode.Desktop())
	assert.False(t, rs.Mode.InApp())
	assert.True(t, rs.AllowedGuilds.Has("G2"))
	assert.True(t, rs.IgnoreBots)

	// Load commits the snapshot.
	assert.Same(t, cfg, mgr.Get())
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "keywatch.yaml", `
telegram:
  token: "abc"
  tokken_typo: "oops"
`)
	_, err := NewManager(path, zerolog.Nop()).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown field")
}

func TestLoadRequiresToken(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "keywatch.yaml", `
watch:
  keywords: "foo"
`)
	_, err := NewManager(path, zerolog.Nop()).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram.token")
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "keywatch.yaml", `
telegram:
  token: "abc"
retention:
  max_age: "three days"
`)
	_, err := NewManager(path, zerolog.Nop()).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retention.max_age")
}

func TestLoadJSONConfig(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "keywatch.json", `{"telegram":{"token":"abc","notify_chat_id":1,"poll_timeout":""},"logging":{},"desktop":{"enabled":false},"storage":{"driver":"","path":""},"retention":{},"watch":{"keywords":"x","mode":"","allow_scope":"","allowed_guilds":"","allowed_channels":"","deny_scope":"","denied_guilds":"","denied_channels":"","ignored_users":"","ignore_bots":false,"ignore_self_mentions":false}}`)
	cfg, err := NewManager(path, zerolog.Nop()).Load()
	require.NoError(t, err)
	assert.Equal(t, "abc", cfg.Telegram.Token)
}

func TestFailedReloadKeepsPreviousSnapshot(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "keywatch.yaml", `
telegram:
  token: "abc"
watch:
  keywords: "foo"
`)
	mgr := NewManager(path, zerolog.Nop())
	first, err := mgr.Load()
	require.NoError(t, err)

	// Break the file; a subsequent Load fails but Get still serves the
	// last good snapshot.
	require.NoError(t, os.WriteFile(path, []byte("not: [valid: yaml"), 0o644))
	_, err = mgr.Load()
	require.Error(t, err)
	assert.Same(t, first, mgr.Get())
}

func TestSubscribeReceivesCommittedConfig(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "keywatch.yaml", `
telegram:
  token: "abc"
`)
	mgr := NewManager(path, zerolog.Nop())
	_, err := mgr.Load()
	require.NoError(t, err)

	ch := mgr.Subscribe(1)
	defer mgr.Unsubscribe(ch)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go func() { _ = mgr.Watch(ctx) }()
	time.Sleep(100 * time.Millisecond) // let the fs watcher attach

	require.NoError(t, os.WriteFile(path, []byte(`
telegram:
  token: "xyz"
`), 0o644))

	select {
	case cfg := <-ch:
		assert.Equal(t, "xyz", cfg.Telegram.Token)
	case <-time.After(3 * time.Second):
		t.Fatal("no reload observed")
	}
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()
	d, err := ParseDurationField("x", " 90s ")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	d, err = ParseDurationField("x", "")
	require.NoError(t, err)
	assert.Zero(t, d)

	_, err = ParseDurationField("x", "-1s")
	require.Error(t, err)

	d, err = ParseDurationOrDefault("x", "", 7*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 7*time.Second, d)
}
