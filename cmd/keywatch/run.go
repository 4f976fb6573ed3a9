package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdaemon "github.com/coreos/go-systemd/v22/daemon"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"keywatch/internal/config"
	"keywatch/internal/eventbus"
	"keywatch/internal/logging"
	"keywatch/internal/notify"
	"keywatch/internal/storage"
	"keywatch/internal/transport"
	"keywatch/internal/transport/desktop"
	"keywatch/internal/transport/telegram"
	"keywatch/internal/watcher"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "watch messages and notify on keyword matches",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDaemon(cmd.Context())
		},
	}
}

func runDaemon(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	mgr := config.NewManager(cfgPath, logging.Console("info"))
	cfg, err := mgr.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, closeLog, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = closeLog() }()

	busyTimeout, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return err
	}
	store, err := storage.Open(storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busyTimeout,
	}, log.With().Str("comp", "storage").Logger())
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	if store != nil {
		defer func() { _ = store.Close() }()
	}

	pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return err
	}
	tg, err := telegram.New(telegram.Config{
		Token:        cfg.Telegram.Token,
		NotifyChatID: cfg.Telegram.NotifyChatID,
		PollTimeout:  pollTimeout,
	}, log.With().Str("comp", "telegram").Logger())
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}

	var desk transport.DesktopRenderer
	if cfg.Desktop.Enabled {
		d, err := desktop.New(desktop.Config{
			AppName:    cfg.Desktop.AppName,
			RatePerSec: cfg.Desktop.RatePerSec,
		}, log.With().Str("comp", "desktop").Logger())
		if err != nil {
			// Headless session or no notification daemon: keep running
			// with the in-app channel only.
			log.Warn().Err(err).Msg("desktop notifications unavailable")
		} else {
			desk = d
			defer func() { _ = d.Close() }()
		}
	}

	bus := eventbus.New()
	nav := telegram.NewNavigator(log.With().Str("comp", "nav").Logger())
	disp := notify.NewDispatcher(tg, desk, tg, nav, bus, log.With().Str("comp", "notify").Logger())
	w := watcher.New(mgr, disp, store, bus, tg, transport.FixedViewedChannel(""), log.With().Str("comp", "watcher").Logger())

	go func() {
		if err := mgr.Watch(ctx); err != nil {
			log.Warn().Err(err).Msg("config watch stopped")
		}
	}()

	if c := startRetention(ctx, cfg.Retention, store, log); c != nil {
		defer c.Stop()
	}

	if sent, err := sdaemon.SdNotify(false, sdaemon.SdNotifyReady); err != nil {
		log.Debug().Err(err).Msg("sd_notify failed")
	} else if sent {
		log.Debug().Msg("sd_notify: ready")
	}

	log.Info().Str("config", cfgPath).Msg("keywatch started")
	return w.Run(ctx, tg)
}

// startRetention schedules the history sweep. Returns nil when retention
// is disabled or nothing is persisted.
func startRetention(ctx context.Context, rc config.RetentionConfig, store storage.Store, log zerolog.Logger) *cron.Cron {
	if store == nil {
		return nil
	}
	maxAge, err := config.ParseDurationField("retention.max_age", rc.MaxAge)
	if err != nil || maxAge <= 0 {
		return nil
	}
	schedule := rc.Schedule
	if schedule == "" {
		schedule = "@hourly"
	}

	c := cron.New()
	_, err = c.AddFunc(schedule, func() {
		pctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		removed, err := store.Prune(pctx, time.Now().Add(-maxAge))
		if err != nil {
			log.Warn().Err(err).Msg("history prune failed")
			return
		}
		if removed > 0 {
			log.Info().Int64("removed", removed).Msg("history pruned")
		}
	})
	if err != nil {
		log.Warn().Err(err).Str("schedule", schedule).Msg("invalid retention schedule")
		return nil
	}
	c.Start()
	return c
}
