// Package desktop renders OS-level notifications via the freedesktop
// org.freedesktop.Notifications D-Bus service.
package desktop

import (
	"context"
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"keywatch/internal/transport"
)

const (
	busName = "org.freedesktop.Notifications"
	objPath = dbus.ObjectPath("/org/freedesktop/Notifications")
	iface   = "org.freedesktop.Notifications"

	// actionKey is the reserved freedesktop key for activating the
	// notification body itself.
	actionKey = "default"
)

type Config struct {
	AppName string
	// RatePerSec bounds how many notifications per second reach the
	// desktop; excess ones are dropped, not queued. 0 means 1/s.
	RatePerSec int
}

// Renderer implements transport.DesktopRenderer. It keeps one session bus
// connection and a signal listener that routes ActionInvoked back to the
// click callback registered per notification.
type Renderer struct {
	cfg     Config
	log     zerolog.Logger
	conn    *dbus.Conn
	limiter *rate.Limiter

	mu     sync.Mutex
	clicks map[uint32]func(ctx context.Context)
}

func New(cfg Config, log zerolog.Logger) (*Renderer, error) {
	if cfg.AppName == "" {
		cfg.AppName = "keywatch"
	}
	per := cfg.RatePerSec
	if per <= 0 {
		per = 1
	}

	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("session bus: %w", err)
	}
	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(objPath),
		dbus.WithMatchInterface(iface),
	); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("match signal: %w", err)
	}

	r := &Renderer{
		cfg:  cfg,
		log:  log,
		conn: conn,
		// Burst above the sustained rate so a short cluster of matches
		// still surfaces before the limiter kicks in.
		limiter: rate.NewLimiter(rate.Limit(per), per*3),
		clicks:  map[uint32]func(ctx context.Context){},
	}

	sigs := make(chan *dbus.Signal, 16)
	conn.Signal(sigs)
	go r.listen(sigs)
	return r, nil
}

func (r *Renderer) Close() error {
	return r.conn.Close()
}

// ShowDesktop implements transport.DesktopRenderer. Under notification
// flood the excess is dropped silently (debug-logged): a wall of desktop
// popups is worse than a missed one.
func (r *Renderer) ShowDesktop(ctx context.Context, n transport.DesktopNotification, onClick func(ctx context.Context)) error {
	if !r.limiter.Allow() {
		r.log.Debug().Str("title", n.Title).Msg("desktop notification rate limited")
		return nil
	}

	actions := []string{actionKey, "Open"}
	call := r.conn.Object(busName, objPath).CallWithContext(ctx, iface+".Notify", 0,
		r.cfg.AppName,             // app_name
		uint32(0),                 // replaces_id
		n.IconRef,                 // app_icon
		n.Title,                   // summary
		n.Body,                    // body
		actions,                   // actions
		map[string]dbus.Variant{}, // hints
		int32(-1),                 // expire_timeout: server default
	)
	var id uint32
	if err := call.Store(&id); err != nil {
		return fmt.Errorf("notify call: %w", err)
	}

	if onClick != nil {
		r.mu.Lock()
		r.clicks[id] = onClick
		r.mu.Unlock()
	}
	return nil
}

func (r *Renderer) listen(sigs <-chan *dbus.Signal) {
	for sig := range sigs {
		switch sig.Name {
		case iface + ".ActionInvoked":
			if len(sig.Body) < 2 {
				continue
			}
			id, _ := sig.Body[0].(uint32)
			key, _ := sig.Body[1].(string)
			if key != actionKey {
				continue
			}
			r.mu.Lock()
			click := r.clicks[id]
			delete(r.clicks, id)
			r.mu.Unlock()
			if click != nil {
				click(context.Background())
			}
		case iface + ".NotificationClosed":
			if len(sig.Body) < 1 {
				continue
			}
			id, _ := sig.Body[0].(uint32)
			r.mu.Lock()
			delete(r.clicks, id)
			r.mu.Unlock()
		}
	}
}
