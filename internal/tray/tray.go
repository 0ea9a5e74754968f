// Package tray shows the connection state in the system tray.
package tray

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/getlantern/systray"

	"github.com/skobkin/presencego/internal/app"
	"github.com/skobkin/presencego/internal/bus"
	"github.com/skobkin/presencego/internal/connectors"
	"github.com/skobkin/presencego/internal/domain"
	"github.com/skobkin/presencego/internal/platform"
	"github.com/skobkin/presencego/internal/rpc"
)

const maxTitleLen = 48

type Backend interface {
	Status() domain.Status
	ClearPresence() error
	Reconnect()
}

type Options struct {
	Bus     bus.MessageBus
	Backend Backend
	Actions platform.SystemActions
	// LogFile is offered as "Open log" when set.
	LogFile string
	// Quit is called when the user picks Quit.
	Quit   func()
	Logger *slog.Logger
}

type Tray struct {
	opts   Options
	logger *slog.Logger

	mu        sync.Mutex
	status    connectors.ConnectionStatus
	presence  *rpc.Activity
	lastState connectors.ConnectionState
	updateURL string

	statusItem   *systray.MenuItem
	presenceItem *systray.MenuItem
	updateItem   *systray.MenuItem
}

func New(opts Options) *Tray {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("component", "tray")
	}
	if opts.Actions == nil {
		opts.Actions = platform.NewSystemActions()
	}

	return &Tray{opts: opts, logger: logger}
}

// Run blocks on the platform event loop until ctx is done or Quit is picked.
// It must be called from the main goroutine.
func (t *Tray) Run(ctx context.Context) {
	systray.Run(func() { t.onReady(ctx) }, func() { t.logger.Debug("tray exited") })
}

func (t *Tray) onReady(ctx context.Context) {
	systray.SetTitle("presencego")

	t.statusItem = systray.AddMenuItem("Starting", "Discord connection")
	t.statusItem.Disable()
	t.presenceItem = systray.AddMenuItem("No presence", "Current rich presence")
	t.presenceItem.Disable()
	systray.AddSeparator()
	reconnect := systray.AddMenuItem("Reconnect", "Reconnect to Discord now")
	clearItem := systray.AddMenuItem("Clear presence", "Remove the rich presence")
	openDiscord := systray.AddMenuItem("Open Discord", "Bring up the Discord client")
	openLog := systray.AddMenuItem("Open log", "Show the daemon log file")
	if strings.TrimSpace(t.opts.LogFile) == "" {
		openLog.Hide()
	}
	t.updateItem = systray.AddMenuItem("Update available", "Open the release page")
	t.updateItem.Hide()
	systray.AddSeparator()
	quit := systray.AddMenuItem("Quit", "Stop the daemon")

	status := t.opts.Backend.Status()
	t.apply(status.Connection, status.Presence)
	if status.Update != nil {
		t.applyUpdate(*status.Update)
	}

	var sub bus.Subscription
	topics := []string{connectors.TopicConnStatus, connectors.TopicPresenceSent, connectors.TopicUpdateSnapshot}
	if t.opts.Bus != nil {
		sub = t.opts.Bus.Subscribe(topics...)
	}

	go func() {
		defer func() {
			if sub != nil {
				bus.Release(t.opts.Bus, sub)
			}
		}()
		for {
			select {
			case <-ctx.Done():
				systray.Quit()

				return
			case raw, ok := <-sub:
				if !ok {
					return
				}
				t.handle(raw)
			case <-reconnect.ClickedCh:
				t.logger.Debug("tray reconnect invoked")
				t.opts.Backend.Reconnect()
			case <-clearItem.ClickedCh:
				if err := t.opts.Backend.ClearPresence(); err != nil {
					t.logger.Warn("clear presence from tray", "error", err)
				}
			case <-openDiscord.ClickedCh:
				_ = t.opts.Actions.OpenDiscord()
			case <-openLog.ClickedCh:
				_ = t.opts.Actions.OpenPath(t.opts.LogFile)
			case <-t.updateItem.ClickedCh:
				t.mu.Lock()
				link := t.updateURL
				t.mu.Unlock()
				if link != "" {
					_ = t.opts.Actions.OpenPath(link)
				}
			case <-quit.ClickedCh:
				t.logger.Debug("tray quit invoked")
				if t.opts.Quit != nil {
					t.opts.Quit()
				}
				systray.Quit()

				return
			}
		}
	}()
}

func (t *Tray) handle(raw any) {
	t.mu.Lock()
	status, presence := t.status, t.presence
	t.mu.Unlock()

	switch msg := raw.(type) {
	case connectors.ConnectionStatus:
		status = msg
	case connectors.PresenceSent:
		presence = msg.Activity
	case connectors.UpdateSnapshot:
		t.applyUpdate(msg)

		return
	default:
		return
	}
	t.apply(status, presence)
}

func (t *Tray) apply(status connectors.ConnectionStatus, presence *rpc.Activity) {
	t.mu.Lock()
	t.status, t.presence = status, presence
	stateChanged := t.lastState != status.State
	t.lastState = status.State
	t.mu.Unlock()

	v := viewFor(status, presence)
	systray.SetTooltip(v.Tooltip)
	if t.statusItem != nil {
		t.statusItem.SetTitle(v.Status)
	}
	if t.presenceItem != nil {
		t.presenceItem.SetTitle(v.Presence)
	}
	if !stateChanged {
		return
	}
	icon, err := statusIcon(status.State)
	if err != nil {
		t.logger.Warn("render tray icon", "error", err)

		return
	}
	systray.SetIcon(icon)
}

func (t *Tray) applyUpdate(snapshot connectors.UpdateSnapshot) {
	title, ok := updateLabel(snapshot)
	t.mu.Lock()
	if ok {
		t.updateURL = snapshot.Latest.HTMLURL
	} else {
		t.updateURL = ""
	}
	t.mu.Unlock()

	if t.updateItem == nil {
		return
	}
	if !ok {
		t.updateItem.Hide()

		return
	}
	t.updateItem.SetTitle(title)
	t.updateItem.Show()
}

// updateLabel reports false when there is nothing newer to offer.
func updateLabel(snapshot connectors.UpdateSnapshot) (string, bool) {
	if !snapshot.UpdateAvailable || snapshot.Latest.HTMLURL == "" {
		return "", false
	}

	return truncate("Update available: "+snapshot.Latest.Version, maxTitleLen), true
}

type view struct {
	Status   string
	Presence string
	Tooltip  string
}

func viewFor(status connectors.ConnectionStatus, presence *rpc.Activity) view {
	v := view{
		Status:   app.ConnectionStatusLabel(status),
		Presence: presenceLabel(presence),
	}
	v.Tooltip = "presencego: " + v.Status
	if presence != nil {
		v.Tooltip += "\n" + v.Presence
	}

	return v
}

func presenceLabel(a *rpc.Activity) string {
	if a == nil {
		return "No presence"
	}

	parts := make([]string, 0, 2)
	for _, s := range []string{a.Details, a.State} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	label := strings.Join(parts, " · ")
	if label == "" {
		label = "Presence set"
	}
	if a.Party != nil && len(a.Party.Size) == 2 {
		label += " (" + strconv.Itoa(a.Party.Size[0]) + "/" + strconv.Itoa(a.Party.Size[1]) + ")"
	}

	return truncate(label, maxTitleLen)
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}

	return string(runes[:limit-1]) + "…"
}
