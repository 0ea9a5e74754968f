package app

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/skobkin/presencego/internal/config"
	"github.com/skobkin/presencego/internal/platform"
)

// AutostartSyncWarning signals that config save succeeded but autostart sync failed.
type AutostartSyncWarning struct {
	Err error
}

func (w *AutostartSyncWarning) Error() string {
	if w == nil || w.Err == nil {
		return "autostart sync failed"
	}

	return fmt.Sprintf("autostart sync failed: %v", w.Err)
}

func (w *AutostartSyncWarning) Unwrap() error {
	if w == nil {
		return nil
	}

	return w.Err
}

// SyncAutostart makes the login entry match cfg.Daemon.Autostart. args are passed to presenced.
func SyncAutostart(manager platform.AutostartManager, cfg config.AppConfig, args []string, trigger string) error {
	if manager == nil {
		slog.Debug("skip autostart sync: manager is not initialized", "trigger", trigger)

		return nil
	}

	enabled := cfg.Daemon.Autostart
	slog.Info("syncing autostart registration", "trigger", trigger, "enabled", enabled)
	if err := manager.Sync(platform.AutostartConfig{Enabled: enabled, Args: args}); err != nil {
		return err
	}
	slog.Info("autostart registration synced", "trigger", trigger, "enabled", enabled)

	return nil
}

// SaveAutostart persists the autostart flag and then syncs the registration.
// appID fills discord.app_id when the file has none, since the daemon cannot start without it.
// A failed sync after a successful save is reported as *AutostartSyncWarning.
func SaveAutostart(manager platform.AutostartManager, paths Paths, appID string, enabled bool, args []string) error {
	cfg, err := config.Load(paths.ConfigFile)
	if err != nil {
		return err
	}
	if cfg.Discord.AppID == "" {
		cfg.Discord.AppID = strings.TrimSpace(appID)
	}
	cfg.Daemon.Autostart = enabled
	if err := config.Save(paths.ConfigFile, cfg); err != nil {
		return err
	}

	if err := SyncAutostart(manager, cfg, args, "cli"); err != nil {
		slog.Warn("sync autostart after save", "error", err)

		return &AutostartSyncWarning{Err: err}
	}

	return nil
}
