package app

import (
	"strings"
	"time"

	"github.com/skobkin/presencego/internal/config"
	"github.com/skobkin/presencego/internal/rpc"
)

// ActivityFromConfig builds the startup activity. It returns nil when nothing is configured.
func ActivityFromConfig(cfg config.PresenceConfig, start time.Time) *rpc.Activity {
	if cfg.Empty() {
		return nil
	}

	a := &rpc.Activity{
		State:   strings.TrimSpace(cfg.State),
		Details: strings.TrimSpace(cfg.Details),
	}
	assets := rpc.Assets{
		LargeImage: strings.TrimSpace(cfg.LargeImage),
		LargeText:  strings.TrimSpace(cfg.LargeText),
		SmallImage: strings.TrimSpace(cfg.SmallImage),
		SmallText:  strings.TrimSpace(cfg.SmallText),
	}
	if assets != (rpc.Assets{}) {
		a.Assets = &assets
	}
	if cfg.ShowElapsed {
		a.Timestamps = rpc.NewTimestamps(start, time.Time{})
	}

	return a
}
