package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/skobkin/presencego/internal/ipc"
)

const (
	DefaultHandlerIntervalMS  = 1000
	DefaultHandshakeTimeoutMS = 5000
	DefaultListenAddr         = "127.0.0.1:6473"
	DefaultMinBackoffMS       = 1000
	DefaultMaxBackoffMS       = 15000
	DefaultBreakerThreshold   = 5
	DefaultBreakerCooldownSec = 60
	DefaultHistoryRetention   = 30
	DefaultActivityBurst      = 5
	DefaultActivityWindowSec  = 20

	LogFormatText = "text"
	LogFormatJSON = "json"
)

// DiscordConfig describes the peer connection.
// A nil Subscriptions list keeps the default event set.
type DiscordConfig struct {
	AppID              string          `json:"app_id"`
	IPCDir             string          `json:"ipc_dir"`
	HandlerIntervalMS  int             `json:"handler_interval_ms"`
	HandshakeTimeoutMS int             `json:"handshake_timeout_ms"`
	Subscriptions      []string        `json:"subscriptions"`
	RateLimit          RateLimitConfig `json:"activity_rate_limit"`
}

// RateLimitConfig bounds SET_ACTIVITY commands to Burst per WindowSec.
type RateLimitConfig struct {
	Enabled   bool `json:"enabled"`
	Burst     int  `json:"burst"`
	WindowSec int  `json:"window_sec"`
}

// LoggingConfig defines runtime logging behavior.
type LoggingConfig struct {
	Level     string `json:"level"`
	Format    string `json:"format"`
	LogToFile bool   `json:"log_to_file"`
}

type DaemonConfig struct {
	// ListenAddr is the control API address; empty disables it.
	ListenAddr    string             `json:"listen_addr"`
	MCP           bool               `json:"mcp"`
	Tray          bool               `json:"tray"`
	Autostart     bool               `json:"autostart"`
	UpdateCheck   bool               `json:"update_check"`
	Reconnect     ReconnectConfig    `json:"reconnect"`
	History       HistoryConfig      `json:"history"`
	Notifications NotificationConfig `json:"notifications"`
}

type ReconnectConfig struct {
	MinBackoffMS       int `json:"min_backoff_ms"`
	MaxBackoffMS       int `json:"max_backoff_ms"`
	BreakerThreshold   int `json:"breaker_threshold"`
	BreakerCooldownSec int `json:"breaker_cooldown_sec"`
}

type HistoryConfig struct {
	Enabled       bool `json:"enabled"`
	RetentionDays int  `json:"retention_days"`
}

// NotificationConfig stores desktop notification preferences.
type NotificationConfig struct {
	Enabled bool                     `json:"enabled"`
	Events  NotificationEventsConfig `json:"events"`
}

// NotificationEventsConfig stores per-event notification toggles.
type NotificationEventsConfig struct {
	JoinRequest      bool `json:"join_request"`
	ConnectionStatus bool `json:"connection_status"`
}

// PresenceConfig is the activity published on daemon start.
type PresenceConfig struct {
	State       string `json:"state"`
	Details     string `json:"details"`
	LargeImage  string `json:"large_image"`
	LargeText   string `json:"large_text"`
	SmallImage  string `json:"small_image"`
	SmallText   string `json:"small_text"`
	ShowElapsed bool   `json:"show_elapsed"`
}

// Empty reports whether no presence should be published on start.
func (p PresenceConfig) Empty() bool {
	return p == PresenceConfig{}
}

// AppConfig is the root persisted application configuration.
type AppConfig struct {
	Discord  DiscordConfig  `json:"discord"`
	Logging  LoggingConfig  `json:"logging"`
	Daemon   DaemonConfig   `json:"daemon"`
	Presence PresenceConfig `json:"presence"`
}

func Default() AppConfig {
	return AppConfig{
		Discord: DiscordConfig{
			HandlerIntervalMS:  DefaultHandlerIntervalMS,
			HandshakeTimeoutMS: DefaultHandshakeTimeoutMS,
			RateLimit: RateLimitConfig{
				Enabled:   true,
				Burst:     DefaultActivityBurst,
				WindowSec: DefaultActivityWindowSec,
			},
		},
		Logging: LoggingConfig{
			Level:     "info",
			Format:    LogFormatText,
			LogToFile: false,
		},
		Daemon: DaemonConfig{
			ListenAddr:  DefaultListenAddr,
			UpdateCheck: true,
			Reconnect: ReconnectConfig{
				MinBackoffMS:       DefaultMinBackoffMS,
				MaxBackoffMS:       DefaultMaxBackoffMS,
				BreakerThreshold:   DefaultBreakerThreshold,
				BreakerCooldownSec: DefaultBreakerCooldownSec,
			},
			History: HistoryConfig{
				Enabled:       true,
				RetentionDays: DefaultHistoryRetention,
			},
			Notifications: NotificationConfig{
				Enabled: true,
				Events: NotificationEventsConfig{
					JoinRequest:      true,
					ConnectionStatus: true,
				},
			},
		},
	}
}

func Load(path string) (AppConfig, error) {
	cfg := Default()
	cleanPath := filepath.Clean(path)
	// #nosec G304 -- path is resolved by app runtime and points to user config dir.
	raw, err := os.ReadFile(cleanPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}

		return AppConfig{}, fmt.Errorf("read config: %w", err)
	}

	if err := json.Unmarshal(raw, &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("decode config json: %w", err)
	}

	cfg.FillMissingDefaults()

	return cfg, nil
}

func (c *AppConfig) FillMissingDefaults() {
	c.Discord.AppID = strings.TrimSpace(c.Discord.AppID)
	if c.Discord.HandlerIntervalMS <= 0 {
		c.Discord.HandlerIntervalMS = DefaultHandlerIntervalMS
	}
	if c.Discord.HandshakeTimeoutMS <= 0 {
		c.Discord.HandshakeTimeoutMS = DefaultHandshakeTimeoutMS
	}
	if c.Discord.RateLimit.Burst <= 0 {
		c.Discord.RateLimit.Burst = DefaultActivityBurst
	}
	if c.Discord.RateLimit.WindowSec <= 0 {
		c.Discord.RateLimit.WindowSec = DefaultActivityWindowSec
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format != LogFormatJSON {
		c.Logging.Format = LogFormatText
	}
	c.Daemon.Reconnect = c.Daemon.Reconnect.WithDefaults()
	if c.Daemon.History.RetentionDays < 0 {
		c.Daemon.History.RetentionDays = 0
	}
}

// WithDefaults fills unset values and keeps MaxBackoffMS >= MinBackoffMS.
func (r ReconnectConfig) WithDefaults() ReconnectConfig {
	if r.MinBackoffMS <= 0 {
		r.MinBackoffMS = DefaultMinBackoffMS
	}
	if r.MaxBackoffMS <= 0 {
		r.MaxBackoffMS = DefaultMaxBackoffMS
	}
	if r.MaxBackoffMS < r.MinBackoffMS {
		r.MaxBackoffMS = r.MinBackoffMS
	}
	if r.BreakerThreshold <= 0 {
		r.BreakerThreshold = DefaultBreakerThreshold
	}
	if r.BreakerCooldownSec <= 0 {
		r.BreakerCooldownSec = DefaultBreakerCooldownSec
	}

	return r
}

func (c AppConfig) Validate() error {
	appID := strings.TrimSpace(c.Discord.AppID)
	if appID == "" {
		return errors.New("discord app_id is required")
	}
	for _, r := range appID {
		if r < '0' || r > '9' {
			return fmt.Errorf("discord app_id must be numeric: %q", appID)
		}
	}
	for _, name := range c.Discord.Subscriptions {
		if !knownEvent(ipc.EventName(name)) {
			return fmt.Errorf("unknown subscription event: %s", name)
		}
	}
	if c.Discord.HandlerIntervalMS < 0 || c.Discord.HandshakeTimeoutMS < 0 {
		return errors.New("discord intervals must not be negative")
	}

	return nil
}

func knownEvent(evt ipc.EventName) bool {
	switch evt {
	case ipc.EventActivityJoin, ipc.EventActivitySpectate, ipc.EventActivityJoinRequest:
		return true
	default:
		return false
	}
}

// SubscriptionEvents returns nil when the default set should be used.
func (c DiscordConfig) SubscriptionEvents() []ipc.EventName {
	if c.Subscriptions == nil {
		return nil
	}
	out := make([]ipc.EventName, 0, len(c.Subscriptions))
	for _, name := range c.Subscriptions {
		out = append(out, ipc.EventName(name))
	}

	return out
}

func (c DiscordConfig) HandlerInterval() time.Duration {
	return time.Duration(c.HandlerIntervalMS) * time.Millisecond
}

func (c DiscordConfig) HandshakeTimeout() time.Duration {
	return time.Duration(c.HandshakeTimeoutMS) * time.Millisecond
}

func (r RateLimitConfig) Window() time.Duration {
	return time.Duration(r.WindowSec) * time.Second
}

// Limiter returns nil when limiting is off. Unset fields fall back to the defaults.
func (r RateLimitConfig) Limiter() *rate.Limiter {
	if !r.Enabled {
		return nil
	}
	burst := r.Burst
	if burst <= 0 {
		burst = DefaultActivityBurst
	}
	window := r.Window()
	if window <= 0 {
		window = DefaultActivityWindowSec * time.Second
	}

	return rate.NewLimiter(rate.Every(window/time.Duration(burst)), burst)
}

func (r ReconnectConfig) MinBackoff() time.Duration {
	return time.Duration(r.MinBackoffMS) * time.Millisecond
}

func (r ReconnectConfig) MaxBackoff() time.Duration {
	return time.Duration(r.MaxBackoffMS) * time.Millisecond
}

func (r ReconnectConfig) BreakerCooldown() time.Duration {
	return time.Duration(r.BreakerCooldownSec) * time.Second
}

func Save(path string, cfg AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	raw, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, raw, 0o600); err != nil {
		return fmt.Errorf("write temp config: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp config: %w", err)
	}

	return nil
}
