package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/skobkin/presencego/internal/app"
	"github.com/skobkin/presencego/internal/config"
	"github.com/skobkin/presencego/internal/logging"
	"github.com/skobkin/presencego/internal/rpc"
)

var errMissingAppID = errors.New("missing application id: pass --app-id or set discord.app_id in the config")

// loadConfig reads the config file and applies command line overrides.
func (c *cli) loadConfig() (config.AppConfig, app.Paths, error) {
	paths, err := app.ResolvePaths(c.configPath)
	if err != nil {
		return config.AppConfig{}, app.Paths{}, err
	}
	cfg, err := config.Load(paths.ConfigFile)
	if err != nil {
		return config.AppConfig{}, app.Paths{}, err
	}

	if v := strings.TrimSpace(c.appID); v != "" {
		cfg.Discord.AppID = v
	}
	if v := strings.TrimSpace(c.ipcDir); v != "" {
		cfg.Discord.IPCDir = v
	}
	if v := strings.TrimSpace(c.logLevel); v != "" {
		cfg.Logging.Level = v
	}
	if v := strings.TrimSpace(c.addr); v != "" {
		cfg.Daemon.ListenAddr = v
	}
	cfg.Logging.LogToFile = false

	return cfg, paths, nil
}

// session is one direct IPC connection owned by a command.
type session struct {
	cfg    config.AppConfig
	logs   *logging.Manager
	client *rpc.Client
}

// dial loads config, sets up stderr logging and connects. The caller closes the session.
func (c *cli) dial(ctx context.Context, handlers rpc.Handlers) (*session, error) {
	cfg, _, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Discord.AppID == "" {
		return nil, errMissingAppID
	}

	logs := logging.NewManager(c.errOut)
	if err := logs.Configure(cfg.Logging, ""); err != nil {
		return nil, fmt.Errorf("configure logging: %w", err)
	}

	client := app.NewClient(cfg.Discord, c.locator, handlers, logs.Logger("rpc"))
	if err := client.Connect(ctx); err != nil {
		_ = logs.Close()

		return nil, fmt.Errorf("connect to discord: %w", err)
	}

	return &session{cfg: cfg, logs: logs, client: client}, nil
}

func (s *session) Close() {
	_ = s.client.Close()
	_ = s.logs.Close()
}
