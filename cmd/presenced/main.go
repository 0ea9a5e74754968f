package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/skobkin/presencego/internal/app"
	"github.com/skobkin/presencego/internal/config"
	"github.com/skobkin/presencego/internal/control"
	"github.com/skobkin/presencego/internal/mcptools"
	"github.com/skobkin/presencego/internal/notifications"
	"github.com/skobkin/presencego/internal/platform"
	"github.com/skobkin/presencego/internal/tray"
)

type launchOptions struct {
	ConfigPath string
	NoTray     bool
	MCP        bool
	Version    bool
}

func parseLaunchOptions(args []string) (launchOptions, error) {
	var opts launchOptions

	fs := flag.NewFlagSet("presenced", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.ConfigPath, "config", "", "config file path")
	fs.BoolVar(&opts.NoTray, "no-tray", false, "run without the tray icon")
	fs.BoolVar(&opts.MCP, "mcp", false, "serve MCP tools on stdin/stdout")
	fs.BoolVar(&opts.Version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return launchOptions{}, err
	}
	if fs.NArg() > 0 {
		return launchOptions{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	return opts, nil
}

func main() {
	opts, err := parseLaunchOptions(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "usage: presenced [--config path] [--no-tray] [--mcp] [--version]")
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "presenced: %v\n", err)
		os.Exit(2)
	}
	if opts.Version {
		fmt.Printf("presenced %s\n", app.BuildString())

		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		var running *platform.RunningInstanceError
		if errors.As(err, &running) {
			slog.Warn("presenced is already running", "key", running.Key, "pid", running.PID)
			os.Exit(1)
		}
		slog.Error("presenced stopped", "error", err)
		os.Exit(1)
	}
}

// run owns the daemon lifetime. The tray, when enabled, runs on the calling goroutine.
func run(parent context.Context, opts launchOptions) error {
	ctx, stop := context.WithCancel(parent)
	defer stop()

	paths, err := app.ResolvePaths(opts.ConfigPath)
	if err != nil {
		return err
	}
	cfg, err := config.Load(paths.ConfigFile)
	if err != nil {
		return err
	}

	lock, err := platform.AcquireInstanceLock(app.Name, cfg.Discord.AppID)
	switch {
	case errors.Is(err, platform.ErrInstanceLockUnsupported):
		slog.Warn("single instance lock is not supported on this platform")
	case err != nil:
		return err
	default:
		defer func() {
			if err := lock.Release(); err != nil {
				slog.Warn("release instance lock", "error", err)
			}
		}()
	}

	autostartArgs, err := daemonArgs(opts.ConfigPath)
	if err != nil {
		return err
	}
	rt, err := app.Initialize(ctx, app.Options{
		ConfigPath:    paths.ConfigFile,
		Sender:        notifications.NewDesktopSender("", nil),
		Autostart:     platform.NewAutostartManager(),
		AutostartArgs: autostartArgs,
	})
	if err != nil {
		return err
	}
	defer rt.Close()
	cfg = rt.CurrentConfig()
	logger := rt.LogManager.Logger("presenced")

	rt.Start()

	var wg sync.WaitGroup
	if addr := strings.TrimSpace(cfg.Daemon.ListenAddr); addr != "" {
		srv := control.NewServer(rt, rt.Bus, rt.Metrics.Handler(), rt.LogManager.Logger("control"))
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.ListenAndServe(ctx, addr); err != nil {
				logger.Error("control api stopped", "error", err)
				stop()
			}
		}()
	}

	if cfg.Daemon.MCP || opts.MCP {
		mcpServer := mcptools.NewTools(rt, rt.LogManager.Logger("mcp")).NewServer(app.BuildVersion())
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := mcptools.ServeStdio(ctx, mcpServer, os.Stdin, os.Stdout, rt.LogManager.Logger("mcp")); err != nil {
				logger.Error("mcp server stopped", "error", err)
			}
			// Stdin closed: the MCP host is gone.
			stop()
		}()
	}

	if cfg.Daemon.Tray && !opts.NoTray {
		tray.New(tray.Options{
			Bus:     rt.Bus,
			Backend: rt,
			LogFile: logFileFor(cfg, paths),
			Quit:    stop,
			Logger:  rt.LogManager.Logger("tray"),
		}).Run(ctx)
		stop()
	} else {
		<-ctx.Done()
	}

	logger.Info("shutting down")
	wg.Wait()

	return nil
}

// daemonArgs keeps an explicit --config in the login entry.
func daemonArgs(configPath string) ([]string, error) {
	if strings.TrimSpace(configPath) == "" {
		return nil, nil
	}
	abs, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	return []string{"--config", abs}, nil
}

func logFileFor(cfg config.AppConfig, paths app.Paths) string {
	if !cfg.Logging.LogToFile {
		return ""
	}

	return paths.LogFile
}
