package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/skobkin/presencego/internal/bus"
	"github.com/skobkin/presencego/internal/config"
	"github.com/skobkin/presencego/internal/domain"
	"github.com/skobkin/presencego/internal/logging"
	"github.com/skobkin/presencego/internal/metrics"
	"github.com/skobkin/presencego/internal/notifications"
	"github.com/skobkin/presencego/internal/persistence"
	"github.com/skobkin/presencego/internal/platform"
	"github.com/skobkin/presencego/internal/rpc"
)

// Options tune Initialize. The zero value resolves everything from the user config directory.
type Options struct {
	ConfigPath string
	// Console receives log output; nil means stderr.
	Console io.Writer
	// Sender delivers desktop notifications; nil disables them.
	Sender  notifications.Sender
	Locator rpc.Locator
	// Autostart is synced with daemon.autostart on startup; nil skips the sync.
	Autostart     platform.AutostartManager
	AutostartArgs []string
	// ReleasesURL overrides DefaultReleaseQueryURL.
	ReleasesURL string
}

type Runtime struct {
	mu sync.RWMutex

	Ctx    context.Context
	cancel context.CancelFunc

	Paths  Paths
	Config config.AppConfig

	LogManager *logging.Manager
	Bus        *bus.PubSubBus
	DB         *sql.DB
	Metrics    *metrics.Collector

	EventRepo    *persistence.EventRepo
	PresenceRepo *persistence.PresenceRepo
	WriterQueue  *persistence.WriterQueue

	JoinRequests  *domain.JoinRequestStore
	Client        *rpc.Client
	Supervisor    *Supervisor
	Notifications *NotificationService
	Updates       *UpdateChecker

	supervisorCancel context.CancelFunc
	supervisorDone   chan struct{}
	closeOnce        sync.Once
}

func Initialize(parent context.Context, opts Options) (*Runtime, error) {
	paths, err := ResolvePaths(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(paths.ConfigFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", paths.ConfigFile, err)
	}

	ctx, cancel := context.WithCancel(parent)
	rt := &Runtime{
		Ctx:    ctx,
		cancel: cancel,
		Paths:  paths,
		Config: cfg,
	}

	logMgr := logging.NewManager(opts.Console)
	if err := logMgr.Configure(cfg.Logging, paths.LogFile); err != nil {
		_ = logMgr.Close()
		cancel()

		return nil, fmt.Errorf("configure logging: %w", err)
	}
	rt.LogManager = logMgr
	slog.Info("starting presencego runtime", "version", BuildString(), "app_id", cfg.Discord.AppID)
	if err := SyncAutostart(opts.Autostart, cfg, opts.AutostartArgs, "startup"); err != nil {
		slog.Warn("sync autostart on startup", "error", err)
	}

	b := bus.New(logMgr.Logger("bus"))
	rt.Bus = b

	rt.Metrics = metrics.New(metrics.DefaultNamespace)
	rt.Metrics.Start(ctx, b)

	rt.JoinRequests = domain.NewJoinRequestStore()
	rt.JoinRequests.Start(ctx, b)

	if cfg.Daemon.History.Enabled {
		if err := rt.openHistory(ctx); err != nil {
			_ = rt.Close()

			return nil, err
		}
	}

	rt.Supervisor = NewSupervisor(b, cfg.Daemon.Reconnect, logMgr.Logger("app.supervisor"))

	bridge := NewBridge(b, logMgr.Logger("app.bridge"))
	handlers := bridge.Handlers(rpc.Handlers{Disconnect: rt.Supervisor.HandleDisconnect})
	rt.Client = NewClient(cfg.Discord, opts.Locator, handlers, logMgr.Logger("rpc"))

	if cfg.Daemon.UpdateCheck {
		rt.Updates = NewUpdateChecker(UpdateCheckerDependencies{
			CurrentVersion: BuildVersion(),
			Endpoint:       opts.ReleasesURL,
			MessageBus:     b,
			Logger:         logMgr.Logger("app.updates"),
		})
	}

	if opts.Sender != nil {
		rt.Notifications = NewNotificationService(b, rt.CurrentConfig, opts.Sender, logMgr.Logger("app.notifications"))
		rt.Notifications.Start(ctx)
	}

	if err := rt.restorePresence(ctx); err != nil {
		slog.Warn("restore presence", "error", err)
	}

	return rt, nil
}

func (r *Runtime) openHistory(ctx context.Context) error {
	db, err := persistence.Open(ctx, r.Paths.DBFile)
	if err != nil {
		return err
	}
	r.DB = db
	r.EventRepo = persistence.NewEventRepo(db)
	r.PresenceRepo = persistence.NewPresenceRepo(db)

	r.WriterQueue = persistence.NewWriterQueue(r.LogManager.Logger("persistence"), writerQueueCapacity)
	r.WriterQueue.Start(ctx)
	domain.StartPersistenceProjection(ctx, r.Bus, r.WriterQueue, r.EventRepo, r.PresenceRepo)

	if days := r.Config.Daemon.History.RetentionDays; days > 0 {
		go r.pruneHistory(ctx, time.Duration(days)*24*time.Hour)
	}

	return nil
}

// restorePresence prefers the configured presence and falls back to the last one that reached the peer.
func (r *Runtime) restorePresence(ctx context.Context) error {
	if a := ActivityFromConfig(r.Config.Presence, time.Now()); a != nil {
		return r.Client.UpdatePresence(a)
	}
	if r.PresenceRepo == nil {
		return nil
	}

	record, ok, err := r.PresenceRepo.Latest(ctx)
	if err != nil || !ok || record.Cleared {
		return err
	}
	a, err := domain.ActivityFromRecord(record)
	if err != nil {
		return err
	}

	return r.Client.UpdatePresence(a)
}

func (r *Runtime) pruneHistory(ctx context.Context, retention time.Duration) {
	prune := func() {
		cutoff := time.Now().Add(-retention)
		r.WriterQueue.Enqueue("prune_history", func(writeCtx context.Context) error {
			removed, err := persistence.PruneBefore(writeCtx, r.DB, cutoff)
			if err == nil && removed > 0 {
				slog.Info("pruned history", "rows", removed, "cutoff", cutoff)
			}

			return err
		})
	}

	prune()
	ticker := time.NewTicker(HistoryPruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prune()
		}
	}
}

// Start runs the connection supervisor until Close.
func (r *Runtime) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.supervisorDone != nil {
		return
	}

	r.Updates.Start(r.Ctx)

	ctx, cancel := context.WithCancel(r.Ctx)
	r.supervisorCancel = cancel
	r.supervisorDone = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		r.Supervisor.Run(ctx, r.Client)
	}(r.supervisorDone)
}

func (r *Runtime) CurrentConfig() config.AppConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.Config
}

// ClearHistory removes every stored event and presence record.
func (r *Runtime) ClearHistory(ctx context.Context) error {
	if r.DB == nil {
		return domain.ErrHistoryDisabled
	}
	if err := r.WriterQueue.Flush(ctx); err != nil {
		return err
	}
	if err := persistence.ClearDatabase(ctx, r.DB); err != nil {
		return err
	}
	slog.Info("history cleared")

	return nil
}

func (r *Runtime) Close() error {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		stopSupervisor, done := r.supervisorCancel, r.supervisorDone
		r.mu.Unlock()
		if stopSupervisor != nil {
			stopSupervisor()
			<-done
		} else if r.Client != nil {
			_ = r.Client.Close()
		}

		if r.WriterQueue != nil {
			flushCtx, cancel := context.WithTimeout(r.Ctx, 2*time.Second)
			if err := r.WriterQueue.Flush(flushCtx); err != nil {
				slog.Warn("flush history writes", "error", err)
			}
			cancel()
		}
		if r.cancel != nil {
			r.cancel()
		}
		if r.Bus != nil {
			r.Bus.Close()
		}
		if r.DB != nil {
			_ = r.DB.Close()
		}
		if r.LogManager != nil {
			_ = r.LogManager.Close()
		}
	})

	return nil
}
