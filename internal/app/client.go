package app

import (
	"log/slog"

	"github.com/skobkin/presencego/internal/config"
	"github.com/skobkin/presencego/internal/rpc"
	"github.com/skobkin/presencego/internal/transport"
)

// NewClient builds an IPC client from the discord config section.
// A nil locator searches the default socket directories.
func NewClient(cfg config.DiscordConfig, locator rpc.Locator, handlers rpc.Handlers, logger *slog.Logger) *rpc.Client {
	if locator == nil {
		locator = transport.NewLocator(transport.DefaultDirs(cfg.IPCDir))
	}

	return rpc.NewClient(logger, cfg.AppID,
		rpc.WithLocator(locator),
		rpc.WithHandlers(handlers),
		rpc.WithHandlerInterval(cfg.HandlerInterval()),
		rpc.WithHandshakeTimeout(cfg.HandshakeTimeout()),
		rpc.WithSubscriptions(rpc.NewSubscriptions(cfg.SubscriptionEvents())),
		rpc.WithActivityLimiter(cfg.RateLimit.Limiter()),
	)
}
