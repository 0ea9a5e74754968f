package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/skobkin/presencego/internal/bus"
	"github.com/skobkin/presencego/internal/domain"
	"github.com/skobkin/presencego/internal/rpc"
)

var errForeignOrigin = errors.New("cross-origin requests are not allowed")

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 5 * time.Second
)

// Backend is what the control API drives.
type Backend interface {
	Status() domain.Status
	SetPresence(a *rpc.Activity) error
	ClearPresence() error
	ReplyJoinRequest(ctx context.Context, userID string, reply rpc.JoinReply) error
	History(ctx context.Context, q domain.HistoryQuery) ([]domain.HistoryEvent, error)
	Reconnect()
}

// Server is the local HTTP control API.
type Server struct {
	backend  Backend
	bus      bus.MessageBus
	metrics  http.Handler
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewServer builds the API. A nil metrics handler leaves /metrics unrouted.
func NewServer(backend Backend, messageBus bus.MessageBus, metrics http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default().With("component", "control")
	}

	return &Server{
		backend: backend,
		bus:     messageBus,
		metrics: metrics,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     sameHostOrigin,
		},
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/status", s.handleStatus)
	r.Get("/join-requests", s.handleJoinRequests)
	r.Get("/history", s.handleHistory)
	r.Group(func(r chi.Router) {
		// Simple cross-origin requests reach the server without a CORS preflight.
		r.Use(requireSameOrigin)
		r.Use(middleware.AllowContentType("application/json"))
		r.Put("/presence", s.handleSetPresence)
		r.Delete("/presence", s.handleClearPresence)
		r.Post("/reconnect", s.handleReconnect)
		r.Post("/join-requests/{userID}/reply", s.handleReply)
	})
	r.Get("/events", s.handleEvents)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	return r
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Routes(),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("control api listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown control api: %w", err)
		}

		return nil
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "status", ww.Status(), "duration", time.Since(started))
	})
}

func requireSameOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !sameHostOrigin(r) {
			writeError(w, http.StatusForbidden, errForeignOrigin)

			return
		}
		next.ServeHTTP(w, r)
	})
}

// sameHostOrigin accepts clients without an Origin header and browsers on the API host.
func sameHostOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}

	return u.Host == r.Host
}
