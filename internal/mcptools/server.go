// Package mcptools exposes presence control to MCP clients over stdio.
package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/skobkin/presencego/internal/domain"
	"github.com/skobkin/presencego/internal/rpc"
)

const serverName = "presencego"

// Backend is the subset of the daemon the tools drive.
type Backend interface {
	Status() domain.Status
	SetPresence(a *rpc.Activity) error
	ClearPresence() error
	ReplyJoinRequest(ctx context.Context, userID string, reply rpc.JoinReply) error
	History(ctx context.Context, q domain.HistoryQuery) ([]domain.HistoryEvent, error)
}

type Tools struct {
	backend Backend
	logger  *slog.Logger
	now     func() time.Time
}

func NewTools(backend Backend, logger *slog.Logger) *Tools {
	if logger == nil {
		logger = slog.Default().With("component", "mcp")
	}

	return &Tools{backend: backend, logger: logger, now: time.Now}
}

// NewServer builds an MCP server with every presence tool registered.
func (t *Tools) NewServer(version string) *server.MCPServer {
	s := server.NewMCPServer(serverName, version, server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool("get_status",
		mcp.WithDescription("Get the Discord connection state, the logged in user, the current presence and pending join requests"),
	), t.handleGetStatus)

	s.AddTool(mcp.NewTool("set_presence",
		mcp.WithDescription("Replace the rich presence shown on the Discord profile"),
		mcp.WithString("state", mcp.Description("Second line, e.g. \"In a group\"")),
		mcp.WithString("details", mcp.Description("First line, e.g. \"Competitive\"")),
		mcp.WithString("large_image", mcp.Description("Asset key of the large image")),
		mcp.WithString("large_text", mcp.Description("Tooltip of the large image")),
		mcp.WithString("small_image", mcp.Description("Asset key of the small image")),
		mcp.WithString("small_text", mcp.Description("Tooltip of the small image")),
		mcp.WithString("party_id", mcp.Description("Party identifier")),
		mcp.WithNumber("party_size", mcp.Description("Current party size")),
		mcp.WithNumber("party_max", mcp.Description("Maximum party size")),
		mcp.WithBoolean("show_elapsed", mcp.Description("Show time elapsed since now")),
	), t.handleSetPresence)

	s.AddTool(mcp.NewTool("clear_presence",
		mcp.WithDescription("Remove the rich presence from the Discord profile"),
	), t.handleClearPresence)

	s.AddTool(mcp.NewTool("reply_join_request",
		mcp.WithDescription("Answer a pending join request"),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("Discord user id of the requester")),
		mcp.WithString("reply", mcp.Required(), mcp.Enum("yes", "no", "ignore")),
	), t.handleReply)

	s.AddTool(mcp.NewTool("list_history",
		mcp.WithDescription("List recorded connection and activity events, newest first"),
		mcp.WithString("kind", mcp.Description("Only events of this kind"),
			mcp.Enum(string(domain.EventKindConnection), string(domain.EventKindReady), string(domain.EventKindPeerError),
				string(domain.EventKindJoin), string(domain.EventKindSpectate), string(domain.EventKindJoinRequest))),
		mcp.WithNumber("limit", mcp.Description("Maximum number of events")),
	), t.handleListHistory)

	return s
}

// ServeStdio runs s on in/out until ctx is done or in is closed.
func ServeStdio(ctx context.Context, s *server.MCPServer, in io.Reader, out io.Writer, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default().With("component", "mcp")
	}
	stdio := server.NewStdioServer(s)
	stdio.SetErrorLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError))

	logger.Info("started stdio MCP server")
	defer logger.Info("shut down stdio MCP server")

	err := stdio.Listen(ctx, in, out)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("serve mcp: %w", err)
	}

	return nil
}

func (t *Tools) handleGetStatus(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(t.backend.Status())
}

func (t *Tools) handleSetPresence(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a, err := t.activityFromRequest(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := t.backend.SetPresence(a); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("set presence: %v", err)), nil
	}
	t.logger.Debug("presence set via mcp", "state", a.State, "details", a.Details)

	return jsonResult(a)
}

func (t *Tools) handleClearPresence(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := t.backend.ClearPresence(); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("clear presence: %v", err)), nil
	}

	return mcp.NewToolResultText("presence cleared"), nil
}

func (t *Tools) handleReply(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := request.RequireString("user_id")
	if err != nil {
		return mcp.NewToolResultError("user_id is required and must be a string"), nil
	}
	rawReply, err := request.RequireString("reply")
	if err != nil {
		return mcp.NewToolResultError("reply is required and must be a string"), nil
	}
	reply, ok := rpc.ParseJoinReply(rawReply)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown reply %q, want yes, no or ignore", rawReply)), nil
	}

	if err := t.backend.ReplyJoinRequest(ctx, userID, reply); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("reply to %s: %v", userID, err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("replied %s to %s", rawReply, userID)), nil
}

func (t *Tools) handleListHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q := domain.HistoryQuery{
		Kind:  domain.EventKind(request.GetString("kind", "")),
		Limit: int(request.GetFloat("limit", 0)),
	}
	events, err := t.backend.History(ctx, q)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list history: %v", err)), nil
	}
	if events == nil {
		events = []domain.HistoryEvent{}
	}

	return jsonResult(events)
}

func (t *Tools) activityFromRequest(request mcp.CallToolRequest) (*rpc.Activity, error) {
	a := &rpc.Activity{
		State:   strings.TrimSpace(request.GetString("state", "")),
		Details: strings.TrimSpace(request.GetString("details", "")),
	}
	assets := rpc.Assets{
		LargeImage: request.GetString("large_image", ""),
		LargeText:  request.GetString("large_text", ""),
		SmallImage: request.GetString("small_image", ""),
		SmallText:  request.GetString("small_text", ""),
	}
	if assets != (rpc.Assets{}) {
		a.Assets = &assets
	}

	size, maxSize := int(request.GetFloat("party_size", 0)), int(request.GetFloat("party_max", 0))
	partyID := request.GetString("party_id", "")
	if size > 0 || maxSize > 0 || partyID != "" {
		if size > maxSize {
			return nil, fmt.Errorf("party_size %d exceeds party_max %d", size, maxSize)
		}
		a.Party = &rpc.Party{ID: partyID}
		if maxSize > 0 {
			a.Party.Size = []int{size, maxSize}
		}
	}
	if request.GetBool("show_elapsed", false) {
		a.Timestamps = rpc.NewTimestamps(t.now(), time.Time{})
	}
	if a.State == "" && a.Details == "" && a.Assets == nil && a.Party == nil && a.Timestamps == nil {
		return nil, errors.New("empty presence, use clear_presence instead")
	}

	return a, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}

	return mcp.NewToolResultText(string(raw)), nil
}
