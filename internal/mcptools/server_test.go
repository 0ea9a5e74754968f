package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/skobkin/presencego/internal/connectors"
	"github.com/skobkin/presencego/internal/domain"
	"github.com/skobkin/presencego/internal/rpc"
)

type fakeBackend struct {
	mu        sync.Mutex
	presence  *rpc.Activity
	cleared   bool
	replyErr  error
	replied   map[string]rpc.JoinReply
	lastQuery domain.HistoryQuery
}

func (b *fakeBackend) Status() domain.Status {
	return domain.Status{AppID: "123", Connection: connectors.ConnectionStatus{State: connectors.ConnectionStateConnected}}
}

func (b *fakeBackend) SetPresence(a *rpc.Activity) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.presence = a

	return nil
}

func (b *fakeBackend) ClearPresence() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cleared = true

	return nil
}

func (b *fakeBackend) ReplyJoinRequest(_ context.Context, userID string, reply rpc.JoinReply) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.replyErr != nil {
		return b.replyErr
	}
	if b.replied == nil {
		b.replied = map[string]rpc.JoinReply{}
	}
	b.replied[userID] = reply

	return nil
}

func (b *fakeBackend) History(_ context.Context, q domain.HistoryQuery) ([]domain.HistoryEvent, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastQuery = q

	return nil, nil
}

func newTestTools(backend Backend) *Tools {
	tools := NewTools(backend, slog.New(slog.NewTextHandler(io.Discard, nil)))
	tools.now = func() time.Time { return time.Unix(1700000000, 0) }

	return tools
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args

	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()

	if res == nil || len(res.Content) == 0 {
		t.Fatal("expected tool result content")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", res.Content[0])
	}

	return text.Text
}

func TestSetPresenceBuildsActivity(t *testing.T) {
	backend := &fakeBackend{}
	tools := newTestTools(backend)

	res, err := tools.handleSetPresence(context.Background(), callRequest("set_presence", map[string]any{
		"state":        "In a group",
		"details":      "Competitive",
		"large_image":  "map_dust",
		"party_id":     "party-1",
		"party_size":   float64(2),
		"party_max":    float64(5),
		"show_elapsed": true,
	}))
	if err != nil {
		t.Fatalf("set presence: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error %s", resultText(t, res))
	}

	got := backend.presence
	if got == nil || got.State != "In a group" || got.Details != "Competitive" {
		t.Fatalf("unexpected activity %+v", got)
	}
	if got.Assets == nil || got.Assets.LargeImage != "map_dust" {
		t.Fatalf("unexpected assets %+v", got.Assets)
	}
	if got.Party == nil || got.Party.ID != "party-1" || len(got.Party.Size) != 2 || got.Party.Size[1] != 5 {
		t.Fatalf("unexpected party %+v", got.Party)
	}
	if got.Timestamps == nil || got.Timestamps.Start != 1700000000 {
		t.Fatalf("unexpected timestamps %+v", got.Timestamps)
	}
}

func TestSetPresenceRejectsInvalidInput(t *testing.T) {
	tests := map[string]map[string]any{
		"empty":          {},
		"party overflow": {"state": "x", "party_size": float64(6), "party_max": float64(5)},
	}

	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			backend := &fakeBackend{}
			res, err := newTestTools(backend).handleSetPresence(context.Background(), callRequest("set_presence", args))
			if err != nil {
				t.Fatalf("unexpected handler error: %v", err)
			}
			if !res.IsError {
				t.Fatalf("expected tool error, got %s", resultText(t, res))
			}
			if backend.presence != nil {
				t.Fatalf("expected no presence to be sent, got %+v", backend.presence)
			}
		})
	}
}

func TestReplyJoinRequest(t *testing.T) {
	backend := &fakeBackend{}
	tools := newTestTools(backend)

	res, _ := tools.handleReply(context.Background(), callRequest("reply_join_request", map[string]any{"user_id": "42", "reply": "yes"}))
	if res.IsError {
		t.Fatalf("unexpected tool error %s", resultText(t, res))
	}
	if backend.replied["42"] != rpc.JoinReplyYes {
		t.Fatalf("expected yes reply, got %+v", backend.replied)
	}

	res, _ = tools.handleReply(context.Background(), callRequest("reply_join_request", map[string]any{"user_id": "42", "reply": "maybe"}))
	if !res.IsError {
		t.Fatal("expected unknown reply to fail")
	}

	backend.replyErr = errors.New("boom")
	res, _ = tools.handleReply(context.Background(), callRequest("reply_join_request", map[string]any{"user_id": "42", "reply": "no"}))
	if !res.IsError || !strings.Contains(resultText(t, res), "boom") {
		t.Fatal("expected backend error to surface")
	}
}

func TestListHistoryPassesFilters(t *testing.T) {
	backend := &fakeBackend{}
	tools := newTestTools(backend)

	res, _ := tools.handleListHistory(context.Background(), callRequest("list_history", map[string]any{"kind": "join", "limit": float64(3)}))
	if res.IsError {
		t.Fatalf("unexpected tool error %s", resultText(t, res))
	}
	if text := resultText(t, res); text != "[]" {
		t.Fatalf("expected empty list, got %s", text)
	}
	if backend.lastQuery.Kind != domain.EventKindJoin || backend.lastQuery.Limit != 3 {
		t.Fatalf("unexpected query %+v", backend.lastQuery)
	}
}

func TestGetStatusAndClear(t *testing.T) {
	backend := &fakeBackend{}
	tools := newTestTools(backend)

	res, _ := tools.handleGetStatus(context.Background(), callRequest("get_status", nil))
	var status domain.Status
	if err := json.Unmarshal([]byte(resultText(t, res)), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.AppID != "123" || status.Connection.State != connectors.ConnectionStateConnected {
		t.Fatalf("unexpected status %+v", status)
	}

	res, _ = tools.handleClearPresence(context.Background(), callRequest("clear_presence", nil))
	if res.IsError || !backend.cleared {
		t.Fatal("expected presence to be cleared")
	}
}

func TestServerListsTools(t *testing.T) {
	s := newTestTools(&fakeBackend{}).NewServer("test")

	resp := s.HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	raw, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("encode response: %v", err)
	}
	for _, name := range []string{"get_status", "set_presence", "clear_presence", "reply_join_request", "list_history"} {
		if !strings.Contains(string(raw), `"`+name+`"`) {
			t.Fatalf("tool %s missing from %s", name, raw)
		}
	}
}
