package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/skobkin/presencego/internal/ipc"
)

const (
	// DefaultHandlerInterval is the presence flush period.
	DefaultHandlerInterval = time.Second
	// The peer accepts five activity updates per twenty seconds.
	activityRateBurst  = 5
	activityRateWindow = 20 * time.Second
)

var nullActivity = []byte("null")

// DefaultActivityLimiter matches the peer's documented SET_ACTIVITY rate limit.
func DefaultActivityLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Every(activityRateWindow/activityRateBurst), activityRateBurst)
}

// SendFunc writes one command to the connection.
type SendFunc func(ctx context.Context, cmd ipc.Command) error

// Publisher coalesces presence updates and emits SET_ACTIVITY only when the value changed.
type Publisher struct {
	pid     int
	limiter *rate.Limiter

	mu         sync.Mutex
	pending    []byte
	pendingSet bool
	sent       []byte
	sentSet    bool
}

// NewPublisher creates a publisher for process pid. A nil limiter disables rate limiting.
func NewPublisher(pid int, limiter *rate.Limiter) *Publisher {
	return &Publisher{pid: pid, limiter: limiter}
}

// Update stores a as the pending value. A nil activity clears the presence.
func (p *Publisher) Update(a *Activity) error {
	raw := nullActivity
	if a != nil {
		encoded, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("encode activity: %w", err)
		}
		raw = encoded
	}

	p.mu.Lock()
	p.pending = raw
	p.pendingSet = true
	p.mu.Unlock()

	return nil
}

// Pending returns the latest value passed to Update.
func (p *Publisher) Pending() (*Activity, bool) {
	p.mu.Lock()
	raw, ok := p.pending, p.pendingSet
	p.mu.Unlock()
	if !ok {
		return nil, false
	}

	return decodeActivity(raw), true
}

// Reset forgets what was sent so the next flush re-sends the pending value to a new session.
func (p *Publisher) Reset() {
	p.mu.Lock()
	p.sent = nil
	p.sentSet = false
	p.mu.Unlock()
}

// Flush sends the pending value if it differs from the last one sent.
// It returns the value that was sent, or nil with false when nothing went out.
func (p *Publisher) Flush(ctx context.Context, send SendFunc) (*Activity, bool, error) {
	p.mu.Lock()
	if !p.pendingSet || (p.sentSet && bytes.Equal(p.pending, p.sent)) {
		p.mu.Unlock()

		return nil, false, nil
	}
	if p.limiter != nil && !p.limiter.Allow() {
		p.mu.Unlock()

		return nil, false, nil
	}
	raw := p.pending
	p.mu.Unlock()

	cmd := ipc.NewCommand(ipc.CommandSetActivity, map[string]any{
		"pid":      p.pid,
		"activity": json.RawMessage(raw),
	})
	if err := send(ctx, cmd); err != nil {
		return nil, false, fmt.Errorf("send activity: %w", err)
	}

	p.mu.Lock()
	p.sent = raw
	p.sentSet = true
	p.mu.Unlock()

	return decodeActivity(raw), true, nil
}

func decodeActivity(raw []byte) *Activity {
	if bytes.Equal(raw, nullActivity) {
		return nil
	}
	var a Activity
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil
	}

	return &a
}
