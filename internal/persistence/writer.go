package persistence

import (
	"context"
	"log/slog"
	"time"
)

const (
	defaultQueueCapacity = 256
	maxWriteAttempts     = 3
	writeRetryStep       = 300 * time.Millisecond
)

type writeCmd struct {
	name string
	fn   func(context.Context) error
	done chan struct{}
}

// WriterQueue runs database writes one at a time off the publishing goroutine.
type WriterQueue struct {
	logger *slog.Logger
	queue  chan writeCmd
}

func NewWriterQueue(logger *slog.Logger, capacity int) *WriterQueue {
	if logger == nil {
		logger = slog.Default().With("component", "persistence.writer")
	}
	if capacity <= 0 {
		capacity = defaultQueueCapacity
	}

	return &WriterQueue{
		logger: logger,
		queue:  make(chan writeCmd, capacity),
	}
}

// Enqueue never blocks the caller; when the queue is full the command is handed off to a goroutine.
func (w *WriterQueue) Enqueue(name string, fn func(context.Context) error) {
	w.push(writeCmd{name: name, fn: fn})
}

func (w *WriterQueue) push(cmd writeCmd) {
	select {
	case w.queue <- cmd:
	default:
		w.logger.Warn("db write queue is full", "cmd", cmd.name, "capacity", cap(w.queue))
		go func() { w.queue <- cmd }()
	}
}

// Flush waits until every command enqueued before the call has run.
func (w *WriterQueue) Flush(ctx context.Context) error {
	done := make(chan struct{})
	w.push(writeCmd{name: "flush", done: done})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *WriterQueue) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case cmd := <-w.queue:
				if cmd.done != nil {
					close(cmd.done)

					continue
				}
				w.runWithRetry(ctx, cmd)
			}
		}
	}()
}

func (w *WriterQueue) runWithRetry(ctx context.Context, cmd writeCmd) {
	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		err := cmd.fn(ctx)
		if err == nil {
			return
		}
		w.logger.Error("db write failed", "cmd", cmd.name, "attempt", attempt, "error", err)
		if attempt == maxWriteAttempts {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(attempt) * writeRetryStep):
		}
	}
}
