package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/skobkin/presencego/internal/app"
	"github.com/skobkin/presencego/internal/bus"
	"github.com/skobkin/presencego/internal/connectors"
	"github.com/skobkin/presencego/internal/control"
	"github.com/skobkin/presencego/internal/rpc"
)

func listenCmd(c *cli) *cobra.Command {
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Print Discord events as JSON lines",
		Long: `Connect to Discord and print every event as one JSON object per line,
in the same {"topic": ..., "data": ...} shape the presenced /events stream uses.

Join, spectate and join request events arrive only for the events enabled in
discord.subscriptions.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.listen(cmd.Context(), duration)
		},
	}
	cmd.Flags().DurationVar(&duration, "for", 0, "stop after this long; 0 listens until interrupted")

	return cmd
}

func (c *cli) listen(ctx context.Context, duration time.Duration) error {
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	events := bus.New(nil)
	defer events.Close()
	topics := connectors.AllTopics()
	sub := events.Subscribe(topics...)
	defer bus.Release(events, sub)

	gone := make(chan error, 1)
	bridge := app.NewBridge(events, nil)
	s, err := c.dial(ctx, bridge.Handlers(rpc.Handlers{
		Disconnect: func(reason error) {
			select {
			case gone <- reason:
			default:
			}
		},
	}))
	if err != nil {
		return err
	}
	defer s.Close()

	enc := json.NewEncoder(c.out)
	emit := func(msg any) error {
		ev, ok, err := control.EncodeEvent(msg)
		if err != nil || !ok {
			return err
		}

		return enc.Encode(ev)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case reason := <-gone:
			drain(sub, emit)

			return fmt.Errorf("%w: %v", errPeerGone, reason)
		case msg, ok := <-sub:
			if !ok {
				return nil
			}
			if err := emit(msg); err != nil {
				return err
			}
		}
	}
}

// drain prints whatever the bus already delivered.
func drain(sub bus.Subscription, emit func(any) error) {
	for {
		select {
		case msg, ok := <-sub:
			if !ok || emit(msg) != nil {
				return
			}
		default:
			return
		}
	}
}
