package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/skobkin/presencego/internal/rpc"
)

const (
	presenceAckTimeout = 10 * time.Second
	maxButtons         = 2
)

var errPeerGone = errors.New("discord closed the connection")

type presenceFlags struct {
	state      string
	details    string
	largeImage string
	largeText  string
	smallImage string
	smallText  string
	partyID    string
	partySize  int
	partyMax   int
	elapsed    bool
	endsIn     time.Duration
	join       string
	spectate   string
	match      string
	instance   bool
	buttons    []string
}

// activity builds the payload; now anchors elapsed and countdown timestamps.
func (f presenceFlags) activity(now time.Time) (*rpc.Activity, error) {
	a := &rpc.Activity{
		State:    strings.TrimSpace(f.state),
		Details:  strings.TrimSpace(f.details),
		Instance: f.instance,
	}

	assets := rpc.Assets{LargeImage: f.largeImage, LargeText: f.largeText, SmallImage: f.smallImage, SmallText: f.smallText}
	if assets != (rpc.Assets{}) {
		a.Assets = &assets
	}

	if f.partyID != "" || f.partySize > 0 || f.partyMax > 0 {
		if f.partySize < 0 || f.partyMax < 0 || f.partySize > f.partyMax {
			return nil, fmt.Errorf("invalid party size %d/%d", f.partySize, f.partyMax)
		}
		a.Party = &rpc.Party{ID: f.partyID}
		if f.partyMax > 0 {
			a.Party.Size = []int{f.partySize, f.partyMax}
		}
	}

	var start, end time.Time
	if f.elapsed {
		start = now
	}
	if f.endsIn > 0 {
		end = now.Add(f.endsIn)
	}
	if !start.IsZero() || !end.IsZero() {
		a.Timestamps = rpc.NewTimestamps(start, end)
	}

	secrets := rpc.Secrets{Join: f.join, Spectate: f.spectate, Match: f.match}
	if secrets != (rpc.Secrets{}) {
		a.Secrets = &secrets
	}

	if len(f.buttons) > maxButtons {
		return nil, fmt.Errorf("at most %d buttons are allowed", maxButtons)
	}
	for _, raw := range f.buttons {
		label, link, ok := strings.Cut(raw, "=")
		label, link = strings.TrimSpace(label), strings.TrimSpace(link)
		if !ok || label == "" || link == "" {
			return nil, fmt.Errorf("button %q: want label=url", raw)
		}
		if u, err := url.Parse(link); err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("button %q: invalid url", raw)
		}
		a.Buttons = append(a.Buttons, rpc.Button{Label: label, URL: link})
	}

	if a.State == "" && a.Details == "" && a.Assets == nil && a.Party == nil && a.Timestamps == nil && a.Secrets == nil && len(a.Buttons) == 0 {
		return nil, errors.New("nothing to publish: set at least --state or --details")
	}

	return a, nil
}

func setCmd(c *cli) *cobra.Command {
	var (
		f    presenceFlags
		hold time.Duration
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Publish a rich presence and keep it while connected",
		Long: `Publish a rich presence and keep the connection open.

Discord drops the presence when the connection closes, so set keeps running
until interrupted or until --hold elapses.

Examples:
  presencectl set --details "Competitive" --state "In a group" --party-size 2 --party-max 5
  presencectl set --state "Reading docs" --elapsed --hold 30m
  presencectl set --details "Speedrun" --button "Watch=https://example.com/live"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := f.activity(time.Now())
			if err != nil {
				return err
			}

			return c.runPresence(cmd.Context(), a, hold)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.state, "state", "", "second line, e.g. \"In a group\"")
	flags.StringVar(&f.details, "details", "", "first line, e.g. \"Competitive\"")
	flags.StringVar(&f.largeImage, "large-image", "", "large image asset key")
	flags.StringVar(&f.largeText, "large-text", "", "large image tooltip")
	flags.StringVar(&f.smallImage, "small-image", "", "small image asset key")
	flags.StringVar(&f.smallText, "small-text", "", "small image tooltip")
	flags.StringVar(&f.partyID, "party-id", "", "party id")
	flags.IntVar(&f.partySize, "party-size", 0, "current party size")
	flags.IntVar(&f.partyMax, "party-max", 0, "maximum party size")
	flags.BoolVar(&f.elapsed, "elapsed", false, "show time elapsed since now")
	flags.DurationVar(&f.endsIn, "ends-in", 0, "show a countdown ending after this duration")
	flags.StringVar(&f.join, "join-secret", "", "secret sent to players who join")
	flags.StringVar(&f.spectate, "spectate-secret", "", "secret sent to spectators")
	flags.StringVar(&f.match, "match-secret", "", "secret identifying the match")
	flags.BoolVar(&f.instance, "instance", false, "mark the activity as a game instance")
	flags.StringArrayVar(&f.buttons, "button", nil, "button as label=url, up to two")
	flags.DurationVar(&hold, "hold", 0, "exit after this long; 0 keeps the presence until interrupted")

	return cmd
}

func clearCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear the rich presence of this application",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runPresence(cmd.Context(), nil, -1)
		},
	}
}

// runPresence publishes a (nil clears), waits for it to reach Discord and then holds the
// connection: hold < 0 returns at once, hold == 0 waits for ctx.
func (c *cli) runPresence(ctx context.Context, a *rpc.Activity, hold time.Duration) error {
	sent := make(chan *rpc.Activity, 1)
	gone := make(chan error, 1)
	s, err := c.dial(ctx, rpc.Handlers{
		PresenceSent: func(a *rpc.Activity) {
			select {
			case sent <- a:
			default:
			}
		},
		Disconnect: func(reason error) {
			select {
			case gone <- reason:
			default:
			}
		},
	})
	if err != nil {
		return err
	}
	defer s.Close()

	if a == nil {
		err = s.client.ClearPresence()
	} else {
		err = s.client.UpdatePresence(a)
	}
	if err != nil {
		return err
	}

	select {
	case <-sent:
	case reason := <-gone:
		return fmt.Errorf("%w: %v", errPeerGone, reason)
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(presenceAckTimeout):
		return errors.New("timed out waiting for the presence to be sent")
	}

	if a == nil {
		_, err = fmt.Fprintln(c.out, "Presence cleared")

		return err
	}
	if _, err := fmt.Fprintf(c.out, "Presence set on %s\n", s.client.Endpoint()); err != nil {
		return err
	}
	if hold < 0 {
		return nil
	}

	var timeout <-chan time.Time
	if hold > 0 {
		timer := time.NewTimer(hold)
		defer timer.Stop()
		timeout = timer.C
	}
	select {
	case <-ctx.Done():
		return nil
	case <-timeout:
		return nil
	case reason := <-gone:
		return fmt.Errorf("%w: %v", errPeerGone, reason)
	}
}
