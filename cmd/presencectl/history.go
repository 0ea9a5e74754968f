package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/skobkin/presencego/internal/domain"
)

func historyCmd(c *cli) *cobra.Command {
	var (
		kind   string
		limit  int
		before string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List events recorded by presenced",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q := url.Values{}
			if kind != "" {
				q.Set("kind", kind)
			}
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}
			if before != "" {
				if _, err := time.Parse(time.RFC3339, before); err != nil {
					return fmt.Errorf("invalid --before %q: want RFC 3339", before)
				}
				q.Set("before", before)
			}

			var events []domain.HistoryEvent
			if err := c.call(cmd.Context(), http.MethodGet, "/history", q, nil, &events); err != nil {
				return err
			}
			if asJSON {
				return json.NewEncoder(c.out).Encode(events)
			}
			if len(events) == 0 {
				_, err := fmt.Fprintln(c.out, "No events")

				return err
			}

			tw := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tKIND\tSUMMARY")
			for _, ev := range events {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", ev.At.Local().Format(time.DateTime), ev.Kind, ev.Summary)
			}

			return tw.Flush()
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&kind, "kind", "", "only this kind: connection, ready, peer_error, join, spectate or join_request")
	flags.IntVar(&limit, "limit", 20, "maximum number of events")
	flags.StringVar(&before, "before", "", "only events before this RFC 3339 time")
	flags.BoolVar(&asJSON, "json", false, "print events as JSON")

	return cmd
}
