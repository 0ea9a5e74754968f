package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/skobkin/presencego/internal/app"
	"github.com/skobkin/presencego/internal/domain"
)

func statusCmd(c *cli) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the presenced connection, presence and pending join requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var st domain.Status
			if err := c.call(cmd.Context(), http.MethodGet, "/status", nil, nil, &st); err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(c.out)
				enc.SetIndent("", "  ")

				return enc.Encode(st)
			}

			return writeStatus(c.out, st)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw status document")

	return cmd
}

func writeStatus(w io.Writer, st domain.Status) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Application:\t%s\n", st.AppID)
	fmt.Fprintf(tw, "Daemon:\t%s\n", st.Version)
	fmt.Fprintf(tw, "Discord:\t%s\n", app.ConnectionStatusLabel(st.Connection))
	if st.User != nil {
		fmt.Fprintf(tw, "User:\t%s [%s]\n", st.User.Username, st.User.ID)
	}
	fmt.Fprintf(tw, "Presence:\t%s\n", describePresence(st))
	history := "off"
	if st.History {
		history = "on"
	}
	fmt.Fprintf(tw, "History:\t%s\n", history)
	if st.Update != nil && st.Update.UpdateAvailable {
		fmt.Fprintf(tw, "Update:\t%s at %s\n", st.Update.Latest.Version, st.Update.Latest.HTMLURL)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(st.JoinRequests) == 0 {
		return nil
	}
	fmt.Fprintln(w, "\nPending join requests:")
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  USER ID\tUSERNAME\tRECEIVED")
	for _, req := range st.JoinRequests {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", req.UserID, req.Username, req.ReceivedAt.Local().Format(time.DateTime))
	}

	return tw.Flush()
}

func describePresence(st domain.Status) string {
	a := st.Presence
	if a == nil {
		return "none"
	}
	switch {
	case a.Details != "" && a.State != "":
		return a.Details + " / " + a.State
	case a.Details != "":
		return a.Details
	case a.State != "":
		return a.State
	default:
		return "set"
	}
}
