package main

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/skobkin/presencego/internal/rpc"
)

func replyCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:       "reply <user-id> yes|no|ignore",
		Short:     "Answer a pending join request held by presenced",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"yes", "no", "ignore"},
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, raw := args[0], args[1]
			reply, ok := rpc.ParseJoinReply(raw)
			if !ok {
				return fmt.Errorf("unknown reply %q, want yes, no or ignore", raw)
			}

			body := map[string]string{"reply": reply.String()}
			path := "/join-requests/" + url.PathEscape(userID) + "/reply"
			if err := c.call(cmd.Context(), http.MethodPost, path, nil, body, nil); err != nil {
				return err
			}
			_, err := fmt.Fprintf(c.out, "Replied %s to %s\n", reply, userID)

			return err
		},
	}
}
