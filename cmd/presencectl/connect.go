package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skobkin/presencego/internal/rpc"
)

type readyInfo struct {
	Endpoint    string `json:"endpoint"`
	Version     int    `json:"version"`
	Environment string `json:"environment,omitempty"`
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	GlobalName  string `json:"global_name,omitempty"`
}

func connectCmd(c *cli) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Handshake with Discord and print the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := c.dial(cmd.Context(), rpc.Handlers{})
			if err != nil {
				return err
			}
			defer s.Close()

			ready, _ := s.client.ReadyInfo()
			info := readyInfo{
				Endpoint:    s.client.Endpoint(),
				Version:     ready.Version,
				Environment: ready.Config.Environment,
				UserID:      ready.User.ID,
				Username:    ready.User.Username,
				GlobalName:  ready.User.GlobalName,
			}
			if asJSON {
				return json.NewEncoder(c.out).Encode(info)
			}

			name := info.Username
			if info.GlobalName != "" {
				name = info.GlobalName + " (" + info.Username + ")"
			}
			_, err = fmt.Fprintf(c.out, "Connected to %s as %s [%s]\n", info.Endpoint, name, info.UserID)

			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print ready info as JSON")

	return cmd
}
