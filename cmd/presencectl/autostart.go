package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skobkin/presencego/internal/app"
)

func autostartCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "autostart",
		Short: "Manage starting presenced on login",
	}
	cmd.AddCommand(
		autostartSetCmd(c, "enable", true),
		autostartSetCmd(c, "disable", false),
		&cobra.Command{
			Use:   "status",
			Short: "Report whether presenced starts on login",
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				enabled, err := c.autostart.Enabled()
				if err != nil {
					return err
				}
				state := "disabled"
				if enabled {
					state = "enabled"
				}
				_, err = fmt.Fprintf(c.out, "Autostart is %s\n", state)

				return err
			},
		},
	)

	return cmd
}

func autostartSetCmd(c *cli, use string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: strings.ToUpper(use[:1]) + use[1:] + " starting presenced on login",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			paths, err := app.ResolvePaths(c.configPath)
			if err != nil {
				return err
			}
			args, err := c.daemonArgs()
			if err != nil {
				return err
			}

			err = app.SaveAutostart(c.autostart, paths, c.appID, enabled, args)
			var warning *app.AutostartSyncWarning
			if errors.As(err, &warning) {
				_, _ = fmt.Fprintf(c.errOut, "Warning: config saved but %s\n", warning)

				return warning
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(c.out, "Autostart %sd\n", use)

			return err
		},
	}
}

// daemonArgs forwards an explicit --config so the login entry reads the same file.
func (c *cli) daemonArgs() ([]string, error) {
	if strings.TrimSpace(c.configPath) == "" {
		return nil, nil
	}
	abs, err := filepath.Abs(c.configPath)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	return []string{"--config", abs}, nil
}
