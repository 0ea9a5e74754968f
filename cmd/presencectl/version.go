package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/skobkin/presencego/internal/app"
)

func versionCmd(c *cli) *cobra.Command {
	var short, check bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if short {
				_, err := fmt.Fprintln(c.out, app.BuildVersion())

				return err
			}

			fmt.Fprintf(c.out, "presencectl %s\n", app.BuildString())
			fmt.Fprintf(c.out, "  Go version: %s\n", runtime.Version())
			fmt.Fprintf(c.out, "  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
			if !check {
				return nil
			}

			checker := app.NewUpdateChecker(app.UpdateCheckerDependencies{
				CurrentVersion: app.BuildVersion(),
				Endpoint:       c.releasesURL,
				HTTPClient:     c.http,
			})
			snapshot, err := checker.Check(cmd.Context())
			if err != nil {
				return err
			}
			if !snapshot.UpdateAvailable {
				_, err = fmt.Fprintf(c.out, "  Latest:     %s (up to date)\n", snapshot.Latest.Version)

				return err
			}
			_, err = fmt.Fprintf(c.out, "  Latest:     %s, update available at %s\n", snapshot.Latest.Version, snapshot.Latest.HTMLURL)

			return err
		},
	}
	cmd.Flags().BoolVarP(&short, "short", "s", false, "print only the version number")
	cmd.Flags().BoolVar(&check, "check", false, "look up the latest release")

	return cmd
}
