package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/skobkin/presencego/internal/platform"
	"github.com/skobkin/presencego/internal/rpc"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(newCLI(os.Stdout, os.Stderr)).ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// cli holds global flags and the seams tests replace.
type cli struct {
	out    io.Writer
	errOut io.Writer

	configPath string
	appID      string
	ipcDir     string
	logLevel   string
	addr       string

	// locator overrides endpoint discovery; nil scans the configured IPC dirs.
	locator   rpc.Locator
	http      *http.Client
	autostart platform.AutostartManager

	// releasesURL overrides the release API used by version --check.
	releasesURL string
}

func newCLI(out, errOut io.Writer) *cli {
	return &cli{
		out:       out,
		errOut:    errOut,
		http:      &http.Client{Timeout: 10 * time.Second},
		autostart: platform.NewAutostartManager(),
	}
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "presencectl",
		Short: "Drive Discord rich presence from the command line",
		Long: `presencectl talks to a local Discord client over its IPC socket.

Commands that own a connection (connect, set, clear, listen) dial Discord
directly. Commands that work with pending join requests and history
(status, reply, history) go through a running presenced control API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(c.out)
	root.SetErr(c.errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "config file (default: user config dir)")
	flags.StringVar(&c.appID, "app-id", "", "Discord application id, overrides discord.app_id")
	flags.StringVar(&c.ipcDir, "ipc-dir", "", "directory holding discord-ipc-N sockets")
	flags.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.StringVar(&c.addr, "addr", "", "presenced control API address, overrides daemon.listen_addr")

	root.AddCommand(
		connectCmd(c),
		setCmd(c),
		clearCmd(c),
		listenCmd(c),
		statusCmd(c),
		replyCmd(c),
		historyCmd(c),
		autostartCmd(c),
		versionCmd(c),
	)

	return root
}
