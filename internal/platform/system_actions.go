package platform

import (
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
)

const discordURI = "discord://"

// SystemActions opens things outside the daemon on behalf of the tray.
type SystemActions interface {
	OpenDiscord() error
	OpenPath(path string) error
}

func NewSystemActions() SystemActions {
	return &systemActions{goos: runtime.GOOS, start: startDetached}
}

type commandSpec struct {
	name string
	args []string
}

type commandStarter func(name string, args ...string) error

type systemActions struct {
	goos  string
	start commandStarter
}

// OpenDiscord brings up the Discord client through its URI handler, falling back to known launchers.
func (a *systemActions) OpenDiscord() error {
	commands, err := discordCommands(a.goos)
	if err != nil {
		return err
	}

	return runFirst("open discord", a.goos, commands, a.start)
}

// OpenPath shows a file or directory with the desktop's default handler.
func (a *systemActions) OpenPath(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("open path: empty path")
	}
	opener, err := openerFor(a.goos)
	if err != nil {
		return err
	}

	return runFirst("open path", a.goos, []commandSpec{{name: opener.name, args: append(opener.args, path)}}, a.start)
}

func discordCommands(goos string) ([]commandSpec, error) {
	switch goos {
	case "linux":
		return []commandSpec{
			{name: "xdg-open", args: []string{discordURI}},
			{name: "discord"},
			{name: "flatpak", args: []string{"run", "com.discordapp.Discord"}},
		}, nil
	case "windows":
		return []commandSpec{{name: "cmd", args: []string{"/c", "start", "", discordURI}}}, nil
	case "darwin":
		return []commandSpec{
			{name: "open", args: []string{discordURI}},
			{name: "open", args: []string{"-a", "Discord"}},
		}, nil
	default:
		return nil, fmt.Errorf("opening discord is not supported on %s", goos)
	}
}

func openerFor(goos string) (commandSpec, error) {
	switch goos {
	case "linux":
		return commandSpec{name: "xdg-open"}, nil
	case "windows":
		return commandSpec{name: "cmd", args: []string{"/c", "start", ""}}, nil
	case "darwin":
		return commandSpec{name: "open"}, nil
	default:
		return commandSpec{}, fmt.Errorf("opening files is not supported on %s", goos)
	}
}

func runFirst(action, goos string, commands []commandSpec, start commandStarter) error {
	var errs []error
	for i, candidate := range commands {
		err := start(candidate.name, candidate.args...)
		if err == nil {
			slog.Debug(action, "goos", goos, "command", candidate.name, "attempt", i+1)

			return nil
		}
		slog.Debug(action+" command failed", "goos", goos, "command", candidate.name, "args", candidate.args, "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", candidate.name, err))
	}

	joined := errors.Join(errs...)
	slog.Warn(action+" failed", "goos", goos, "error", joined)

	return joined
}

func startDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()

	return nil
}
