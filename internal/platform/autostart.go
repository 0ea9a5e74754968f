package platform

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	autostartEntryName = "presenced"
	daemonBinary       = "presenced"
)

// AutostartConfig registers the daemon to start on login.
type AutostartConfig struct {
	Enabled bool
	// Executable is the daemon path; empty resolves presenced next to the running binary or on PATH.
	Executable string
	Args       []string
}

type AutostartManager interface {
	Sync(cfg AutostartConfig) error
	Enabled() (bool, error)
}

func NewAutostartManager() AutostartManager {
	return newAutostartManager()
}

func daemonCommand(cfg AutostartConfig) (string, []string, error) {
	if exe := strings.TrimSpace(cfg.Executable); exe != "" {
		abs, err := filepath.Abs(exe)
		if err != nil {
			return "", nil, fmt.Errorf("resolve daemon path: %w", err)
		}

		return filepath.Clean(abs), cfg.Args, nil
	}

	exe, err := findDaemonExecutable()
	if err != nil {
		return "", nil, err
	}

	return exe, cfg.Args, nil
}

func findDaemonExecutable() (string, error) {
	name := daemonBinary
	if runtime.GOOS == "windows" {
		name += ".exe"
	}

	if self, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(self); err == nil {
			self = resolved
		}
		sibling := filepath.Join(filepath.Dir(self), name)
		if info, err := os.Stat(sibling); err == nil && !info.IsDir() {
			return sibling, nil
		}
	}

	path, err := exec.LookPath(name)
	if err != nil {
		return "", errors.Join(fmt.Errorf("%s not found next to this binary or on PATH", name), err)
	}

	return filepath.Abs(path)
}
