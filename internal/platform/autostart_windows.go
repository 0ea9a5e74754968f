//go:build windows

package platform

import (
	"errors"
	"fmt"
	"syscall"

	"golang.org/x/sys/windows/registry"
)

const runKeyPath = `Software\Microsoft\Windows\CurrentVersion\Run`

type runKeyAutostart struct{}

func newAutostartManager() AutostartManager {
	return runKeyAutostart{}
}

func (runKeyAutostart) Sync(cfg AutostartConfig) error {
	key, _, err := registry.CreateKey(registry.CURRENT_USER, runKeyPath, registry.QUERY_VALUE|registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("open run key: %w", err)
	}
	defer key.Close()

	if !cfg.Enabled {
		if err := key.DeleteValue(autostartEntryName); err != nil && !isValueNotFound(err) {
			return fmt.Errorf("remove run value: %w", err)
		}

		return nil
	}

	exe, args, err := daemonCommand(cfg)
	if err != nil {
		return err
	}
	if err := key.SetStringValue(autostartEntryName, buildWindowsCommandLine(exe, args)); err != nil {
		return fmt.Errorf("set run value: %w", err)
	}

	return nil
}

func (runKeyAutostart) Enabled() (bool, error) {
	key, err := registry.OpenKey(registry.CURRENT_USER, runKeyPath, registry.QUERY_VALUE)
	if err != nil {
		if isValueNotFound(err) {
			return false, nil
		}

		return false, fmt.Errorf("open run key: %w", err)
	}
	defer key.Close()

	if _, _, err := key.GetStringValue(autostartEntryName); err != nil {
		if isValueNotFound(err) {
			return false, nil
		}

		return false, fmt.Errorf("read run value: %w", err)
	}

	return true, nil
}

func isValueNotFound(err error) bool {
	return errors.Is(err, registry.ErrNotExist) || errors.Is(err, syscall.Errno(2))
}
