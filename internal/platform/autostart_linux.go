//go:build linux

package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type desktopEntryAutostart struct{}

func newAutostartManager() AutostartManager {
	return desktopEntryAutostart{}
}

func (desktopEntryAutostart) Sync(cfg AutostartConfig) error {
	entryPath, err := desktopEntryPath()
	if err != nil {
		return err
	}

	if !cfg.Enabled {
		if err := os.Remove(entryPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", entryPath, err)
		}

		return nil
	}

	exe, args, err := daemonCommand(cfg)
	if err != nil {
		return err
	}
	if err := writeFileAtomically(entryPath, []byte(renderDesktopEntry(exe, args)), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", entryPath, err)
	}

	return nil
}

func (desktopEntryAutostart) Enabled() (bool, error) {
	entryPath, err := desktopEntryPath()
	if err != nil {
		return false, err
	}
	_, err = os.Stat(entryPath)
	switch {
	case err == nil:
		return true, nil
	case os.IsNotExist(err):
		return false, nil
	default:
		return false, fmt.Errorf("stat %s: %w", entryPath, err)
	}
}

// desktopEntryPath follows the XDG autostart spec: $XDG_CONFIG_HOME/autostart.
func desktopEntryPath() (string, error) {
	cfgHome := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME"))
	if cfgHome == "" {
		var err error
		if cfgHome, err = os.UserConfigDir(); err != nil {
			return "", fmt.Errorf("resolve user config dir: %w", err)
		}
	}

	return filepath.Join(filepath.Clean(cfgHome), "autostart", autostartEntryName+".desktop"), nil
}

func renderDesktopEntry(exe string, args []string) string {
	fields := make([]string, 0, 1+len(args))
	for _, f := range append([]string{exe}, args...) {
		f = strings.ReplaceAll(f, `\`, `\\`)
		f = strings.ReplaceAll(f, `"`, `\"`)
		fields = append(fields, `"`+f+`"`)
	}

	return "[Desktop Entry]\n" +
		"Type=Application\n" +
		"Name=presencego\n" +
		"Comment=Discord rich presence daemon\n" +
		"Exec=" + strings.Join(fields, " ") + "\n" +
		"Terminal=false\n" +
		"NoDisplay=true\n" +
		"X-GNOME-Autostart-enabled=true\n"
}

func writeFileAtomically(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create dir %q: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, autostartEntryName+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	return os.Rename(tmp.Name(), path)
}
