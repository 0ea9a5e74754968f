//go:build !linux && !windows

package platform

import (
	"fmt"
	"runtime"
)

type noAutostart struct{}

func newAutostartManager() AutostartManager {
	return noAutostart{}
}

func (noAutostart) Sync(cfg AutostartConfig) error {
	if !cfg.Enabled {
		return nil
	}

	return fmt.Errorf("autostart is not supported on %s", runtime.GOOS)
}

func (noAutostart) Enabled() (bool, error) {
	return false, nil
}
