package platform

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInstanceAlreadyRunning means another daemon already publishes presence for the same application id.
var ErrInstanceAlreadyRunning = errors.New("daemon already running")

var ErrInstanceLockUnsupported = errors.New("instance lock unsupported")

// InstanceLock is held for the daemon lifetime.
type InstanceLock interface {
	Release() error
}

// RunningInstanceError carries the owner pid when the platform can report it.
type RunningInstanceError struct {
	Key string
	PID int
}

func (e *RunningInstanceError) Error() string {
	if e.PID > 0 {
		return fmt.Sprintf("%s: %s (pid %d)", ErrInstanceAlreadyRunning, e.Key, e.PID)
	}

	return fmt.Sprintf("%s: %s", ErrInstanceAlreadyRunning, e.Key)
}

func (e *RunningInstanceError) Unwrap() error {
	return ErrInstanceAlreadyRunning
}

// AcquireInstanceLock allows one daemon per program and Discord application id.
// Two daemons with different application ids may run side by side.
func AcquireInstanceLock(program, discordAppID string) (InstanceLock, error) {
	return acquireInstanceLock(InstanceKey(program, discordAppID))
}

// InstanceKey is the lock name for a program and application id pair.
func InstanceKey(program, discordAppID string) string {
	program = sanitizeLockName(program, "presencego")
	appID := sanitizeLockName(discordAppID, "")
	if appID == "" {
		return program
	}

	return program + "-" + appID
}

func sanitizeLockName(raw, fallback string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}

	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, raw)

	cleaned = strings.Trim(cleaned, "_-.")
	if cleaned == "" {
		return fallback
	}

	return cleaned
}
