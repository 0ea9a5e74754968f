//go:build windows

package platform

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows"
)

type mutexInstanceLock struct {
	handle windows.Handle
}

// acquireInstanceLock uses a session-local named mutex scoped to the current user.
// The owner pid is not reported on Windows.
func acquireInstanceLock(key string) (InstanceLock, error) {
	token := windows.GetCurrentProcessToken()
	user, err := token.GetTokenUser()
	if err != nil {
		return nil, fmt.Errorf("read current user token: %w", err)
	}

	name, err := windows.UTF16PtrFromString(mutexName(key, user.User.Sid.String()))
	if err != nil {
		return nil, fmt.Errorf("encode instance mutex name: %w", err)
	}

	handle, err := windows.CreateMutex(nil, false, name)
	if err != nil {
		if handle != 0 {
			_ = windows.CloseHandle(handle)
		}
		if errors.Is(err, windows.ERROR_ALREADY_EXISTS) {
			return nil, &RunningInstanceError{Key: key}
		}

		return nil, fmt.Errorf("create instance mutex: %w", err)
	}

	return &mutexInstanceLock{handle: handle}, nil
}

func (l *mutexInstanceLock) Release() error {
	if l == nil || l.handle == 0 {
		return nil
	}

	err := windows.CloseHandle(l.handle)
	l.handle = 0
	if err != nil {
		return fmt.Errorf("close instance mutex: %w", err)
	}

	return nil
}

func mutexName(key, userSID string) string {
	return `Local\` + key + `-` + sanitizeLockName(userSID, "sid")
}
