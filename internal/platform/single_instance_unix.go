//go:build unix && !windows

package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

type flockInstanceLock struct {
	file *os.File
	path string
}

func acquireInstanceLock(key string) (InstanceLock, error) {
	lockPath, err := instanceLockPath(key)
	if err != nil {
		return nil, err
	}

	// #nosec G304 -- lockPath is built from the runtime or temp directory.
	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open instance lock %s: %w", lockPath, err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		owner := readLockOwner(file)
		_ = file.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) || errors.Is(err, syscall.EAGAIN) {
			return nil, &RunningInstanceError{Key: key, PID: owner}
		}

		return nil, fmt.Errorf("lock %s: %w", lockPath, err)
	}

	if err := writeLockOwner(file, os.Getpid()); err != nil {
		_ = syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		_ = file.Close()

		return nil, err
	}

	return &flockInstanceLock{file: file, path: lockPath}, nil
}

// Release truncates the owner pid before unlocking; the file itself stays for the next daemon.
func (l *flockInstanceLock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}

	_ = l.file.Truncate(0)
	unlockErr := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil

	if unlockErr != nil && !errors.Is(unlockErr, syscall.EBADF) {
		return fmt.Errorf("unlock %s: %w", l.path, unlockErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close %s: %w", l.path, closeErr)
	}

	return nil
}

// instanceLockPath prefers $XDG_RUNTIME_DIR/presencego and falls back to a per-uid temp dir.
func instanceLockPath(key string) (string, error) {
	var dir string
	if runtimeDir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR")); runtimeDir != "" {
		dir = filepath.Join(runtimeDir, "presencego")
	} else {
		dir = filepath.Join(os.TempDir(), "presencego-"+strconv.Itoa(os.Getuid()))
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create instance lock dir: %w", err)
	}

	return filepath.Join(dir, key+".lock"), nil
}

func writeLockOwner(file *os.File, pid int) error {
	if err := file.Truncate(0); err != nil {
		return fmt.Errorf("truncate instance lock: %w", err)
	}
	if _, err := file.WriteAt([]byte(strconv.Itoa(pid)+"\n"), 0); err != nil {
		return fmt.Errorf("write instance lock owner: %w", err)
	}

	return nil
}

func readLockOwner(file *os.File) int {
	buf := make([]byte, 32)
	n, _ := file.ReadAt(buf, 0)
	pid, err := strconv.Atoi(strings.TrimSpace(string(buf[:n])))
	if err != nil {
		return 0
	}

	return pid
}
