//go:build !windows

package transport

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
)

func shortTempDir(t *testing.T) string {
	t.Helper()

	// Unix socket paths are limited to ~104 bytes, t.TempDir() can exceed that.
	dir, err := os.MkdirTemp("", "pgo")
	if err != nil {
		t.Fatalf("create temp dir: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	return dir
}

func TestLocatorConnectsToUnixSocket(t *testing.T) {
	dir := shortTempDir(t)
	ln, err := net.Listen("unix", EndpointPath(dir, 3))
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		accepted <- conn
	}()

	sock, err := NewLocator([]string{dir}).Locate(context.Background())
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	defer sock.Close()
	peer := <-accepted
	defer peer.Close()

	if sock.Index() != 3 {
		t.Fatalf("expected index 3, got %d", sock.Index())
	}
	if _, err := sock.Write([]byte("ping")); err != nil {
		t.Fatalf("write: %v", err)
	}
	buf := make([]byte, 4)
	if _, err := peer.Read(buf); err != nil || string(buf) != "ping" {
		t.Fatalf("peer read: %q %v", buf, err)
	}
}

func TestLocatorNoListener(t *testing.T) {
	_, err := NewLocator([]string{shortTempDir(t)}).Locate(context.Background())
	if !errors.Is(err, ErrPeerNotFound) {
		t.Fatalf("expected peer not found, got %v", err)
	}
}

func TestDefaultDirsPrefersXDGRuntimeDir(t *testing.T) {
	runtime := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", runtime)

	dirs := DefaultDirs("")
	if len(dirs) == 0 || dirs[0] != runtime {
		t.Fatalf("expected first dir %q, got %v", runtime, dirs)
	}
	if dirs[1] != filepath.Join(runtime, "app", "com.discordapp.Discord") {
		t.Fatalf("expected flatpak dir second, got %v", dirs)
	}
}

func TestDefaultDirsFallsBackToTmp(t *testing.T) {
	for _, key := range []string{"XDG_RUNTIME_DIR", "TMPDIR", "TMP", "TEMP"} {
		t.Setenv(key, "")
	}

	if dirs := DefaultDirs(""); dirs[0] != "/tmp" {
		t.Fatalf("expected /tmp fallback, got %v", dirs)
	}
	if dirs := DefaultDirs("/custom"); dirs[0] != "/custom" {
		t.Fatalf("expected explicit base, got %v", dirs)
	}
}

func TestEndpointPath(t *testing.T) {
	if got := EndpointPath("/run/user/1000", 7); got != "/run/user/1000/discord-ipc-7" {
		t.Fatalf("unexpected endpoint path %q", got)
	}
}
