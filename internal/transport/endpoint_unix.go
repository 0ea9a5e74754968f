//go:build !windows

package transport

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Sandboxed Discord builds expose their socket under these runtime sub-directories.
var sandboxSubdirs = []string{
	filepath.Join("app", "com.discordapp.Discord"),
	"snap.discord",
}

// DefaultDirs returns candidate socket directories, most likely first.
func DefaultDirs(base string) []string {
	base = strings.TrimSpace(base)
	if base == "" {
		base = runtimeDir()
	}

	dirs := make([]string, 0, 1+len(sandboxSubdirs))
	dirs = append(dirs, base)
	for _, sub := range sandboxSubdirs {
		dirs = append(dirs, filepath.Join(base, sub))
	}

	return dirs
}

// EndpointPath returns the socket path for endpoint index in dir.
func EndpointPath(dir string, index int) string {
	return filepath.Join(dir, endpointPrefix+strconv.Itoa(index))
}

func runtimeDir() string {
	for _, key := range []string{"XDG_RUNTIME_DIR", "TMPDIR", "TMP", "TEMP"} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}

	return "/tmp"
}

func dialEndpoint(ctx context.Context, path string) (net.Conn, error) {
	var d net.Dialer

	return d.DialContext(ctx, "unix", path)
}
