//go:build windows

package transport

import (
	"context"
	"net"
	"strconv"
	"strings"

	"github.com/Microsoft/go-winio"
)

const pipeNamespace = `\\.\pipe`

// DefaultDirs returns the named pipe namespace; base overrides it when set.
func DefaultDirs(base string) []string {
	base = strings.TrimSpace(base)
	if base == "" {
		base = pipeNamespace
	}

	return []string{base}
}

// EndpointPath returns the pipe path for endpoint index.
func EndpointPath(dir string, index int) string {
	return strings.TrimRight(dir, `\`) + `\` + endpointPrefix + strconv.Itoa(index)
}

func dialEndpoint(ctx context.Context, path string) (net.Conn, error) {
	return winio.DialPipeContext(ctx, path)
}
