//go:build !unix && !windows

package platform

import (
	"fmt"
	"runtime"
)

func acquireInstanceLock(key string) (InstanceLock, error) {
	return nil, fmt.Errorf("%w on %s: %s", ErrInstanceLockUnsupported, runtime.GOOS, key)
}
