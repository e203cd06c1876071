//go:build !windows

package watcher

import (
	"io"
	"os"
)

// openShared opens path read-only. POSIX opens never block other readers,
// writers or unlinkers, so a plain open is already shared.
func openShared(path string) (io.Closer, error) {
	return os.Open(path)
}
