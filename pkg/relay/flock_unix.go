//go:build unix

package relay

import (
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// readShared reads path while holding a shared lock so a producer taking an
// exclusive lock never hands out a half-written file.
func readShared(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := unix.Flock(int(f.Fd()), unix.LOCK_SH); err != nil {
		return nil, err
	}
	defer unix.Flock(int(f.Fd()), unix.LOCK_UN)

	return io.ReadAll(f)
}
