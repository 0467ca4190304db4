//go:build !unix

package relay

import "os"

func readShared(path string) ([]byte, error) {
	return os.ReadFile(path)
}
