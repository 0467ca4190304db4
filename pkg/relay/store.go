// Package relay serves the producer's peaks file to meter clients, both as a
// poll endpoint and as a websocket broadcast.
package relay

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"

	"github.com/tidwall/gjson"

	"peakmeter/pkg/meter"
)

// FileStore reads the snapshot the producer keeps on disk.
type FileStore struct {
	path            string
	defaultChannels int
}

func NewFileStore(path string, defaultChannels int) *FileStore {
	return &FileStore{path: path, defaultChannels: defaultChannels}
}

func (s *FileStore) Path() string { return s.path }

// Load returns the snapshot JSON to serve. A missing file yields an all-zero
// snapshot with max present. A file that cannot be read or does not hold a
// valid snapshot is an error.
func (s *FileStore) Load() ([]byte, error) {
	data, err := readShared(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return meter.Encode(meter.Zero(s.defaultChannels, true))
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	data = bytes.TrimSpace(data)
	if !gjson.ValidBytes(data) || !gjson.GetBytes(data, "peak").IsArray() {
		return nil, &meter.ParseError{Excerpt: excerpt(data), Err: errors.New("not a peaks object")}
	}
	if _, err := meter.Decode(data); err != nil {
		return nil, err
	}
	return data, nil
}

func excerpt(data []byte) string {
	const limit = 64
	if len(data) > limit {
		return string(data[:limit]) + "..."
	}
	return string(data)
}
