//go:build !unix

package elfx

import (
	"fmt"
	"os"
)

// Mapping is a read-only view of a whole file.
type Mapping struct {
	Path string
	Data []byte
}

// MapFile reads path into memory.
func MapFile(path string) (*Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return &Mapping{Path: path, Data: data}, nil
}

// Close releases the buffer.
func (m *Mapping) Close() error {
	m.Data = nil
	return nil
}
