//go:build unix

package elfx

import (
	"fmt"
	"os"
	"syscall"
)

// Mapping is a read-only view of a whole file.
type Mapping struct {
	Path   string
	Data   []byte
	f      *os.File
	mapped bool
}

// MapFile maps path into memory read-only. Empty files yield an empty
// Data slice without a mapping.
func MapFile(path string) (*Mapping, error) {
	of, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	fi, err := of.Stat()
	if err != nil {
		of.Close()
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if fi.IsDir() {
		of.Close()
		return nil, fmt.Errorf("open file: %s is a directory", path)
	}
	if fi.Size() == 0 {
		return &Mapping{Path: path, Data: []byte{}, f: of}, nil
	}

	all, err := syscall.Mmap(int(of.Fd()), 0, int(fi.Size()), syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		of.Close()
		return nil, fmt.Errorf("mmap file: %w", err)
	}
	return &Mapping{Path: path, Data: all, f: of, mapped: true}, nil
}

// Close unmaps the memory and closes the underlying file.
func (m *Mapping) Close() error {
	var err1, err2 error
	if m.mapped && m.Data != nil {
		err1 = syscall.Munmap(m.Data)
	}
	m.Data = nil
	m.mapped = false
	if m.f != nil {
		err2 = m.f.Close()
		m.f = nil
	}
	if err1 != nil {
		return err1
	}
	return err2
}
