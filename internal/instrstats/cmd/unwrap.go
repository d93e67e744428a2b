package cmd

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"log/slog"
)

// maxUnwrapped caps the decompressed size of an input.
var maxUnwrapped int64 = 1 << 30

// readCapped reads r to the end, failing once more than maxUnwrapped bytes
// come out.
func readCapped(r io.Reader) ([]byte, error) {
	out, err := io.ReadAll(io.LimitReader(r, maxUnwrapped+1))
	if err != nil {
		return nil, err
	}
	if int64(len(out)) > maxUnwrapped {
		return nil, fmt.Errorf("decompressed input exceeds %d bytes", maxUnwrapped)
	}
	return out, nil
}

// unwrap decompresses gzip data or extracts the first member of a zip
// archive. Anything else is returned unchanged.
func unwrap(data []byte, name string) ([]byte, error) {
	if len(data) < 2 {
		return data, nil
	}

	// gzip magic 1f 8b
	if data[0] == 0x1f && data[1] == 0x8b {
		slog.Debug("Detected gzip compression", "file", name)
		reader, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("gzip reader creation failed: %v", err)
		}
		defer reader.Close()

		out, err := readCapped(reader)
		if err != nil {
			return nil, fmt.Errorf("gzip decompression failed: %v", err)
		}
		slog.Debug("Gzip decompression successful", "file", name,
			"original_size", len(data), "decompressed_size", len(out))
		return out, nil
	}

	// zip local file header PK\x03\x04
	if len(data) >= 4 && bytes.Equal(data[:4], []byte("PK\x03\x04")) {
		slog.Debug("Detected ZIP archive", "file", name)
		reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return nil, fmt.Errorf("zip reader creation failed: %v", err)
		}
		if len(reader.File) == 0 {
			return nil, fmt.Errorf("zip archive is empty")
		}

		file := reader.File[0]
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open file in zip: %v", err)
		}
		defer rc.Close()

		out, err := readCapped(rc)
		if err != nil {
			return nil, fmt.Errorf("failed to read file from zip: %v", err)
		}
		slog.Debug("ZIP extraction successful", "file", name,
			"archive_file", file.Name,
			"original_size", len(data), "decompressed_size", len(out))
		return out, nil
	}

	return data, nil
}
