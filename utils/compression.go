package utils

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
)

// CompressData gzips a payload. Payloads below the threshold are returned
// as-is; gzip output is recognizable by its magic bytes, so DecompressData
// can tell the difference.
func CompressData(data []byte) ([]byte, error) {
	if len(data) < 500 {
		return data, nil
	}

	var buf bytes.Buffer
	writer := gzip.NewWriter(&buf)
	if _, err := writer.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write to gzip writer: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close gzip writer: %w", err)
	}
	return buf.Bytes(), nil
}

// DecompressData reverses CompressData, passing uncompressed payloads
// through untouched.
func DecompressData(data []byte) ([]byte, error) {
	if !isGzip(data) {
		return data, nil
	}

	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer reader.Close()

	out, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read from gzip reader: %w", err)
	}
	return out, nil
}

func isGzip(data []byte) bool {
	return len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b
}
