package qdesc

import (
	"os"
	"path/filepath"
)

// WriteFile encodes a fixture and writes it to path atomically (write to a
// temp file in the same directory, then rename).
func WriteFile(path string, dt DType, dims []int, payload []byte) error {
	data, err := Encode(dt, dims, payload)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".qtf-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
