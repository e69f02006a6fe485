package qdesc

import (
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// Open maps a QTF fixture read-only and validates its structure.
// If mmap is unavailable, it falls back to ReadAt-based loading.
// The returned fixture must be closed to release any mapping.
func Open(path string) (*Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	size64 := stat.Size()
	if size64 < 0 {
		return nil, ErrCorruptFixture
	}
	if size64 > int64(int(^uint(0)>>1)) {
		// cannot index this file safely as []byte on this architecture.
		return nil, ErrCorruptFixture
	}
	size := int(size64)
	if size < fixtureHeaderSize {
		return nil, ErrCorruptFixture
	}

	// Prefer mmap where available for zero-copy payload slices.
	data, err := unix.Mmap(
		int(f.Fd()),
		0,
		size,
		unix.PROT_READ,
		unix.MAP_SHARED,
	)
	if err == nil {
		fx, parseErr := parseFixtureData(data, true)
		if parseErr != nil {
			_ = unix.Munmap(data)
			return nil, parseErr
		}
		return fx, nil
	}

	// Fallback path that does not require mmap support.
	data, err = readAllAt(f, size)
	if err != nil {
		return nil, err
	}
	return parseFixtureData(data, false)
}

// Close releases the mapping backing a mmap-opened fixture. It is a no-op for
// fixtures decoded from memory.
func (fx *Fixture) Close() error {
	if !fx.mmapped || fx.data == nil {
		return nil
	}
	data := fx.data
	fx.data = nil
	fx.Payload = nil
	fx.mmapped = false
	return unix.Munmap(data)
}

func readAllAt(r io.ReaderAt, size int) ([]byte, error) {
	if size < 0 {
		return nil, ErrCorruptFixture
	}
	if size == 0 {
		return []byte{}, nil
	}
	out := make([]byte, size)
	if _, err := r.ReadAt(out, 0); err != nil && err != io.EOF {
		return nil, err
	}
	return out, nil
}
