// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build darwin || linux

package blockstore

import (
	"fmt"
	"io"

	"golang.org/x/sys/unix"
)

// FileDevice is a container file (or raw block device) accessed with
// pread and pwrite. Nothing is buffered in user space; every transfer
// is a single positioned system call loop.
type FileDevice struct {
	fd   int
	path string
	size int64
}

var _ Device = (*FileDevice)(nil)

// CreateFileDevice creates (or truncates) the file at path and sizes
// it to exactly size bytes. Newly allocated space reads as zeros.
func CreateFileDevice(path string, size int64) (*FileDevice, error) {
	if size <= 0 {
		return nil, fmt.Errorf("device size must be positive, got %d", size)
	}

	fd, err := unix.Open(path, unix.O_CREAT|unix.O_RDWR|unix.O_TRUNC|unix.O_CLOEXEC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("creating container %s: %w: %w", path, ErrIO, err)
	}
	if err := unix.Ftruncate(fd, size); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("sizing container %s to %d bytes: %w: %w", path, size, ErrIO, err)
	}

	return &FileDevice{fd: fd, path: path, size: size}, nil
}

// OpenFileDevice opens an existing container for reading and writing.
// The device size is the current file size.
func OpenFileDevice(path string) (*FileDevice, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("opening container %s: %w: %w", path, ErrIO, err)
	}

	var stat unix.Stat_t
	if err := unix.Fstat(fd, &stat); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("stating container %s: %w: %w", path, ErrIO, err)
	}

	size := stat.Size
	if stat.Mode&unix.S_IFMT == unix.S_IFBLK {
		// Block devices report zero size through fstat; seek to the end
		// to learn the capacity.
		end, err := unix.Seek(fd, 0, io.SeekEnd)
		if err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("measuring block device %s: %w: %w", path, ErrIO, err)
		}
		size = end
	}

	return &FileDevice{fd: fd, path: path, size: size}, nil
}

// ReadAt reads len(p) bytes starting at byte offset off.
func (d *FileDevice) ReadAt(p []byte, off int64) (int, error) {
	total := 0
	for len(p) > 0 {
		count, err := unix.Pread(d.fd, p, off)
		if err != nil {
			return total, fmt.Errorf("pread at offset %d: %w", off, err)
		}
		if count == 0 {
			return total, io.EOF
		}
		total += count
		p = p[count:]
		off += int64(count)
	}
	return total, nil
}

// WriteAt writes len(p) bytes starting at byte offset off.
func (d *FileDevice) WriteAt(p []byte, off int64) (int, error) {
	total := 0
	for len(p) > 0 {
		count, err := unix.Pwrite(d.fd, p, off)
		total += count
		if err != nil {
			return total, fmt.Errorf("pwrite at offset %d: %w", off, err)
		}
		p = p[count:]
		off += int64(count)
	}
	return total, nil
}

// Size returns the container size in bytes.
func (d *FileDevice) Size() int64 { return d.size }

// Path returns the path the device was opened from.
func (d *FileDevice) Path() string { return d.path }

// Sync flushes all pending writes to stable storage.
func (d *FileDevice) Sync() error {
	if err := unix.Fsync(d.fd); err != nil {
		return fmt.Errorf("fsync %s: %w", d.path, err)
	}
	return nil
}

// Close closes the file descriptor.
func (d *FileDevice) Close() error {
	if d.fd < 0 {
		return nil
	}
	err := unix.Close(d.fd)
	d.fd = -1
	if err != nil {
		return fmt.Errorf("closing %s: %w", d.path, err)
	}
	return nil
}
