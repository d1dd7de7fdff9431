// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package blockstore

import (
	"errors"
	"fmt"
	"io"
)

// ErrIO is wrapped around every failure reported by the underlying
// device (short reads, write errors, fsync failures).
var ErrIO = errors.New("operating system I/O error")

// ErrOutOfRange is returned when a block number is not below the
// container's block count.
var ErrOutOfRange = errors.New("block number is out of range")

// Device is a fixed-size, randomly addressable byte container.
//
// ReadAt and WriteAt follow io.ReaderAt and io.WriterAt semantics.
// Implementations are not required to be safe for concurrent use;
// the filesystem engine serializes all access.
type Device interface {
	io.ReaderAt
	io.WriterAt

	// Size returns the container size in bytes.
	Size() int64

	// Sync flushes any writes buffered by the operating system to
	// stable storage.
	Sync() error

	// Close releases the device. The device must not be used after
	// Close returns.
	Close() error
}

// MemoryDevice implements Device over an in-memory byte slice.
type MemoryDevice struct {
	data   []byte
	closed bool
}

var _ Device = (*MemoryDevice)(nil)

// NewMemoryDevice returns a zero-filled in-memory device of the given
// size in bytes.
func NewMemoryDevice(size int64) *MemoryDevice {
	return &MemoryDevice{data: make([]byte, size)}
}

// NewMemoryDeviceFromBytes wraps an existing image. The slice is used
// directly, not copied.
func NewMemoryDeviceFromBytes(data []byte) *MemoryDevice {
	return &MemoryDevice{data: data}
}

// ReadAt copies len(p) bytes starting at off into p.
func (m *MemoryDevice) ReadAt(p []byte, off int64) (int, error) {
	if m.closed {
		return 0, fmt.Errorf("memory device is closed")
	}
	if off < 0 || off > int64(len(m.data)) {
		return 0, fmt.Errorf("read at offset %d out of range (size %d)", off, len(m.data))
	}
	count := copy(p, m.data[off:])
	if count < len(p) {
		return count, io.EOF
	}
	return count, nil
}

// WriteAt copies p into the device starting at off. Writes past the
// end of the device fail without partial effect.
func (m *MemoryDevice) WriteAt(p []byte, off int64) (int, error) {
	if m.closed {
		return 0, fmt.Errorf("memory device is closed")
	}
	if off < 0 || off+int64(len(p)) > int64(len(m.data)) {
		return 0, fmt.Errorf("write at offset %d with length %d exceeds device size %d",
			off, len(p), len(m.data))
	}
	return copy(m.data[off:], p), nil
}

// Size returns the device size in bytes.
func (m *MemoryDevice) Size() int64 { return int64(len(m.data)) }

// Sync is a no-op.
func (m *MemoryDevice) Sync() error { return nil }

// Close marks the device closed. The backing slice stays reachable
// through Bytes so tests can reopen the same image.
func (m *MemoryDevice) Close() error {
	m.closed = true
	return nil
}

// Reopen clears the closed flag so the same image can be mounted
// again after Close.
func (m *MemoryDevice) Reopen() *MemoryDevice {
	m.closed = false
	return m
}

// Bytes returns the backing slice.
func (m *MemoryDevice) Bytes() []byte { return m.data }
