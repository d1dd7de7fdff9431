// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fsmount

import (
	"context"
	"errors"
	"io"
	"syscall"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/bureau-foundation/chainfs/lib/chainfs"
)

// handle is one open descriptor. The engine handle lives on the node.
type handle struct {
	node     *node
	released bool
}

var (
	_ gofuse.FileReader   = (*handle)(nil)
	_ gofuse.FileWriter   = (*handle)(nil)
	_ gofuse.FileFlusher  = (*handle)(nil)
	_ gofuse.FileFsyncer  = (*handle)(nil)
	_ gofuse.FileReleaser = (*handle)(nil)
)

func (h *handle) file() (*chainfs.File, syscall.Errno) {
	if h.node.file == nil {
		// Unlinked while open.
		return nil, syscall.EIO
	}
	return h.node.file, 0
}

func (h *handle) Read(ctx context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	state := h.node.state
	state.mu.Lock()
	defer state.mu.Unlock()

	file, errno := h.file()
	if errno != 0 {
		return nil, errno
	}
	if _, err := file.Seek(off, io.SeekStart); err != nil {
		return nil, state.fail("read", h.node.path, err)
	}
	n, err := io.ReadFull(file, dest)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, state.fail("read", h.node.path, err)
	}
	return fuse.ReadResultData(dest[:n]), 0
}

func (h *handle) Write(ctx context.Context, data []byte, off int64) (uint32, syscall.Errno) {
	state := h.node.state
	state.mu.Lock()
	defer state.mu.Unlock()

	file, errno := h.file()
	if errno != 0 {
		return 0, errno
	}
	n, err := writeAt(file, data, off)
	if err != nil && n == 0 {
		return 0, state.fail("write", h.node.path, err)
	}
	return uint32(n), 0
}

func (h *handle) Flush(ctx context.Context) syscall.Errno {
	state := h.node.state
	state.mu.Lock()
	defer state.mu.Unlock()

	if err := state.fs.Flush(); err != nil {
		return state.fail("flush", h.node.path, err)
	}
	return 0
}

func (h *handle) Fsync(ctx context.Context, flags uint32) syscall.Errno {
	return h.Flush(ctx)
}

func (h *handle) Release(ctx context.Context) syscall.Errno {
	state := h.node.state
	state.mu.Lock()
	defer state.mu.Unlock()

	if !h.released {
		h.released = true
		h.node.release()
	}
	return 0
}

// zeros is the fill source for gaps and extensions.
var zeros [4096]byte

// writeAt writes data at off, zero-filling any gap past the end.
func writeAt(file *chainfs.File, data []byte, off int64) (int, error) {
	if err := extend(file, off); err != nil {
		return 0, err
	}
	if _, err := file.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}
	return file.Write(data)
}

// extend grows file with zeros until it is at least size bytes.
func extend(file *chainfs.File, size int64) error {
	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return err
	}
	for gap := size - file.Size(); gap > 0; gap = size - file.Size() {
		if _, err := file.Write(zeros[:min(gap, int64(len(zeros)))]); err != nil {
			return err
		}
	}
	return nil
}

// resize truncates or zero-extends file to size bytes.
func resize(file *chainfs.File, size int64) error {
	if size >= file.Size() {
		return extend(file, size)
	}
	if _, err := file.Seek(size, io.SeekStart); err != nil {
		return err
	}
	return file.Truncate()
}
