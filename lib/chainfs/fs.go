// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chainfs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/bureau-foundation/chainfs/lib/blockstore"
)

// FS is one mounted container.
type FS struct {
	store  *blockstore.Store
	table  *tableCache
	logger *slog.Logger

	blockSize   int
	totalBlocks int
	root        BlockID

	freeHead   BlockID
	freeBlocks int

	closed bool
}

// Info summarizes a container's geometry and free space.
type Info struct {
	BlockSize   int `json:"block_size"`
	TotalBlocks int `json:"total_blocks"`
	FreeBlocks  int `json:"free_blocks"`
	RootBlock   int `json:"root_block"`
}

// Option configures an FS.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger for lifecycle events and consistency
// check findings. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// ValidateGeometry reports whether a container of blockCount blocks
// of blockSize bytes can be formatted.
func ValidateGeometry(blockSize, blockCount int) error {
	if blockSize < MinBlockSize || blockSize > MaxBlockSize || blockSize%8 != 0 {
		return fmt.Errorf("block size %d must be a multiple of 8 in [%d, %d]: %w",
			blockSize, MinBlockSize, MaxBlockSize, ErrInvalidArgument)
	}
	if blockCount < 2 || blockCount > MaxBlockCount {
		return fmt.Errorf("block count %d must be in [2, %d]: %w", blockCount, MaxBlockCount, ErrInvalidArgument)
	}
	if root := rootBlock(blockSize, blockCount); int(root) >= blockCount {
		return fmt.Errorf("%d blocks of %d bytes need %d table blocks, leaving no root directory: %w",
			blockCount, blockSize, root, ErrInvalidArgument)
	}
	return nil
}

// ChooseGeometry picks the block size and count for a container of
// about size bytes. The block size starts at 512 and doubles while
// the block count would exceed the 16-bit limit.
func ChooseGeometry(size int64) (blockSize, blockCount int, err error) {
	if size <= 0 {
		return 0, 0, fmt.Errorf("container size %d must be positive: %w", size, ErrInvalidArgument)
	}
	blockSize = 512
	for size/MaxBlockCount > int64(blockSize) {
		if blockSize < 32768 {
			blockSize <<= 1
		} else {
			blockSize = MaxBlockSize
			break
		}
	}
	count := (size + int64(blockSize) - 1) / int64(blockSize)
	if count > MaxBlockCount {
		return 0, 0, fmt.Errorf("%d bytes exceed the largest container (%d blocks of %d bytes): %w",
			size, MaxBlockCount, MaxBlockSize, ErrInvalidArgument)
	}
	if count < 2 {
		count = 2
	}
	return blockSize, int(count), nil
}

// Format writes a fresh, empty filesystem of blockCount blocks of
// blockSize bytes onto device and returns it mounted. The device must
// hold at least blockSize*blockCount bytes.
func Format(device blockstore.Device, blockSize, blockCount int, opts ...Option) (*FS, error) {
	if err := ValidateGeometry(blockSize, blockCount); err != nil {
		return nil, pathError("format", "", err)
	}
	store, err := blockstore.NewStore(device, blockSize, blockCount)
	if err != nil {
		return nil, pathError("format", "", fmt.Errorf("%w: %w", ErrInvalidArgument, err))
	}

	o := buildOptions(opts)
	f := newFS(store, blockSize, blockCount, o)

	header := make([]byte, blockSize)
	superblock{
		signature:   Signature,
		version:     Version,
		blockSize:   uint16(blockSize),
		totalBlocks: uint16(blockCount),
	}.encode(header)
	if err := store.WriteBlock(0, header); err != nil {
		return nil, pathError("format", "", err)
	}

	if err := f.Reformat(); err != nil {
		return nil, err
	}
	return f, nil
}

// CreateExact creates (or truncates) the container file at path with
// the given geometry and formats it.
func CreateExact(path string, blockSize, blockCount int, opts ...Option) (*FS, error) {
	if err := ValidateGeometry(blockSize, blockCount); err != nil {
		return nil, pathError("create", path, err)
	}
	device, err := blockstore.CreateFileDevice(path, int64(blockSize)*int64(blockCount))
	if err != nil {
		return nil, pathError("create", path, err)
	}
	f, err := Format(device, blockSize, blockCount, opts...)
	if err != nil {
		device.Close()
		return nil, err
	}
	return f, nil
}

// CreateSized creates a container file at path sized for about size bytes.
// See [ChooseGeometry] for how the geometry is derived.
func CreateSized(path string, size int64, opts ...Option) (*FS, error) {
	blockSize, blockCount, err := ChooseGeometry(size)
	if err != nil {
		return nil, pathError("create", path, err)
	}
	return CreateExact(path, blockSize, blockCount, opts...)
}

// Open mounts the container file at path.
func Open(path string, opts ...Option) (*FS, error) {
	device, err := blockstore.OpenFileDevice(path)
	if err != nil {
		return nil, pathError("open", path, err)
	}
	f, err := Mount(device, opts...)
	if err != nil {
		device.Close()
		var pathErr *PathError
		if errors.As(err, &pathErr) {
			pathErr.Path = path
		}
		return nil, err
	}
	return f, nil
}

// Mount validates the superblock on device and returns the mounted
// filesystem. On failure the device is left open and unmodified.
func Mount(device blockstore.Device, opts ...Option) (*FS, error) {
	header := make([]byte, superblockSize)
	if _, err := device.ReadAt(header, 0); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, pathError("open", "", fmt.Errorf("container shorter than a superblock: %w", ErrBadFormat))
		}
		return nil, pathError("open", "", fmt.Errorf("reading superblock: %w: %w", ErrIO, err))
	}
	sb := decodeSuperblock(header)
	if err := sb.validate(); err != nil {
		return nil, pathError("open", "", err)
	}

	blockSize, blockCount := int(sb.blockSize), int(sb.totalBlocks)
	store, err := blockstore.NewStore(device, blockSize, blockCount)
	if err != nil {
		return nil, pathError("open", "", fmt.Errorf("%w: %w", ErrBadFormat, err))
	}

	o := buildOptions(opts)
	f := newFS(store, blockSize, blockCount, o)
	f.freeBlocks = int(sb.freeBlocks)
	if f.freeHead, err = f.table.entry(0); err != nil {
		return nil, pathError("open", "", err)
	}

	f.logger.Debug("mounted container",
		"block_size", blockSize,
		"total_blocks", blockCount,
		"free_blocks", f.freeBlocks,
	)
	return f, nil
}

func newFS(store *blockstore.Store, blockSize, blockCount int, o options) *FS {
	return &FS{
		store:       store,
		table:       newTableCache(store, blockCount),
		logger:      o.logger,
		blockSize:   blockSize,
		totalBlocks: blockCount,
		root:        rootBlock(blockSize, blockCount),
	}
}

// Reformat reinitializes the container in place: every block after
// the root directory goes back on the free list and the root
// directory is emptied. Existing files are lost.
func (f *FS) Reformat() error {
	if err := f.usable(); err != nil {
		return pathError("format", "", err)
	}
	if err := f.reformat(); err != nil {
		return pathError("format", "", err)
	}
	f.logger.Debug("formatted container",
		"block_size", f.blockSize,
		"total_blocks", f.totalBlocks,
		"root_block", f.root,
		"free_blocks", f.freeBlocks,
	)
	return nil
}

func (f *FS) reformat() error {
	if err := f.store.ZeroBlock(f.root); err != nil {
		return err
	}
	for block := BlockID(1); block <= f.root; block++ {
		if err := f.table.setEntry(block, 0); err != nil {
			return err
		}
	}

	first := int(f.root) + 1
	for block := first; block+1 < f.totalBlocks; block++ {
		if err := f.table.setEntry(BlockID(block), BlockID(block+1)); err != nil {
			return err
		}
	}
	head := BlockID(0)
	if first < f.totalBlocks {
		head = BlockID(first)
		if err := f.table.setEntry(BlockID(f.totalBlocks-1), 0); err != nil {
			return err
		}
	}
	if err := f.setFreeHead(head); err != nil {
		return err
	}
	if err := f.setFreeCount(f.totalBlocks - first); err != nil {
		return err
	}
	return f.table.flush()
}

func (f *FS) usable() error {
	if f.closed {
		return fs.ErrClosed
	}
	return nil
}

// Info returns the container geometry and the live free block count.
func (f *FS) Info() Info {
	return Info{
		BlockSize:   f.blockSize,
		TotalBlocks: f.totalBlocks,
		FreeBlocks:  f.freeBlocks,
		RootBlock:   int(f.root),
	}
}

// BlockSize returns the container's block size in bytes.
func (f *FS) BlockSize() int { return f.blockSize }

// Device returns the device f was mounted from. Reads from it see the
// allocation table only after [FS.Flush].
func (f *FS) Device() blockstore.Device { return f.store.Device() }

// Flush writes the cached allocation table block back and syncs the
// device.
func (f *FS) Flush() error {
	if err := f.usable(); err != nil {
		return pathError("flush", "", err)
	}
	if err := f.table.flush(); err != nil {
		return pathError("flush", "", err)
	}
	if err := f.store.Sync(); err != nil {
		return pathError("flush", "", err)
	}
	return nil
}

// Close flushes the allocation table and releases the device. Files
// opened from f must not be used afterwards.
func (f *FS) Close() error {
	if f.closed {
		return nil
	}
	flushErr := f.table.flush()
	f.table.invalidate()
	f.closed = true
	closeErr := f.store.Close()
	f.logger.Debug("closed container", "free_blocks", f.freeBlocks)
	if err := errors.Join(flushErr, closeErr); err != nil {
		return pathError("close", "", err)
	}
	return nil
}

// Stat returns the metadata of the entry at path.
func (f *FS) Stat(path string) (*FileInfo, error) {
	if err := f.usable(); err != nil {
		return nil, pathError("stat", path, err)
	}
	info, err := f.resolve(splitPath(path))
	if err != nil {
		return nil, pathError("stat", path, err)
	}
	return info, nil
}

// Mkdir creates an empty directory. Its first block is allocated when
// the first entry is added to it.
func (f *FS) Mkdir(path string) error {
	if err := f.usable(); err != nil {
		return pathError("mkdir", path, err)
	}
	components := splitPath(path)
	if len(components) == 0 {
		return pathError("mkdir", path, ErrExists)
	}
	_, err := f.resolve(components)
	if err == nil {
		return pathError("mkdir", path, ErrExists)
	}
	if !errors.Is(err, ErrNotFound) {
		return pathError("mkdir", path, err)
	}
	if _, err := f.createEntry(components, AttrDirectory); err != nil {
		return pathError("mkdir", path, err)
	}
	return nil
}

// Rmdir removes an empty directory and frees its blocks.
func (f *FS) Rmdir(path string) error {
	if err := f.usable(); err != nil {
		return pathError("rmdir", path, err)
	}
	components := splitPath(path)
	if len(components) == 0 {
		return pathError("rmdir", path, fmt.Errorf("cannot remove the root directory: %w", ErrInvalidArgument))
	}
	info, err := f.resolve(components)
	if err != nil {
		return pathError("rmdir", path, err)
	}
	if !info.IsDir() {
		return pathError("rmdir", path, ErrNotDirectory)
	}

	iterator := f.iterate(info)
	_, err = iterator.Next()
	iterator.Close()
	if err == nil {
		return pathError("rmdir", path, ErrNotEmpty)
	}
	if !errors.Is(err, io.EOF) {
		return pathError("rmdir", path, err)
	}

	if err := f.free(info.FirstBlock); err != nil {
		return pathError("rmdir", path, err)
	}
	if err := f.markDeleted(info.Location); err != nil {
		return pathError("rmdir", path, err)
	}
	return nil
}

// Remove deletes a file and frees its blocks.
func (f *FS) Remove(path string) error {
	if err := f.usable(); err != nil {
		return pathError("remove", path, err)
	}
	info, err := f.resolve(splitPath(path))
	if err != nil {
		return pathError("remove", path, err)
	}
	if info.IsDir() {
		return pathError("remove", path, ErrIsDirectory)
	}
	if err := f.removeEntry(info.FirstBlock, info.Location); err != nil {
		return pathError("remove", path, err)
	}
	return nil
}

func (f *FS) removeEntry(first BlockID, location EntryLocation) error {
	if err := f.free(first); err != nil {
		return err
	}
	return f.markDeleted(location)
}

// OpenDir starts an iteration over the entries of the directory at
// path.
func (f *FS) OpenDir(path string) (*DirIterator, error) {
	if err := f.usable(); err != nil {
		return nil, pathError("opendir", path, err)
	}
	info, err := f.resolve(splitPath(path))
	if err != nil {
		return nil, pathError("opendir", path, err)
	}
	if !info.IsDir() {
		return nil, pathError("opendir", path, ErrNotDirectory)
	}
	return f.iterate(info), nil
}

// ReadDir returns every live entry of the directory at path, in
// directory order.
func (f *FS) ReadDir(path string) ([]*FileInfo, error) {
	iterator, err := f.OpenDir(path)
	if err != nil {
		return nil, err
	}
	defer iterator.Close()

	var entries []*FileInfo
	for {
		info, err := iterator.Next()
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			return nil, pathError("readdir", path, err)
		}
		entries = append(entries, info)
	}
}
