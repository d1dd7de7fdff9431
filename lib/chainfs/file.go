// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chainfs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
)

// OpenFlag controls how [FS.OpenFile] opens a file.
type OpenFlag int

const (
	// Create makes a new empty file when path does not exist.
	Create OpenFlag = 1 << iota

	// Truncate discards the file's contents after opening.
	Truncate

	// Append positions every write at the end of the file.
	Append
)

// File is an open regular file.
//
// The handle keeps a logical position and, separately, the last
// physical block it resolved. Moving the position never touches the
// container; the chain walk to reach it happens on the next read or
// write, starting from the resolved block when moving forward and
// from the first block when moving back.
type File struct {
	fs   *FS
	path string
	flag OpenFlag

	entry EntryLocation
	first BlockID
	size  uint32

	// pos is the logical position.
	pos int64

	// current is the physical block holding logical block index
	// currentIndex of the file. It is 0 when nothing is resolved.
	current      BlockID
	currentIndex int

	buffer []byte
	closed bool
}

var (
	_ io.ReadWriteSeeker = (*File)(nil)
	_ io.Closer          = (*File)(nil)
)

// OpenFile opens the regular file at path.
func (f *FS) OpenFile(path string, flag OpenFlag) (*File, error) {
	if err := f.usable(); err != nil {
		return nil, pathError("open", path, err)
	}
	components := splitPath(path)
	info, err := f.resolve(components)
	switch {
	case err == nil:
		if info.IsDir() {
			return nil, pathError("open", path, ErrIsDirectory)
		}
	case errors.Is(err, ErrNotFound) && flag&Create != 0:
		info, err = f.createEntry(components, AttrFile)
		if err != nil {
			return nil, pathError("open", path, err)
		}
	default:
		return nil, pathError("open", path, err)
	}

	file := &File{
		fs:      f,
		path:    path,
		flag:    flag,
		entry:   info.Location,
		first:   info.FirstBlock,
		size:    info.Size,
		current: info.FirstBlock,
	}
	if flag&Truncate != 0 {
		if err := file.Truncate(); err != nil {
			return nil, err
		}
	}
	if flag&Append != 0 {
		file.pos = int64(file.size)
	}
	return file, nil
}

// Name returns the path the file was opened with.
func (file *File) Name() string { return file.path }

// Size returns the file size in bytes.
func (file *File) Size() int64 { return int64(file.size) }

// Tell returns the logical position.
func (file *File) Tell() int64 { return file.pos }

// Location returns the file's header record.
func (file *File) Location() EntryLocation { return file.entry }

func (file *File) usable() error {
	if file.closed {
		return fs.ErrClosed
	}
	return file.fs.usable()
}

func (file *File) blockBuffer() []byte {
	if file.buffer == nil {
		file.buffer = make([]byte, file.fs.blockSize)
	}
	return file.buffer
}

// blockAt resolves logical block index to its physical block. When
// index is exactly one past the end of the chain it returns 0 with
// the resolution left on the chain's tail, so a writer can link new
// blocks there.
func (file *File) blockAt(index int) (BlockID, error) {
	if file.first == 0 {
		if index == 0 {
			return 0, nil
		}
		return 0, fmt.Errorf("empty chain has no block %d: %w", index, ErrBadFormat)
	}
	if file.current == 0 || index < file.currentIndex {
		file.current, file.currentIndex = file.first, 0
	}
	for file.currentIndex < index {
		next, err := file.fs.table.entry(file.current)
		if err != nil {
			return 0, err
		}
		if next == 0 {
			if file.currentIndex+1 == index {
				return 0, nil
			}
			return 0, fmt.Errorf("chain ends at block index %d, need %d: %w",
				file.currentIndex, index, ErrBadFormat)
		}
		file.current = next
		file.currentIndex++
	}
	return file.current, nil
}

// Read reads up to len(p) bytes from the logical position. At the
// end of the file it returns 0, io.EOF.
func (file *File) Read(p []byte) (int, error) {
	if err := file.usable(); err != nil {
		return 0, pathError("read", file.path, err)
	}
	if len(p) == 0 {
		return 0, nil
	}
	if file.pos >= int64(file.size) {
		return 0, io.EOF
	}

	blockSize := int64(file.fs.blockSize)
	read := 0
	for read < len(p) && file.pos < int64(file.size) {
		index := int(file.pos / blockSize)
		offset := int(file.pos % blockSize)

		block, err := file.blockAt(index)
		if err == nil && block == 0 {
			err = fmt.Errorf("file of %d bytes has no block %d: %w", file.size, index, ErrBadFormat)
		}
		if err != nil {
			return read, pathError("read", file.path, err)
		}

		count := min(int(blockSize)-offset, len(p)-read, int(int64(file.size)-file.pos))
		if count == int(blockSize) {
			err = file.fs.store.ReadBlock(block, p[read:read+count])
		} else {
			buffer := file.blockBuffer()
			if err = file.fs.store.ReadBlock(block, buffer); err == nil {
				copy(p[read:read+count], buffer[offset:])
			}
		}
		if err != nil {
			return read, pathError("read", file.path, err)
		}
		read += count
		file.pos += int64(count)
	}
	return read, nil
}

// Write writes p at the logical position, extending the file and its
// chain as needed. The header record is updated once, after the last
// block transfer, so a failed write leaves the recorded size covering
// exactly the bytes that reached the container.
func (file *File) Write(p []byte) (int, error) {
	if err := file.usable(); err != nil {
		return 0, pathError("write", file.path, err)
	}
	if file.flag&Append != 0 {
		file.pos = int64(file.size)
	}
	if len(p) == 0 {
		return 0, nil
	}
	if file.pos+int64(len(p)) > math.MaxUint32 {
		return 0, pathError("write", file.path, fmt.Errorf("file would exceed 4 GiB: %w", ErrOutOfSpace))
	}

	startFirst := file.first
	written, err := file.write(p)

	var headerErr error
	if end := file.pos; end > int64(file.size) || file.first != startFirst {
		file.size = uint32(max(end, int64(file.size)))
		headerErr = file.fs.updateHeader(file.entry, file.first, file.size)
	}
	if err := errors.Join(err, headerErr); err != nil {
		return written, pathError("write", file.path, err)
	}
	return written, nil
}

func (file *File) write(p []byte) (int, error) {
	blockSize := file.fs.blockSize
	written := 0
	freshFrom := -1
	for written < len(p) {
		index := int(file.pos / int64(blockSize))
		offset := int(file.pos % int64(blockSize))

		block, err := file.blockAt(index)
		if err != nil {
			return written, err
		}
		if block == 0 {
			block, err = file.extend(index, ceilDiv(len(p)-written+offset, blockSize))
			if err != nil {
				return written, err
			}
			freshFrom = index
		}

		count := min(blockSize-offset, len(p)-written)
		if count == blockSize {
			err = file.fs.store.WriteBlock(block, p[written:written+count])
		} else {
			buffer := file.blockBuffer()
			if freshFrom >= 0 && index >= freshFrom {
				clear(buffer)
			} else if err = file.fs.store.ReadBlock(block, buffer); err != nil {
				return written, err
			}
			copy(buffer[offset:], p[written:written+count])
			err = file.fs.store.WriteBlock(block, buffer)
		}
		if err != nil {
			return written, err
		}
		written += count
		file.pos += int64(count)
	}
	return written, nil
}

// extend allocates count blocks and links them after the chain's
// tail (or makes them the chain). The resolution moves to the first
// new block, which becomes logical block index.
func (file *File) extend(index, count int) (BlockID, error) {
	head, err := file.fs.allocateChain(count)
	if err != nil {
		return 0, err
	}
	if file.first == 0 {
		file.first = head
	} else if err := file.fs.table.setEntry(file.current, head); err != nil {
		return 0, err
	}
	file.current, file.currentIndex = head, index
	return head, nil
}

// Seek sets the logical position for the next read or write. The
// result is clamped to [0, Size()]; no block is visited until the
// next transfer.
func (file *File) Seek(offset int64, whence int) (int64, error) {
	if err := file.usable(); err != nil {
		return 0, pathError("seek", file.path, err)
	}
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		offset += file.pos
	case io.SeekEnd:
		offset += int64(file.size)
	default:
		return file.pos, pathError("seek", file.path, fmt.Errorf("whence %d: %w", whence, ErrInvalidArgument))
	}
	file.pos = min(max(offset, 0), int64(file.size))
	return file.pos, nil
}

// Truncate cuts the file at the logical position, freeing every block
// past the one holding the last kept byte. It does nothing when the
// position is at or past the end.
func (file *File) Truncate() error {
	if err := file.usable(); err != nil {
		return pathError("truncate", file.path, err)
	}
	if file.pos >= int64(file.size) {
		return nil
	}
	if err := file.truncate(); err != nil {
		return pathError("truncate", file.path, err)
	}
	return nil
}

func (file *File) truncate() error {
	keep := ceilDiv(int(file.pos), file.fs.blockSize)
	if keep == 0 {
		released := file.first
		if err := file.fs.free(released); err != nil {
			return err
		}
		file.first, file.current, file.currentIndex = 0, 0, 0
	} else {
		tail, err := file.blockAt(keep - 1)
		if err == nil && tail == 0 {
			err = fmt.Errorf("file of %d bytes has no block %d: %w", file.size, keep-1, ErrBadFormat)
		}
		if err != nil {
			return err
		}
		released, err := file.fs.table.entry(tail)
		if err != nil {
			return err
		}
		if released != 0 {
			if err := file.fs.table.setEntry(tail, 0); err != nil {
				return err
			}
			if err := file.fs.free(released); err != nil {
				return err
			}
		}
	}
	file.size = uint32(file.pos)
	return file.fs.updateHeader(file.entry, file.first, file.size)
}

// Remove deletes the open file's directory entry and frees its
// blocks, then closes the handle.
func (file *File) Remove() error {
	if err := file.usable(); err != nil {
		return pathError("remove", file.path, err)
	}
	err := file.fs.removeEntry(file.first, file.entry)
	file.closed = true
	file.buffer = nil
	if err != nil {
		return pathError("remove", file.path, err)
	}
	return nil
}

// Close releases the handle. Writes are already in the container;
// Close does not flush the allocation table.
func (file *File) Close() error {
	file.closed = true
	file.buffer = nil
	return nil
}

// Stat returns the file's metadata as held by the handle.
func (file *File) Stat() *FileInfo {
	return &FileInfo{
		Name:       baseName(file.path),
		Attrs:      AttrFile,
		Size:       file.size,
		FirstBlock: file.first,
		Location:   file.entry,
	}
}

func baseName(path string) string {
	components := splitPath(path)
	if len(components) == 0 {
		return "/"
	}
	return components[len(components)-1]
}
