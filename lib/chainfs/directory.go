// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chainfs

import (
	"errors"
	"fmt"
	"io"
)

func (f *FS) readDirBlock(block BlockID, buffer dirBlock) error {
	return f.store.ReadBlock(block, buffer)
}

// scanForSpace finds room for needed consecutive records in the
// directory chain starting at head. It returns the first run of
// tombstones reaching needed records, or else the end-of-directory
// marker (or the start of a tombstone run that ends at it). A
// directory whose blocks are all in use is extended by one zeroed
// block.
func (f *FS) scanForSpace(head BlockID, needed int) (EntryLocation, error) {
	buffer := dirBlock(make([]byte, f.blockSize))
	block := head
	if err := f.readDirBlock(block, buffer); err != nil {
		return EntryLocation{}, err
	}

	var start EntryLocation
	run := 0
	for visited := 0; ; visited++ {
		if visited > f.totalBlocks {
			return EntryLocation{}, fmt.Errorf("directory chain at block %d does not terminate: %w", head, ErrBadFormat)
		}
		for slot := range buffer.records() {
			attrs := buffer.attrs(slot)
			switch {
			case attrs&AttrDeleted != 0:
				if run == 0 {
					start = EntryLocation{Block: block, Slot: slot}
				}
				run++
				if run == needed {
					return start, nil
				}
			case attrs == 0:
				if run > 0 {
					return start, nil
				}
				return EntryLocation{Block: block, Slot: slot}, nil
			default:
				run = 0
			}
		}

		next, err := f.nextOrAllocate(block, true)
		if err != nil {
			return EntryLocation{}, err
		}
		block = next
		if err := f.readDirBlock(block, buffer); err != nil {
			return EntryLocation{}, err
		}
	}
}

// insert writes a header record and its name chunks into the
// directory chain starting at head and returns the header's
// location.
func (f *FS) insert(head BlockID, name string, attrs Attr, size uint32, first BlockID) (EntryLocation, error) {
	if err := validateName(name); err != nil {
		return EntryLocation{}, err
	}
	records := recordsFor(name)

	location, err := f.scanForSpace(head, records)
	if err != nil {
		return EntryLocation{}, err
	}

	buffer := dirBlock(make([]byte, f.blockSize))
	block, slot := location.Block, location.Slot
	if err := f.readDirBlock(block, buffer); err != nil {
		return EntryLocation{}, err
	}

	buffer.putHeader(slot, attrs, records-1, first, size)
	for chunk := 1; chunk < records; chunk++ {
		slot++
		if slot == buffer.records() {
			if err := f.store.WriteBlock(block, buffer); err != nil {
				return EntryLocation{}, err
			}
			if block, err = f.nextOrAllocate(block, true); err != nil {
				return EntryLocation{}, err
			}
			if err := f.readDirBlock(block, buffer); err != nil {
				return EntryLocation{}, err
			}
			slot = 0
		}

		kind := AttrNameChunk
		if chunk == records-1 {
			kind = AttrLastChunk
		}
		begin := (chunk - 1) * chunkPayload
		end := min(begin+chunkPayload, len(name))
		buffer.putChunk(slot, kind, name[begin:end])
	}
	if err := f.store.WriteBlock(block, buffer); err != nil {
		return EntryLocation{}, err
	}
	return location, nil
}

// markDeleted tombstones the header record at location and the name
// chunks that follow it, stopping after the last chunk.
func (f *FS) markDeleted(location EntryLocation) error {
	buffer := dirBlock(make([]byte, f.blockSize))
	block, slot := location.Block, location.Slot
	if err := f.readDirBlock(block, buffer); err != nil {
		return err
	}

	modified := false
	for first := true; ; first = false {
		attrs := buffer.attrs(slot)
		if !first && attrs&(AttrNameChunk|AttrLastChunk) == 0 {
			break
		}
		buffer.setAttrs(slot, attrs|AttrDeleted)
		modified = true
		if attrs&AttrLastChunk != 0 {
			break
		}

		slot++
		if slot == buffer.records() {
			if err := f.store.WriteBlock(block, buffer); err != nil {
				return err
			}
			next, err := f.table.entry(block)
			if err != nil {
				return err
			}
			if next == 0 {
				return nil
			}
			block, slot = next, 0
			if err := f.readDirBlock(block, buffer); err != nil {
				return err
			}
			modified = false
		}
	}
	if modified {
		return f.store.WriteBlock(block, buffer)
	}
	return nil
}

// updateHeader rewrites the first block and size of the header
// record at location in place.
func (f *FS) updateHeader(location EntryLocation, first BlockID, size uint32) error {
	if location.IsZero() {
		return nil
	}
	buffer := dirBlock(make([]byte, f.blockSize))
	if err := f.readDirBlock(location.Block, buffer); err != nil {
		return err
	}
	buffer.setFirstAndSize(location.Slot, first, size)
	return f.store.WriteBlock(location.Block, buffer)
}

// ensureDirectoryBlock gives an empty directory its first block. The
// block is zeroed (an end-of-directory marker in slot 0) and the
// directory's recorded size becomes one block.
func (f *FS) ensureDirectoryBlock(dir *FileInfo) error {
	if dir.FirstBlock != 0 {
		return nil
	}
	block, err := f.allocateOne()
	if err != nil {
		return err
	}
	if err := f.store.ZeroBlock(block); err != nil {
		return err
	}
	dir.FirstBlock = block
	dir.Size = uint32(f.blockSize)
	return f.updateHeader(dir.Location, dir.FirstBlock, dir.Size)
}

// lookup finds the live entry called name in dir.
func (f *FS) lookup(dir *FileInfo, name string) (*FileInfo, error) {
	iterator := f.iterate(dir)
	defer iterator.Close()
	for {
		info, err := iterator.Next()
		if errors.Is(err, io.EOF) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, err
		}
		if info.Name == name {
			return info, nil
		}
	}
}

// DirIterator walks the live entries of one directory. It holds one
// directory block in memory and must not be used across mutations of
// the directory it iterates.
type DirIterator struct {
	fs     *FS
	buffer dirBlock
	block  BlockID
	slot   int
	hops   int

	name    []byte
	pending FileInfo
	skip    bool
	done    bool
}

func (f *FS) iterate(dir *FileInfo) *DirIterator {
	iterator := &DirIterator{fs: f, block: dir.FirstBlock}
	if dir.FirstBlock == 0 {
		iterator.done = true
	}
	return iterator
}

// Next returns the next live entry. It returns io.EOF after the last
// entry.
func (it *DirIterator) Next() (*FileInfo, error) {
	if it.done {
		return nil, io.EOF
	}
	if it.buffer == nil {
		it.buffer = dirBlock(make([]byte, it.fs.blockSize))
		if err := it.fs.readDirBlock(it.block, it.buffer); err != nil {
			it.done = true
			return nil, err
		}
	}

	for {
		if it.slot == it.buffer.records() {
			next, err := it.fs.table.entry(it.block)
			if err != nil {
				it.done = true
				return nil, err
			}
			if next == 0 {
				it.done = true
				return nil, io.EOF
			}
			it.hops++
			if it.hops > it.fs.totalBlocks {
				it.done = true
				return nil, fmt.Errorf("directory chain does not terminate: %w", ErrBadFormat)
			}
			if err := it.fs.readDirBlock(next, it.buffer); err != nil {
				it.done = true
				return nil, err
			}
			it.block, it.slot = next, 0
		}

		location := EntryLocation{Block: it.block, Slot: it.slot}
		attrs := it.buffer.attrs(it.slot)
		it.slot++

		switch {
		case attrs == 0:
			it.done = true
			return nil, io.EOF

		case attrs&(AttrFile|AttrDirectory) != 0:
			it.name = it.name[:0]
			it.skip = attrs&AttrDeleted != 0
			if it.skip {
				continue
			}
			slot := location.Slot
			it.pending = FileInfo{
				Attrs:      attrs,
				Size:       it.buffer.size(slot),
				FirstBlock: it.buffer.firstBlock(slot),
				Location:   location,
			}
			if it.buffer.chunkCount(slot) == 0 {
				info := it.pending
				return &info, nil
			}

		case attrs&AttrDeleted != 0:
			continue

		case attrs&AttrNameChunk != 0:
			it.name = append(it.name, it.buffer.chunk(location.Slot)...)

		case attrs&AttrLastChunk != 0:
			it.name = append(it.name, it.buffer.chunk(location.Slot)...)
			if it.skip {
				continue
			}
			info := it.pending
			info.Name = string(it.name)
			return &info, nil
		}
	}
}

// Close releases the iterator's block buffer.
func (it *DirIterator) Close() error {
	it.done = true
	it.buffer = nil
	return nil
}
