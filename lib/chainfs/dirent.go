// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chainfs

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

// Attr is the attribute byte of a directory record.
type Attr uint8

const (
	AttrFile      Attr = 0x01
	AttrNameChunk Attr = 0x02
	AttrLastChunk Attr = 0x04
	AttrDirectory Attr = 0x08
	AttrReadOnly  Attr = 0x40
	AttrDeleted   Attr = 0x80
)

// String lists the set attribute names, for diagnostics.
func (a Attr) String() string {
	names := []struct {
		bit  Attr
		name string
	}{
		{AttrFile, "file"},
		{AttrNameChunk, "namechunk"},
		{AttrLastChunk, "lastchunk"},
		{AttrDirectory, "directory"},
		{AttrReadOnly, "readonly"},
		{AttrDeleted, "deleted"},
	}
	var parts []string
	for _, entry := range names {
		if a&entry.bit != 0 {
			parts = append(parts, entry.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

const (
	direntSize = 8

	// chunkPayload is the number of name bytes carried by one chunk
	// record.
	chunkPayload = 7

	// maxRecords bounds the records of one entry: a header plus 36
	// name chunks.
	maxRecords = 37

	// MaxNameLength is the longest name a directory can store.
	MaxNameLength = (maxRecords - 1) * chunkPayload
)

// EntryLocation addresses one directory record: a directory block and
// the record's index within it. The zero value addresses nothing and
// is used for the root directory, which has no header record.
type EntryLocation struct {
	Block BlockID
	Slot  int
}

// IsZero reports whether the location addresses no record.
func (l EntryLocation) IsZero() bool { return l.Block == 0 }

func (l EntryLocation) String() string {
	return fmt.Sprintf("%d:%d", l.Block, l.Slot)
}

// FileInfo is the resolved metadata of a file or directory.
type FileInfo struct {
	Name       string
	Attrs      Attr
	Size       uint32
	FirstBlock BlockID

	// Location is the entry's header record, where size and first
	// block are written back. It is zero for the root directory.
	Location EntryLocation
}

// IsDir reports whether the entry is a directory.
func (i *FileInfo) IsDir() bool { return i.Attrs&AttrDirectory != 0 }

// IsReadOnly reports whether the read-only attribute is set.
func (i *FileInfo) IsReadOnly() bool { return i.Attrs&AttrReadOnly != 0 }

// recordsFor returns the number of directory records needed to store
// an entry named name.
func recordsFor(name string) int {
	return 1 + ceilDiv(len(name), chunkPayload)
}

// validateName rejects names the directory format cannot store or
// that the path syntax cannot address.
func validateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("empty name: %w", ErrInvalidArgument)
	case name == "." || name == "..":
		return fmt.Errorf("name %q is reserved: %w", name, ErrInvalidArgument)
	case strings.ContainsAny(name, "/\x00"):
		return fmt.Errorf("name %q contains '/' or NUL: %w", name, ErrInvalidArgument)
	case recordsFor(name) > maxRecords:
		return fmt.Errorf("name is %d bytes, limit %d: %w", len(name), MaxNameLength, ErrNameTooLong)
	}
	return nil
}

// dirBlock is one directory block viewed as an array of records.
type dirBlock []byte

func (b dirBlock) records() int { return len(b) / direntSize }

func (b dirBlock) record(slot int) []byte {
	return b[slot*direntSize : (slot+1)*direntSize]
}

func (b dirBlock) attrs(slot int) Attr { return Attr(b[slot*direntSize]) }

func (b dirBlock) setAttrs(slot int, attrs Attr) { b[slot*direntSize] = byte(attrs) }

func (b dirBlock) chunkCount(slot int) int { return int(b[slot*direntSize+1]) }

func (b dirBlock) firstBlock(slot int) BlockID {
	return BlockID(binary.LittleEndian.Uint16(b.record(slot)[2:4]))
}

func (b dirBlock) size(slot int) uint32 {
	return binary.LittleEndian.Uint32(b.record(slot)[4:8])
}

func (b dirBlock) putHeader(slot int, attrs Attr, chunks int, first BlockID, size uint32) {
	record := b.record(slot)
	record[0] = byte(attrs)
	record[1] = byte(chunks)
	binary.LittleEndian.PutUint16(record[2:4], uint16(first))
	binary.LittleEndian.PutUint32(record[4:8], size)
}

func (b dirBlock) setFirstAndSize(slot int, first BlockID, size uint32) {
	record := b.record(slot)
	binary.LittleEndian.PutUint16(record[2:4], uint16(first))
	binary.LittleEndian.PutUint32(record[4:8], size)
}

// putChunk stores up to seven name bytes, zero padded.
func (b dirBlock) putChunk(slot int, attrs Attr, payload string) {
	record := b.record(slot)
	record[0] = byte(attrs)
	clear(record[1:])
	copy(record[1:], payload)
}

// chunk returns the name bytes of a chunk record, up to the first
// NUL.
func (b dirBlock) chunk(slot int) []byte {
	payload := b.record(slot)[1:]
	if end := bytes.IndexByte(payload, 0); end >= 0 {
		return payload[:end]
	}
	return payload
}
