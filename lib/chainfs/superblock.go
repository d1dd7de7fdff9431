// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chainfs

import (
	"encoding/binary"
	"fmt"
)

const (
	// Signature is the magic number at offset 0 of every container
	// ("APFS" in little-endian byte order).
	Signature uint32 = 0x53465041

	// Version is the only on-disk format version this package reads
	// and writes.
	Version uint16 = 1

	superblockSize = 16

	// MinBlockSize is the smallest block size that holds the
	// superblock.
	MinBlockSize = 16

	// MaxBlockSize is the largest multiple of 8 that fits the 16-bit
	// block size field.
	MaxBlockSize = 65528

	// MaxBlockCount is the largest block count the 16-bit block
	// pointers can address.
	MaxBlockCount = 65535

	// freeCountIndex is the table index aliased by the superblock's
	// free block counter (byte offset 10).
	freeCountIndex = 5

	// tableBias is the table index of logical block 0.
	tableBias = 8
)

// superblock is the decoded header of block 0.
type superblock struct {
	signature   uint32
	version     uint16
	blockSize   uint16
	totalBlocks uint16
	freeBlocks  uint16
}

func decodeSuperblock(data []byte) superblock {
	return superblock{
		signature:   binary.LittleEndian.Uint32(data[0:4]),
		version:     binary.LittleEndian.Uint16(data[4:6]),
		blockSize:   binary.LittleEndian.Uint16(data[6:8]),
		totalBlocks: binary.LittleEndian.Uint16(data[8:10]),
		freeBlocks:  binary.LittleEndian.Uint16(data[10:12]),
	}
}

func (sb superblock) encode(data []byte) {
	binary.LittleEndian.PutUint32(data[0:4], sb.signature)
	binary.LittleEndian.PutUint16(data[4:6], sb.version)
	binary.LittleEndian.PutUint16(data[6:8], sb.blockSize)
	binary.LittleEndian.PutUint16(data[8:10], sb.totalBlocks)
	binary.LittleEndian.PutUint16(data[10:12], sb.freeBlocks)
	clear(data[12:16])
}

// validate applies the checks made before any other field is
// trusted. Signature and geometry failures are ErrBadFormat; a
// version mismatch is ErrBadVersion.
func (sb superblock) validate() error {
	if sb.signature != Signature {
		return fmt.Errorf("signature %#08x, want %#08x: %w", sb.signature, Signature, ErrBadFormat)
	}
	if sb.blockSize < MinBlockSize || sb.blockSize%8 != 0 {
		return fmt.Errorf("block size %d is not a multiple of 8 of at least %d: %w",
			sb.blockSize, MinBlockSize, ErrBadFormat)
	}
	if sb.totalBlocks < 2 {
		return fmt.Errorf("block count %d is below 2: %w", sb.totalBlocks, ErrBadFormat)
	}
	if sb.version != Version {
		return fmt.Errorf("format version %d, want %d: %w", sb.version, Version, ErrBadVersion)
	}
	if int(rootBlock(int(sb.blockSize), int(sb.totalBlocks))) >= int(sb.totalBlocks) {
		return fmt.Errorf("allocation table for %d blocks of %d bytes leaves no room for the root directory: %w",
			sb.totalBlocks, sb.blockSize, ErrBadFormat)
	}
	return nil
}

// rootBlock returns the block holding the root directory: the first
// block after the allocation table.
func rootBlock(blockSize, totalBlocks int) BlockID {
	return BlockID(ceilDiv(totalBlocks*2+superblockSize, blockSize))
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
