// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package blockstore

import (
	"fmt"
)

// BlockID is a physical block number within a container. Block
// numbers are 16 bits on disk, so a container holds at most 65535
// blocks.
type BlockID uint16

// MaxBlocks is the largest block count a container can describe.
const MaxBlocks = 0xFFFF

// Store performs whole-block transfers against a Device.
type Store struct {
	device     Device
	blockSize  int
	blockCount int
	zero       []byte
}

// NewStore returns a Store addressing blockCount blocks of blockSize
// bytes on device. It fails if the device is too small to hold them.
func NewStore(device Device, blockSize, blockCount int) (*Store, error) {
	if blockSize <= 0 {
		return nil, fmt.Errorf("block size must be positive, got %d", blockSize)
	}
	if blockCount <= 0 || blockCount > MaxBlocks {
		return nil, fmt.Errorf("block count must be in [1, %d], got %d", MaxBlocks, blockCount)
	}
	required := int64(blockSize) * int64(blockCount)
	if device.Size() < required {
		return nil, fmt.Errorf("device holds %d bytes but %d blocks of %d bytes need %d",
			device.Size(), blockCount, blockSize, required)
	}
	return &Store{
		device:     device,
		blockSize:  blockSize,
		blockCount: blockCount,
		zero:       make([]byte, blockSize),
	}, nil
}

// BlockSize returns the block size in bytes.
func (s *Store) BlockSize() int { return s.blockSize }

// BlockCount returns the number of addressable blocks.
func (s *Store) BlockCount() int { return s.blockCount }

// Device returns the underlying device.
func (s *Store) Device() Device { return s.device }

// ReadBlock reads block id into buffer, which must be at least one
// block long. Only the first BlockSize bytes of buffer are filled.
func (s *Store) ReadBlock(id BlockID, buffer []byte) error {
	if err := s.check(id, buffer); err != nil {
		return err
	}
	if _, err := s.device.ReadAt(buffer[:s.blockSize], s.offset(id)); err != nil {
		return fmt.Errorf("reading block %d: %w: %w", id, ErrIO, err)
	}
	return nil
}

// WriteBlock writes the first BlockSize bytes of buffer to block id.
func (s *Store) WriteBlock(id BlockID, buffer []byte) error {
	if err := s.check(id, buffer); err != nil {
		return err
	}
	if _, err := s.device.WriteAt(buffer[:s.blockSize], s.offset(id)); err != nil {
		return fmt.Errorf("writing block %d: %w: %w", id, ErrIO, err)
	}
	return nil
}

// ZeroBlock overwrites block id with zeros.
func (s *Store) ZeroBlock(id BlockID) error {
	return s.WriteBlock(id, s.zero)
}

// Sync flushes the device.
func (s *Store) Sync() error {
	if err := s.device.Sync(); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	return nil
}

// Close closes the device.
func (s *Store) Close() error {
	if err := s.device.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	return nil
}

func (s *Store) check(id BlockID, buffer []byte) error {
	if int(id) >= s.blockCount {
		return fmt.Errorf("block %d of %d: %w", id, s.blockCount, ErrOutOfRange)
	}
	if len(buffer) < s.blockSize {
		return fmt.Errorf("buffer of %d bytes is smaller than block size %d", len(buffer), s.blockSize)
	}
	return nil
}

func (s *Store) offset(id BlockID) int64 {
	return int64(id) * int64(s.blockSize)
}
