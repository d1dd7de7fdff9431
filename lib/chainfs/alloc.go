// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chainfs

import (
	"fmt"
)

// setFreeCount records the live free block counter in the superblock
// mirror and in its aliased table slot.
func (f *FS) setFreeCount(count int) error {
	f.freeBlocks = count
	return f.table.set(freeCountIndex, uint16(count))
}

// setFreeHead records a new free-list head.
func (f *FS) setFreeHead(head BlockID) error {
	f.freeHead = head
	return f.table.setEntry(0, head)
}

// allocateOne detaches the head of the free list. The returned
// block's table entry is 0; its contents are whatever the previous
// owner left there.
func (f *FS) allocateOne() (BlockID, error) {
	block := f.freeHead
	if block == 0 {
		return 0, ErrOutOfSpace
	}
	next, err := f.table.entry(block)
	if err != nil {
		return 0, err
	}
	if err := f.setFreeHead(next); err != nil {
		return 0, err
	}
	if err := f.table.setEntry(block, 0); err != nil {
		return 0, err
	}
	return block, f.setFreeCount(f.freeBlocks - 1)
}

// allocateChain detaches the first count blocks of the free list as
// one chain and returns its first block. The list is walked before
// anything is modified, so a request longer than the list fails with
// ErrOutOfSpace and leaves the allocator untouched.
func (f *FS) allocateChain(count int) (BlockID, error) {
	if count <= 0 {
		return 0, fmt.Errorf("allocating %d blocks: %w", count, ErrInvalidArgument)
	}
	first := f.freeHead
	if first == 0 {
		return 0, ErrOutOfSpace
	}
	last := first
	for i := 1; i < count; i++ {
		next, err := f.table.entry(last)
		if err != nil {
			return 0, err
		}
		if next == 0 {
			return 0, fmt.Errorf("%d blocks requested, %d free: %w", count, i, ErrOutOfSpace)
		}
		last = next
	}

	newHead, err := f.table.entry(last)
	if err != nil {
		return 0, err
	}
	if err := f.setFreeHead(newHead); err != nil {
		return 0, err
	}
	if err := f.table.setEntry(last, 0); err != nil {
		return 0, err
	}
	return first, f.setFreeCount(f.freeBlocks - count)
}

// free returns the chain starting at head to the front of the free
// list. A zero head is a no-op.
func (f *FS) free(head BlockID) error {
	if head == 0 {
		return nil
	}
	tail := head
	length := 1
	for {
		next, err := f.table.entry(tail)
		if err != nil {
			return err
		}
		if next == 0 {
			break
		}
		length++
		if length > f.totalBlocks {
			return fmt.Errorf("chain starting at block %d does not terminate: %w", head, ErrBadFormat)
		}
		tail = next
	}

	if err := f.table.setEntry(tail, f.freeHead); err != nil {
		return err
	}
	if err := f.setFreeHead(head); err != nil {
		return err
	}
	return f.setFreeCount(f.freeBlocks + length)
}

// nextOrAllocate returns the block after block in its chain,
// extending the chain by one freshly allocated block if block is the
// tail. With zero set the new block is cleared first.
func (f *FS) nextOrAllocate(block BlockID, zero bool) (BlockID, error) {
	next, err := f.table.entry(block)
	if err != nil {
		return 0, err
	}
	if next != 0 {
		return next, nil
	}
	next, err = f.allocateOne()
	if err != nil {
		return 0, err
	}
	if zero {
		if err := f.store.ZeroBlock(next); err != nil {
			return 0, err
		}
	}
	if err := f.table.setEntry(block, next); err != nil {
		return 0, err
	}
	return next, nil
}
