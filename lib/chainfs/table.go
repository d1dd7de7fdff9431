// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chainfs

import (
	"encoding/binary"
	"fmt"

	"github.com/bureau-foundation/chainfs/lib/blockstore"
)

// BlockID is a physical block number. Block 0 holds the superblock,
// so 0 doubles as the chain terminator and as the logical block whose
// table entry is the free-list head.
type BlockID = blockstore.BlockID

// tableCache holds one allocation table block in memory. A request
// for an entry in another table block writes the cached block back
// (when dirty) and loads the new one.
type tableCache struct {
	store       *blockstore.Store
	totalBlocks int
	perBlock    int

	buffer []byte
	cached int
	dirty  bool
}

func newTableCache(store *blockstore.Store, totalBlocks int) *tableCache {
	return &tableCache{
		store:       store,
		totalBlocks: totalBlocks,
		perBlock:    store.BlockSize() / 2,
		buffer:      make([]byte, store.BlockSize()),
		cached:      -1,
	}
}

// load makes table block tableBlock the cached one.
func (c *tableCache) load(tableBlock int) error {
	if c.cached == tableBlock {
		return nil
	}
	if err := c.flush(); err != nil {
		return err
	}
	if err := c.store.ReadBlock(BlockID(tableBlock), c.buffer); err != nil {
		c.cached = -1
		return fmt.Errorf("loading allocation table block %d: %w", tableBlock, err)
	}
	c.cached = tableBlock
	return nil
}

// get returns the raw 16-bit value at table index index. Indexes 0
// through 7 alias the superblock fields.
func (c *tableCache) get(index int) (uint16, error) {
	if err := c.load(index / c.perBlock); err != nil {
		return 0, err
	}
	offset := (index % c.perBlock) * 2
	return binary.LittleEndian.Uint16(c.buffer[offset:]), nil
}

func (c *tableCache) set(index int, value uint16) error {
	if err := c.load(index / c.perBlock); err != nil {
		return err
	}
	offset := (index % c.perBlock) * 2
	binary.LittleEndian.PutUint16(c.buffer[offset:], value)
	c.dirty = true
	return nil
}

// entry returns the block following block in its chain, or 0 at the
// end of a chain. entry(0) is the free-list head.
func (c *tableCache) entry(block BlockID) (BlockID, error) {
	if int(block) >= c.totalBlocks {
		return 0, fmt.Errorf("table entry for block %d of %d: %w", block, c.totalBlocks, ErrBlockOutOfRange)
	}
	value, err := c.get(int(block) + tableBias)
	return BlockID(value), err
}

func (c *tableCache) setEntry(block, next BlockID) error {
	if int(block) >= c.totalBlocks {
		return fmt.Errorf("table entry for block %d of %d: %w", block, c.totalBlocks, ErrBlockOutOfRange)
	}
	return c.set(int(block)+tableBias, uint16(next))
}

// flush writes the cached block back if it was modified.
func (c *tableCache) flush() error {
	if !c.dirty || c.cached < 0 {
		return nil
	}
	if err := c.store.WriteBlock(BlockID(c.cached), c.buffer); err != nil {
		return fmt.Errorf("writing allocation table block %d: %w", c.cached, err)
	}
	c.dirty = false
	return nil
}

// invalidate drops the cached block without writing it.
func (c *tableCache) invalidate() {
	c.cached = -1
	c.dirty = false
}
