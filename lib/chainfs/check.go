// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chainfs

import (
	"errors"
	"fmt"
	"io"
	"path"
)

// CheckReport is the result of a consistency check.
type CheckReport struct {
	TotalBlocks int `json:"total_blocks"`
	TableBlocks int `json:"table_blocks"`

	// UsedBlocks counts blocks reachable from the root directory,
	// including the root directory's own blocks.
	UsedBlocks int `json:"used_blocks"`

	// FreeListLength counts blocks reachable from the free-list head.
	FreeListLength int `json:"free_list_length"`

	// FreeCounter is the free block count recorded in the superblock.
	FreeCounter int `json:"free_counter"`

	// LostBlocks counts blocks that belong to no chain.
	LostBlocks int `json:"lost_blocks"`

	Files       int `json:"files"`
	Directories int `json:"directories"`

	Problems []string `json:"problems,omitempty"`
}

// OK reports whether the check found no problems.
func (r *CheckReport) OK() bool { return len(r.Problems) == 0 }

func (r *CheckReport) problem(format string, args ...any) {
	r.Problems = append(r.Problems, fmt.Sprintf(format, args...))
}

type blockOwner uint8

const (
	ownerNone blockOwner = iota
	ownerTable
	ownerTree
	ownerFree
)

type checker struct {
	fs     *FS
	report *CheckReport
	owner  []blockOwner
}

// Check walks every chain reachable from the root directory and the
// free list and cross-checks them against each other and against the
// superblock counter. It reports cross-linked, cyclic, and truncated
// chains, pointers into the allocation table, and blocks that belong
// to no chain. Check only reads the container.
//
// An error is returned only when the walk itself cannot proceed (a
// device failure); corruption is described in the report.
func (f *FS) Check() (*CheckReport, error) {
	if err := f.usable(); err != nil {
		return nil, pathError("check", "/", err)
	}

	report := &CheckReport{
		TotalBlocks: f.totalBlocks,
		TableBlocks: int(f.root),
		FreeCounter: f.freeBlocks,
	}
	c := &checker{fs: f, report: report, owner: make([]blockOwner, f.totalBlocks)}
	for block := 0; block < int(f.root); block++ {
		c.owner[block] = ownerTable
	}

	if err := c.walkDirectory("/", f.rootInfo()); err != nil {
		return nil, pathError("check", "/", err)
	}

	length, err := c.walkChain("free list", f.freeHead, ownerFree)
	if err != nil {
		return nil, pathError("check", "/", err)
	}
	report.FreeListLength = length

	for block := range c.owner {
		if c.owner[block] == ownerNone {
			report.LostBlocks++
		}
	}

	expected := f.totalBlocks - report.TableBlocks - report.UsedBlocks
	if report.FreeCounter != expected {
		report.problem("superblock records %d free blocks, %d are not in use", report.FreeCounter, expected)
	}
	if report.FreeListLength != report.FreeCounter {
		report.problem("free list holds %d blocks, superblock records %d", report.FreeListLength, report.FreeCounter)
	}
	if report.LostBlocks > 0 {
		report.problem("%d blocks belong to no chain", report.LostBlocks)
	}

	for _, problem := range report.Problems {
		f.logger.Warn("consistency check", "problem", problem)
	}
	return report, nil
}

// walkChain marks every block of the chain starting at head and
// returns the number of blocks it claimed. The walk stops at the
// first block that is out of range or already owned.
func (c *checker) walkChain(name string, head BlockID, owner blockOwner) (int, error) {
	length := 0
	for block := head; block != 0; {
		if int(block) >= c.fs.totalBlocks {
			c.report.problem("%s: pointer to block %d past the end of the container", name, block)
			break
		}
		switch c.owner[block] {
		case ownerTable:
			c.report.problem("%s: pointer to allocation table block %d", name, block)
			return length, nil
		case ownerTree, ownerFree:
			c.report.problem("%s: block %d is already part of another chain (cross-linked or cyclic)", name, block)
			return length, nil
		}
		c.owner[block] = owner
		if owner == ownerTree {
			c.report.UsedBlocks++
		}
		length++

		next, err := c.fs.table.entry(block)
		if err != nil {
			return length, err
		}
		block = next
	}
	return length, nil
}

func (c *checker) walkDirectory(name string, dir *FileInfo) error {
	c.report.Directories++
	if dir.FirstBlock == 0 {
		return nil
	}
	length, err := c.walkChain(name, dir.FirstBlock, ownerTree)
	if err != nil {
		return err
	}
	if length == 0 {
		return nil
	}

	var children []*FileInfo
	iterator := c.fs.iterate(dir)
	for {
		info, err := iterator.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			iterator.Close()
			if errors.Is(err, ErrIO) {
				return err
			}
			c.report.problem("%s: %v", name, err)
			break
		}
		children = append(children, info)
	}
	iterator.Close()

	for _, child := range children {
		childName := path.Join(name, child.Name)
		if child.IsDir() {
			if err := c.walkDirectory(childName, child); err != nil {
				return err
			}
			continue
		}
		c.report.Files++
		length, err := c.walkChain(childName, child.FirstBlock, ownerTree)
		if err != nil {
			return err
		}
		if needed := ceilDiv(int(child.Size), c.fs.blockSize); length < needed {
			c.report.problem("%s: size %d needs %d blocks, chain has %d", childName, child.Size, needed, length)
		}
	}
	return nil
}
