// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package chainfs implements a small hierarchical filesystem stored
// inside a single block container (an image file or raw device).
//
// The format is deliberately minimal. Block 0 starts with a 16-byte
// superblock, and the rest of block 0 plus the following table blocks
// hold the allocation table: one 16-bit "next block" pointer per
// block, with 0 terminating a chain. The same chains describe file
// data, directory contents, and the free list. The entry for block N
// lives at table index N+8, so the first eight table slots alias the
// superblock and the slot for block 0 holds the free-list head.
//
// Directories are chains of 8-byte records. A header record carries a
// file's attributes, first block, and size; its name follows in up to
// 36 chunk records of 7 bytes each (252 bytes maximum). Removed
// records are tombstoned with [AttrDeleted] and reused first-fit by
// later inserts whose record count matches the tombstone run exactly.
//
// An [FS] owns one mounted container: the block [blockstore.Store],
// a single-block write-back cache over the allocation table, and the
// superblock mirror. Table writes reach the container only when the
// cache moves to another table block, on [FS.Flush], and on
// [FS.Close]. There is no journal: a crash between a data write and a
// flush can leave the free list and the directory tree disagreeing,
// which [FS.Check] detects.
//
// An FS performs no locking. Callers that share one across goroutines
// must serialize every call, including calls on [File] and
// [DirIterator] values obtained from it.
//
// Errors returned by path operations are [*PathError] values wrapping
// one of the package's sentinel errors. Use errors.Is to test for a
// condition, or [KindOf] to classify an error for display.
package chainfs
